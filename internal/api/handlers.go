package api

import (
	"fmt"
	"time"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/middleware"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/bilgisen/contentpipe/internal/pipeline"
	"github.com/bilgisen/contentpipe/internal/queue"
	"github.com/bilgisen/contentpipe/internal/sheet"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/wordpress"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxUploadSize = 10 * 1024 * 1024 // 10MB

type Handlers struct {
	store     pipeline.JobStore
	queue     queue.Enqueuer
	providers []string
	wpOpts    []wordpress.Option
	newID     func() string
	now       func() time.Time
	log       zerolog.Logger
}

// NewHandlers wires the API to a job store and queue. providers names the AI
// providers reported by the health check; wpOpts are applied to every
// WordPress client the handlers create.
func NewHandlers(store pipeline.JobStore, q queue.Enqueuer, providers []string, wpOpts ...wordpress.Option) *Handlers {
	return &Handlers{
		store:     store,
		queue:     q,
		providers: providers,
		wpOpts:    wpOpts,
		newID:     uuid.NewString,
		now:       time.Now,
		log:       logger.For("api"),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"version":   "1.0.0",
		"providers": h.providers,
		"time":      h.now().Format(time.RFC3339),
	})
}

// CreateJob handles POST /api/v1/jobs
func (h *Handlers) CreateJob(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if file.Size > maxUploadSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "file size exceeds 10MB limit")
	}

	f, err := file.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	rows, err := sheet.Parse(file.Filename, f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	siteID := c.FormValue("site_id")
	if siteID != "" {
		if _, err := h.store.GetSite(c.Context(), siteID); err != nil {
			return err
		}
	}

	job, err := pipeline.NewJob(h.newID(), siteID, models.PublishStatus(c.FormValue("publish_status")), rows)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.store.CreateJob(c.Context(), job); err != nil {
		return err
	}

	if err := h.queue.Enqueue(c.Context(), job.ID); err != nil {
		return fmt.Errorf("job %s created but not queued: %w", job.ID, err)
	}

	h.log.Info().Str("job_id", job.ID).Int("posts", job.TotalPosts).Str("site_id", siteID).Msg("Bulk job queued")
	return c.Status(fiber.StatusAccepted).JSON(job)
}

type jobSummary struct {
	ID          string           `json:"id"`
	Status      models.JobStatus `json:"status"`
	TotalPosts  int              `json:"total_posts"`
	Processed   int              `json:"processed_posts"`
	Successful  int              `json:"successful_posts"`
	Failed      int              `json:"failed_posts"`
	CurrentStep string           `json:"current_step"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ListJobs handles GET /api/v1/jobs
func (h *Handlers) ListJobs(c *fiber.Ctx) error {
	jobs, err := h.store.ListJobs(c.Context())
	if err != nil {
		return err
	}

	items := make([]jobSummary, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, jobSummary{
			ID:          j.ID,
			Status:      j.Status,
			TotalPosts:  j.TotalPosts,
			Processed:   j.ProcessedPosts,
			Successful:  j.SuccessfulPosts,
			Failed:      j.FailedPosts,
			CurrentStep: j.CurrentStep,
			CreatedAt:   j.CreatedAt,
			CompletedAt: j.CompletedAt,
		})
	}

	return c.JSON(fiber.Map{
		"total": len(items),
		"items": items,
	})
}

// GetJob handles GET /api/v1/jobs/:id
func (h *Handlers) GetJob(c *fiber.Ctx) error {
	job, err := h.store.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(job)
}

// GetManifest handles GET /api/v1/jobs/:id/manifest
func (h *Handlers) GetManifest(c *fiber.Ctx) error {
	job, err := h.store.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	data, err := storage.ManifestBytes(job)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(storage.ManifestFile)
	return c.Send(data)
}

// ResumeJob handles POST /api/v1/jobs/:id/resume
func (h *Handlers) ResumeJob(c *fiber.Ctx) error {
	job, err := h.store.GetJob(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if job.Status == models.JobStatusProcessing {
		return fiber.NewError(fiber.StatusConflict, "job is already processing")
	}
	if job.CountByStatus(models.PostStatusPublished) == job.TotalPosts {
		return fiber.NewError(fiber.StatusConflict, "every post is already published")
	}

	if err := h.queue.Enqueue(c.Context(), job.ID); err != nil {
		return fmt.Errorf("failed to queue job %s: %w", job.ID, err)
	}

	h.log.Info().Str("job_id", job.ID).Msg("Bulk job resumed")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":     job.ID,
		"status": "queued",
	})
}

// SiteRequest carries WordPress credentials
type SiteRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url" validate:"required,url"`
	Username    string `json:"username" validate:"required"`
	AppPassword string `json:"app_password" validate:"required"`
}

func (r SiteRequest) credentials() wordpress.Credentials {
	return wordpress.Credentials{SiteURL: r.URL, Username: r.Username, AppPassword: r.AppPassword}
}

type siteView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TestSite handles POST /api/v1/sites/test
func (h *Handlers) TestSite(c *fiber.Ctx) error {
	req := middleware.Body[SiteRequest](c)
	client, err := wordpress.NewClient(req.credentials(), h.wpOpts...)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.JSON(client.TestConnection(c.Context()))
}

// RegisterSite handles POST /api/v1/sites. The credentials must pass a
// connection test before the site is stored.
func (h *Handlers) RegisterSite(c *fiber.Ctx) error {
	req := middleware.Body[SiteRequest](c)
	client, err := wordpress.NewClient(req.credentials(), h.wpOpts...)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res := client.TestConnection(c.Context())
	if !res.Success {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "Connection test failed",
			"connection": res,
		})
	}

	name := req.Name
	if name == "" {
		name = client.SiteURL()
	}
	site := &models.Site{
		ID:          h.newID(),
		Name:        name,
		URL:         client.SiteURL(),
		Username:    req.Username,
		AppPassword: req.AppPassword,
		CreatedAt:   h.now().UTC(),
	}
	if err := h.store.SaveSite(c.Context(), site); err != nil {
		return err
	}

	h.log.Info().Str("site_id", site.ID).Str("url", site.URL).Msg("Site registered")
	return c.Status(fiber.StatusCreated).JSON(siteView{
		ID:        site.ID,
		Name:      site.Name,
		URL:       site.URL,
		Username:  site.Username,
		CreatedAt: site.CreatedAt,
	})
}

// PostsQuery pages a site's post listing
type PostsQuery struct {
	Page    int `query:"page" validate:"omitempty,min=1"`
	PerPage int `query:"per_page" validate:"omitempty,min=1,max=100"`
}

// ListSitePosts handles GET /api/v1/sites/:id/posts
func (h *Handlers) ListSitePosts(c *fiber.Ctx) error {
	site, err := h.store.GetSite(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	client, err := wordpress.NewClient(wordpress.Credentials{SiteURL: site.URL, Username: site.Username, AppPassword: site.AppPassword}, h.wpOpts...)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	q := middleware.Query[PostsQuery](c)
	list, err := client.ListPosts(c.Context(), q.Page, q.PerPage)
	if err != nil {
		h.log.Warn().Err(err).Str("site_id", site.ID).Msg("Listing posts failed")
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(list)
}

// notFound answers unknown routes
func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Endpoint not found",
	})
}
