package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bilgisen/contentpipe/internal/ai"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/bilgisen/contentpipe/internal/sheet"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/utils"
	"github.com/bilgisen/contentpipe/internal/wordpress"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultRowDelay = 5 * time.Second
	DefaultLeaseTTL = 2 * time.Hour
)

// ContentGenerator produces article text for one row
type ContentGenerator interface {
	Generate(ctx context.Context, topic, prompt string) (*ai.Generation, error)
}

// Orchestrator runs a bulk job row by row
type Orchestrator struct {
	store      JobStore
	generator  ContentGenerator
	publishers PublisherResolver
	style      ai.StyleGuide
	references ReferenceFetcher
	seo        ai.Completer
	manifests  storage.ArtifactStore
	rowDelay   time.Duration
	leaseTTL   time.Duration
	owner      string
	location   *time.Location
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	log        zerolog.Logger
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithStyle sets the writing style embedded in prompts
func WithStyle(style ai.StyleGuide) Option {
	return func(o *Orchestrator) { o.style = style }
}

// WithRowDelay sets the pause between two processed rows
func WithRowDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.rowDelay = d }
}

// WithLeaseTTL sets how long a run holds its job lease
func WithLeaseTTL(d time.Duration) Option {
	return func(o *Orchestrator) { o.leaseTTL = d }
}

// WithOwner names the worker holding leases; defaults to the host name.
// Every run adds its own suffix, so two runs never share a lease.
func WithOwner(owner string) Option {
	return func(o *Orchestrator) { o.owner = owner }
}

// WithReferences enables fetching URL references into the prompt
func WithReferences(f ReferenceFetcher) Option {
	return func(o *Orchestrator) { o.references = f }
}

// WithSEOSuggestions asks c for slug and meta description suggestions
func WithSEOSuggestions(c ai.Completer) Option {
	return func(o *Orchestrator) { o.seo = c }
}

// WithManifests stores a CSV manifest of every finished job
func WithManifests(store storage.ArtifactStore) Option {
	return func(o *Orchestrator) { o.manifests = store }
}

// WithLocation sets the time zone schedule cells are read in
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) { o.location = loc }
}

// WithSleep replaces the wait between rows
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithClock replaces the time source for step and publish timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLogger sets the orchestrator logger
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func NewOrchestrator(store JobStore, generator ContentGenerator, publishers PublisherResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		generator:  generator,
		publishers: publishers,
		style:      ai.DefaultStyle(),
		rowDelay:   DefaultRowDelay,
		leaseTTL:   DefaultLeaseTTL,
		owner:      defaultOwner(),
		location:   time.Local,
		sleep:      utils.Sleep,
		now:        time.Now,
		log:        logger.For("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func defaultOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker"
	}
	return host
}

// Run processes every unpublished post of the job in order. Published posts
// are skipped, so Run doubles as resume. Per-row failures are recorded on the
// post and do not stop the run; an unusable publisher or a failing job store
// fails the job and is returned.
//
// The lease is renewed before every row. A run that finds its lease taken
// stops with ErrLeaseHeld and leaves the job to the new holder.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	owner := o.owner + ":" + uuid.NewString()
	if err := o.store.AcquireLease(ctx, jobID, owner, o.leaseTTL); err != nil {
		return fmt.Errorf("failed to lease job %s: %w", jobID, err)
	}
	defer func() {
		if err := o.store.ReleaseLease(context.WithoutCancel(ctx), jobID, owner); err != nil {
			o.log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to release job lease")
		}
	}()

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	log := o.log.With().Str("job_id", job.ID).Logger()
	start := o.now()

	o.startRun(job)
	if err := o.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}
	log.Info().Int("total_posts", job.TotalPosts).Int("already_published", job.SuccessfulPosts).Msg("Starting bulk job")

	publisher, err := o.publishers.Resolve(ctx, job)
	if err != nil {
		o.failJob(ctx, job, fmt.Sprintf("Cannot publish: %v", err))
		return err
	}

	processed := false
	for i := range job.Posts {
		if job.Posts[i].Status == models.PostStatusPublished {
			log.Debug().Str("title", job.Posts[i].Title).Msg("Skipping published post")
			continue
		}

		if processed && o.rowDelay > 0 {
			log.Info().Dur("delay", o.rowDelay).Msg("Waiting before next post")
			if err := o.sleep(ctx, o.rowDelay); err != nil {
				o.failJob(ctx, job, fmt.Sprintf("Interrupted: %v", err))
				return err
			}
		}
		processed = true

		if err := o.store.AcquireLease(ctx, jobID, owner, o.leaseTTL); err != nil {
			if errors.Is(err, models.ErrLeaseHeld) {
				log.Warn().Err(err).Msg("Lost job lease, stopping")
				return fmt.Errorf("lost lease on job %s: %w", jobID, err)
			}
			err = fmt.Errorf("failed to renew lease: %w", err)
			o.failJob(ctx, job, err.Error())
			return err
		}

		if err := o.processRow(ctx, job, i, publisher, log); err != nil {
			o.failJob(ctx, job, err.Error())
			return err
		}
	}

	finished := o.now()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &finished
	job.RecordStep(fmt.Sprintf("Completed: %d successful, %d failed", job.SuccessfulPosts, job.FailedPosts), finished)
	o.saveManifest(ctx, job, log)
	if err := o.store.SaveJob(ctx, job); err != nil {
		err = fmt.Errorf("failed to save job: %w", err)
		o.failJob(ctx, job, err.Error())
		return err
	}

	log.Info().
		Int("successful_posts", job.SuccessfulPosts).
		Int("failed_posts", job.FailedPosts).
		Dur("duration", finished.Sub(start)).
		Msg("Finished bulk job")
	return nil
}

// startRun marks the job processing, resets retryable posts and recomputes
// counters from the posts already published
func (o *Orchestrator) startRun(job *models.BulkJob) {
	now := o.now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &now
	job.CompletedAt = nil
	job.Error = ""

	reset := 0
	for i := range job.Posts {
		if job.Posts[i].ResetForRetry() {
			reset++
		}
	}
	if reset > 0 {
		job.RecordStep(fmt.Sprintf("Reset %d posts for retry", reset), now)
	}

	published := job.CountByStatus(models.PostStatusPublished)
	job.TotalPosts = len(job.Posts)
	job.ProcessedPosts = published
	job.SuccessfulPosts = published
	job.FailedPosts = 0
	job.RecordStep(fmt.Sprintf("Processing %d of %d posts", job.TotalPosts-published, job.TotalPosts), now)
}

// processRow runs one post through generation and publishing. Row failures
// are recorded on the post; only job store errors and cancellation are
// returned.
func (o *Orchestrator) processRow(ctx context.Context, job *models.BulkJob, i int, publisher Publisher, log zerolog.Logger) error {
	post := &job.Posts[i]
	row := post.Spec
	log = log.With().Str("title", post.Title).Int("row", i+1).Logger()

	if err := post.Transition(models.PostStatusGenerating); err != nil {
		return err
	}
	job.RecordStep(fmt.Sprintf("Generating content for %q (%d/%d)", post.Title, i+1, job.TotalPosts), o.now())
	if err := o.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	if o.references != nil && row.Reference != "" {
		material, err := o.references.Fetch(ctx, row.Reference)
		if err != nil {
			log.Warn().Err(err).Msg("Reference fetch failed")
		}
		row.ReferenceContext = material
	}

	gen, err := o.generator.Generate(ctx, row.Title, ai.BuildArticlePrompt(row, o.style))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return o.failPost(ctx, job, post, fmt.Sprintf("Content generation failed: %v", err), log)
	}
	if gen.Fallback {
		log.Warn().Msg("Using fallback content")
	}

	content := ai.Clean(gen.Text)
	post.ContentLength = ai.WordCount(content)

	var schedule *time.Time
	if row.HasSchedule() {
		if schedule, err = sheet.ParseSchedule(row.ScheduleDate, row.ScheduleTime, o.location); err != nil {
			return o.failPost(ctx, job, post, err.Error(), log)
		}
		post.ScheduledAt = schedule
		job.RecordStep(fmt.Sprintf("Scheduling %q for %s", post.Title, sheet.FormatSchedule(*schedule)), o.now())
	}

	var seo wordpress.SEOMeta
	if o.seo != nil {
		s := ai.SuggestSEO(ctx, o.seo, row.Title, content, row.Keywords)
		seo = wordpress.SEOMeta{Slug: s.Slug, MetaDescription: s.MetaDescription, FocusKeywords: s.FocusKeyword}
		log.Debug().Str("source", s.Source).Msg("SEO suggestion")
	}

	if err := post.Transition(models.PostStatusPublishing); err != nil {
		return err
	}
	job.RecordStep(fmt.Sprintf("Publishing %q (%d words)", post.Title, post.ContentLength), o.now())
	if err := o.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	out, err := publisher.Publish(ctx, PublishInput{
		Title:         row.Title,
		Content:       content,
		PublishStatus: job.PublishStatus,
		ScheduleAt:    schedule,
		Images:        row.Images,
		SEO:           seo,
	})
	if out != nil {
		post.UploadedImages = out.UploadedImages
		post.FailedImages = out.FailedImages
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return o.failPost(ctx, job, post, err.Error(), log)
	}

	now := o.now()
	post.RemoteStatus = out.Status
	if err := post.MarkPublished(out.PostID, out.URL, now); err != nil {
		return err
	}
	job.SuccessfulPosts++
	job.ProcessedPosts++
	job.RecordStep(fmt.Sprintf("Published %q", post.Title), now)
	if err := o.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	log.Info().
		Str("url", out.URL).
		Str("status", out.Status).
		Int("word_count", post.ContentLength).
		Int("uploaded_images", out.UploadedImages).
		Int("failed_images", out.FailedImages).
		Msg("Post published")
	return nil
}

func (o *Orchestrator) failPost(ctx context.Context, job *models.BulkJob, post *models.PostRecord, msg string, log zerolog.Logger) error {
	if err := post.MarkFailed(msg); err != nil {
		return err
	}
	job.FailedPosts++
	job.ProcessedPosts++
	job.RecordStep(fmt.Sprintf("Failed %q: %s", post.Title, msg), o.now())
	log.Error().Str("error", msg).Msg("Post failed")

	if err := o.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// failJob marks the job failed on a best-effort basis. A version conflict
// means someone else wrote the job, so the fresh copy is marked instead.
func (o *Orchestrator) failJob(ctx context.Context, job *models.BulkJob, msg string) {
	ctx = context.WithoutCancel(ctx)
	mark := func(j *models.BulkJob) {
		now := o.now()
		j.Status = models.JobStatusFailed
		j.Error = msg
		j.CompletedAt = &now
		j.RecordStep("Job failed: "+msg, now)
	}

	mark(job)
	err := o.store.SaveJob(ctx, job)
	if errors.Is(err, models.ErrVersionConflict) {
		var fresh *models.BulkJob
		if fresh, err = o.store.GetJob(ctx, job.ID); err == nil {
			mark(fresh)
			err = o.store.SaveJob(ctx, fresh)
		}
	}
	if err != nil {
		o.log.Error().Err(err).Str("job_id", job.ID).Str("reason", msg).Msg("Failed to record job failure")
		return
	}
	o.log.Error().Str("job_id", job.ID).Str("error", msg).Msg("Job failed")
}

func (o *Orchestrator) saveManifest(ctx context.Context, job *models.BulkJob, log zerolog.Logger) {
	if o.manifests == nil {
		return
	}
	data, err := storage.ManifestBytes(job)
	if err == nil {
		var location string
		location, err = o.manifests.Put(ctx, "manifests/"+job.ID+".csv", data, "text/csv")
		if err == nil {
			job.RecordStep("Manifest saved to "+location, o.now())
			return
		}
	}
	log.Warn().Err(err).Msg("Failed to save manifest")
}
