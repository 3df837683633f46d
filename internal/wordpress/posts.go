package wordpress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// StatusFuture is the WordPress status for scheduled posts
const StatusFuture = "future"

// PostRequest describes a post to create
type PostRequest struct {
	Title         string
	Content       string
	PublishStatus models.PublishStatus
	ScheduleAt    *time.Time
	SEO           SEOMeta
	Uploads       []ImageUpload
}

// PostResult is the outcome of a post creation. Remote failures are
// reported here rather than as an error.
type PostResult struct {
	Success        bool   `json:"success"`
	PostID         int64  `json:"post_id,omitempty"`
	PostURL        string `json:"post_url,omitempty"`
	Status         string `json:"status,omitempty"`
	Slug           string `json:"slug,omitempty"`
	Error          string `json:"error,omitempty"`
	UploadedImages int    `json:"uploaded_images"`
	FailedImages   int    `json:"failed_images"`
}

type postBody struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Status        string            `json:"status"`
	Slug          string            `json:"slug,omitempty"`
	Excerpt       string            `json:"excerpt,omitempty"`
	FeaturedMedia int64             `json:"featured_media,omitempty"`
	DateGMT       string            `json:"date_gmt,omitempty"`
	Meta          map[string]string `json:"meta"`
}

type postResponse struct {
	ID     int64  `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
	Slug   string `json:"slug"`
}

// CreatePost submits a post. Markup-free content is rendered from markdown,
// SEO fields are derived unless overridden and the first successful upload
// becomes the featured image.
func (c *Client) CreatePost(ctx context.Context, req PostRequest) PostResult {
	result := countUploads(req.Uploads)

	status, err := resolveStatus(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	content, err := PrepareContent(req.Content)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	seo := req.SEO.Merge(DeriveSEO(req.Title, req.Content))
	body := postBody{
		Title:   req.Title,
		Content: content,
		Status:  status,
		Slug:    seo.Slug,
		Excerpt: seo.MetaDescription,
		Meta: map[string]string{
			"_yoast_wpseo_metadesc": seo.MetaDescription,
			"_yoast_wpseo_focuskw":  seo.FocusKeywords,
			"_yoast_wpseo_title":    req.Title,
		},
	}
	for _, u := range req.Uploads {
		if u.Success {
			body.FeaturedMedia = u.MediaID
			break
		}
	}
	if req.ScheduleAt != nil {
		body.DateGMT = req.ScheduleAt.UTC().Format("2006-01-02T15:04:05")
	}

	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()

	var created postResponse
	var apiErr apiError
	res, err := c.api.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&created).
		SetError(&apiErr).
		Post("/wp-json/wp/v2/posts")
	if err != nil {
		c.log.Error().Err(err).Str("title", req.Title).Msg("Post creation failed")
		result.Error = fmt.Sprintf("WordPress publish failed: %v", err)
		return result
	}
	if res.IsError() {
		msg := remoteError(res, &apiErr)
		c.log.Error().Int("status", res.StatusCode()).Str("title", req.Title).Str("error", msg).Msg("Post creation rejected")
		result.Error = "WordPress publish failed: " + msg
		return result
	}

	c.log.Info().Int64("post_id", created.ID).Str("status", created.Status).Str("title", req.Title).Msg("Post created")
	result.Success = true
	result.PostID = created.ID
	result.PostURL = created.Link
	result.Status = created.Status
	result.Slug = created.Slug
	return result
}

// PublishWithImages uploads images, points the content at the hosted copies
// and creates the post
func (c *Client) PublishWithImages(ctx context.Context, req PostRequest, images []ImageRef) PostResult {
	var refs []ImageRef
	for _, ref := range images {
		// Images already in this site's media library need no re-upload
		if strings.HasPrefix(ref.URL, c.siteURL+"/") {
			continue
		}
		refs = append(refs, ref)
	}

	uploads := c.UploadImages(ctx, refs, req.Title)
	req.Content = RewriteImageURLs(req.Content, uploads)
	req.Uploads = append(req.Uploads, uploads...)
	return c.CreatePost(ctx, req)
}

func resolveStatus(req PostRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("post title is required")
	}
	if !req.PublishStatus.Valid() {
		return "", fmt.Errorf("publish status must be %q or %q, got %q", models.PublishStatusDraft, models.PublishStatusPublish, req.PublishStatus)
	}
	if req.ScheduleAt != nil {
		return StatusFuture, nil
	}
	return string(req.PublishStatus), nil
}

func countUploads(uploads []ImageUpload) PostResult {
	var r PostResult
	for _, u := range uploads {
		if u.Success {
			r.UploadedImages++
		} else {
			r.FailedImages++
		}
	}
	return r
}
