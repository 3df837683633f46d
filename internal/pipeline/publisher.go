package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/utils"
	"github.com/bilgisen/contentpipe/internal/wordpress"
)

// StatusSavedLocally is reported for posts written as artifacts instead of
// being sent to a CMS
const StatusSavedLocally = "saved_locally"

// PublishInput is one generated post ready to leave the pipeline
type PublishInput struct {
	Title         string
	Content       string
	PublishStatus models.PublishStatus
	ScheduleAt    *time.Time
	Images        []string
	SEO           wordpress.SEOMeta
}

// PublishOutput describes where a post ended up
type PublishOutput struct {
	PostID         string
	URL            string
	Status         string
	UploadedImages int
	FailedImages   int
}

// Publisher delivers a generated post
type Publisher interface {
	Publish(ctx context.Context, in PublishInput) (*PublishOutput, error)
}

// WordPressPublisher uploads images and creates the post on a WordPress site
type WordPressPublisher struct {
	client *wordpress.Client
}

func NewWordPressPublisher(client *wordpress.Client) *WordPressPublisher {
	return &WordPressPublisher{client: client}
}

// Publish re-hosts row images and images referenced in the content, then
// creates the post. Image failures never fail the post.
func (p *WordPressPublisher) Publish(ctx context.Context, in PublishInput) (*PublishOutput, error) {
	refs := make([]wordpress.ImageRef, 0, len(in.Images))
	seen := make(map[string]bool)
	for _, u := range in.Images {
		if !seen[u] {
			seen[u] = true
			refs = append(refs, wordpress.ImageRef{URL: u, Alt: in.Title})
		}
	}
	for _, ref := range wordpress.ExtractImageURLs(in.Content) {
		if !seen[ref.URL] {
			seen[ref.URL] = true
			refs = append(refs, ref)
		}
	}

	res := p.client.PublishWithImages(ctx, wordpress.PostRequest{
		Title:         in.Title,
		Content:       in.Content,
		PublishStatus: in.PublishStatus,
		ScheduleAt:    in.ScheduleAt,
		SEO:           in.SEO,
	}, refs)

	out := &PublishOutput{
		Status:         res.Status,
		UploadedImages: res.UploadedImages,
		FailedImages:   res.FailedImages,
	}
	if !res.Success {
		return out, errors.New(res.Error)
	}
	out.PostID = strconv.FormatInt(res.PostID, 10)
	out.URL = res.PostURL
	return out, nil
}

var unsafeNameRe = regexp.MustCompile(`[^A-Za-z0-9]`)

// ArtifactPublisher writes posts as HTML files when no CMS is configured
type ArtifactPublisher struct {
	store storage.ArtifactStore
}

func NewArtifactPublisher(store storage.ArtifactStore) *ArtifactPublisher {
	return &ArtifactPublisher{store: store}
}

// Publish stores the rendered post under generated_posts/<ArtifactName>.html
func (p *ArtifactPublisher) Publish(ctx context.Context, in PublishInput) (*PublishOutput, error) {
	html, err := wordpress.PrepareContent(in.Content)
	if err != nil {
		return nil, err
	}

	location, err := p.store.Put(ctx, "generated_posts/"+ArtifactName(in.Title)+".html", []byte(html), "text/html; charset=utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to save post: %w", err)
	}
	return &PublishOutput{URL: location, Status: StatusSavedLocally}, nil
}

// ArtifactName is the file name of a saved post: the safe title plus a hash
// of the full title, so titles that sanitize alike stay apart
func ArtifactName(title string) string {
	return utils.ContentID(SafeFileName(title), []byte(title))
}

// SafeFileName replaces anything but ASCII letters and digits with '_' and
// keeps at most 50 characters
func SafeFileName(title string) string {
	name := unsafeNameRe.ReplaceAllString(title, "_")
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "post"
	}
	return name
}

// PublisherResolver picks the publisher for a job
type PublisherResolver interface {
	Resolve(ctx context.Context, job *models.BulkJob) (Publisher, error)
}

// SiteGetter looks registered sites up by id
type SiteGetter interface {
	GetSite(ctx context.Context, id string) (*models.Site, error)
}

// SiteResolver resolves a job's site to a WordPress publisher. Jobs without a
// site use the default credentials, then the artifact store.
type SiteResolver struct {
	sites     SiteGetter
	defaults  wordpress.Credentials
	artifacts storage.ArtifactStore
	opts      []wordpress.Option
}

// NewSiteResolver accepts zero default credentials and a nil artifact store
func NewSiteResolver(sites SiteGetter, defaults wordpress.Credentials, artifacts storage.ArtifactStore, opts ...wordpress.Option) *SiteResolver {
	return &SiteResolver{sites: sites, defaults: defaults, artifacts: artifacts, opts: opts}
}

// Resolve fails with wordpress.ErrMissingCredentials when the job asks for a
// site that cannot be used; that failure aborts the whole run
func (r *SiteResolver) Resolve(ctx context.Context, job *models.BulkJob) (Publisher, error) {
	if job.WordPressSiteID != "" {
		site, err := r.sites.GetSite(ctx, job.WordPressSiteID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", wordpress.ErrMissingCredentials, err)
		}
		return r.wordpress(wordpress.Credentials{SiteURL: site.URL, Username: site.Username, AppPassword: site.AppPassword})
	}

	if r.defaults.Valid() {
		return r.wordpress(r.defaults)
	}
	if r.artifacts != nil {
		return NewArtifactPublisher(r.artifacts), nil
	}
	return nil, fmt.Errorf("%w: set WORDPRESS_SITE_URL, WORDPRESS_USERNAME and WORDPRESS_APP_PASSWORD or pass a site", wordpress.ErrMissingCredentials)
}

func (r *SiteResolver) wordpress(creds wordpress.Credentials) (Publisher, error) {
	client, err := wordpress.NewClient(creds, r.opts...)
	if err != nil {
		return nil, err
	}
	return NewWordPressPublisher(client), nil
}
