// Package wordpress publishes generated posts through the WordPress REST API.
package wordpress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/utils"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Request timeouts per call kind
const (
	downloadTimeout   = 30 * time.Second
	uploadTimeout     = 60 * time.Second
	postTimeout       = 60 * time.Second
	connectionTimeout = 15 * time.Second
	apiCheckTimeout   = 10 * time.Second

	defaultUploadAttempts = 3
	defaultRetryDelay     = 2 * time.Second
	maxImageBytes         = 10 << 20

	userAgent      = "ContentPublishingTool/1.0"
	imageUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ErrMissingCredentials is returned when a site lacks a URL, user or password
var ErrMissingCredentials = errors.New("wordpress credentials are incomplete")

// Credentials identify a WordPress site and an application password
type Credentials struct {
	SiteURL     string `json:"site_url" validate:"required,url"`
	Username    string `json:"username" validate:"required"`
	AppPassword string `json:"app_password" validate:"required"`
}

// Valid reports whether every field is set
func (c Credentials) Valid() bool {
	return c.SiteURL != "" && c.Username != "" && c.AppPassword != ""
}

// Client is a WordPress REST client bound to one site
type Client struct {
	siteURL        string
	api            *resty.Client
	fetch          *resty.Client
	uploadAttempts int
	retryDelay     time.Duration
	sleep          func(context.Context, time.Duration) error
	now            func() time.Time
	log            zerolog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithRetryDelay sets the wait between image upload attempts
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithSleep replaces the wait used between attempts
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

// WithClock replaces the time source used for media file names
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the client logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient returns a client authenticating with HTTP basic auth
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if !creds.Valid() {
		return nil, ErrMissingCredentials
	}

	siteURL := strings.TrimRight(strings.TrimSpace(creds.SiteURL), "/")
	c := &Client{
		siteURL: siteURL,
		api: resty.New().
			SetBaseURL(siteURL).
			SetBasicAuth(creds.Username, creds.AppPassword).
			SetHeader("User-Agent", userAgent),
		fetch: resty.New().
			SetHeader("User-Agent", imageUserAgent),
		uploadAttempts: defaultUploadAttempts,
		retryDelay:     defaultRetryDelay,
		sleep:          utils.Sleep,
		now:            time.Now,
		log:            logger.For("wordpress").With().Str("site", siteURL).Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SiteURL returns the normalized site root
func (c *Client) SiteURL() string {
	return c.siteURL
}

// apiError is the error document WordPress returns on 4xx/5xx
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// remoteError prefers the CMS message over the HTTP status text
func remoteError(res *resty.Response, body *apiError) string {
	if body != nil && body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("HTTP %d: %s", res.StatusCode(), http.StatusText(res.StatusCode()))
}

// ConnectionResult is the outcome of a credential check
type ConnectionResult struct {
	Success  bool     `json:"success"`
	Site     string   `json:"site,omitempty"`
	Username string   `json:"username,omitempty"`
	Name     string   `json:"name,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// TestConnection checks that the REST API is reachable and then resolves the
// authenticated user. It never returns an error; failures are reported in
// the result.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	info, err := c.CheckAPI(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Connection test failed")
		return ConnectionResult{Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	var user struct {
		ID       int64    `json:"id"`
		Username string   `json:"username"`
		Name     string   `json:"name"`
		Slug     string   `json:"slug"`
		Roles    []string `json:"roles"`
	}
	var apiErr apiError

	res, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("context", "edit").
		SetResult(&user).
		SetError(&apiErr).
		Get("/wp-json/wp/v2/users/me")
	if err != nil {
		c.log.Warn().Err(err).Msg("Connection test failed")
		return ConnectionResult{Error: err.Error()}
	}
	if res.StatusCode() != http.StatusOK {
		msg := remoteError(res, &apiErr)
		c.log.Warn().Int("status", res.StatusCode()).Str("error", msg).Msg("Connection test rejected")
		return ConnectionResult{Error: msg}
	}

	username := user.Username
	if username == "" {
		username = user.Slug
	}
	return ConnectionResult{Success: true, Site: info.Name, Username: username, Name: user.Name, Roles: user.Roles}
}

// SiteInfo is the subset of the REST index document we care about
type SiteInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// CheckAPI verifies that the REST API index is reachable
func (c *Client) CheckAPI(ctx context.Context) (*SiteInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, apiCheckTimeout)
	defer cancel()

	var info SiteInfo
	res, err := c.fetch.R().
		SetContext(ctx).
		SetResult(&info).
		Get(c.siteURL + "/wp-json/")
	if err != nil {
		return nil, fmt.Errorf("REST API unreachable: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("REST API unreachable: %s", res.Status())
	}
	return &info, nil
}

// PostSummary is one entry of a post listing
type PostSummary struct {
	ID     int64  `json:"id"`
	Link   string `json:"link"`
	Status string `json:"status"`
	Slug   string `json:"slug"`
	Date   string `json:"date"`
	Title  struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

// PostList is a page of posts plus the totals WordPress reports in headers
type PostList struct {
	Posts      []PostSummary `json:"posts"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// ListPosts fetches one page of posts
func (c *Client) ListPosts(ctx context.Context, page, perPage int) (*PostList, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	var posts []PostSummary
	var apiErr apiError
	res, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":     strconv.Itoa(page),
			"per_page": strconv.Itoa(perPage),
		}).
		SetResult(&posts).
		SetError(&apiErr).
		Get("/wp-json/wp/v2/posts")
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to list posts: %s", remoteError(res, &apiErr))
	}

	total, _ := strconv.Atoi(res.Header().Get("X-WP-Total"))
	pages, _ := strconv.Atoi(res.Header().Get("X-WP-TotalPages"))
	return &PostList{Posts: posts, Total: total, TotalPages: pages}, nil
}
