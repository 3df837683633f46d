package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
)

// fakeCMS is a minimal WordPress REST server
type fakeCMS struct {
	t  *testing.T
	mu sync.Mutex

	user, password string
	posts          []postBody
	uploads        []string
	failUploads    bool
	rejectPosts    bool
	noRESTIndex    bool
}

func (f *fakeCMS) authorized(r *http.Request) bool {
	u, p, ok := r.BasicAuth()
	return ok && u == f.user && p == f.password
}

func (f *fakeCMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/wp-json/" && r.Method == http.MethodGet && !f.noRESTIndex:
		_, _ = w.Write([]byte(`{"name":"Test Blog","description":"just testing","url":"http://example"}`))

	case r.URL.Path == "/wp-json/wp/v2/users/me":
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"rest_not_logged_in","message":"You are not currently logged in."}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"username":"editor","name":"Ed Itor","roles":["editor"]}`))

	case r.URL.Path == "/wp-json/wp/v2/media" && r.Method == http.MethodPost:
		if f.failUploads {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":"upload_error","message":"disk full"}`))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			f.t.Errorf("media upload without file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.Copy(io.Discard, file)
		f.uploads = append(f.uploads, header.Filename)
		id := len(f.uploads) + 100
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         id,
			"source_url": "http://cms.local/uploads/" + header.Filename,
		})

	case r.URL.Path == "/wp-json/wp/v2/posts" && r.Method == http.MethodPost:
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"rest_cannot_create","message":"Sorry, you are not allowed to create posts as this user."}`))
			return
		}
		if f.rejectPosts {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"rest_invalid_param","message":"Invalid parameter(s): status"}`))
			return
		}
		var body postBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			f.t.Errorf("decode post: %v", err)
		}
		f.posts = append(f.posts, body)
		id := len(f.posts)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     id,
			"link":   "http://cms.local/?p=" + body.Slug,
			"status": body.Status,
			"slug":   body.Slug,
		})

	case r.URL.Path == "/wp-json/wp/v2/posts" && r.Method == http.MethodGet:
		if r.URL.Query().Get("page") != "2" || r.URL.Query().Get("per_page") != "5" {
			f.t.Errorf("unexpected listing query %s", r.URL.RawQuery)
		}
		w.Header().Set("X-WP-Total", "12")
		w.Header().Set("X-WP-TotalPages", "3")
		_, _ = w.Write([]byte(`[{"id":7,"link":"http://cms.local/?p=7","status":"publish","slug":"seven","title":{"rendered":"Seven"}}]`))

	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"rest_no_route","message":"No route was found matching the URL and request method."}`))
	}
}

func newTestClient(t *testing.T, cms *fakeCMS, password string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(cms)
	t.Cleanup(srv.Close)

	c, err := NewClient(Credentials{SiteURL: srv.URL + "/", Username: cms.user, AppPassword: password},
		WithSleep(func(context.Context, time.Duration) error { return nil }),
		WithLogger(logger.Nop()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Credentials{SiteURL: "http://x"}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v", err)
	}
}

func TestTestConnection(t *testing.T) {
	cms := &fakeCMS{t: t, user: "editor", password: "abcd efgh"}

	c, _ := newTestClient(t, cms, "abcd efgh")
	res := c.TestConnection(context.Background())
	if !res.Success || res.Username != "editor" || len(res.Roles) != 1 || res.Site != "Test Blog" {
		t.Errorf("TestConnection = %+v", res)
	}

	bad, _ := newTestClient(t, cms, "wrong")
	res = bad.TestConnection(context.Background())
	if res.Success {
		t.Fatal("expected failure for rejected credentials")
	}
	if res.Error != "You are not currently logged in." {
		t.Errorf("error should carry the CMS message, got %q", res.Error)
	}
}

func TestTestConnectionRequiresRESTIndex(t *testing.T) {
	cms := &fakeCMS{t: t, user: "editor", password: "pass", noRESTIndex: true}
	c, _ := newTestClient(t, cms, "pass")

	res := c.TestConnection(context.Background())
	if res.Success {
		t.Fatal("valid credentials without a REST index should fail")
	}
	if !strings.Contains(res.Error, "REST API unreachable") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestTestConnectionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Credentials{SiteURL: url, Username: "u", AppPassword: "p"}, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	res := c.TestConnection(context.Background())
	if res.Success || res.Error == "" {
		t.Errorf("TestConnection = %+v", res)
	}
}

func TestCheckAPI(t *testing.T) {
	c, _ := newTestClient(t, &fakeCMS{t: t, user: "u", password: "p"}, "p")
	info, err := c.CheckAPI(context.Background())
	if err != nil {
		t.Fatalf("CheckAPI: %v", err)
	}
	if info.Name != "Test Blog" {
		t.Errorf("name = %q", info.Name)
	}
}

func TestListPosts(t *testing.T) {
	c, _ := newTestClient(t, &fakeCMS{t: t, user: "u", password: "p"}, "p")
	list, err := c.ListPosts(context.Background(), 2, 5)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if list.Total != 12 || list.TotalPages != 3 || len(list.Posts) != 1 || list.Posts[0].Title.Rendered != "Seven" {
		t.Errorf("ListPosts = %+v", list)
	}
}

func TestCreatePostDerivesSEOAndConvertsMarkdown(t *testing.T) {
	cms := &fakeCMS{t: t, user: "u", password: "p"}
	c, _ := newTestClient(t, cms, "p")

	res := c.CreatePost(context.Background(), PostRequest{
		Title:         "The Ultimate Guide to Sourdough Baking!",
		Content:       "## Starter\n\nFeed it **daily**.\n\n- flour\n- water",
		PublishStatus: models.PublishStatusDraft,
	})
	if !res.Success || res.PostID != 1 || res.Status != "draft" {
		t.Fatalf("CreatePost = %+v", res)
	}

	sent := cms.posts[0]
	if sent.Slug != "the-ultimate-guide-to-sourdough-baking" {
		t.Errorf("slug = %q", sent.Slug)
	}
	if !strings.Contains(sent.Content, "<h2") || !strings.Contains(sent.Content, "<strong>daily</strong>") || !strings.Contains(sent.Content, "<li>flour</li>") {
		t.Errorf("markdown not converted: %q", sent.Content)
	}
	if sent.Meta["_yoast_wpseo_focuskw"] != "ultimate, guide, sourdough, baking!" {
		t.Errorf("focus keywords = %q", sent.Meta["_yoast_wpseo_focuskw"])
	}
	if sent.Meta["_yoast_wpseo_title"] != "The Ultimate Guide to Sourdough Baking!" {
		t.Errorf("yoast title = %q", sent.Meta["_yoast_wpseo_title"])
	}
	if sent.DateGMT != "" || sent.FeaturedMedia != 0 {
		t.Errorf("unexpected schedule or featured media: %+v", sent)
	}
}

func TestCreatePostScheduledAndOverrides(t *testing.T) {
	cms := &fakeCMS{t: t, user: "u", password: "p"}
	c, _ := newTestClient(t, cms, "p")

	at := time.Date(2025, 3, 15, 14, 30, 0, 0, time.FixedZone("UTC+2", 7200))
	res := c.CreatePost(context.Background(), PostRequest{
		Title:         "Post",
		Content:       "<p>Already HTML</p>",
		PublishStatus: models.PublishStatusPublish,
		ScheduleAt:    &at,
		SEO:           SEOMeta{Slug: "Custom Slug", MetaDescription: "Custom description"},
		Uploads: []ImageUpload{
			{Success: false, OriginalURL: "http://a"},
			{Success: true, MediaID: 42, MediaURL: "http://cms/b", OriginalURL: "http://b"},
		},
	})
	if !res.Success || res.Status != StatusFuture {
		t.Fatalf("CreatePost = %+v", res)
	}
	if res.UploadedImages != 1 || res.FailedImages != 1 {
		t.Errorf("image counts = %d/%d", res.UploadedImages, res.FailedImages)
	}

	sent := cms.posts[0]
	if sent.Content != "<p>Already HTML</p>" {
		t.Errorf("HTML content should pass through, got %q", sent.Content)
	}
	if sent.DateGMT != "2025-03-15T12:30:00" {
		t.Errorf("date_gmt = %q", sent.DateGMT)
	}
	if sent.Slug != "custom-slug" || sent.Excerpt != "Custom description" || sent.Meta["_yoast_wpseo_metadesc"] != "Custom description" {
		t.Errorf("overrides not applied: %+v", sent)
	}
	if sent.FeaturedMedia != 42 {
		t.Errorf("featured media = %d", sent.FeaturedMedia)
	}
}

func TestCreatePostRejectsMissingStatusBeforeNetwork(t *testing.T) {
	cms := &fakeCMS{t: t, user: "u", password: "p"}
	c, _ := newTestClient(t, cms, "p")

	res := c.CreatePost(context.Background(), PostRequest{Title: "T", Content: "x"})
	if res.Success || res.Error == "" {
		t.Errorf("CreatePost = %+v", res)
	}
	if len(cms.posts) != 0 {
		t.Error("no request should reach the CMS")
	}
}

func TestCreatePostSurfacesCMSMessage(t *testing.T) {
	cms := &fakeCMS{t: t, user: "u", password: "p", rejectPosts: true}
	c, _ := newTestClient(t, cms, "p")

	res := c.CreatePost(context.Background(), PostRequest{Title: "T", Content: "x", PublishStatus: models.PublishStatusDraft})
	if res.Success || !strings.Contains(res.Error, "Invalid parameter(s): status") {
		t.Errorf("CreatePost = %+v", res)
	}
}
