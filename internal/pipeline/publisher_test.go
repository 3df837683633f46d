package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bilgisen/contentpipe/internal/cache"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/bilgisen/contentpipe/internal/storage"
	"github.com/bilgisen/contentpipe/internal/wordpress"
)

// recordingCMS accepts media uploads and posts and remembers what it got
type recordingCMS struct {
	mu      sync.Mutex
	uploads int
	posts   []map[string]any
}

func (c *recordingCMS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/wp-json/wp/v2/media":
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.Copy(io.Discard, file)
		c.uploads++
		_, _ = w.Write([]byte(`{"id":77,"source_url":"http://cms.local/uploads/hero.png"}`))
	case "/wp-json/wp/v2/posts":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.posts = append(c.posts, body)
		_, _ = w.Write([]byte(`{"id":9,"link":"http://cms.local/?p=9","status":"draft","slug":"hero"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestWordPressPublisher(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	t.Cleanup(images.Close)
	cms := &recordingCMS{}
	site := httptest.NewServer(cms)
	t.Cleanup(site.Close)

	client, err := wordpress.NewClient(wordpress.Credentials{SiteURL: site.URL, Username: "u", AppPassword: "p"},
		wordpress.WithSleep(func(context.Context, time.Duration) error { return nil }),
		wordpress.WithLogger(logger.Nop()),
	)
	if err != nil {
		t.Fatal(err)
	}

	hero := images.URL + "/hero.png"
	out, err := NewWordPressPublisher(client).Publish(context.Background(), PublishInput{
		Title:         "Hero Post",
		Content:       "Intro\n\n![hero](" + hero + ")",
		PublishStatus: models.PublishStatusDraft,
		Images:        []string{hero},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if out.PostID != "9" || out.URL != "http://cms.local/?p=9" || out.Status != "draft" {
		t.Errorf("out = %+v", out)
	}
	if cms.uploads != 1 || out.UploadedImages != 1 {
		t.Errorf("a row image repeated in the content should upload once, got %d", cms.uploads)
	}
	if len(cms.posts) != 1 || cms.posts[0]["featured_media"] != float64(77) {
		t.Fatalf("posts = %v", cms.posts)
	}
	if content, _ := cms.posts[0]["content"].(string); !strings.Contains(content, "http://cms.local/uploads/hero.png") || strings.Contains(content, hero) {
		t.Errorf("content should point at the hosted image: %s", content)
	}
}

func TestWordPressPublisherReportsRejection(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":"rest_forbidden","message":"Sorry, you are not allowed to do that."}`))
	}))
	t.Cleanup(site.Close)

	client, err := wordpress.NewClient(wordpress.Credentials{SiteURL: site.URL, Username: "u", AppPassword: "p"}, wordpress.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewWordPressPublisher(client).Publish(context.Background(), PublishInput{Title: "T", Content: "<p>x</p>", PublishStatus: models.PublishStatusPublish})
	if err == nil || !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("err = %v", err)
	}
	if out == nil || out.PostID != "" {
		t.Errorf("out = %+v", out)
	}
}

func TestArtifactPublisher(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := storage.NewLocalArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}

	out, err := NewArtifactPublisher(artifacts).Publish(context.Background(), PublishInput{
		Title:   "Bread: A Love Story?",
		Content: "# Crumb\n\nOpen and **glossy**.",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := filepath.Join(dir, "generated_posts", ArtifactName("Bread: A Love Story?")+".html")
	if out.Status != StatusSavedLocally || out.URL != want {
		t.Errorf("out = %+v, want url %s", out, want)
	}

	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<strong>glossy</strong>") {
		t.Errorf("artifact should hold rendered HTML, got %s", data)
	}
}

func TestArtifactNameKeepsTitlesApart(t *testing.T) {
	long := strings.Repeat("x", 50)
	pairs := [][2]string{
		{"A?b", "A!b"},
		{long + " first", long + " second"},
	}
	for _, p := range pairs {
		a, b := ArtifactName(p[0]), ArtifactName(p[1])
		if a == b {
			t.Errorf("%q and %q both map to %q", p[0], p[1], a)
		}
	}

	if got := ArtifactName("A?b"); !strings.HasPrefix(got, "A_b-") || got != ArtifactName("A?b") {
		t.Errorf("ArtifactName(%q) = %q", "A?b", got)
	}
}

func TestArtifactPublisherDoesNotOverwriteSimilarTitles(t *testing.T) {
	dir := t.TempDir()
	artifacts, err := storage.NewLocalArtifacts(dir)
	if err != nil {
		t.Fatal(err)
	}
	pub := NewArtifactPublisher(artifacts)

	first, err := pub.Publish(context.Background(), PublishInput{Title: "A?b", Content: "first"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := pub.Publish(context.Background(), PublishInput{Title: "A!b", Content: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if first.URL == second.URL {
		t.Fatalf("both posts saved to %s", first.URL)
	}
	data, err := os.ReadFile(first.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "first") {
		t.Errorf("first artifact overwritten: %s", data)
	}
}

func TestSafeFileName(t *testing.T) {
	tests := map[string]string{
		"Hello, World!":         "Hello__World_",
		"":                      "post",
		"Çorba tarifi":          "_orba_tarifi",
		strings.Repeat("x", 60): strings.Repeat("x", 50),
	}
	for in, want := range tests {
		if got := SafeFileName(in); got != want {
			t.Errorf("SafeFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSiteResolver(t *testing.T) {
	ctx := context.Background()
	sites := cache.NewMemoryStore()
	if err := sites.SaveSite(ctx, &models.Site{ID: "blog", URL: "http://blog.local", Username: "u", AppPassword: "p"}); err != nil {
		t.Fatal(err)
	}
	artifacts, err := storage.NewLocalArtifacts(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defaults := wordpress.Credentials{SiteURL: "http://default.local", Username: "u", AppPassword: "p"}

	job := func(site string) *models.BulkJob {
		return models.NewBulkJob("job", site, models.PublishStatusDraft, []models.RowSpec{{Title: "T"}}, time.Now())
	}

	p, err := NewSiteResolver(sites, defaults, artifacts).Resolve(ctx, job("blog"))
	if err != nil {
		t.Fatalf("registered site: %v", err)
	}
	if _, ok := p.(*WordPressPublisher); !ok {
		t.Errorf("registered site resolved to %T", p)
	}

	_, err = NewSiteResolver(sites, defaults, artifacts).Resolve(ctx, job("gone"))
	if !errors.Is(err, wordpress.ErrMissingCredentials) || !errors.Is(err, models.ErrSiteNotFound) {
		t.Errorf("unknown site should not fall back, err = %v", err)
	}

	p, err = NewSiteResolver(sites, defaults, artifacts).Resolve(ctx, job(""))
	if _, ok := p.(*WordPressPublisher); err != nil || !ok {
		t.Errorf("defaults resolved to %T, %v", p, err)
	}

	p, err = NewSiteResolver(sites, wordpress.Credentials{}, artifacts).Resolve(ctx, job(""))
	if _, ok := p.(*ArtifactPublisher); err != nil || !ok {
		t.Errorf("artifacts resolved to %T, %v", p, err)
	}

	_, err = NewSiteResolver(sites, wordpress.Credentials{}, nil).Resolve(ctx, job(""))
	if !errors.Is(err, wordpress.ErrMissingCredentials) {
		t.Errorf("err = %v", err)
	}
}
