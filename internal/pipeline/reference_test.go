package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestReferenceURLs(t *testing.T) {
	got := ReferenceURLs("see https://a.example/x, ftp://b.example | http://c.example/y;notes\nhttps://d.example https://e.example")
	want := []string{"https://a.example/x", "http://c.example/y", "https://d.example"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReferenceURLs = %v, want %v", got, want)
	}
	if got := ReferenceURLs("Interview with the head baker"); got != nil {
		t.Errorf("plain text should yield no URLs, got %v", got)
	}
}

func TestWebReferencesFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/guide", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Hydration</h1><p>Use <strong>75%</strong> water.</p></body></html>`))
	})
	mux.HandleFunc("/long", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>" + strings.Repeat("a", maxReferenceRunes+100) + "</p>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	refs := NewWebReferences()
	text, err := refs.Fetch(context.Background(), srv.URL+"/guide "+srv.URL+"/missing "+srv.URL+"/long")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("missing page should be reported, err = %v", err)
	}

	parts := strings.Split(text, "\n\n")
	if !strings.HasPrefix(text, "Source: "+srv.URL+"/guide\n# Hydration") {
		t.Errorf("first source should come first, got %q", text)
	}
	if !strings.Contains(text, "**75%**") {
		t.Errorf("page should be converted to markdown, got %q", text)
	}
	last := parts[len(parts)-1]
	if !strings.HasPrefix(last, "Source: "+srv.URL+"/long\n") || !strings.HasSuffix(last, "...") {
		t.Errorf("long page should be truncated, got %d chars", len(last))
	}
}

func TestWebReferencesBoundsPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		chunk := []byte("<p>" + strings.Repeat("crumb ", 1000) + "</p>")
		for r.Context().Err() == nil {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	text, err := NewWebReferences().Fetch(ctx, srv.URL+"/endless")
	if err != nil {
		t.Fatalf("endless page should be cut, not read to the end: %v", err)
	}
	if !strings.HasPrefix(text, "Source: "+srv.URL+"/endless\ncrumb") || !strings.HasSuffix(text, "...") {
		t.Errorf("text = %.80q", text)
	}
}

func TestWebReferencesWithoutURLs(t *testing.T) {
	text, err := NewWebReferences().Fetch(context.Background(), "book: Flour Water Salt Yeast")
	if text != "" || err != nil {
		t.Errorf("Fetch = %q, %v", text, err)
	}
}
