package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

func TestWriteManifest(t *testing.T) {
	at := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)
	job := &models.BulkJob{Posts: []models.PostRecord{
		{Title: `Say "hello", world`, Status: models.PostStatusPublished, RemoteStatus: "future", WordPressPostURL: "https://blog/?p=1", ContentLength: 5120, PublishedAt: &at},
		{Title: "Broken", Status: models.PostStatusFailed, Error: "boom"},
		{Title: "Local", Status: models.PostStatusPublished, RemoteStatus: "saved_locally", WordPressPostURL: "output/generated_posts/Local.html", ContentLength: 12, PublishedAt: &at},
		{Title: "Waiting", Status: models.PostStatusPending},
	}}

	data, err := ManifestBytes(job)
	if err != nil {
		t.Fatalf("ManifestBytes: %v", err)
	}

	want := strings.Join([]string{
		"Title,WordPress Link,Status,Word Count,Published At",
		`"Say ""hello"", world",https://blog/?p=1,future,5120,2025-03-15T14:30:00Z`,
		"Broken,N/A,error,0,N/A",
		"Local,output/generated_posts/Local.html,saved_locally,12,2025-03-15T14:30:00Z",
		"Waiting,N/A,pending,0,N/A",
		"",
	}, "\n")
	if string(data) != want {
		t.Errorf("manifest =\n%s\nwant\n%s", data, want)
	}
}
