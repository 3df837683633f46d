package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// ManifestFile is the default name of the published links report
const ManifestFile = "published_links.csv"

var manifestHeader = []string{"Title", "WordPress Link", "Status", "Word Count", "Published At"}

// WriteManifest writes one CSV line per post of job
func WriteManifest(w io.Writer, job *models.BulkJob) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(manifestHeader); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}

	for _, p := range job.Posts {
		link := p.WordPressPostURL
		if link == "" {
			link = "N/A"
		}
		publishedAt := "N/A"
		if p.PublishedAt != nil {
			publishedAt = p.PublishedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{p.Title, link, manifestStatus(p), strconv.Itoa(p.ContentLength), publishedAt}); err != nil {
			return fmt.Errorf("failed to write manifest row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ManifestBytes renders the manifest in memory
func ManifestBytes(job *models.BulkJob) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteManifest(&buf, job); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func manifestStatus(p models.PostRecord) string {
	switch p.Status {
	case models.PostStatusFailed:
		return "error"
	case models.PostStatusPublished:
		if p.RemoteStatus != "" {
			return p.RemoteStatus
		}
	}
	return string(p.Status)
}
