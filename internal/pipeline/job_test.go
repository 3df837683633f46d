package pipeline

import (
	"errors"
	"testing"

	"github.com/bilgisen/contentpipe/internal/models"
)

func TestNewJob(t *testing.T) {
	rows := []models.RowSpec{{Title: "One"}, {Title: "Two"}}

	job, err := NewJob("job-1", "site-1", models.PublishStatusDraft, rows)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Status != models.JobStatusPending || job.TotalPosts != 2 || len(job.Posts) != 2 {
		t.Errorf("job = %+v", job)
	}
	if job.Posts[1].Title != "Two" || job.Posts[1].Status != models.PostStatusPending {
		t.Errorf("second post = %+v", job.Posts[1])
	}
	if job.CreatedAt.Location().String() != "UTC" {
		t.Errorf("created at should be UTC, got %v", job.CreatedAt)
	}
}

func TestNewJobRejects(t *testing.T) {
	rows := []models.RowSpec{{Title: "One"}}
	tests := []struct {
		name    string
		id      string
		site    string
		publish models.PublishStatus
		rows    []models.RowSpec
		isID    bool
	}{
		{name: "unsafe id", id: "../etc", publish: models.PublishStatusDraft, rows: rows, isID: true},
		{name: "unsafe site", id: "job", site: "a/b", publish: models.PublishStatusDraft, rows: rows, isID: true},
		{name: "missing publish status", id: "job", rows: rows},
		{name: "unknown publish status", id: "job", publish: "future", rows: rows},
		{name: "no rows", id: "job", publish: models.PublishStatusPublish},
		{name: "duplicate titles", id: "job", publish: models.PublishStatusDraft, rows: []models.RowSpec{{Title: "A"}, {Title: "A"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewJob(tt.id, tt.site, tt.publish, tt.rows)
			if !errors.Is(err, ErrInvalidJob) {
				t.Fatalf("err = %v, want ErrInvalidJob", err)
			}
			if tt.isID && !errors.Is(err, models.ErrInvalidID) {
				t.Errorf("err = %v, want ErrInvalidID", err)
			}
		})
	}
}
