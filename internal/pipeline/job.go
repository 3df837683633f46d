package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// ErrInvalidJob is returned when a job cannot be built from its input
var ErrInvalidJob = errors.New("invalid job")

// NewJob builds a pending job with one pending post per row. The publish
// status has no default and must be draft or publish.
func NewJob(id, siteID string, publish models.PublishStatus, rows []models.RowSpec) (*models.BulkJob, error) {
	if !models.ValidID(id) {
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidJob, models.ErrInvalidID, id)
	}
	if siteID != "" && !models.ValidID(siteID) {
		return nil, fmt.Errorf("%w: %w: site %q", ErrInvalidJob, models.ErrInvalidID, siteID)
	}
	if !publish.Valid() {
		return nil, fmt.Errorf("%w: publish status must be %q or %q, got %q", ErrInvalidJob, models.PublishStatusDraft, models.PublishStatusPublish, publish)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidJob)
	}

	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if seen[row.Title] {
			return nil, fmt.Errorf("%w: duplicate title %q", ErrInvalidJob, row.Title)
		}
		seen[row.Title] = true
	}

	return models.NewBulkJob(id, siteID, publish, rows, time.Now().UTC()), nil
}
