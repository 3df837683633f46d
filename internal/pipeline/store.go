// Package pipeline turns spreadsheet rows into published posts, one row at a
// time, recording progress in a job store.
package pipeline

import (
	"context"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// JobStore persists bulk jobs and registered sites.
//
// SaveJob must fail with models.ErrVersionConflict when the stored version
// differs from job.Version and bump job.Version on success. AcquireLease must
// fail with models.ErrLeaseHeld while another owner holds an unexpired lease.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.BulkJob) error
	GetJob(ctx context.Context, id string) (*models.BulkJob, error)
	SaveJob(ctx context.Context, job *models.BulkJob) error
	ListJobs(ctx context.Context) ([]*models.BulkJob, error)
	AcquireLease(ctx context.Context, jobID, owner string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, jobID, owner string) error
	SaveSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id string) (*models.Site, error)
}
