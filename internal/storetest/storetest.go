// Package storetest holds the behaviour every job store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// Store is the job store contract under test
type Store interface {
	CreateJob(ctx context.Context, job *models.BulkJob) error
	GetJob(ctx context.Context, id string) (*models.BulkJob, error)
	SaveJob(ctx context.Context, job *models.BulkJob) error
	ListJobs(ctx context.Context) ([]*models.BulkJob, error)
	AcquireLease(ctx context.Context, jobID, owner string, ttl time.Duration) error
	ReleaseLease(ctx context.Context, jobID, owner string) error
	SaveSite(ctx context.Context, site *models.Site) error
	GetSite(ctx context.Context, id string) (*models.Site, error)
}

// NewJob returns a two-row pending job created at the given time
func NewJob(id string, at time.Time) *models.BulkJob {
	return models.NewBulkJob(id, "", models.PublishStatusDraft, []models.RowSpec{
		{Title: "First post", Headings: []string{"Intro", "Body"}},
		{Title: "Second post", Keywords: "go, testing"},
	}, at)
}

// Run exercises the store contract against a fresh store per subtest
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		job := NewJob("job-1", time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))

		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
		if job.Version != 1 {
			t.Errorf("version after create = %d, want 1", job.Version)
		}

		got, err := s.GetJob(ctx, "job-1")
		if err != nil {
			t.Fatalf("GetJob: %v", err)
		}
		if got.TotalPosts != 2 || got.Posts[0].Spec.Headings[1] != "Body" || got.Status != models.JobStatusPending {
			t.Errorf("GetJob = %+v", got)
		}

		if err := s.CreateJob(ctx, NewJob("job-1", time.Now())); !errors.Is(err, models.ErrJobExists) {
			t.Errorf("duplicate CreateJob err = %v", err)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.GetJob(context.Background(), "nope"); !errors.Is(err, models.ErrJobNotFound) {
			t.Errorf("err = %v", err)
		}
		if _, err := s.GetSite(context.Background(), "nope"); !errors.Is(err, models.ErrSiteNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("SaveBumpsVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		job := NewJob("job-2", time.Now())
		if err := s.CreateJob(ctx, job); err != nil {
			t.Fatal(err)
		}

		job.Status = models.JobStatusProcessing
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
		if job.Version != 2 {
			t.Errorf("version = %d, want 2", job.Version)
		}

		got, err := s.GetJob(ctx, "job-2")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != models.JobStatusProcessing || got.Version != 2 {
			t.Errorf("stored job = %+v", got)
		}
	})

	t.Run("SaveDetectsConflict", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if err := s.CreateJob(ctx, NewJob("job-3", time.Now())); err != nil {
			t.Fatal(err)
		}

		a, _ := s.GetJob(ctx, "job-3")
		b, _ := s.GetJob(ctx, "job-3")

		a.CurrentStep = "writer a"
		if err := s.SaveJob(ctx, a); err != nil {
			t.Fatalf("first save: %v", err)
		}
		b.CurrentStep = "writer b"
		if err := s.SaveJob(ctx, b); !errors.Is(err, models.ErrVersionConflict) {
			t.Fatalf("stale save err = %v", err)
		}
		if b.Version != 1 {
			t.Errorf("failed save must not bump version, got %d", b.Version)
		}

		got, _ := s.GetJob(ctx, "job-3")
		if got.CurrentStep != "writer a" {
			t.Errorf("stale write leaked: %q", got.CurrentStep)
		}
	})

	t.Run("SaveMissing", func(t *testing.T) {
		s := newStore(t)
		if err := s.SaveJob(context.Background(), NewJob("ghost", time.Now())); !errors.Is(err, models.ErrJobNotFound) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "newest", "middle"} {
			at := base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
			if err := s.CreateJob(ctx, NewJob(id, at)); err != nil {
				t.Fatal(err)
			}
		}

		jobs, err := s.ListJobs(ctx)
		if err != nil {
			t.Fatalf("ListJobs: %v", err)
		}
		if len(jobs) != 3 {
			t.Fatalf("got %d jobs", len(jobs))
		}
		for i, want := range []string{"newest", "middle", "old"} {
			if jobs[i].ID != want {
				t.Errorf("jobs[%d] = %s, want %s", i, jobs[i].ID, want)
			}
		}
	})

	t.Run("Lease", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if err := s.AcquireLease(ctx, "job-l", "worker-a", time.Hour); err != nil {
			t.Fatalf("AcquireLease: %v", err)
		}
		if err := s.AcquireLease(ctx, "job-l", "worker-a", time.Hour); err != nil {
			t.Errorf("owner renewal: %v", err)
		}
		if err := s.AcquireLease(ctx, "job-l", "worker-b", time.Hour); !errors.Is(err, models.ErrLeaseHeld) {
			t.Errorf("second owner err = %v", err)
		}

		if err := s.ReleaseLease(ctx, "job-l", "worker-b"); err != nil {
			t.Errorf("foreign release: %v", err)
		}
		if err := s.AcquireLease(ctx, "job-l", "worker-b", time.Hour); !errors.Is(err, models.ErrLeaseHeld) {
			t.Errorf("foreign release must not drop the lease, err = %v", err)
		}

		if err := s.ReleaseLease(ctx, "job-l", "worker-a"); err != nil {
			t.Fatalf("ReleaseLease: %v", err)
		}
		if err := s.AcquireLease(ctx, "job-l", "worker-b", time.Hour); err != nil {
			t.Errorf("acquire after release: %v", err)
		}
	})

	t.Run("Sites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		site := &models.Site{ID: "site-1", Name: "Blog", URL: "https://blog.example", Username: "ed", AppPassword: "xxxx yyyy"}

		if err := s.SaveSite(ctx, site); err != nil {
			t.Fatalf("SaveSite: %v", err)
		}
		got, err := s.GetSite(ctx, "site-1")
		if err != nil {
			t.Fatalf("GetSite: %v", err)
		}
		if got.AppPassword != "xxxx yyyy" || got.URL != site.URL {
			t.Errorf("GetSite = %+v", got)
		}
	})
}
