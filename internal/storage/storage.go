package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// FileStore keeps jobs, sites and leases as JSON documents under basePath:
//
//	jobs/<id>.json
//	sites/<id>.json
//	leases/<id>.json
type FileStore struct {
	basePath string
	mu       sync.RWMutex
	now      func() time.Time
}

// NewFileStore creates the directory layout if needed
func NewFileStore(basePath string) (*FileStore, error) {
	for _, dir := range []string{"jobs", "sites", "leases"} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &FileStore{
		basePath: basePath,
		now:      time.Now,
	}, nil
}

func (s *FileStore) path(kind, id string) (string, error) {
	if !models.ValidID(id) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidID, id)
	}
	return filepath.Join(s.basePath, kind, id+".json"), nil
}

// CreateJob writes a new job; it fails with ErrJobExists if the id is taken
func (s *FileStore) CreateJob(ctx context.Context, job *models.BulkJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path("jobs", job.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Version == 0 {
		job.Version = 1
	}
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrJobExists, job.ID)
		}
		return fmt.Errorf("failed to create job file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write job file: %w", err)
	}
	return nil
}

// GetJob reads a job by id
func (s *FileStore) GetJob(ctx context.Context, id string) (*models.BulkJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path("jobs", id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return readJob(path, id)
}

func readJob(path, id string) (*models.BulkJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job models.BulkJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// SaveJob overwrites a job if its version matches the stored one, then
// bumps job.Version
func (s *FileStore) SaveJob(ctx context.Context, job *models.BulkJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path("jobs", job.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := readJob(path, job.ID)
	if err != nil {
		return err
	}
	if stored.Version != job.Version {
		return fmt.Errorf("%w: %s has version %d, saving %d", models.ErrVersionConflict, job.ID, stored.Version, job.Version)
	}

	next := *job
	next.Version++
	data, err := json.MarshalIndent(&next, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}

	job.Version = next.Version
	return nil
}

// ListJobs returns every job, newest first
func (s *FileStore) ListJobs(ctx context.Context) ([]*models.BulkJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.basePath, "jobs"))
	if err != nil {
		return nil, fmt.Errorf("error reading jobs directory: %w", err)
	}

	jobs := make([]*models.BulkJob, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		job, err := readJob(filepath.Join(s.basePath, "jobs", e.Name()), id)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// AcquireLease claims jobID for owner until ttl elapses. The same owner may
// renew; anyone else gets ErrLeaseHeld until the lease expires.
func (s *FileStore) AcquireLease(ctx context.Context, jobID, owner string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path("leases", jobID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	lease := models.Lease{JobID: jobID, Owner: owner, ExpiresAt: now.Add(ttl)}
	data, err := json.Marshal(lease)
	if err != nil {
		return fmt.Errorf("failed to marshal lease: %w", err)
	}

	// Two attempts: the second one runs after an expired lease was cleared
	for i := 0; i < 2; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			_, werr := f.Write(data)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				return fmt.Errorf("failed to write lease: %w", errors.Join(werr, cerr))
			}
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create lease: %w", err)
		}

		current, err := readLease(path)
		if err != nil {
			return err
		}
		switch {
		case current.Owner == owner:
			return writeFileAtomic(path, data)
		case !current.Expired(now):
			return fmt.Errorf("%w: %s held by %s until %s", models.ErrLeaseHeld, jobID, current.Owner, current.ExpiresAt.Format(time.RFC3339))
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear expired lease: %w", err)
		}
	}
	return fmt.Errorf("%w: %s", models.ErrLeaseHeld, jobID)
}

// ReleaseLease drops the lease if owner still holds it
func (s *FileStore) ReleaseLease(ctx context.Context, jobID, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path("leases", jobID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := readLease(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if current.Owner != owner {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

func readLease(path string) (*models.Lease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lease models.Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lease: %w", err)
	}
	return &lease, nil
}

// SaveSite creates or replaces a site
func (s *FileStore) SaveSite(ctx context.Context, site *models.Site) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path("sites", site.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(site, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal site: %w", err)
	}
	// Sites carry application passwords
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write site file: %w", err)
	}
	return nil
}

// GetSite reads a site by id
func (s *FileStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path("sites", id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrSiteNotFound, id)
		}
		return nil, fmt.Errorf("failed to read site file: %w", err)
	}

	var site models.Site
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to unmarshal site %s: %w", id, err)
	}
	return &site, nil
}

// writeFileAtomic replaces path via a temp file and rename so readers never
// see a partial document
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
