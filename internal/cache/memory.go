package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bilgisen/contentpipe/internal/models"
)

// MemoryStore is an in-process job store for tests and dry runs when Redis
// is not available. Documents are kept as JSON so callers never share state
// with the store.
type MemoryStore struct {
	mu     sync.Mutex
	jobs   map[string][]byte
	sites  map[string][]byte
	leases map[string]models.Lease
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:   make(map[string][]byte),
		sites:  make(map[string][]byte),
		leases: make(map[string]models.Lease),
		now:    time.Now,
	}
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *models.BulkJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", models.ErrJobExists, job.ID)
	}
	if job.Version == 0 {
		job.Version = 1
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	m.jobs[job.ID] = data
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*models.BulkJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.job(id)
}

func (m *MemoryStore) job(id string) (*models.BulkJob, error) {
	data, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	return decodeJob(id, data)
}

func (m *MemoryStore) SaveJob(ctx context.Context, job *models.BulkJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.job(job.ID)
	if err != nil {
		return err
	}
	if stored.Version != job.Version {
		return fmt.Errorf("%w: %s has version %d, saving %d", models.ErrVersionConflict, job.ID, stored.Version, job.Version)
	}

	next := *job
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	m.jobs[job.ID] = data
	job.Version = next.Version
	return nil
}

func (m *MemoryStore) ListJobs(ctx context.Context) ([]*models.BulkJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]*models.BulkJob, 0, len(m.jobs))
	for id := range m.jobs {
		job, err := m.job(id)
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

func (m *MemoryStore) AcquireLease(ctx context.Context, jobID, owner string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if current, ok := m.leases[jobID]; ok && current.Owner != owner && !current.Expired(now) {
		return fmt.Errorf("%w: %s held by %s", models.ErrLeaseHeld, jobID, current.Owner)
	}
	m.leases[jobID] = models.Lease{JobID: jobID, Owner: owner, ExpiresAt: now.Add(ttl)}
	return nil
}

func (m *MemoryStore) ReleaseLease(ctx context.Context, jobID, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.leases[jobID]; ok && current.Owner == owner {
		delete(m.leases, jobID)
	}
	return nil
}

func (m *MemoryStore) SaveSite(ctx context.Context, site *models.Site) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to marshal site: %w", err)
	}

	m.mu.Lock()
	m.sites[site.ID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	data, ok := m.sites[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSiteNotFound, id)
	}

	var site models.Site
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to unmarshal site %s: %w", id, err)
	}
	return &site, nil
}
