package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/models"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps jobs and sites as JSON strings:
//
//	<prefix>job:<id>    job document
//	<prefix>jobs        sorted set of job ids scored by creation time
//	<prefix>site:<id>   site document
//	<prefix>lease:<id>  lease owner, expiring with the lease
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to cfg.RedisURL and checks the connection
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.RedisPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) jobKey(id string) string   { return r.prefix + "job:" + id }
func (r *RedisStore) siteKey(id string) string  { return r.prefix + "site:" + id }
func (r *RedisStore) leaseKey(id string) string { return r.prefix + "lease:" + id }
func (r *RedisStore) jobsKey() string           { return r.prefix + "jobs" }

func (r *RedisStore) CreateJob(ctx context.Context, job *models.BulkJob) error {
	if !models.ValidID(job.ID) {
		return fmt.Errorf("%w: %q", models.ErrInvalidID, job.ID)
	}
	if job.Version == 0 {
		job.Version = 1
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.jobKey(job.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx error: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrJobExists, job.ID)
	}

	score := float64(job.CreatedAt.UnixNano())
	if err := r.client.ZAdd(ctx, r.jobsKey(), redis.Z{Score: score, Member: job.ID}).Err(); err != nil {
		return fmt.Errorf("redis zadd error: %w", err)
	}
	return nil
}

func (r *RedisStore) GetJob(ctx context.Context, id string) (*models.BulkJob, error) {
	data, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return decodeJob(id, data)
}

func decodeJob(id string, data []byte) (*models.BulkJob, error) {
	var job models.BulkJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// SaveJob writes job inside a WATCH transaction so a concurrent writer makes
// the save fail with ErrVersionConflict instead of being overwritten
func (r *RedisStore) SaveJob(ctx context.Context, job *models.BulkJob) error {
	key := r.jobKey(job.ID)
	next := *job
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", models.ErrJobNotFound, job.ID)
		}
		if err != nil {
			return fmt.Errorf("redis get error: %w", err)
		}

		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(current, &stored); err != nil {
			return fmt.Errorf("failed to unmarshal job %s: %w", job.ID, err)
		}
		if stored.Version != job.Version {
			return fmt.Errorf("%w: %s has version %d, saving %d", models.ErrVersionConflict, job.ID, stored.Version, job.Version)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %s", models.ErrVersionConflict, job.ID)
	}
	if err != nil {
		return err
	}

	job.Version = next.Version
	return nil
}

func (r *RedisStore) ListJobs(ctx context.Context) ([]*models.BulkJob, error) {
	ids, err := r.client.ZRevRange(ctx, r.jobsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange error: %w", err)
	}
	if len(ids) == 0 {
		return []*models.BulkJob{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.jobKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	jobs := make([]*models.BulkJob, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document
			continue
		}
		job, err := decodeJob(ids[i], []byte(s))
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (r *RedisStore) AcquireLease(ctx context.Context, jobID, owner string, ttl time.Duration) error {
	key := r.leaseKey(jobID)
	ok, err := r.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx error: %w", err)
	}
	if ok {
		return nil
	}

	holder, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between the two calls
		return r.AcquireLease(ctx, jobID, owner, ttl)
	}
	if err != nil {
		return fmt.Errorf("redis get error: %w", err)
	}
	if holder != owner {
		return fmt.Errorf("%w: %s held by %s", models.ErrLeaseHeld, jobID, holder)
	}
	if err := r.client.PExpire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis pexpire error: %w", err)
	}
	return nil
}

func (r *RedisStore) ReleaseLease(ctx context.Context, jobID, owner string) error {
	if err := releaseScript.Run(ctx, r.client, []string{r.leaseKey(jobID)}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release error: %w", err)
	}
	return nil
}

func (r *RedisStore) SaveSite(ctx context.Context, site *models.Site) error {
	if !models.ValidID(site.ID) {
		return fmt.Errorf("%w: %q", models.ErrInvalidID, site.ID)
	}
	data, err := json.Marshal(site)
	if err != nil {
		return fmt.Errorf("failed to marshal site: %w", err)
	}
	if err := r.client.Set(ctx, r.siteKey(site.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (r *RedisStore) GetSite(ctx context.Context, id string) (*models.Site, error) {
	data, err := r.client.Get(ctx, r.siteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", models.ErrSiteNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var site models.Site
	if err := json.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to unmarshal site %s: %w", id, err)
	}
	return &site, nil
}
