package models

import "time"

// Lease marks a job as owned by one worker until ExpiresAt
type Lease struct {
	JobID     string    `json:"job_id"`
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the lease no longer protects the job at now
func (l Lease) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
