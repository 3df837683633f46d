package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a bulk job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// PostStatus is the state of a single post inside a bulk job
type PostStatus string

const (
	PostStatusPending    PostStatus = "pending"
	PostStatusGenerating PostStatus = "generating"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusPending:    {PostStatusGenerating},
	PostStatusGenerating: {PostStatusPublishing, PostStatusFailed},
	PostStatusPublishing: {PostStatusPublished, PostStatusFailed},
}

// CanTransition reports whether moving from s to next is a forward edge
func (s PostStatus) CanTransition(next PostStatus) bool {
	for _, allowed := range postTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PublishStatus is the WordPress status requested for unscheduled posts
type PublishStatus string

const (
	PublishStatusDraft   PublishStatus = "draft"
	PublishStatusPublish PublishStatus = "publish"
)

// Valid reports whether p is one of the accepted publish statuses
func (p PublishStatus) Valid() bool {
	return p == PublishStatusDraft || p == PublishStatusPublish
}

// StepEvent is one entry of the job progress log
type StepEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
}

// PostRecord tracks one row of a bulk job
type PostRecord struct {
	Title            string     `json:"title"`
	Status           PostStatus `json:"status"`
	ContentLength    int        `json:"content_length"`
	WordPressPostID  string     `json:"wordpress_post_id,omitempty"`
	WordPressPostURL string     `json:"wordpress_post_url,omitempty"`
	RemoteStatus     string     `json:"remote_status,omitempty"`
	Error            string     `json:"error,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	ScheduledAt      *time.Time `json:"scheduled_at,omitempty"`
	UploadedImages   int        `json:"uploaded_images"`
	FailedImages     int        `json:"failed_images"`
	Spec             RowSpec    `json:"spec"`
}

// Transition moves the record forward, rejecting any edge not in the state machine
func (p *PostRecord) Transition(next PostStatus) error {
	if !p.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// MarkPublished records a successful publish
func (p *PostRecord) MarkPublished(postID, postURL string, at time.Time) error {
	if err := p.Transition(PostStatusPublished); err != nil {
		return err
	}
	p.WordPressPostID = postID
	p.WordPressPostURL = postURL
	p.PublishedAt = &at
	p.Error = ""
	return nil
}

// MarkFailed records a failure; published fields are cleared
func (p *PostRecord) MarkFailed(msg string) error {
	if err := p.Transition(PostStatusFailed); err != nil {
		return err
	}
	p.Error = msg
	p.WordPressPostID = ""
	p.WordPressPostURL = ""
	p.RemoteStatus = ""
	p.PublishedAt = nil
	return nil
}

// ResetForRetry puts a failed or interrupted record back to pending so a new
// run can pick it up. Published and pending records are left alone.
func (p *PostRecord) ResetForRetry() bool {
	switch p.Status {
	case PostStatusFailed, PostStatusGenerating, PostStatusPublishing:
		p.Status = PostStatusPending
		p.Error = ""
		p.ContentLength = 0
		p.UploadedImages = 0
		p.FailedImages = 0
		return true
	}
	return false
}

// BulkJob is the persisted record of one spreadsheet submission
type BulkJob struct {
	ID              string        `json:"id"`
	WordPressSiteID string        `json:"wordpress_site_id,omitempty"`
	Status          JobStatus     `json:"status"`
	PublishStatus   PublishStatus `json:"publish_status"`
	Posts           []PostRecord  `json:"posts"`
	TotalPosts      int           `json:"total_posts"`
	ProcessedPosts  int           `json:"processed_posts"`
	SuccessfulPosts int           `json:"successful_posts"`
	FailedPosts     int           `json:"failed_posts"`
	CurrentStep     string        `json:"current_step"`
	Steps           []StepEvent   `json:"steps"`
	Error           string        `json:"error,omitempty"`
	Version         int64         `json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewBulkJob creates a pending job with one pending post per row
func NewBulkJob(id, siteID string, publish PublishStatus, rows []RowSpec, now time.Time) *BulkJob {
	posts := make([]PostRecord, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, PostRecord{
			Title:  row.Title,
			Status: PostStatusPending,
			Spec:   row,
		})
	}

	job := &BulkJob{
		ID:              id,
		WordPressSiteID: siteID,
		Status:          JobStatusPending,
		PublishStatus:   publish,
		Posts:           posts,
		TotalPosts:      len(posts),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	job.RecordStep(fmt.Sprintf("Job created with %d posts", len(posts)), now)
	return job
}

// RecordStep overwrites CurrentStep and appends to the step log
func (j *BulkJob) RecordStep(step string, at time.Time) {
	j.CurrentStep = step
	j.Steps = append(j.Steps, StepEvent{Timestamp: at, Step: step})
	j.UpdatedAt = at
}

// CountByStatus returns how many posts are in the given state
func (j *BulkJob) CountByStatus(status PostStatus) int {
	n := 0
	for _, p := range j.Posts {
		if p.Status == status {
			n++
		}
	}
	return n
}
