package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPostStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to PostStatus
		ok       bool
	}{
		{PostStatusPending, PostStatusGenerating, true},
		{PostStatusGenerating, PostStatusPublishing, true},
		{PostStatusGenerating, PostStatusFailed, true},
		{PostStatusPublishing, PostStatusPublished, true},
		{PostStatusPublishing, PostStatusFailed, true},
		{PostStatusPending, PostStatusPublished, false},
		{PostStatusPending, PostStatusFailed, false},
		{PostStatusPublished, PostStatusGenerating, false},
		{PostStatusFailed, PostStatusPublishing, false},
		{PostStatusPublishing, PostStatusGenerating, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			p := PostRecord{Status: tt.from}
			err := p.Transition(tt.to)
			if tt.ok && err != nil {
				t.Fatalf("expected transition to succeed, got %v", err)
			}
			if !tt.ok {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				if p.Status != tt.from {
					t.Errorf("status changed on rejected transition: %s", p.Status)
				}
			}
		})
	}
}

func TestMarkFailedClearsPublishedFields(t *testing.T) {
	p := PostRecord{Status: PostStatusPublishing, WordPressPostURL: "https://x", WordPressPostID: "5"}
	if err := p.MarkFailed("boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if p.WordPressPostURL != "" || p.WordPressPostID != "" || p.PublishedAt != nil {
		t.Errorf("published fields not cleared: %+v", p)
	}
	if p.Error != "boom" {
		t.Errorf("error = %q", p.Error)
	}
}

func TestResetForRetry(t *testing.T) {
	for _, s := range []PostStatus{PostStatusFailed, PostStatusGenerating, PostStatusPublishing} {
		p := PostRecord{Status: s, Error: "x", ContentLength: 10}
		if !p.ResetForRetry() {
			t.Fatalf("%s: expected reset", s)
		}
		if p.Status != PostStatusPending || p.Error != "" || p.ContentLength != 0 {
			t.Errorf("%s: not reset: %+v", s, p)
		}
	}

	published := PostRecord{Status: PostStatusPublished, WordPressPostURL: "https://x"}
	if published.ResetForRetry() {
		t.Error("published record must not be reset")
	}
	if published.WordPressPostURL != "https://x" {
		t.Error("published record was modified")
	}
}

func TestNewBulkJob(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []RowSpec{{Title: "One"}, {Title: "Two"}}
	job := NewBulkJob("job-1", "site-1", PublishStatusDraft, rows, now)

	if job.Status != JobStatusPending || job.TotalPosts != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	for _, p := range job.Posts {
		if p.Status != PostStatusPending {
			t.Errorf("post %q status %s", p.Title, p.Status)
		}
	}
	if len(job.Steps) != 1 || job.CurrentStep != job.Steps[0].Step {
		t.Errorf("step log not initialised: %+v", job.Steps)
	}

	job.RecordStep("next", now.Add(time.Second))
	if job.CurrentStep != "next" || len(job.Steps) != 2 {
		t.Errorf("RecordStep did not append: %+v", job.Steps)
	}
}

func TestBulkJobJSONOmitsReferenceContext(t *testing.T) {
	job := NewBulkJob("j", "", PublishStatusPublish, []RowSpec{{Title: "T", ReferenceContext: "fetched"}}, time.Now())

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}

	var decoded BulkJob
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal job: %v", err)
	}
	if decoded.Posts[0].Spec.ReferenceContext != "" {
		t.Error("reference context should not be persisted")
	}
	if decoded.PublishStatus != PublishStatusPublish {
		t.Errorf("publish status = %q", decoded.PublishStatus)
	}
}

func TestKeywordList(t *testing.T) {
	r := RowSpec{Keywords: " seo, content marketing ,, ai "}
	got := r.KeywordList()
	want := []string{"seo", "content marketing", "ai"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("keyword %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestValidID(t *testing.T) {
	valid := []string{"bulk-0a1b2c3d4e5f", "3f2b8f0e-9b1c-4c43-a5b4-1f1d5c0b2a9e", "site_1.v2"}
	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("ValidID(%q) = false", id)
		}
	}
	invalid := []string{"", "../etc/passwd", "a/b", "..", ".hidden", "a..b", strings.Repeat("x", 129)}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("ValidID(%q) = true", id)
		}
	}
}

func TestLeaseExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	l := Lease{JobID: "j", Owner: "w", ExpiresAt: now.Add(time.Minute)}
	if l.Expired(now) {
		t.Error("lease should still be active")
	}
	if !l.Expired(now.Add(time.Minute)) {
		t.Error("lease should expire at ExpiresAt")
	}
}
