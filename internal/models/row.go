package models

import "strings"

// RowSpec represents one content generation unit read from an input sheet row
type RowSpec struct {
	Title        string   `json:"title" validate:"required"`
	Headings     []string `json:"headings,omitempty"`
	Keywords     string   `json:"keywords,omitempty"`
	Reference    string   `json:"reference,omitempty"`
	EEATNotes    string   `json:"eeat_notes,omitempty"`
	ScheduleDate string   `json:"schedule_date,omitempty"`
	ScheduleTime string   `json:"schedule_time,omitempty"`
	Images       []string `json:"images,omitempty"`

	// ReferenceContext holds material fetched for a URL reference. It is
	// filled right before prompt building and never persisted.
	ReferenceContext string `json:"-"`
}

// KeywordList splits the free-text keyword field on commas
func (r RowSpec) KeywordList() []string {
	var out []string
	for _, k := range strings.Split(r.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// HasSchedule reports whether the row asks for delayed publication
func (r RowSpec) HasSchedule() bool {
	return strings.TrimSpace(r.ScheduleDate) != ""
}
