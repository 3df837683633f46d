package ai

import (
	"context"
	"errors"
	"testing"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string, int) (string, error) {
	return s.reply, s.err
}

func TestParseSEOResponse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantSource string
		wantSlug   string
		wantFocus  string
	}{
		{
			name:       "strict json",
			raw:        `{"slug":"home-espresso","meta_description":"All about espresso.","focus_keyword":"espresso"}`,
			wantSource: SEOSourceJSON, wantSlug: "home-espresso", wantFocus: "espresso",
		},
		{
			name:       "fenced json",
			raw:        "```json\n{\"slug\":\"a-b\",\"focus_keyword\":\"b\"}\n```",
			wantSource: SEOSourceJSON, wantSlug: "a-b", wantFocus: "b",
		},
		{
			name:       "json inside prose",
			raw:        "Sure! Here you go: {\"slug\": \"x-y\"} Hope that helps.",
			wantSource: SEOSourceJSON, wantSlug: "x-y",
		},
		{
			name:       "pattern extraction",
			raw:        "Slug: best-boots\nFocus keyword: hiking boots\n",
			wantSource: SEOSourceExtracted, wantSlug: "best-boots", wantFocus: "hiking boots",
		},
		{
			name:       "nothing usable",
			raw:        "I cannot help with that.",
			wantSource: SEOSourceDerived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSEOResponse(tt.raw)
			if got.Source != tt.wantSource || got.Slug != tt.wantSlug || got.FocusKeyword != tt.wantFocus {
				t.Errorf("ParseSEOResponse() = %+v", got)
			}
		})
	}
}

func TestSuggestSEODegradesOnError(t *testing.T) {
	got := SuggestSEO(context.Background(), stubCompleter{err: errors.New("down")}, "Title", "<p>body</p>", "k")
	if got.Source != SEOSourceDerived || got.Slug != "" {
		t.Errorf("SuggestSEO = %+v", got)
	}
}
