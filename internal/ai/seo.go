package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Where an SEO suggestion came from
const (
	SEOSourceJSON      = "json"
	SEOSourceExtracted = "extracted"
	SEOSourceDerived   = "derived"
)

const seoMaxTokens = 400

// SEOSuggestion carries optional overrides for the derived SEO fields.
// Empty fields mean "derive it from the post".
type SEOSuggestion struct {
	Slug            string `json:"slug"`
	MetaDescription string `json:"meta_description"`
	FocusKeyword    string `json:"focus_keyword"`
	Source          string `json:"-"`
}

// Completer runs a short prompt and returns the raw answer
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

var (
	jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)
	fieldRes    = map[string]*regexp.Regexp{
		"slug":             regexp.MustCompile(`(?im)"?slug"?\s*[:=]\s*"?([^"\n,}]+)`),
		"meta_description": regexp.MustCompile(`(?im)"?meta[ _]description"?\s*[:=]\s*"?([^"\n}]+)`),
		"focus_keyword":    regexp.MustCompile(`(?im)"?focus[ _]keyword"?\s*[:=]\s*"?([^"\n,}]+)`),
	}
)

// SuggestSEO asks the model for SEO metadata. It never fails: a malformed
// answer is mined for fields, and anything still missing is left for the
// publisher to derive.
func SuggestSEO(ctx context.Context, c Completer, title, content, keywords string) SEOSuggestion {
	excerpt := PlainText(content)
	if len(excerpt) > 600 {
		excerpt = excerpt[:600]
	}

	raw, err := c.Complete(ctx, BuildSEOPrompt(title, excerpt, keywords), seoMaxTokens)
	if err != nil {
		return SEOSuggestion{Source: SEOSourceDerived}
	}
	return ParseSEOResponse(raw)
}

// ParseSEOResponse decodes a model answer: strict JSON first, then the first
// {...} block, then field-by-field pattern extraction
func ParseSEOResponse(raw string) SEOSuggestion {
	text := strings.TrimSpace(fenceRe.ReplaceAllString(raw, ""))

	var s SEOSuggestion
	if err := json.Unmarshal([]byte(text), &s); err == nil && !s.empty() {
		s.Source = SEOSourceJSON
		return s.trimmed()
	}

	if block := jsonBlockRe.FindString(text); block != "" {
		var b SEOSuggestion
		if err := json.Unmarshal([]byte(block), &b); err == nil && !b.empty() {
			b.Source = SEOSourceJSON
			return b.trimmed()
		}
	}

	var e SEOSuggestion
	if m := fieldRes["slug"].FindStringSubmatch(text); m != nil {
		e.Slug = m[1]
	}
	if m := fieldRes["meta_description"].FindStringSubmatch(text); m != nil {
		e.MetaDescription = m[1]
	}
	if m := fieldRes["focus_keyword"].FindStringSubmatch(text); m != nil {
		e.FocusKeyword = m[1]
	}
	if !e.empty() {
		e.Source = SEOSourceExtracted
		return e.trimmed()
	}

	return SEOSuggestion{Source: SEOSourceDerived}
}

func (s SEOSuggestion) empty() bool {
	return s.Slug == "" && s.MetaDescription == "" && s.FocusKeyword == ""
}

func (s SEOSuggestion) trimmed() SEOSuggestion {
	s.Slug = strings.TrimSpace(s.Slug)
	s.MetaDescription = strings.TrimSpace(s.MetaDescription)
	s.FocusKeyword = strings.TrimSpace(s.FocusKeyword)
	return s
}
