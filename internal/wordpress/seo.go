package wordpress

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bilgisen/contentpipe/internal/ai"
)

const (
	maxSlugLength        = 50
	maxMetaDescription   = 155
	maxFocusKeywords     = 5
	minFocusKeywordRunes = 4
)

var (
	slugStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaceRe = regexp.MustCompile(`\s+`)
	slugDashRe  = regexp.MustCompile(`-+`)
)

// SEOMeta holds the Yoast fields sent with a post
type SEOMeta struct {
	Slug            string `json:"slug"`
	MetaDescription string `json:"meta_description"`
	FocusKeywords   string `json:"focus_keywords"`
}

// DeriveSEO builds SEO metadata from the title and body
func DeriveSEO(title, content string) SEOMeta {
	return SEOMeta{
		Slug:            Slugify(title),
		MetaDescription: MetaDescription(content),
		FocusKeywords:   FocusKeywords(title),
	}
}

// Merge fills empty fields of overrides from derived
func (m SEOMeta) Merge(derived SEOMeta) SEOMeta {
	if m.Slug == "" {
		m.Slug = derived.Slug
	} else {
		m.Slug = Slugify(m.Slug)
	}
	if m.MetaDescription == "" {
		m.MetaDescription = derived.MetaDescription
	}
	if m.FocusKeywords == "" {
		m.FocusKeywords = derived.FocusKeywords
	}
	return m
}

// Slugify lower-cases, drops punctuation, hyphenates and caps the length
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugSpaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = slugDashRe.ReplaceAllString(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return strings.Trim(s, "-")
}

// MetaDescription returns the first 155 characters of the plain text,
// with an ellipsis when the text was cut
func MetaDescription(content string) string {
	plain := ai.PlainText(content)
	if utf8.RuneCountInString(plain) <= maxMetaDescription {
		return plain
	}
	runes := []rune(plain)
	return string(runes[:maxMetaDescription]) + "..."
}

// FocusKeywords picks up to five title words longer than three characters
func FocusKeywords(title string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if utf8.RuneCountInString(w) < minFocusKeywordRunes {
			continue
		}
		words = append(words, w)
		if len(words) == maxFocusKeywords {
			break
		}
	}
	return strings.Join(words, ", ")
}
