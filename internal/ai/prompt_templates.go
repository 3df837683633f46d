package ai

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/bilgisen/contentpipe/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed style.yaml
var defaultStyleYAML []byte

// BannedWord pairs a word the writer must avoid with its replacement
type BannedWord struct {
	Word string `yaml:"word"`
	Use  string `yaml:"use"`
}

// StyleGuide holds the fixed writing constraints embedded in every prompt
type StyleGuide struct {
	Role              string       `yaml:"role"`
	MinWords          int          `yaml:"min_words"`
	SectionWords      int          `yaml:"section_words"`
	DefaultHeadings   string       `yaml:"default_headings"`
	DefaultEEAT       string       `yaml:"default_eeat"`
	DefaultReference  string       `yaml:"default_reference"`
	SentenceVariation []string     `yaml:"sentence_variation"`
	Voice             []string     `yaml:"voice"`
	BannedWords       []BannedWord `yaml:"banned_words"`
	Ending            []string     `yaml:"ending"`
	Format            []string     `yaml:"format"`
}

// DefaultStyle returns the embedded style guide
func DefaultStyle() StyleGuide {
	style, err := parseStyle(defaultStyleYAML)
	if err != nil {
		// The embedded file is part of the binary; failing here is a build defect
		panic(fmt.Sprintf("embedded style.yaml is invalid: %v", err))
	}
	return style
}

// LoadStyle reads a style guide from path, filling missing fields from the
// embedded defaults. An empty path returns the defaults.
func LoadStyle(path string) (StyleGuide, error) {
	style := DefaultStyle()
	if path == "" {
		return style, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return style, fmt.Errorf("failed to read style file: %w", err)
	}
	if err := yaml.Unmarshal(data, &style); err != nil {
		return style, fmt.Errorf("failed to parse style file: %w", err)
	}
	return style, nil
}

func parseStyle(data []byte) (StyleGuide, error) {
	var style StyleGuide
	if err := yaml.Unmarshal(data, &style); err != nil {
		return style, err
	}
	return style, nil
}

// BuildArticlePrompt renders the long-form writing instruction for one row
func BuildArticlePrompt(row models.RowSpec, style StyleGuide) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s Write a %s-word, extremely detailed blog post about \"%s\".\n\n",
		style.Role, formatThousands(style.MinWords), row.Title)

	b.WriteString("STRUCTURE & SEO:\n")
	if len(row.Headings) > 0 {
		b.WriteString("- Use ONLY these headings in order:\n")
		for i, h := range row.Headings {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, h)
		}
	} else {
		fmt.Fprintf(&b, "- %s\n", style.DefaultHeadings)
	}
	b.WriteString("- Format them as <h2 id=\"sectionX\"> for main headings or <h3> for sub-headings\n")
	b.WriteString("- Add a Table of Contents after the opening paragraph:\n")
	b.WriteString("  <div class=\"toc\"><h3>Table of Contents</h3><ul><li><a href=\"#section1\">First Heading</a></li>...</ul></div>\n")
	if keywords := row.KeywordList(); len(keywords) > 0 {
		fmt.Fprintf(&b, "- KEYWORDS: You MUST include every single one of these keywords naturally throughout the content: %s\n", strings.Join(keywords, ", "))
	}

	eeat := row.EEATNotes
	if eeat == "" {
		eeat = style.DefaultEEAT
	}
	fmt.Fprintf(&b, "- EEAT COMPLIANCE: %s\n", eeat)

	switch {
	case row.ReferenceContext != "":
		fmt.Fprintf(&b, "- REFERENCE CONTEXT: Use the following material from %s to ensure factual accuracy:\n%s\n", row.Reference, indent(row.ReferenceContext))
	case row.Reference != "":
		fmt.Fprintf(&b, "- REFERENCE CONTEXT: Use the information from %s to ensure factual accuracy.\n", row.Reference)
	default:
		fmt.Fprintf(&b, "- REFERENCE CONTEXT: %s\n", style.DefaultReference)
	}

	b.WriteString("\nHUMAN-WRITING ENGINE (BURSTINESS) - THIS IS CRITICAL:\n\n")

	b.WriteString("1. SENTENCE VARIATION:\n")
	writeBullets(&b, style.SentenceVariation)

	b.WriteString("\n2. PERSONAL VOICE:\n")
	writeBullets(&b, style.Voice)

	b.WriteString("\n3. BANNED AI WORDS - NEVER USE THESE:\n")
	for _, w := range style.BannedWords {
		fmt.Fprintf(&b, "   - %s -> use %q\n", w.Word, w.Use)
	}

	b.WriteString("\n4. LENGTH REQUIREMENT - DEEP DIVE:\n")
	fmt.Fprintf(&b, "   - Each H2 section should be at least %d words\n", style.SectionWords)
	b.WriteString("   - Provide examples, stories, and detailed explanations\n")
	b.WriteString("   - Do NOT summarize - go deep into each topic\n")
	fmt.Fprintf(&b, "   - Total content must be at least %s words\n", formatThousands(style.MinWords))

	b.WriteString("\n5. ENDING:\n")
	writeBullets(&b, style.Ending)

	b.WriteString("\nHTML FORMAT:\n")
	for _, f := range style.Format {
		fmt.Fprintf(&b, "- %s\n", f)
	}

	b.WriteString("\nSTART DIRECTLY WITH THE CONTENT. No intro like \"Here is...\" - just begin the article:")
	return b.String()
}

// BuildSEOPrompt asks for structured SEO metadata for an already written post
func BuildSEOPrompt(title, excerpt, keywords string) string {
	return fmt.Sprintf(`You are an SEO specialist. Suggest metadata for this blog post.

Title: %s
Focus keywords: %s
Opening: %s

Respond with valid JSON only, using these fields:
- slug (lowercase, hyphenated, max 50 characters)
- meta_description (max 155 characters)
- focus_keyword (string)`, title, keywords, excerpt)
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "   - %s\n", item)
	}
}

func indent(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}

// formatThousands renders 5000 as "5,000"
func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	return string(out)
}
