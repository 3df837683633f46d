package wordpress

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
	)
	sanitizer = bluemonday.UGCPolicy()
	markupRe  = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
)

// HasMarkup reports whether content already contains HTML tags
func HasMarkup(content string) bool {
	return markupRe.MatchString(content)
}

// MarkdownToHTML renders markdown and sanitizes the result for post bodies
func MarkdownToHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// PrepareContent converts markup-free content to HTML and leaves HTML as is
func PrepareContent(content string) (string, error) {
	if HasMarkup(content) {
		return content, nil
	}
	return MarkdownToHTML(content)
}
