package wordpress

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello-world"},
		{"  Multiple   spaces -- and dashes ", "multiple-spaces-and-dashes"},
		{"Café & Crème", "caf-crme"},
		{strings.Repeat("long title ", 10), "long-title-long-title-long-title-long-title-long-t"},
	}
	for _, tt := range tests {
		got := Slugify(tt.in)
		if got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if len(got) > 50 {
			t.Errorf("slug longer than 50: %q", got)
		}
	}
}

func TestMetaDescription(t *testing.T) {
	short := "<p>Short body.</p>"
	if got := MetaDescription(short); got != "Short body." {
		t.Errorf("MetaDescription(short) = %q", got)
	}

	long := "<p>" + strings.Repeat("word ", 60) + "</p>"
	got := MetaDescription(long)
	if !strings.HasSuffix(got, "...") || len([]rune(got)) != 158 {
		t.Errorf("MetaDescription(long) = %q (%d runes)", got, len([]rune(got)))
	}
}

func TestFocusKeywords(t *testing.T) {
	got := FocusKeywords("How to Grow Tomatoes in Small Urban Balcony Gardens")
	if got != "grow, tomatoes, small, urban, balcony" {
		t.Errorf("FocusKeywords = %q", got)
	}
	if FocusKeywords("a an the") != "" {
		t.Error("short words should be ignored")
	}
}

func TestHasMarkup(t *testing.T) {
	if HasMarkup("plain **markdown** 3 < 4") {
		t.Error("comparison is not markup")
	}
	if !HasMarkup("<p>html</p>") || !HasMarkup("text<br/>") {
		t.Error("tags not detected")
	}
}

func TestMarkdownToHTMLSanitizes(t *testing.T) {
	html, err := MarkdownToHTML("# Title\n\n*italic* [link](https://example.com)\n\n<script>alert(1)</script>")
	if err != nil {
		t.Fatalf("MarkdownToHTML: %v", err)
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "<em>italic</em>") || !strings.Contains(html, `href="https://example.com"`) {
		t.Errorf("markdown not rendered: %q", html)
	}
	if strings.Contains(html, "<script") {
		t.Errorf("script survived sanitizing: %q", html)
	}
}
