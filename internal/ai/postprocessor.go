package ai

import (
	"html"
	"regexp"
	"strings"
)

// preamble is the "Here is..." opener, optionally after "Sure!" or "Certainly,"
const preamble = `(?:(?:sure|certainly|of course|absolutely)\s*[!,.]\s*)?(?:here is|here's|here’s)\b`

var (
	fenceRe     = regexp.MustCompile("(?i)```[a-z]*[ \\t]*\\n?")
	htmlIntroRe = regexp.MustCompile(`(?is)^\s*<p>\s*` + preamble + `.*?</p>`)
	metadataRe  = regexp.MustCompile(`(?is)---\s*METADATA.*?---`)
	ldJSONRe    = regexp.MustCompile(`(?is)<script[^>]*type=["']application/ld\+json["'][^>]*>.*?</script>`)
	scriptRe    = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	wordNoteRe  = regexp.MustCompile(`(?i)\(?\bword count\s*:\s*[\d,.]+(?:\s*words)?\s*\)?`)
	introLineRe = regexp.MustCompile(`(?i)^\s*` + preamble)
	introHintRe = regexp.MustCompile(`(?i)\b(?:article|post|content|blog|guide)\b|:\s*$`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	mdImageRe   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
)

// Clean strips model chatter from generated text: code fences, a leading
// "Here is..." preamble, metadata blocks, schema scripts and word-count notes.
// Every rule only removes text, so repeating until nothing changes gives a
// result that is stable under another Clean.
func Clean(raw string) string {
	out := strings.ReplaceAll(raw, "\r\n", "\n")
	for {
		next := cleanPass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func cleanPass(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = htmlIntroRe.ReplaceAllString(s, "")
	s = metadataRe.ReplaceAllString(s, "")
	s = ldJSONRe.ReplaceAllString(s, "")
	s = scriptRe.ReplaceAllString(s, "")
	s = wordNoteRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return dropIntroLine(s)
}

// dropIntroLine removes a first line such as "Here's the full article:"
func dropIntroLine(s string) string {
	first, rest, found := strings.Cut(s, "\n")
	if !found {
		return s
	}
	if introLineRe.MatchString(first) && introHintRe.MatchString(first) && !strings.Contains(first, "<") {
		return strings.TrimSpace(rest)
	}
	return s
}

// WordCount replaces tags with spaces and counts whitespace separated tokens
func WordCount(s string) int {
	return len(strings.Fields(tagRe.ReplaceAllString(s, " ")))
}

// PlainText removes markup and markdown images and collapses whitespace
func PlainText(s string) string {
	s = mdImageRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
