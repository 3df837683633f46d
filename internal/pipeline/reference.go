package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-resty/resty/v2"
)

const (
	referenceTimeout  = 30 * time.Second
	maxReferenceRunes = 4000
	maxReferenceURLs  = 3
	maxReferenceBytes = 2 << 20
)

// ReferenceFetcher turns a row's reference field into source material
type ReferenceFetcher interface {
	Fetch(ctx context.Context, reference string) (string, error)
}

// WebReferences downloads reference URLs and converts the pages to markdown
type WebReferences struct {
	client    *resty.Client
	converter *md.Converter
}

func NewWebReferences() *WebReferences {
	return &WebReferences{
		client: resty.New().
			SetTimeout(referenceTimeout).
			SetRetryCount(2).
			SetRetryWaitTime(2 * time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			SetHeader("User-Agent", "Mozilla/5.0 (compatible; ContentPublishingTool/1.0)"),
		converter: md.NewConverter("", true, nil),
	}
}

// ReferenceURLs returns the http(s) URLs found in a reference field
func ReferenceURLs(reference string) []string {
	var urls []string
	for _, field := range strings.FieldsFunc(reference, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '|' || r == ',' || r == ';'
	}) {
		u, err := url.Parse(field)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		urls = append(urls, field)
		if len(urls) == maxReferenceURLs {
			break
		}
	}
	return urls
}

// Fetch concurrently retrieves every URL in reference. Pages that fail are
// skipped; the error lists them while the material of the others is still
// returned. A reference without URLs yields "".
func (w *WebReferences) Fetch(ctx context.Context, reference string) (string, error) {
	urls := ReferenceURLs(reference)
	if len(urls) == 0 {
		return "", nil
	}

	type result struct {
		text string
		err  error
	}
	results := make([]result, len(urls))
	done := make(chan struct{}, len(urls))

	for i, u := range urls {
		go func(i int, u string) {
			text, err := w.fetchOne(ctx, u)
			results[i] = result{text: text, err: err}
			done <- struct{}{}
		}(i, u)
	}
	for range urls {
		<-done
	}

	var parts []string
	var errs []error
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		if res.text != "" {
			parts = append(parts, fmt.Sprintf("Source: %s\n%s", urls[i], res.text))
		}
	}
	return strings.Join(parts, "\n\n"), errors.Join(errs...)
}

func (w *WebReferences) fetchOne(ctx context.Context, u string) (string, error) {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetDoNotParseResponse(true).
		Get(u)
	if err != nil {
		return "", fmt.Errorf("failed to fetch reference %s: %w", u, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), u)
	}

	// Only the start of a page survives truncation, so larger pages are cut
	page, err := io.ReadAll(io.LimitReader(body, maxReferenceBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read reference %s: %w", u, err)
	}

	markdown, err := w.converter.ConvertString(string(page))
	if err != nil {
		return "", fmt.Errorf("converting %s to markdown: %w", u, err)
	}
	return truncateRunes(strings.TrimSpace(markdown), maxReferenceRunes), nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
