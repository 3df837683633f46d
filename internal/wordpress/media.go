package wordpress

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ImageRef is an image to upload, with its alt text
type ImageRef struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// ImageUpload is the outcome of one image upload
type ImageUpload struct {
	Success     bool   `json:"success"`
	MediaID     int64  `json:"media_id,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	OriginalURL string `json:"original_url"`
	Alt         string `json:"alt,omitempty"`
	Error       string `json:"error,omitempty"`
}

type mediaResponse struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

// UploadImage downloads imageURL and re-hosts it in the media library,
// retrying the whole round trip. It never returns an error.
func (c *Client) UploadImage(ctx context.Context, imageURL, altText string) ImageUpload {
	result := ImageUpload{OriginalURL: imageURL, Alt: altText}

	for attempt := 1; attempt <= c.uploadAttempts; attempt++ {
		id, src, err := c.uploadOnce(ctx, imageURL, altText)
		if err == nil {
			c.log.Info().Int64("media_id", id).Str("image", imageURL).Int("attempt", attempt).Msg("Image uploaded")
			result.Success = true
			result.MediaID = id
			result.MediaURL = src
			return result
		}

		result.Error = err.Error()
		c.log.Warn().Err(err).Str("image", imageURL).Int("attempt", attempt).Int("max_attempts", c.uploadAttempts).Msg("Image upload failed")

		if attempt < c.uploadAttempts {
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				result.Error = err.Error()
				break
			}
		}
	}
	return result
}

// UploadImages uploads refs in order; missing alt text falls back to defaultAlt
func (c *Client) UploadImages(ctx context.Context, refs []ImageRef, defaultAlt string) []ImageUpload {
	uploads := make([]ImageUpload, 0, len(refs))
	for _, ref := range refs {
		alt := ref.Alt
		if alt == "" {
			alt = defaultAlt
		}
		uploads = append(uploads, c.UploadImage(ctx, ref.URL, alt))
	}
	return uploads
}

func (c *Client) uploadOnce(ctx context.Context, imageURL, altText string) (int64, string, error) {
	data, contentType, err := c.download(ctx, imageURL)
	if err != nil {
		return 0, "", err
	}

	filename := fmt.Sprintf("wp-image-%d-%s.%s", c.now().UnixMilli(), uuid.NewString()[:8], extensionFor(contentType))

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	req := c.api.R().
		SetContext(ctx).
		SetMultipartField("file", filename, contentType, bytes.NewReader(data))
	if altText != "" {
		req.SetMultipartFormData(map[string]string{"alt_text": altText})
	}

	var media mediaResponse
	var apiErr apiError
	res, err := req.
		SetResult(&media).
		SetError(&apiErr).
		Post("/wp-json/wp/v2/media")
	if err != nil {
		return 0, "", fmt.Errorf("upload failed: %w", err)
	}
	if res.IsError() {
		return 0, "", fmt.Errorf("upload rejected: %s", remoteError(res, &apiErr))
	}
	if media.ID == 0 || media.SourceURL == "" {
		return 0, "", fmt.Errorf("upload response is missing id or source_url")
	}
	return media.ID, media.SourceURL, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	res, err := c.fetch.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return nil, "", fmt.Errorf("download failed: %s", res.Status())
	}
	if n, err := strconv.ParseInt(res.Header().Get("Content-Length"), 10, 64); err == nil && n > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// extensionFor maps "image/png; charset=x" to "png", defaulting to jpg
func extensionFor(contentType string) string {
	_, sub, found := strings.Cut(contentType, "/")
	if !found {
		return "jpg"
	}
	sub, _, _ = strings.Cut(sub, ";")
	sub, _, _ = strings.Cut(sub, "+")
	sub = strings.TrimSpace(strings.ToLower(sub))
	if sub == "" {
		return "jpg"
	}
	return sub
}

var (
	htmlImageRe = regexp.MustCompile(`(?i)<img\b[^>]*?\bsrc=["']([^"']+)["'][^>]*>`)
	htmlAltRe   = regexp.MustCompile(`(?i)\balt=["']([^"']*)["']`)
	mdImageRe   = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
)

// ExtractImageURLs finds <img src> and ![alt](url) references in document order,
// without duplicates
func ExtractImageURLs(content string) []ImageRef {
	type hit struct {
		pos int
		ref ImageRef
	}
	var hits []hit

	for _, m := range htmlImageRe.FindAllStringSubmatchIndex(content, -1) {
		tag := content[m[0]:m[1]]
		ref := ImageRef{URL: content[m[2]:m[3]]}
		if alt := htmlAltRe.FindStringSubmatch(tag); alt != nil {
			ref.Alt = alt[1]
		}
		hits = append(hits, hit{pos: m[0], ref: ref})
	}
	for _, m := range mdImageRe.FindAllStringSubmatchIndex(content, -1) {
		hits = append(hits, hit{pos: m[0], ref: ImageRef{URL: content[m[4]:m[5]], Alt: content[m[2]:m[3]]}})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool)
	var refs []ImageRef
	for _, h := range hits {
		if seen[h.ref.URL] {
			continue
		}
		seen[h.ref.URL] = true
		refs = append(refs, h.ref)
	}
	return refs
}

// RewriteImageURLs swaps every occurrence of each uploaded image's original
// URL for its hosted URL. Failed uploads leave the content untouched.
func RewriteImageURLs(content string, uploads []ImageUpload) string {
	for _, u := range uploads {
		if !u.Success || u.OriginalURL == "" || u.MediaURL == "" {
			continue
		}
		content = strings.ReplaceAll(content, u.OriginalURL, u.MediaURL)
	}
	return content
}
