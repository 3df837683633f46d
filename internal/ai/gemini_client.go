package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider names as used in AI_PROVIDER_ORDER
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderLlama      = "llama"
)

const defaultGeminiModel = "gemini-2.0-flash"

type GeminiClient struct {
	client  *resty.Client
	apiKey  string
	model   string
	baseURL string
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &GeminiClient{
		client:  resty.New().SetTimeout(timeout),
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
	}
}

// WithBaseURL points the client at another endpoint, mostly for tests
func (g *GeminiClient) WithBaseURL(baseURL string) *GeminiClient {
	g.baseURL = strings.TrimRight(baseURL, "/")
	return g
}

func (g *GeminiClient) Name() string { return ProviderGemini }

// Generate calls generateContent and joins the text parts of the first candidate
func (g *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, g.model)

	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: req.Prompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
			TopP:            req.TopP,
			TopK:            req.TopK,
		},
	}

	var resp geminiResponse
	res, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(url)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if res.IsError() {
		return "", fmt.Errorf("API error: %s", res.Status())
	}

	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		if reason := resp.Candidates[0].FinishReason; reason != "" {
			return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, reason)
		}
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}
