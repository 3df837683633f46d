package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	openRouterBaseURL      = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "anthropic/claude-3.5-sonnet"
	defaultLlamaBaseURL    = "https://api.groq.com/openai/v1"
	defaultLlamaModel      = "llama-3.3-70b-versatile"
	appReferer             = "https://github.com/bilgisen/contentpipe"
	appTitle               = "contentpipe"
)

// ChatClient talks to any OpenAI compatible chat completions endpoint
type ChatClient struct {
	name    string
	client  *resty.Client
	baseURL string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newChatClient(name, apiKey, baseURL, model string, timeout time.Duration) *ChatClient {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ChatClient{
		name: name,
		client: resty.New().
			SetTimeout(timeout).
			SetAuthToken(apiKey).
			SetHeader("Content-Type", "application/json"),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

// NewOpenRouterClient returns a chat client for OpenRouter
func NewOpenRouterClient(apiKey, model string, timeout time.Duration) *ChatClient {
	if model == "" {
		model = defaultOpenRouterModel
	}
	c := newChatClient(ProviderOpenRouter, apiKey, openRouterBaseURL, model, timeout)
	c.client.SetHeader("HTTP-Referer", appReferer).SetHeader("X-Title", appTitle)
	return c
}

// NewLlamaClient returns a chat client for a hosted Llama endpoint
func NewLlamaClient(apiKey, baseURL, model string, timeout time.Duration) *ChatClient {
	if baseURL == "" {
		baseURL = defaultLlamaBaseURL
	}
	if model == "" {
		model = defaultLlamaModel
	}
	return newChatClient(ProviderLlama, apiKey, baseURL, model, timeout)
}

// WithBaseURL points the client at another endpoint, mostly for tests
func (c *ChatClient) WithBaseURL(baseURL string) *ChatClient {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

func (c *ChatClient) Name() string { return c.name }

func (c *ChatClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	var resp chatResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}

	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if res.IsError() {
		return "", fmt.Errorf("API error: %s", res.Status())
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
