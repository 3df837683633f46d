package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/logger"
	"github.com/bilgisen/contentpipe/internal/utils"
	"github.com/rs/zerolog"
)

// Generation parameters tuned for long, varied output
const (
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 32000
	DefaultTopP        = 0.95
	DefaultTopK        = 40

	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

var (
	// ErrGenerationExhausted is returned once every attempt on every provider failed
	ErrGenerationExhausted = errors.New("content generation failed after all attempts")
	// ErrEmptyResponse is returned by providers that answer without any text
	ErrEmptyResponse = errors.New("provider returned no content")
)

// GenerationRequest is what a provider receives for one call
type GenerationRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	TopK        int
}

// TextGenerationProvider is implemented by every LLM backend
type TextGenerationProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Generation is the outcome of a successful Generate call
type Generation struct {
	Text      string
	WordCount int
	Provider  string
	Fallback  bool
	Attempts  int
}

// Generator runs prompts against a preference-ordered provider chain
type Generator struct {
	providers   []TextGenerationProvider
	maxAttempts int
	retryDelay  time.Duration
	maxTokens   int
	sleep       func(context.Context, time.Duration) error
	log         zerolog.Logger
}

// GeneratorOption customizes a Generator
type GeneratorOption func(*Generator)

// WithProviders replaces the providers built from configuration
func WithProviders(providers ...TextGenerationProvider) GeneratorOption {
	return func(g *Generator) {
		g.providers = providers
	}
}

// WithSleep replaces the wait used between attempts
func WithSleep(sleep func(context.Context, time.Duration) error) GeneratorOption {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// WithLogger sets the logger used for attempt diagnostics
func WithLogger(l zerolog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.log = l
	}
}

// NewGenerator builds the provider chain from cfg. Providers without a
// credential are left out; the order follows cfg.Order.
func NewGenerator(cfg config.ProviderConfig, opts ...GeneratorOption) *Generator {
	g := &Generator{
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		maxTokens:   cfg.MaxTokens,
		sleep:       utils.Sleep,
		log:         logger.For("generator"),
	}
	if g.maxAttempts < 1 {
		g.maxAttempts = DefaultMaxAttempts
	}
	if g.retryDelay <= 0 {
		g.retryDelay = DefaultRetryDelay
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}

	for _, name := range cfg.Order {
		switch name {
		case ProviderGemini:
			if cfg.GeminiAPIKey != "" {
				g.providers = append(g.providers, NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout))
			}
		case ProviderOpenRouter:
			if cfg.OpenRouterAPIKey != "" {
				g.providers = append(g.providers, NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.Timeout))
			}
		case ProviderLlama:
			if cfg.LlamaAPIKey != "" {
				g.providers = append(g.providers, NewLlamaClient(cfg.LlamaAPIKey, cfg.LlamaBaseURL, cfg.LlamaModel, cfg.Timeout))
			}
		}
	}

	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Providers lists the configured provider names in preference order
func (g *Generator) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return names
}

// Configured reports whether at least one provider has a credential
func (g *Generator) Configured() bool {
	return len(g.providers) > 0
}

// Generate produces article text for prompt. Each attempt walks the provider
// chain in order; attempts are separated by the fixed retry delay. With no
// provider configured the canned fallback for topic is returned instead.
func (g *Generator) Generate(ctx context.Context, topic, prompt string) (*Generation, error) {
	if !g.Configured() {
		text := FallbackArticle(topic)
		g.log.Warn().Str("title", topic).Msg("No AI provider configured, using fallback content")
		return &Generation{Text: text, WordCount: WordCount(text), Provider: "fallback", Fallback: true}, nil
	}

	req := GenerationRequest{
		Prompt:      prompt,
		Temperature: DefaultTemperature,
		MaxTokens:   g.maxTokens,
		TopP:        DefaultTopP,
		TopK:        DefaultTopK,
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, provider, err := g.tryProviders(ctx, req, attempt)
		if err == nil {
			wc := WordCount(text)
			g.log.Info().
				Str("title", topic).
				Str("provider", provider).
				Int("attempt", attempt).
				Int("word_count", wc).
				Msg("Generated content")
			return &Generation{Text: text, WordCount: wc, Provider: provider, Attempts: attempt}, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrGenerationExhausted, ctxErr)
		}
		if attempt < g.maxAttempts {
			g.log.Warn().Err(err).Str("title", topic).Int("attempt", attempt).Int("max_attempts", g.maxAttempts).Msg("Generation failed, retrying")
			if err := g.sleep(ctx, g.retryDelay); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrGenerationExhausted, err)
			}
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrGenerationExhausted, lastErr)
}

// Complete runs a short prompt once through the chain without retries or
// fallback content. It backs optional steps such as SEO suggestions.
func (g *Generator) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if !g.Configured() {
		return "", ErrEmptyResponse
	}
	req := GenerationRequest{
		Prompt:      prompt,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
		TopP:        DefaultTopP,
		TopK:        DefaultTopK,
	}
	text, _, err := g.tryProviders(ctx, req, 1)
	return text, err
}

func (g *Generator) tryProviders(ctx context.Context, req GenerationRequest, attempt int) (string, string, error) {
	var errs []error
	for _, p := range g.providers {
		text, err := p.Generate(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyResponse
		}
		if err == nil {
			return text, p.Name(), nil
		}

		g.log.Debug().Err(err).Str("provider", p.Name()).Int("attempt", attempt).Msg("Provider call failed")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", "", errors.Join(errs...)
}
