package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store kinds accepted by JOB_STORE
const (
	StoreRedis  = "redis"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Redis configuration
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Job store
	JobStore    string        `json:"job_store"`
	StoragePath string        `json:"storage_path"`
	LeaseTTL    time.Duration `json:"lease_ttl"`

	// Background queue
	QueueName         string        `json:"queue_name"`
	WorkerConcurrency int           `json:"worker_concurrency"`
	JobTimeout        time.Duration `json:"job_timeout"`

	// AI providers
	GeminiAPIKey     string        `json:"-"`
	GeminiModel      string        `json:"gemini_model"`
	OpenRouterAPIKey string        `json:"-"`
	OpenRouterModel  string        `json:"openrouter_model"`
	LlamaAPIKey      string        `json:"-"`
	LlamaBaseURL     string        `json:"llama_base_url"`
	LlamaModel       string        `json:"llama_model"`
	AIProviderOrder  []string      `json:"ai_provider_order"`
	AIMaxTokens      int           `json:"ai_max_tokens"`
	AITimeout        time.Duration `json:"ai_timeout"`

	// Pipeline
	RowDelay        time.Duration `json:"row_delay"`
	RetryDelay      time.Duration `json:"retry_delay"`
	MaxRetries      int           `json:"max_retries"`
	WordTarget      int           `json:"word_target"`
	PromptStylePath string        `json:"prompt_style_path"`
	FetchReferences bool          `json:"fetch_references"`
	SEOSuggest      bool          `json:"seo_suggest"`
	OutputDir       string        `json:"output_dir"`

	// Default WordPress site
	WordPressSiteURL     string `json:"wordpress_site_url"`
	WordPressUsername    string `json:"wordpress_username"`
	WordPressAppPassword string `json:"-"`

	// CloudFlare R2 Configuration
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// Security
	AdminAPIKey string `json:"-"`
}

// ProviderConfig is the slice of configuration the content generator needs
type ProviderConfig struct {
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
	LlamaAPIKey      string
	LlamaBaseURL     string
	LlamaModel       string
	Order            []string
	MaxTokens        int
	Timeout          time.Duration
	MaxAttempts      int
	RetryDelay       time.Duration
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv reads the environment (and .env when present) and returns a
// validated configuration
func FromEnv() (*Config, error) {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads the environment without validating it, for callers that apply
// their own overrides before calling Validate
func Read() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	geminiKey := getEnv("GEMINI_API_KEY", "")
	if geminiKey == "" {
		geminiKey = getEnv("GOOGLE_AI_KEY", "")
	}

	return &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		// Redis configuration
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "contentpipe:"),

		// Job store
		JobStore:    strings.ToLower(getEnv("JOB_STORE", StoreRedis)),
		StoragePath: getEnv("STORAGE_PATH", "./data"),
		LeaseTTL:    getEnvAsDuration("LEASE_TTL", 2*time.Hour),

		// Background queue
		QueueName:         getEnv("QUEUE_NAME", "bulk"),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 2),
		JobTimeout:        getEnvAsDuration("JOB_TIMEOUT", 24*time.Hour),

		// AI providers
		GeminiAPIKey:     geminiKey,
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterModel:  getEnv("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
		LlamaAPIKey:      getEnv("LLAMA_API_KEY", ""),
		LlamaBaseURL:     getEnv("LLAMA_BASE_URL", "https://api.groq.com/openai/v1"),
		LlamaModel:       getEnv("LLAMA_MODEL", "llama-3.3-70b-versatile"),
		AIProviderOrder:  getEnvAsList("AI_PROVIDER_ORDER", []string{"gemini", "openrouter", "llama"}),
		AIMaxTokens:      getEnvAsInt("AI_MAX_TOKENS", 32000),
		AITimeout:        getEnvAsDuration("AI_TIMEOUT", 5*time.Minute),

		// Pipeline
		RowDelay:        getEnvAsDuration("ROW_DELAY", 5*time.Second),
		RetryDelay:      getEnvAsDuration("RETRY_DELAY", 2*time.Second),
		MaxRetries:      getEnvAsInt("MAX_RETRIES", 3),
		WordTarget:      getEnvAsInt("WORD_TARGET", 5000),
		PromptStylePath: getEnv("PROMPT_STYLE_PATH", ""),
		FetchReferences: getEnvAsBool("FETCH_REFERENCES", true),
		SEOSuggest:      getEnvAsBool("SEO_SUGGEST", false),
		OutputDir:       getEnv("OUTPUT_DIR", "./output"),

		// Default WordPress site
		WordPressSiteURL:     getEnv("WORDPRESS_SITE_URL", ""),
		WordPressUsername:    getEnv("WORDPRESS_USERNAME", ""),
		WordPressAppPassword: getEnv("WORDPRESS_APP_PASSWORD", ""),

		// CloudFlare R2 Configuration
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", ""),
		R2AccountID: getEnv("R2_ACCOUNT_ID", getEnv("CLOUDFLARE_ACCOUNT_ID", "")),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		// Security
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.JobStore {
	case StoreRedis, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("unknown JOB_STORE %q", c.JobStore)
	}
	if c.RowDelay < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency)
	}
	if c.LeaseTTL <= 0 || c.JobTimeout <= 0 {
		return fmt.Errorf("LEASE_TTL and JOB_TIMEOUT must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	for _, name := range c.AIProviderOrder {
		switch name {
		case "gemini", "openrouter", "llama":
		default:
			return fmt.Errorf("unknown provider %q in AI_PROVIDER_ORDER", name)
		}
	}
	return nil
}

// ProviderConfig projects the provider section for the content generator
func (c *Config) ProviderConfig() ProviderConfig {
	return ProviderConfig{
		GeminiAPIKey:     c.GeminiAPIKey,
		GeminiModel:      c.GeminiModel,
		OpenRouterAPIKey: c.OpenRouterAPIKey,
		OpenRouterModel:  c.OpenRouterModel,
		LlamaAPIKey:      c.LlamaAPIKey,
		LlamaBaseURL:     c.LlamaBaseURL,
		LlamaModel:       c.LlamaModel,
		Order:            c.AIProviderOrder,
		MaxTokens:        c.AIMaxTokens,
		Timeout:          c.AITimeout,
		MaxAttempts:      c.MaxRetries,
		RetryDelay:       c.RetryDelay,
	}
}

// HasDefaultSite reports whether default WordPress credentials are configured
func (c *Config) HasDefaultSite() bool {
	return c.WordPressSiteURL != "" && c.WordPressUsername != "" && c.WordPressAppPassword != ""
}

// HasR2 reports whether the artifact bucket is configured
func (c *Config) HasR2() bool {
	return c.R2AccountID != "" && c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// Helper functions for environment variable handling. Empty values count
// as unset.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %t", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsList(name string, defaultVal []string) []string {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
