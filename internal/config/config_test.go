package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JOB_STORE", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_AI_KEY", "google-key")
	t.Setenv("AI_PROVIDER_ORDER", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.JobStore != StoreRedis {
		t.Errorf("JobStore = %q", cfg.JobStore)
	}
	if cfg.GeminiAPIKey != "google-key" {
		t.Errorf("GOOGLE_AI_KEY fallback not applied: %q", cfg.GeminiAPIKey)
	}
	if cfg.RowDelay != 5*time.Second || cfg.RetryDelay != 2*time.Second || cfg.MaxRetries != 3 {
		t.Errorf("unexpected pipeline defaults: %v %v %d", cfg.RowDelay, cfg.RetryDelay, cfg.MaxRetries)
	}
	if len(cfg.AIProviderOrder) != 3 || cfg.AIProviderOrder[0] != "gemini" {
		t.Errorf("provider order = %v", cfg.AIProviderOrder)
	}
	if cfg.QueueName != "bulk" || cfg.WorkerConcurrency != 2 || cfg.JobTimeout != 24*time.Hour || cfg.LeaseTTL != 2*time.Hour {
		t.Errorf("queue defaults = %q %d %v %v", cfg.QueueName, cfg.WorkerConcurrency, cfg.JobTimeout, cfg.LeaseTTL)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JOB_STORE", "File")
	t.Setenv("ROW_DELAY", "0s")
	t.Setenv("AI_PROVIDER_ORDER", " OpenRouter , llama,")
	t.Setenv("SEO_SUGGEST", "true")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.JobStore != StoreFile {
		t.Errorf("JobStore = %q", cfg.JobStore)
	}
	if cfg.RowDelay != 0 {
		t.Errorf("RowDelay = %v", cfg.RowDelay)
	}
	if len(cfg.AIProviderOrder) != 2 || cfg.AIProviderOrder[0] != "openrouter" || cfg.AIProviderOrder[1] != "llama" {
		t.Errorf("provider order = %v", cfg.AIProviderOrder)
	}
	if !cfg.SEOSuggest {
		t.Error("SEO_SUGGEST not applied")
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("invalid MAX_RETRIES should fall back to default, got %d", cfg.MaxRetries)
	}
}

func TestReadDefersValidation(t *testing.T) {
	t.Setenv("JOB_STORE", "postgres")
	t.Setenv("QUEUE_NAME", "")

	cfg := Read()
	if cfg.JobStore != "postgres" {
		t.Errorf("JobStore = %q", cfg.JobStore)
	}
	if cfg.QueueName != "bulk" {
		t.Errorf("empty QUEUE_NAME should use the default, got %q", cfg.QueueName)
	}
	if _, err := FromEnv(); err == nil {
		t.Error("FromEnv accepted an unknown store")
	}

	cfg.JobStore = StoreFile
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after override: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown store", func(c *Config) { c.JobStore = "postgres" }, true},
		{"negative delay", func(c *Config) { c.RowDelay = -time.Second }, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
		{"no workers", func(c *Config) { c.WorkerConcurrency = 0 }, true},
		{"no lease", func(c *Config) { c.LeaseTTL = 0 }, true},
		{"no job timeout", func(c *Config) { c.JobTimeout = 0 }, true},
		{"unknown provider", func(c *Config) { c.AIProviderOrder = []string{"gemini", "bard"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				JobStore:          StoreMemory,
				MaxRetries:        3,
				WorkerConcurrency: 1,
				LeaseTTL:          time.Hour,
				JobTimeout:        time.Hour,
				AIProviderOrder:   []string{"gemini"},
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProviderConfigProjection(t *testing.T) {
	cfg := &Config{
		GeminiAPIKey:    "g",
		OpenRouterModel: "m",
		AIProviderOrder: []string{"llama"},
		MaxRetries:      4,
		RetryDelay:      time.Second,
	}
	pc := cfg.ProviderConfig()
	if pc.GeminiAPIKey != "g" || pc.OpenRouterModel != "m" || pc.MaxAttempts != 4 || pc.RetryDelay != time.Second {
		t.Errorf("unexpected projection: %+v", pc)
	}
	if len(pc.Order) != 1 || pc.Order[0] != "llama" {
		t.Errorf("order = %v", pc.Order)
	}
}
