package llm

import (
	"context"
	"time"

	"github.com/kyleking/askdb/internal/config"
)

// Completer turns a prompt into generated text
type Completer interface {
	Complete(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// Service is a Completer that can also report reachability
type Service interface {
	Completer
	Ping(ctx context.Context) error
	Configure(config Config) error
}

// Config represents completion service configuration
type Config struct {
	Provider    string        `json:"provider"` // ollama, openai, anthropic
	Model       string        `json:"model"`
	APIKey      string        `json:"api_key,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// Provider constants for different LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Decoding defaults
const (
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 512
	DefaultTimeout     = 120 * time.Second
)

// ConfigFromApp maps the application configuration onto a client Config
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeoutDuration(),
	}
}
