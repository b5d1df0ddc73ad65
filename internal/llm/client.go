// Package llm provides a provider-agnostic completion client for the stage
// capabilities, with bounded retry and structured-output extraction helpers.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider names accepted in configuration.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultTimeout = 180 * time.Second
)

// Config describes how to reach the completion provider.
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	APIKeyEnv string
	Timeout   time.Duration
}

// Request is a single oneshot completion request.
type Request struct {
	Instructions string
	Input        string
}

// Response is the completion result.
type Response struct {
	OutputText string
}

// Completer executes a single completion request. Implementations must be
// safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Configured reports whether an API key is resolvable for the configured
// provider, either directly or through the environment.
func Configured(cfg Config) bool {
	if strings.TrimSpace(cfg.APIKey) != "" {
		return true
	}
	envKey := strings.TrimSpace(cfg.APIKeyEnv)
	if envKey == "" {
		if strings.TrimSpace(cfg.Provider) == ProviderGemini {
			envKey = defaultGeminiKeyEnv
		} else {
			envKey = defaultOpenAIKeyEnv
		}
	}
	return strings.TrimSpace(os.Getenv(envKey)) != ""
}

// New constructs the configured provider client wrapped with retry.
func New(ctx context.Context, cfg Config, retry RetryConfig) (Completer, error) {
	var (
		client Completer
		err    error
	)
	switch strings.TrimSpace(cfg.Provider) {
	case "", ProviderOpenAI:
		client, err = NewOpenAI(cfg)
	case ProviderGemini:
		client, err = NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithRetry(client, retry), nil
}
