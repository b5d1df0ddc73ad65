// Package config provides configuration loading and management for codeforge.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `json:"server"   mapstructure:"server"`
	LLM      LLMConfig      `json:"llm"      mapstructure:"llm"`
	Workflow WorkflowConfig `json:"workflow" mapstructure:"workflow"`
}

// ServerConfig describes the HTTP serving surface.
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// LLMConfig describes how to reach the completion provider.
type LLMConfig struct {
	Provider  string        `json:"provider"              mapstructure:"provider"`
	Model     string        `json:"model"                 mapstructure:"model"`
	BaseURL   string        `json:"base_url,omitempty"    mapstructure:"base_url"`
	APIKey    string        `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv string        `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	Timeout   time.Duration `json:"timeout,omitempty"     mapstructure:"timeout"`
	Retry     RetryConfig   `json:"retry"                 mapstructure:"retry"`
}

// RetryConfig bounds transport-level retries for completion requests.
type RetryConfig struct {
	MaxAttempts       int           `json:"max_attempts"       mapstructure:"max_attempts"`
	BackoffBase       time.Duration `json:"backoff_base"       mapstructure:"backoff_base"`
	BackoffMultiplier float64       `json:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	MaxBackoff        time.Duration `json:"max_backoff"        mapstructure:"max_backoff"`
}

// WorkflowConfig defines workflow run limits.
type WorkflowConfig struct {
	// MaxAttempts caps total Code/Test executions per workflow run.
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts"`
}

// Default returns the built-in configuration used when no config file is
// present.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8001"},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o",
			Timeout:  180 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:       3,
				BackoffBase:       2 * time.Second,
				BackoffMultiplier: 2.0,
				MaxBackoff:        30 * time.Second,
			},
		},
		Workflow: WorkflowConfig{MaxAttempts: 3},
	}
}
