package main

import (
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/anvilworks/codeforge/internal/config"
	"github.com/anvilworks/codeforge/internal/llm"
)

// loadConfig reads the optional JSON config file on top of the built-in
// defaults. A missing file is not an error; a malformed one is.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	path := viper.GetString("config")
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return config.Config{}, fmt.Errorf("stat config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := config.ValidateSettings(v.AllSettings()); err != nil {
		return config.Config{}, err
	}
	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.StringToTimeDurationHookFunc(),
	)); err != nil {
		return config.Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Workflow.MaxAttempts <= 0 {
		return config.Config{}, fmt.Errorf("workflow.max_attempts must be > 0")
	}
	return cfg, nil
}

func llmConfig(cfg config.Config) llm.Config {
	return llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Timeout:   cfg.LLM.Timeout,
	}
}

func llmRetryConfig(cfg config.Config) llm.RetryConfig {
	retry := llm.RetryConfig{
		MaxAttempts:       cfg.LLM.Retry.MaxAttempts,
		BackoffBase:       cfg.LLM.Retry.BackoffBase,
		BackoffMultiplier: cfg.LLM.Retry.BackoffMultiplier,
		MaxBackoff:        cfg.LLM.Retry.MaxBackoff,
	}
	if retry.MaxAttempts <= 0 {
		retry = llm.DefaultRetryConfig()
	}
	return retry
}
