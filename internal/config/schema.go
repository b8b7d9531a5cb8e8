// Package config loads and hot-reloads RPG Vault Ingest configuration.
package config

import "time"

// Config holds the full configuration surface, loaded from environment
// variables (RPGVAULT_ prefix) or a config.yaml.
type Config struct {
	VectorStoreURL   string `mapstructure:"vector_store_url" yaml:"vector_store_url"`
	DocumentStoreURL string `mapstructure:"document_store_url" yaml:"document_store_url"`

	ProviderAKey       string `mapstructure:"provider_a_key" yaml:"provider_a_key"`
	ProviderBKey       string `mapstructure:"provider_b_key" yaml:"provider_b_key"`
	LocalProviderURL   string `mapstructure:"local_provider_url" yaml:"local_provider_url"`
	LocalProviderModel string `mapstructure:"local_provider_model" yaml:"local_provider_model"`

	AITemperature float64 `mapstructure:"ai_temperature" yaml:"ai_temperature"`
	AIMaxTokens   int     `mapstructure:"ai_max_tokens" yaml:"ai_max_tokens"`
	AITimeoutMs   int     `mapstructure:"ai_timeout_ms" yaml:"ai_timeout_ms"`
	AIRetries     int     `mapstructure:"ai_retries" yaml:"ai_retries"`

	MaxPageWorkers    int   `mapstructure:"max_page_workers" yaml:"max_page_workers"`
	UploadMaxBytes    int64 `mapstructure:"upload_max_bytes" yaml:"upload_max_bytes"`
	SessionTTLSeconds int   `mapstructure:"session_ttl_seconds" yaml:"session_ttl_seconds"`

	RedisURL string `mapstructure:"redis_url" yaml:"redis_url"`
}

// AITimeout returns AITimeoutMs as a time.Duration.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutMs) * time.Millisecond
}

// GetAPIKey returns the resolved API key for a provider variant name
// ("cloud-a", "cloud-b"). Returns empty string for others (mock, local).
func (c *Config) GetAPIKey(variant string) string {
	switch variant {
	case "cloud-a":
		return ResolveEnvVars(c.ProviderAKey)
	case "cloud-b":
		return ResolveEnvVars(c.ProviderBKey)
	default:
		return ""
	}
}
