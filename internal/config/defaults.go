package config

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		VectorStoreURL:     "",
		DocumentStoreURL:   "",
		ProviderAKey:       "${PROVIDER_A_KEY}",
		ProviderBKey:       "${PROVIDER_B_KEY}",
		LocalProviderURL:   "",
		LocalProviderModel: "",
		AITemperature:      0.1,
		AIMaxTokens:        4000,
		AITimeoutMs:        30000,
		AIRetries:          3,
		MaxPageWorkers:     8,
		UploadMaxBytes:     200 * 1024 * 1024,
		SessionTTLSeconds:  3600,
		RedisURL:           "redis://127.0.0.1:6379/0",
	}
}
