package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Manager handles loading and hot-reloading configuration, following the
// viper + fsnotify pattern shared across the rest of the ingest pipeline's
// provider and store wiring.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads the initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{callbacks: make([]func(*Config), 0)}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("vector_store_url", defaults.VectorStoreURL)
	viper.SetDefault("document_store_url", defaults.DocumentStoreURL)
	viper.SetDefault("provider_a_key", defaults.ProviderAKey)
	viper.SetDefault("provider_b_key", defaults.ProviderBKey)
	viper.SetDefault("local_provider_url", defaults.LocalProviderURL)
	viper.SetDefault("local_provider_model", defaults.LocalProviderModel)
	viper.SetDefault("ai_temperature", defaults.AITemperature)
	viper.SetDefault("ai_max_tokens", defaults.AIMaxTokens)
	viper.SetDefault("ai_timeout_ms", defaults.AITimeoutMs)
	viper.SetDefault("ai_retries", defaults.AIRetries)
	viper.SetDefault("max_page_workers", defaults.MaxPageWorkers)
	viper.SetDefault("upload_max_bytes", defaults.UploadMaxBytes)
	viper.SetDefault("session_ttl_seconds", defaults.SessionTTLSeconds)
	viper.SetDefault("redis_url", defaults.RedisURL)

	viper.SetEnvPrefix("RPGVAULT")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rpgvault")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback invoked after every hot-reload.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration via fsnotify.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// WriteDefault writes the default configuration to the given path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# RPG Vault Ingest configuration
# Provider keys use ${ENV_VAR} syntax to reference environment variables.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
