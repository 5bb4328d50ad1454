package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/validation"
)

const (
	// ConfigDirPerm is the permission for the config directory (0700 = rwx------)
	ConfigDirPerm os.FileMode = 0700
	// ConfigFilePerm is the permission for the config file (0600 = rw-------)
	ConfigFilePerm os.FileMode = 0600

	dirName  = ".orchat"
	fileName = "config.yaml"

	// EnvPrefix namespaces environment overrides, e.g. ORCHAT_MODEL.
	EnvPrefix = "ORCHAT"
)

type Config struct {
	Model                 string  `mapstructure:"model"`
	Temperature           float64 `mapstructure:"temperature"`
	TopP                  float64 `mapstructure:"top_p"`
	MaxTokens             int     `mapstructure:"max_tokens"`
	Stream                bool    `mapstructure:"stream"`
	Endpoint              string  `mapstructure:"endpoint"`
	AppURL                string  `mapstructure:"app_url"`
	AppTitle              string  `mapstructure:"app_title"`
	CredentialStore       string  `mapstructure:"credential_store"`
	RequestTimeoutSeconds int     `mapstructure:"request_timeout_seconds"`
	RateLimitEnabled      bool    `mapstructure:"rate_limit_enabled"`
	RateLimitRequests     int     `mapstructure:"rate_limit_requests"`
	RateLimitWindow       int     `mapstructure:"rate_limit_window_seconds"`
	HistoryEnabled        bool    `mapstructure:"history_enabled"`
	HistoryTTLDays        int     `mapstructure:"history_ttl_days"`
	RenderMarkdown        bool    `mapstructure:"render_markdown"`
	Theme                 string  `mapstructure:"theme"`
	AutoCopy              bool    `mapstructure:"auto_copy"`
	SystemPrompt          string  `mapstructure:"system_prompt"`
	Debug                 bool    `mapstructure:"debug"`
}

// Defaults lists every key with its default value, in the order `config
// list` prints them.
var Defaults = []struct {
	Key   string
	Value any
}{
	{"model", "anthropic/claude-3-opus"},
	{"temperature", 0.7},
	{"top_p", 0.95},
	{"max_tokens", 1000},
	{"stream", true},
	{"endpoint", "https://openrouter.ai/api/v1/chat/completions"},
	{"app_url", "https://github.com/maximbilan/orchat"},
	{"app_title", "orchat"},
	{"credential_store", credential.BackendFile},
	{"request_timeout_seconds", 120},
	{"rate_limit_enabled", true},
	{"rate_limit_requests", 20},
	{"rate_limit_window_seconds", 60},
	{"history_enabled", true},
	{"history_ttl_days", 30},
	{"render_markdown", true},
	{"theme", "dark"},
	{"auto_copy", false},
	{"system_prompt", ""},
	{"debug", false},
}

// Dir returns ~/.orchat. Credentials, history and logs live beneath it.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func setup() (string, error) {
	configPath, err := Dir()
	if err != nil {
		return "", err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)

	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()

	for _, d := range Defaults {
		viper.SetDefault(d.Key, d.Value)
	}
	return configPath, nil
}

// Load reads the config file, applying defaults and ORCHAT_* environment
// overrides. A missing file is not an error.
func Load() (*Config, error) {
	configPath, err := setup()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects generation parameters the API would refuse and unknown
// credential backends.
func (c *Config) Validate() error {
	checks := []error{
		validation.ValidateModel(c.Model),
		validation.ValidateTemperature(c.Temperature),
		validation.ValidateTopP(c.TopP),
		validation.ValidateMaxTokens(c.MaxTokens),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	switch c.CredentialStore {
	case credential.BackendFile, credential.BackendDotenv:
	default:
		return fmt.Errorf("invalid config: unknown credential_store %q (want %q or %q)",
			c.CredentialStore, credential.BackendFile, credential.BackendDotenv)
	}

	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid config: request_timeout_seconds must be non-negative, got %d", c.RequestTimeoutSeconds)
	}
	if c.HistoryTTLDays < 0 {
		return fmt.Errorf("invalid config: history_ttl_days must be non-negative, got %d", c.HistoryTTLDays)
	}
	return nil
}

func Save(cfg *Config) error {
	configPath, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("model", cfg.Model)
	viper.Set("temperature", cfg.Temperature)
	viper.Set("top_p", cfg.TopP)
	viper.Set("max_tokens", cfg.MaxTokens)
	viper.Set("stream", cfg.Stream)
	viper.Set("endpoint", cfg.Endpoint)
	viper.Set("app_url", cfg.AppURL)
	viper.Set("app_title", cfg.AppTitle)
	viper.Set("credential_store", cfg.CredentialStore)
	viper.Set("request_timeout_seconds", cfg.RequestTimeoutSeconds)
	viper.Set("rate_limit_enabled", cfg.RateLimitEnabled)
	viper.Set("rate_limit_requests", cfg.RateLimitRequests)
	viper.Set("rate_limit_window_seconds", cfg.RateLimitWindow)
	viper.Set("history_enabled", cfg.HistoryEnabled)
	viper.Set("history_ttl_days", cfg.HistoryTTLDays)
	viper.Set("render_markdown", cfg.RenderMarkdown)
	viper.Set("theme", cfg.Theme)
	viper.Set("auto_copy", cfg.AutoCopy)
	viper.Set("system_prompt", cfg.SystemPrompt)
	viper.Set("debug", cfg.Debug)

	return write(configPath)
}

// Set stores a single key. Values are kept as strings; viper converts them
// on the next Load.
func Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("config key cannot be empty")
	}

	key = strings.TrimSpace(key)
	if strings.ContainsAny(key, " \t\n\r") {
		return fmt.Errorf("config key contains invalid characters")
	}

	configPath, err := setup()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configPath, ConfigDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	_ = viper.ReadInConfig()

	viper.Set(key, value)

	return write(configPath)
}

func Get(key string) interface{} {
	if key == "" {
		return nil
	}

	if _, err := setup(); err != nil {
		return nil
	}
	_ = viper.ReadInConfig()
	return viper.Get(key)
}

// IsKnownKey reports whether key is one of the documented settings.
func IsKnownKey(key string) bool {
	for _, d := range Defaults {
		if d.Key == key {
			return true
		}
	}
	return false
}

func write(configPath string) error {
	configFile := filepath.Join(configPath, fileName)
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Chmod(configFile, ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	return nil
}
