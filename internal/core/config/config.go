package config

import (
	"errors"
	"time"
)

// ErrMissingCredential is returned when the selected provider has no credential.
var ErrMissingCredential = errors.New("missing provider credential")

const (
	ProviderPerplexity = "perplexity"
	ProviderVertex     = "vertex"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Provider   ProviderConfig   `yaml:"provider"`
	Retry      RetryConfig      `yaml:"retry"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ProviderConfig selects and configures the completion API.
type ProviderConfig struct {
	Name      string        `yaml:"name"` // perplexity, vertex
	APIKey    string        `yaml:"api_key"`
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	ProjectID string        `yaml:"project_id"`
	Region    string        `yaml:"region"`
}

// RetryConfig holds backoff settings for rate-limited requests.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	JitterMin  float64       `yaml:"jitter_min"`
	JitterMax  float64       `yaml:"jitter_max"`
}

// ProcessingConfig holds word list pipeline settings.
type ProcessingConfig struct {
	WordList        string        `yaml:"word_list"`
	Output          string        `yaml:"output"`
	PolitenessDelay time.Duration `yaml:"politeness_delay"`
	Source          string        `yaml:"source"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`
}

// MetricsConfig holds the optional prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}
