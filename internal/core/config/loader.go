package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	DefaultPerplexityEndpoint = "https://api.perplexity.ai/chat/completions"
	DefaultSource             = "Perplexity AI via lexophile word processor"
)

// Load reads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	p := &cfg.Provider
	if p.Name == "" {
		p.Name = ProviderPerplexity
	}
	switch p.Name {
	case ProviderPerplexity:
		if p.APIKey == "" {
			p.APIKey = os.Getenv("PERPLEXITY_API_KEY")
		}
		if p.Endpoint == "" {
			p.Endpoint = DefaultPerplexityEndpoint
		}
		if p.Model == "" {
			p.Model = "sonar"
		}
	case ProviderVertex:
		if p.ProjectID == "" {
			p.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		if p.Region == "" {
			p.Region = "us-central1"
		}
		if p.Model == "" {
			p.Model = "gemini-1.5-pro"
		}
	}
	if p.Timeout == 0 {
		p.Timeout = 60 * time.Second
	}

	r := &cfg.Retry
	if r.MaxRetries == 0 {
		r.MaxRetries = 5
	}
	if r.BaseDelay == 0 {
		r.BaseDelay = 1 * time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = 300 * time.Second
	}
	if r.JitterMin == 0 && r.JitterMax == 0 {
		r.JitterMin, r.JitterMax = 0.1, 0.3
	}

	pr := &cfg.Processing
	if pr.WordList == "" {
		pr.WordList = "word_list_main.txt"
	}
	if pr.Output == "" {
		pr.Output = "lexophile.json"
	}
	if pr.PolitenessDelay == 0 {
		pr.PolitenessDelay = 1 * time.Second
	}
	if pr.Source == "" {
		pr.Source = DefaultSource
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "lexophile.log"
	}
}

// Validate checks the settings needed before any client is constructed.
func (c *AppConfig) Validate() error {
	switch c.Provider.Name {
	case ProviderPerplexity:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("%w: PERPLEXITY_API_KEY not set", ErrMissingCredential)
		}
	case ProviderVertex:
		if c.Provider.ProjectID == "" {
			return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT not set", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.JitterMin < 0 || c.Retry.JitterMax < c.Retry.JitterMin {
		return fmt.Errorf("invalid jitter range [%v, %v]", c.Retry.JitterMin, c.Retry.JitterMax)
	}
	return nil
}
