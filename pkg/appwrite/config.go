package appwrite

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultEndpoint is the self-hosted Appwrite instance behind the site.
const DefaultEndpoint = "https://neurofin.cloud/v1"

// ErrMissingCredentials is returned when the project id or API key is absent.
var ErrMissingCredentials = errors.New("appwrite: project id and api key are required")

// Config holds the connection settings for an Appwrite project.
type Config struct {
	Endpoint  string        `env:"APPWRITE_ENDPOINT" envDefault:"https://neurofin.cloud/v1"`
	ProjectID string        `env:"PUBLIC_APPWRITE_PROJECT_INIT_ID"`
	APIKey    string        `env:"APPWRITE_API_KEY_INIT"`
	Timeout   time.Duration `env:"APPWRITE_TIMEOUT" envDefault:"10s"`
}

// LoadConfigFromEnv reads the Appwrite settings from the environment.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse appwrite env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the config can authenticate against a project.
func (c Config) Validate() error {
	if c.ProjectID == "" || c.APIKey == "" {
		return ErrMissingCredentials
	}
	if c.Endpoint == "" {
		return errors.New("appwrite: endpoint is required")
	}
	return nil
}
