// Package config loads the fancycle deployment configuration from a YAML
// file. Everything here is fixed for the lifetime of the process: the
// handler receives the parsed Config by value and never mutates it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Secret store modes.
const (
	SecretsModeHTTP   = "http"
	SecretsModeStatic = "static"
)

// Defaults for the Google endpoints and fan behavior.
const (
	DefaultOAuthTokenURL = "https://www.googleapis.com/oauth2/v4/token"
	DefaultSDMBaseURL    = "https://smartdevicemanagement.googleapis.com"
	DefaultFanDuration   = "360s" // 6 minutes
)

// SecretNames maps the four credentials to their names in the secret store.
type SecretNames struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	ProjectID    string `yaml:"project_id"`
}

// SecretsConfig selects and configures the secret provider.
type SecretsConfig struct {
	Mode      string            `yaml:"mode"`
	BaseURL   string            `yaml:"base_url,omitempty"`
	Project   string            `yaml:"project,omitempty"`
	AuthToken string            `yaml:"auth_token,omitempty"`
	Names     SecretNames       `yaml:"names,omitempty"`
	Values    map[string]string `yaml:"values,omitempty"` // static mode only
}

// Config is the full deployment configuration.
type Config struct {
	DeviceID      string        `yaml:"device_id"`
	FanDuration   string        `yaml:"fan_duration"`
	OAuthTokenURL string        `yaml:"oauth_token_url"`
	SDMBaseURL    string        `yaml:"sdm_base_url"`
	Secrets       SecretsConfig `yaml:"secrets"`
}

// Default returns a Config with all defaulted fields filled in. DeviceID
// has no sensible default and must come from the file.
func Default() Config {
	return Config{
		FanDuration:   DefaultFanDuration,
		OAuthTokenURL: DefaultOAuthTokenURL,
		SDMBaseURL:    DefaultSDMBaseURL,
		Secrets: SecretsConfig{
			Mode: SecretsModeHTTP,
			Names: SecretNames{
				ClientID:     "nest-client-id",
				ClientSecret: "nest-client-secret",
				RefreshToken: "nest-refresh-token",
				ProjectID:    "nest-project-id",
			},
		},
	}
}

// Load reads and validates the config file at path, applying defaults for
// anything the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	// Unmarshal only touches keys the file mentions, so defaults survive.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the parts of the config that would otherwise fail at
// request time.
func (c Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if _, err := time.ParseDuration(c.FanDuration); err != nil {
		return fmt.Errorf("invalid fan_duration %q: %w", c.FanDuration, err)
	}
	switch c.Secrets.Mode {
	case SecretsModeHTTP:
		if c.Secrets.BaseURL == "" {
			return fmt.Errorf("secrets.base_url is required in http mode")
		}
		if c.Secrets.Project == "" {
			return fmt.Errorf("secrets.project is required in http mode")
		}
	case SecretsModeStatic:
		if len(c.Secrets.Values) == 0 {
			return fmt.Errorf("secrets.values is required in static mode")
		}
	default:
		return fmt.Errorf("unknown secrets.mode %q", c.Secrets.Mode)
	}
	return nil
}
