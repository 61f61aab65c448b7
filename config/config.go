// Package config loads the configuration of the clients from a YAML file and the environment
package config

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/airbusgeo/stac-uploader/common"
	"github.com/airbusgeo/stac-uploader/interface/shared"
)

// Default endpoints
const (
	DefaultStacURL    = "https://app.open-cosmos.com/api/data/v0/stac"
	DefaultStorageURL = "https://app.open-cosmos.com/api/data/v0/storage"
	DefaultTokenURL   = "https://login.open-cosmos.com/oauth/token"
	DefaultAudience   = "https://beeapp.open-cosmos.com"
	// DefaultConfigFile is read by Load if no file is given and it exists
	DefaultConfigFile = "config/config.yaml"
)

// Authentication types
const (
	AuthM2M    = "m2m"
	AuthStatic = "static"
	AuthNone   = "none"
)

// Authentication configures the access tokens
type Authentication struct {
	// Type is one of m2m (client credentials), static (Token) or none
	Type         string `yaml:"type" env:"STAC_AUTH_TYPE" env-default:"m2m"`
	ClientID     string `yaml:"client_id" env:"STAC_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"STAC_CLIENT_SECRET"`
	TokenURL     string `yaml:"token_url" env:"STAC_TOKEN_URL" env-default:"https://login.open-cosmos.com/oauth/token"`
	Audience     string `yaml:"audience" env:"STAC_AUDIENCE" env-default:"https://beeapp.open-cosmos.com"`
	Token        string `yaml:"token" env:"STAC_TOKEN"`
}

// Config of the clients
type Config struct {
	Authentication Authentication `yaml:"authentication"`

	Stac                         common.URL `yaml:"stac" env-prefix:"STAC_API_"`
	DatacosmosCloudStorage       common.URL `yaml:"datacosmos_cloud_storage" env-prefix:"STAC_STORAGE_"`
	DatacosmosPublicCloudStorage common.URL `yaml:"datacosmos_public_cloud_storage" env-prefix:"STAC_PUBLIC_STORAGE_"`

	MissionID   string `yaml:"mission_id" env:"STAC_MISSION_ID"`
	ProjectID   string `yaml:"project_id" env:"STAC_PROJECT_ID"`
	Environment string `yaml:"environment" env:"STAC_ENVIRONMENT" env-default:"prod"`

	// Retries of the requests failing with a temporary error
	Retries int `yaml:"retries" env:"STAC_RETRIES" env-default:"3"`
}

// Default returns the configuration with the default endpoints
func Default() *Config {
	return &Config{
		Stac:                         common.MustParseURL(DefaultStacURL),
		DatacosmosCloudStorage:       common.MustParseURL(DefaultStorageURL),
		DatacosmosPublicCloudStorage: common.MustParseURL(DefaultStorageURL),
	}
}

// Load reads the configuration.
// The defaults are overridden by the YAML file (DefaultConfigFile if file is empty and it exists), then by the
// environment. A .env file in the working directory is loaded in the environment first.
func Load(file string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	if file == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			file = DefaultConfigFile
		}
	}
	cfg := Default()
	if file != "" {
		if err := cleanenv.ReadConfig(file, cfg); err != nil {
			return nil, fmt.Errorf("config.Load(%s): %w", file, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills the public storage if missing
func (c *Config) Validate() error {
	if c.Stac.IsZero() {
		return fmt.Errorf("missing stac url")
	}
	if c.DatacosmosCloudStorage.IsZero() {
		return fmt.Errorf("missing datacosmos_cloud_storage url")
	}
	if c.DatacosmosPublicCloudStorage.IsZero() {
		c.DatacosmosPublicCloudStorage = c.DatacosmosCloudStorage
	}
	switch c.Authentication.Type {
	case AuthM2M:
		if c.Authentication.ClientID == "" || c.Authentication.ClientSecret == "" {
			return fmt.Errorf("m2m authentication requires client_id and client_secret")
		}
	case AuthStatic:
		if c.Authentication.Token == "" {
			return fmt.Errorf("static authentication requires a token")
		}
	case AuthNone, "":
	default:
		return fmt.Errorf("unknown authentication type %q", c.Authentication.Type)
	}
	return nil
}

// TokenManager returns the token manager of the configured authentication (nil if none)
func (c *Config) TokenManager(ctx context.Context) (shared.TokenManager, error) {
	switch c.Authentication.Type {
	case AuthM2M:
		return shared.NewClientCredentialsTokenManager(ctx, nil, shared.ClientCredentials{
			ClientID:     c.Authentication.ClientID,
			ClientSecret: c.Authentication.ClientSecret,
			TokenURL:     c.Authentication.TokenURL,
			Audience:     c.Authentication.Audience,
		})
	case AuthStatic:
		return shared.StaticTokenManager(c.Authentication.Token), nil
	}
	return nil, nil
}

// HTTPClient returns an http client authenticated with the configured token (http.DefaultClient if none)
func (c *Config) HTTPClient(ctx context.Context) (*http.Client, error) {
	tm, err := c.TokenManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("HTTPClient.%w", err)
	}
	if tm == nil {
		return http.DefaultClient, nil
	}
	return shared.NewAuthenticatedClient(tm, nil), nil
}
