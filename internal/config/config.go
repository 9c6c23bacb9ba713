package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blacktop/fbpost/internal/fbpost"
	"github.com/blacktop/fbpost/internal/fbpost/graph"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is where setup saves credentials and where they are read from.
const DefaultEnvFile = ".env.local"

// Environment variables read by Load and written by Save.
const (
	EnvPageID      = "FACEBOOK_PAGE_ID"
	EnvPageName    = "FACEBOOK_PAGE_NAME"
	EnvAccessToken = "FACEBOOK_ACCESS_TOKEN"
	EnvAPIVersion  = "FACEBOOK_API_VERSION"
	EnvAppID       = "FACEBOOK_APP_ID"
	EnvAppSecret   = "FACEBOOK_APP_SECRET"
	EnvLogLevel    = "FACEBOOK_LOG_LEVEL"
)

// Config holds the page credentials and app settings.
type Config struct {
	// Page
	PageID      string
	PageName    string
	AccessToken string
	APIVersion  string

	// App credentials, only needed by setup
	AppID     string
	AppSecret string

	LogLevel string
}

// Load reads configuration from the environment after loading any of the
// given dotenv files that exist. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	var existing []string
	for _, file := range files {
		if file == "" {
			continue
		}
		if _, err := os.Stat(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", file, err)
		}
		existing = append(existing, file)
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	return &Config{
		PageID:      getEnv(EnvPageID, ""),
		PageName:    getEnv(EnvPageName, ""),
		AccessToken: getEnv(EnvAccessToken, ""),
		APIVersion:  getEnv(EnvAPIVersion, graph.DefaultAPIVersion),
		AppID:       getEnv(EnvAppID, ""),
		AppSecret:   getEnv(EnvAppSecret, ""),
		LogLevel:    getEnv(EnvLogLevel, "info"),
	}, nil
}

// Save writes the configuration to a dotenv file, replacing its contents.
func (c *Config) Save(path string) error {
	env := map[string]string{
		EnvPageID:      c.PageID,
		EnvPageName:    c.PageName,
		EnvAccessToken: c.AccessToken,
		EnvAPIVersion:  c.APIVersion,
		EnvAppID:       c.AppID,
		EnvAppSecret:   c.AppSecret,
	}
	for key, value := range env {
		if value == "" {
			delete(env, key)
		}
	}
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	// The file holds secrets.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}

// Graph returns the publisher configuration.
func (c *Config) Graph() graph.Config {
	return graph.Config{
		PageID:      c.PageID,
		AccessToken: c.AccessToken,
		APIVersion:  c.APIVersion,
	}
}

// ValidateForSetup checks the app credentials needed to exchange tokens.
func (c *Config) ValidateForSetup() error {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, EnvAppID)
	}
	if c.AppSecret == "" {
		missing = append(missing, EnvAppSecret)
	}
	if len(missing) > 0 {
		return fbpost.ConfigurationError{Missing: missing}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}
