// Package config loads the process-wide connection settings for the remote
// record store.
//
// Settings come from the process environment and, optionally, a dotenv
// file. They are loaded once at startup into a Config value that is passed
// explicitly to the table client; nothing reads them as ambient globals.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Environment keys.
const (
	KeyAPIKey   = "AIRTABLE_API_KEY"
	KeyPAT      = "AIRTABLE_PAT" // accepted when AIRTABLE_API_KEY is unset
	KeyBaseID   = "AIRTABLE_BASE_ID"
	KeyEndpoint = "AIRTABLE_ENDPOINT"
	KeyTimeout  = "AIRTABLE_TIMEOUT"
)

// Defaults.
const (
	DefaultEndpoint = "https://api.airtable.com"
	DefaultTimeout  = 30 * time.Second
	DefaultEnvFile  = ".env"
)

// ErrConfigurationMissing matches any MissingError via errors.Is.
var ErrConfigurationMissing = errors.New("configuration missing")

// MissingError lists the required settings that were not provided.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s not set; add to the environment or %s file",
		ErrConfigurationMissing, strings.Join(e.Keys, ", "), DefaultEnvFile)
}

// Is reports whether target is ErrConfigurationMissing.
func (e *MissingError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// Config holds connection settings. It is immutable after Load returns.
type Config struct {
	// APIKey is the bearer token sent with every request.
	APIKey string

	// BaseID scopes every table name.
	BaseID string

	// Endpoint is the API origin, without the /v0 prefix.
	Endpoint string

	// Timeout bounds each round trip.
	Timeout time.Duration
}

// Load reads configuration from the environment and envFile.
//
// Process environment variables take precedence over the file. A missing
// envFile is ignored only when it is DefaultEnvFile; an explicitly named
// file must exist. Load fails fast with a MissingError when the credential
// or base ID is absent.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(strings.ToLower(KeyEndpoint), DefaultEndpoint)

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		} else if envFile != DefaultEnvFile {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		APIKey:   v.GetString(strings.ToLower(KeyAPIKey)),
		BaseID:   v.GetString(strings.ToLower(KeyBaseID)),
		Endpoint: strings.TrimRight(v.GetString(strings.ToLower(KeyEndpoint)), "/"),
		Timeout:  DefaultTimeout,
	}
	if cfg.APIKey == "" {
		cfg.APIKey = v.GetString(strings.ToLower(KeyPAT))
	}

	if raw := v.GetString(strings.ToLower(KeyTimeout)); raw != "" {
		d, err := parseTimeout(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", KeyTimeout, err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate returns a MissingError naming every absent required setting.
func (c *Config) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, KeyAPIKey)
	}
	if c.BaseID == "" {
		missing = append(missing, KeyBaseID)
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// Redacted returns a copy safe to print: the credential keeps only its
// last four characters.
func (c Config) Redacted() Config {
	if n := len(c.APIKey); n > 4 {
		c.APIKey = strings.Repeat("*", n-4) + c.APIKey[n-4:]
	} else if n > 0 {
		c.APIKey = "****"
	}
	return c
}

// parseTimeout accepts a Go duration ("45s") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("timeout must be positive, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}
