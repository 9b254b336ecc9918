// Package config handles configuration for the reference OCR service,
// including defaults, a JSON or TOML overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

// Config holds runtime settings for the reference service.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Empty means a random
//     secret per process, so tokens do not survive a restart.
//   - AccessTokenValidityDuration: lifetime of issued access tokens.
//   - ResetCodeValidityDuration: lifetime of a password reset code.
//   - MaxUploadSize: request body limit for POST /process.
type Config struct {
	Addr                        string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	ResetCodeValidityDuration   time.Duration
	MaxUploadSize               int64
	LogLevel                    string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8000"
	c.SecretKey = ""
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.ResetCodeValidityDuration = 5 * time.Minute
	c.MaxUploadSize = 10 << 20
	c.LogLevel = "info"
}

func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.ResetCodeValidityDuration <= 0 {
		errs = append(errs, errors.New("reset code validity must be positive"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
