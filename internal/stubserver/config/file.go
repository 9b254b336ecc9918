package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dmitrijs2005/ocrdesk/internal/flagx"
	"github.com/dmitrijs2005/ocrdesk/internal/timex"
)

// FileConfig is an intermediate DTO used only for reading config files.
// Durations use timex.Duration, which accepts "30m" as well as integer
// nanoseconds.
type FileConfig struct {
	Addr                        *string         `json:"addr" toml:"addr"`
	SecretKey                   *string         `json:"secret_key" toml:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" toml:"access_token_validity_duration"`
	ResetCodeValidityDuration   *timex.Duration `json:"reset_code_validity_duration" toml:"reset_code_validity_duration"`
	MaxUploadSize               *int64          `json:"max_upload_size" toml:"max_upload_size"`
	LogLevel                    *string         `json:"log_level" toml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any, into cfg.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Addr != nil {
		cfg.Addr = *fc.Addr
	}
	if fc.SecretKey != nil {
		cfg.SecretKey = *fc.SecretKey
	}
	if fc.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.ResetCodeValidityDuration != nil {
		cfg.ResetCodeValidityDuration = fc.ResetCodeValidityDuration.Duration
	}
	if fc.MaxUploadSize != nil {
		cfg.MaxUploadSize = *fc.MaxUploadSize
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return nil
}
