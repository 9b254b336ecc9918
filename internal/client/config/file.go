package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/flagx"
	"github.com/dmitrijs2005/ocrdesk/internal/timex"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is a DTO used exclusively for config file unmarshalling.
// Absent keys stay nil and leave the corresponding setting alone.
// Durations use timex.Duration, so they can be written as "3s" or, in
// JSON, as integer nanoseconds.
type FileConfig struct {
	ServerURL           *string         `json:"server_url" toml:"server_url"`
	DatabasePath        *string         `json:"database_path" toml:"database_path"`
	DownloadDir         *string         `json:"download_dir" toml:"download_dir"`
	RequestTimeout      *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	HistoryTimeout      *timex.Duration `json:"history_timeout" toml:"history_timeout"`
	PingTimeout         *timex.Duration `json:"ping_timeout" toml:"ping_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval" toml:"online_check_interval"`
	HistoryPageSize     *int            `json:"history_page_size" toml:"history_page_size"`
	MaxUploadSize       *int64          `json:"max_upload_size" toml:"max_upload_size"`
	Locale              *string         `json:"locale" toml:"locale"`
	LogLevel            *string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config in args. Files
// ending in .toml are read as TOML, anything else as JSON.
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

	fc.apply(cfg)
	return nil
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, fc.ServerURL)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.DownloadDir, fc.DownloadDir)
	setDuration(&cfg.RequestTimeout, fc.RequestTimeout)
	setDuration(&cfg.HistoryTimeout, fc.HistoryTimeout)
	setDuration(&cfg.PingTimeout, fc.PingTimeout)
	setDuration(&cfg.OnlineCheckInterval, fc.OnlineCheckInterval)
	if fc.HistoryPageSize != nil {
		cfg.HistoryPageSize = *fc.HistoryPageSize
	}
	if fc.MaxUploadSize != nil {
		cfg.MaxUploadSize = *fc.MaxUploadSize
	}
	setString(&cfg.Locale, fc.Locale)
	setString(&cfg.LogLevel, fc.LogLevel)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
