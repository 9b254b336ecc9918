package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/ocrdesk/internal/client/messages"
	"github.com/dmitrijs2005/ocrdesk/internal/logging"
)

// Config holds runtime settings for the ocrdesk CLI.
//
// Timeouts bound the auth calls (RequestTimeout), history listing and
// deletion (HistoryTimeout) and the liveness probe (PingTimeout). Uploads
// and downloads are never time-bounded.
type Config struct {
	ServerURL           string
	DatabasePath        string
	DownloadDir         string
	RequestTimeout      time.Duration
	HistoryTimeout      time.Duration
	PingTimeout         time.Duration
	OnlineCheckInterval time.Duration
	HistoryPageSize     int
	MaxUploadSize       int64
	Locale              string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.DatabasePath = defaultDatabasePath()
	c.DownloadDir = "downloads"
	c.RequestTimeout = 15 * time.Second
	c.HistoryTimeout = 30 * time.Second
	c.PingTimeout = 5 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.HistoryPageSize = 20
	c.MaxUploadSize = 10 << 20
	c.Locale = string(messages.English)
	c.LogLevel = "warn"
}

func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "ocrdesk.db"
	}
	return filepath.Join(dir, "ocrdesk", "client.db")
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url %q must be an absolute http(s) URL", c.ServerURL)
	}
	if c.DatabasePath == "" {
		return errors.New("database path is empty")
	}
	if c.DownloadDir == "" {
		return errors.New("download dir is empty")
	}
	for name, d := range map[string]time.Duration{
		"request_timeout":       c.RequestTimeout,
		"history_timeout":       c.HistoryTimeout,
		"ping_timeout":          c.PingTimeout,
		"online_check_interval": c.OnlineCheckInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.HistoryPageSize <= 0 {
		return fmt.Errorf("history_page_size must be positive, got %d", c.HistoryPageSize)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %d", c.MaxUploadSize)
	}
	if _, err := messages.ParseLocale(c.Locale); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from a config file (if -c/-config is given) and command-line flags.
// Later sources take precedence over earlier ones.
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
