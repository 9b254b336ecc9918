package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() Config {
	var c Config
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()

	assert.Equal(t, "http://127.0.0.1:8000", c.ServerURL)
	assert.Equal(t, 15*time.Second, c.RequestTimeout)
	assert.Equal(t, 30*time.Second, c.HistoryTimeout)
	assert.Equal(t, 5*time.Second, c.PingTimeout)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 20, c.HistoryPageSize)
	assert.Equal(t, int64(10<<20), c.MaxUploadSize)
	assert.Equal(t, "en", c.Locale)
	assert.NotEmpty(t, c.DatabasePath)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_NoArgsGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	if diff := cmp.Diff(defaults(), *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_JSONFile(t *testing.T) {
	path := writeFile(t, "cfg.json", `{
		"server_url": "https://ocr.example.com",
		"history_timeout": "45s",
		"ping_timeout": 2000000000,
		"history_page_size": 50,
		"locale": "vi"
	}`)

	cfg, err := LoadConfig([]string{"-config", path})
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "https://ocr.example.com"
	want.HistoryTimeout = 45 * time.Second
	want.PingTimeout = 2 * time.Second
	want.HistoryPageSize = 50
	want.Locale = "vi"

	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_TOMLFile(t *testing.T) {
	path := writeFile(t, "cfg.toml", `
server_url = "http://ocr.internal:9000"
download_dir = "/tmp/out"
online_check_interval = "1500ms"
max_upload_size = 5242880
log_level = "debug"
`)

	cfg, err := LoadConfig([]string{"-c", path})
	require.NoError(t, err)

	want := defaults()
	want.ServerURL = "http://ocr.internal:9000"
	want.DownloadDir = "/tmp/out"
	want.OnlineCheckInterval = 1500 * time.Millisecond
	want.MaxUploadSize = 5 << 20
	want.LogLevel = "debug"

	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := writeFile(t, "cfg.json", `{"server_url": "http://from-file:1", "locale": "vi"}`)

	cfg, err := LoadConfig([]string{
		"-c", path,
		"-a", "http://from-flag:2",
		"-d", "/tmp/s.db",
		"-o", "out",
		"-i", "7",
		"-v", "info",
		"-unrelated", "x",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:2", cfg.ServerURL)
	assert.Equal(t, "/tmp/s.db", cfg.DatabasePath)
	assert.Equal(t, "out", cfg.DownloadDir)
	assert.Equal(t, 7*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, "vi", cfg.Locale)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	badJSON := writeFile(t, "bad.json", `{ this is not valid json`)
	badTOML := writeFile(t, "bad.toml", `server_url = `)
	badLocale := writeFile(t, "loc.json", `{"locale": "fr"}`)
	badTimeout := writeFile(t, "to.json", `{"request_timeout": "0s"}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"-c", filepath.Join(t.TempDir(), "nope.json")}, "read config"},
		{"bad json", []string{"-c", badJSON}, "parse config"},
		{"bad toml", []string{"-c", badTOML}, "parse config"},
		{"bad locale", []string{"-c", badLocale}, "unsupported locale"},
		{"bad timeout", []string{"-c", badTimeout}, "request_timeout must be positive"},
		{"bad url", []string{"-a", "localhost:8000"}, "absolute http(s) URL"},
		{"bad interval", []string{"-i", "abc"}, "parse flags"},
		{"bad level", []string{"-v", "loud"}, "level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
