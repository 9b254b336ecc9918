// Package config loads runtime configuration for the ocrdesk CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseFile) selected via flags: -c or -config.
//     Files ending in .toml are TOML; any other extension is read as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the OCR service
//	-d string   local session database path
//	-o string   download directory
//	-i int      online status check interval (seconds)
//	-l string   interface language (en, vi)
//	-v string   log level (debug, info, warn, error)
//
// # File schema
//
// Durations use timex.Duration, so values can be strings like "3s" (or
// integer nanoseconds in JSON):
//
//	{
//	  "server_url": "http://127.0.0.1:8000",
//	  "database_path": "/home/me/.config/ocrdesk/client.db",
//	  "download_dir": "downloads",
//	  "request_timeout": "15s",
//	  "history_timeout": "30s",
//	  "ping_timeout": "5s",
//	  "online_check_interval": "3s",
//	  "history_page_size": 20,
//	  "max_upload_size": 10485760,
//	  "locale": "vi",
//	  "log_level": "warn"
//	}
//
// Keys missing from the file keep their default. The loaded Config is
// validated before LoadConfig returns it.
package config
