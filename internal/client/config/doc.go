// Package config loads runtime configuration for the blogkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed BLOGKEEPER_, after loading a dotenv
//     file (-e/-env, or ./.env when present).
//  3. Optional JSON file selected with -c or -config.
//  4. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations are timex.Duration values, either strings like "10s" or integer
// nanoseconds:
//
//	{
//	  "api_base_url": "http://127.0.0.1:8000/api",
//	  "media_base_url": "http://127.0.0.1:8000",
//	  "request_timeout": "10s",
//	  "db_path": "blogkeeper.db",
//	  "log_level": "warn",
//	  "log_format": "text",
//	  "session_check_interval": "1m"
//	}
package config
