package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
	"github.com/dmitrijs2005/blogkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration, so "10s" and integer nanoseconds both work. Pointer
// durations distinguish "absent" from zero.
type JsonConfig struct {
	APIBaseURL           string          `json:"api_base_url"`
	MediaBaseURL         string          `json:"media_base_url"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	DBPath               string          `json:"db_path"`
	LogLevel             string          `json:"log_level"`
	LogFormat            string          `json:"log_format"`
	SessionCheckInterval *timex.Duration `json:"session_check_interval"`
}

// parseJson overlays Config with the file named by -c or -config. Keys that
// are missing or empty in the file leave the current value alone.
//
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.MediaBaseURL, jc.MediaBaseURL)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.SessionCheckInterval != nil {
		cfg.SessionCheckInterval = time.Duration(jc.SessionCheckInterval.Duration)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
