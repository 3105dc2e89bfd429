package config

import "time"

// Config holds runtime settings for the blogkeeper CLI.
//
// Units: RequestTimeout and SessionCheckInterval are time.Duration values;
// a zero SessionCheckInterval turns the background session check off.
type Config struct {
	APIBaseURL           string        `env:"API_URL"`
	MediaBaseURL         string        `env:"MEDIA_URL"`
	RequestTimeout       time.Duration `env:"REQUEST_TIMEOUT"`
	DBPath               string        `env:"DB_PATH"`
	LogLevel             string        `env:"LOG_LEVEL"`
	LogFormat            string        `env:"LOG_FORMAT"`
	SessionCheckInterval time.Duration `env:"SESSION_CHECK_INTERVAL"`
}

// LoadDefaults populates c with defaults for a local development API.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8000/api"
	c.MediaBaseURL = "http://127.0.0.1:8000"
	c.RequestTimeout = 10 * time.Second
	c.DBPath = "blogkeeper.db"
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.SessionCheckInterval = time.Minute
}

// LoadConfig applies defaults, then the environment (with an optional .env
// file), then a JSON file, then command-line flags. Later sources win.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
