package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/blogkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name, e.g. BLOGKEEPER_API_URL.
const EnvPrefix = "BLOGKEEPER_"

const defaultEnvFile = ".env"

// parseEnv overlays Config with BLOGKEEPER_* environment variables. A dotenv
// file given with -e/-env is loaded first and must exist; otherwise ./.env
// is loaded when present. Variables already set in the process environment
// are not overridden by the file. Unset variables leave fields unchanged.
//
// Panics on an unreadable dotenv file or a malformed value.
func parseEnv(cfg *Config) {
	if err := loadEnvFile(flagx.EnvFileFlags()); err != nil {
		panic(err)
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}

func loadEnvFile(path string) error {
	if path != "" {
		return godotenv.Load(path)
	}
	err := godotenv.Load(defaultEnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
