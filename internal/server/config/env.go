package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/chantube/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file (-env-file, or ./.env when present) into the
// process environment and then overlays every set variable onto config.
// Variables already present in the environment win over the file.
func parseEnv(config *Config, args []string) error {
	path := flagx.EnvFileFlag(args)
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
