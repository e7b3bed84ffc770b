package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const EnvPrefix = "EXAMPLE_API_CLIENT_"

func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}
}
