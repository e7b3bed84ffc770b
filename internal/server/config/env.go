package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every env tag of Config.
const EnvPrefix = "EXAMPLE_API_"

// parseEnv overlays EXAMPLE_API_* variables on config. Unset variables keep
// the current value. Malformed values panic, like a malformed JSON file.
func parseEnv(config *Config) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(fmt.Errorf("parse env: %w", err))
	}
}
