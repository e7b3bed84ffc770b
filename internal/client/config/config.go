package config

import (
	"path/filepath"
	"time"

	"github.com/kodasoftware/example-api/internal/filex"
)

type Config struct {
	ServerURL   string        `env:"SERVER_URL"`
	GRPCAddr    string        `env:"GRPC_ADDR"`
	SessionPath string        `env:"SESSION_PATH"`
	Timeout     time.Duration `env:"TIMEOUT"`
}

// LoadDefaults populates c with sensible defaults. The session database lives
// in the user's config directory when it can be created.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.SessionPath = "session.db"
	c.Timeout = 10 * time.Second

	if dir, err := filex.EnsureConfigDir("example-api"); err == nil {
		c.SessionPath = filepath.Join(dir, "session.db")
	}
}

// LoadConfig applies defaults, JSON, environment and flags in that order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
