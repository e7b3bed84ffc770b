package config

import (
	"encoding/json"
	"os"

	"github.com/kodasoftware/example-api/internal/flagx"
	"github.com/kodasoftware/example-api/internal/timex"
)

// JsonConfig is the on-disk shape of the client configuration file.
type JsonConfig struct {
	ServerURL   *string         `json:"server_url"`
	GRPCAddr    *string         `json:"grpc_addr"`
	SessionPath *string         `json:"session_path"`
	Timeout     *timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Keys missing from
// the file keep their value; an unreadable or invalid file panics.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.GRPCAddr != nil {
		cfg.GRPCAddr = *jc.GRPCAddr
	}
	if jc.SessionPath != nil {
		cfg.SessionPath = *jc.SessionPath
	}
	if jc.Timeout != nil {
		cfg.Timeout = jc.Timeout.Duration
	}
}
