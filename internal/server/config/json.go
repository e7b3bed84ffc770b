package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/kodasoftware/example-api/internal/flagx"
	"github.com/kodasoftware/example-api/internal/timex"
	"gopkg.in/yaml.v3"
)

// JsonConfig is the on-disk shape of the configuration file, JSON or YAML
// depending on the extension. Durations accept "15m" style strings or integer
// nanoseconds. Keys missing from the file leave the corresponding Config
// field untouched.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn" yaml:"database_dsn"`
	PrivateKeyPath               *string         `json:"private_key_path" yaml:"private_key_path"`
	PublicKeyPath                *string         `json:"public_key_path" yaml:"public_key_path"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	CookieKeys                   []string        `json:"cookie_keys" yaml:"cookie_keys"`
	SecureCookies                *bool           `json:"secure_cookies" yaml:"secure_cookies"`
	BcryptCost                   *int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`
	LogLevel                     *string         `json:"log_level" yaml:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Files ending in
// .yaml or .yml are decoded as YAML. Without the flag
// nothing happens; an unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, c)
	default:
		err = json.Unmarshal(file, c)
	}
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.PrivateKeyPath, c.PrivateKeyPath)
	setString(&config.PublicKeyPath, c.PublicKeyPath)
	setString(&config.LogLevel, c.LogLevel)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if len(c.CookieKeys) > 0 {
		config.CookieKeys = c.CookieKeys
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
}

func setString(dst *string, v *string) {
	if v != nil && strings.TrimSpace(*v) != "" {
		*dst = *v
	}
}
