package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:8081", "-g", "127.0.0.1:9091", "-d", "db",
				"-k", "priv.pem", "-p", "pub.pem", "-t", "5", "-r", "60",
				"-s", "k1,k2", "-l", "debug",
			},
			expected: &Config{
				EndpointAddrHTTP:             "127.0.0.1:8081",
				EndpointAddrGRPC:             "127.0.0.1:9091",
				DatabaseDSN:                  "db",
				PrivateKeyPath:               "priv.pem",
				PublicKeyPath:                "pub.pem",
				AccessTokenValidityDuration:  5 * time.Minute,
				RefreshTokenValidityDuration: 60 * time.Minute,
				CookieKeys:                   []string{"k1", "k2"},
				LogLevel:                     "debug",
			},
		},
		{
			name:        "non-numeric ttl",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := os.Args
			t.Cleanup(func() { os.Args = orig })
			os.Args = tt.args

			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
