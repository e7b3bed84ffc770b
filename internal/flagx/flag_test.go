package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "postgres://x", "-x", "1"},
			allowed: []string{"-d"},
			want:    []string{"-d", "postgres://x"},
		},
		{
			name:    "equals form",
			args:    []string{"-t=15", "-x=2"},
			allowed: []string{"-t"},
			want:    []string{"-t=15"},
		},
		{
			name:    "positional arguments dropped",
			args:    []string{"serve", "-a", ":8080", "extra"},
			allowed: []string{"-a"},
			want:    []string{"-a", ":8080"},
		},
		{
			name:    "flag followed by flag keeps no value",
			args:    []string{"-c", "-a", ":1"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"bin", "-a", ":1", "-config", "server.json"}
	assert.Equal(t, "server.json", ConfigPath())

	os.Args = []string{"bin", "-c=short.json"}
	assert.Equal(t, "short.json", ConfigPath())

	os.Args = []string{"bin"}
	assert.Equal(t, "", ConfigPath())
}
