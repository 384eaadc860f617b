package flagx

import (
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
			args:    []string{"-c", "conf.json", "-a", "http://api"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-r", "redis://"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags dropped, result not nil",
			args:    []string{"-x", "1", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag at end without value",
			args:    []string{"-i"},
			allowed: []string{"-i"},
			want:    []string{"-i"},
		},
		{
			name:    "next token looks like a flag",
			args:    []string{"-c", "-notvalue"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-a", "http://api", "-p", "work", "-c", "conf.json", "--other", "x"},
			allowed: []string{"-a", "-p", "-c"},
			want:    []string{"-a", "http://api", "-p", "work", "-c", "conf.json"},
		},
		{
			name:    "repeated flag preserved",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/etc/caterauth.json", ConfigPath([]string{"-c", "/etc/caterauth.json"}))
	assert.Equal(t, "/tmp/b.json", ConfigPath([]string{"-c", "/tmp/a.json", "-config", "/tmp/b.json"}))
	assert.Equal(t, "x.json", ConfigPath([]string{"-a", "http://api", "-config=x.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1"}))
}
