package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/catermarket/caterauth/internal/timex"
)

// JsonConfig is the JSON shape of Config. Absent fields keep their
// current value.
type JsonConfig struct {
	ListenAddr      string          `json:"listen_addr"`
	UpstreamURL     string          `json:"upstream_url"`
	LogLevel        string          `json:"log_level"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
}

func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.UpstreamURL != "" {
		cfg.UpstreamURL = jc.UpstreamURL
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = jc.ShutdownTimeout.Duration
	}
	return nil
}
