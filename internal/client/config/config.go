package config

import (
	"os"
	"time"
)

const (
	LogBackendZerolog = "zerolog"
	LogBackendSlog    = "slog"
)

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerBaseURL: REST API root; request paths are joined onto it.
//   - RequestTimeout: per-request HTTP timeout.
//   - PollInterval: how often an open conversation is polled.
//   - DatabasePath: SQLite file holding the persisted session.
//   - SessionTTL: local token lifetime; zero keeps the token until cleared.
//   - CostCheckFailOpen: treat a failed cost check as a free message.
//   - MetricsAddr: listen address for /metrics; empty disables the endpoint.
//   - LogLevel: debug, info, warn or error.
//   - LogBackend: "zerolog" (console) or "slog" (text).
//   - DevicePlatform: platform reported with the device token.
type Config struct {
	ServerBaseURL     string
	RequestTimeout    time.Duration
	PollInterval      time.Duration
	DatabasePath      string
	SessionTTL        time.Duration
	CostCheckFailOpen bool
	MetricsAddr       string
	LogLevel          string
	LogBackend        string
	DevicePlatform    string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:8000/api"
	c.RequestTimeout = 5 * time.Second
	c.PollInterval = 2 * time.Second
	c.DatabasePath = "session.db"
	c.SessionTTL = 0
	c.CostCheckFailOpen = true
	c.MetricsAddr = ""
	c.LogLevel = "info"
	c.LogBackend = LogBackendZerolog
	c.DevicePlatform = "cli"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
