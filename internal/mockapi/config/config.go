// Package config handles configuration for the development backend,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the mock API server.
//
// Fields:
//   - Addr: bind address of the HTTP listener.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - TokenTTL: token lifetime; zero means tokens never expire.
//   - FreeMessagesPerDay: free messages a sender gets per receiver per day.
//   - MessageCost: coins charged for each message past the free quota.
//   - InitialBalance: coins credited to a new account.
type Config struct {
	Addr               string
	SecretKey          string
	TokenTTL           time.Duration
	FreeMessagesPerDay int
	MessageCost        int
	InitialBalance     int
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is for local use only.
func (c *Config) LoadDefaults() {
	c.Addr = ":8000"
	c.SecretKey = "dev-secret-key"
	c.TokenTTL = 24 * time.Hour
	c.FreeMessagesPerDay = 3
	c.MessageCost = 2
	c.InitialBalance = 10
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
