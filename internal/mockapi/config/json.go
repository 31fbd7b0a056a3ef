package config

import (
	"encoding/json"
	"os"

	"github.com/d-madiou/to-meet-yours/internal/flagx"
	"github.com/d-madiou/to-meet-yours/internal/timex"
)

// JsonConfig is the on-disk shape of Config. TokenTTL accepts "24h" or
// integer nanoseconds.
type JsonConfig struct {
	Addr               *string         `json:"addr"`
	SecretKey          *string         `json:"secret_key"`
	TokenTTL           *timex.Duration `json:"token_ttl"`
	FreeMessagesPerDay *int            `json:"free_messages_per_day"`
	MessageCost        *int            `json:"message_cost"`
	InitialBalance     *int            `json:"initial_balance"`
}

// parseJson overlays the file given by -c/-config onto config. Absent keys
// keep their current value. Unreadable files and invalid JSON panic.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.Addr != nil {
		config.Addr = *c.Addr
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.TokenTTL != nil {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.FreeMessagesPerDay != nil {
		config.FreeMessagesPerDay = *c.FreeMessagesPerDay
	}
	if c.MessageCost != nil {
		config.MessageCost = *c.MessageCost
	}
	if c.InitialBalance != nil {
		config.InitialBalance = *c.InitialBalance
	}
}
