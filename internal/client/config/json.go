package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/d-madiou/to-meet-yours/internal/flagx"
	"github.com/d-madiou/to-meet-yours/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// tell an absent key from a zero value.
type JsonConfig struct {
	ServerBaseURL     *string         `json:"server_base_url"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	PollInterval      *timex.Duration `json:"poll_interval"`
	DatabasePath      *string         `json:"database_path"`
	SessionTTL        *timex.Duration `json:"session_ttl"`
	CostCheckFailOpen *bool           `json:"cost_check_fail_open"`
	MetricsAddr       *string         `json:"metrics_addr"`
	LogLevel          *string         `json:"log_level"`
	LogBackend        *string         `json:"log_backend"`
	DevicePlatform    *string         `json:"device_platform"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
// Read or unmarshal errors panic; intended order is defaults -> parseJson ->
// parseFlags.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFilePath(args)
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

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.PollInterval, jc.PollInterval)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setDuration(&cfg.SessionTTL, jc.SessionTTL)
	if jc.CostCheckFailOpen != nil {
		cfg.CostCheckFailOpen = *jc.CostCheckFailOpen
	}
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogBackend, jc.LogBackend)
	setString(&cfg.DevicePlatform, jc.DevicePlatform)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
