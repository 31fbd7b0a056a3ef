// Package config loads runtime configuration for the to-meet-yours CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the REST API (e.g. http://localhost:8000/api)
//	-t int      request timeout (seconds)
//	-i int      conversation poll interval (seconds)
//	-d string   path of the SQLite session database
//	-m string   address for the /metrics endpoint (empty disables it)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "2s" or integer
// nanoseconds. Absent keys keep their current value:
//
//	{
//	  "server_base_url": "http://localhost:8000/api",
//	  "request_timeout": "5s",
//	  "poll_interval": "2s",
//	  "database_path": "session.db",
//	  "session_ttl": "0s",
//	  "cost_check_fail_open": true,
//	  "metrics_addr": "",
//	  "log_level": "info",
//	  "log_backend": "zerolog",
//	  "device_platform": "cli"
//	}
package config
