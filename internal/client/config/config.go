package config

import "time"

// Config holds runtime settings for the Pawkit client.
//
// Fields:
//   - ServerBaseURL: base URL of the backend REST API.
//   - DatabasePath: path of the local SQLite store.
//   - StateDir: directory shared by all local clients; holds the device id
//     and the active-device marker file.
//   - SyncInterval: how often the periodic trigger drains the queue and runs
//     delta sync while online.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - HeartbeatInterval: how often the active device reports itself.
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	StateDir            string
	SyncInterval        time.Duration
	OnlineCheckInterval time.Duration
	HeartbeatInterval   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.DatabasePath = "pawkit.db"
	c.StateDir = ".pawkit"
	c.SyncInterval = 60 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.HeartbeatInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
