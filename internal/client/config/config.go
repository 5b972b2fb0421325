// Package config loads runtime configuration for the device sync agent.
//
// Sources, later ones win: built-in defaults, an optional JSON file (-c or
// -config), then command-line flags.
package config

import "time"

// Config holds runtime settings for the device sync agent.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - DatabasePath: SQLite file holding the local cache and outbox.
//   - FarmID: farm whose change feed is mirrored.
//   - DeviceID / DeviceType / Location: sent with every call for the audit trail.
//   - AccessToken: signed actor token; prompted for when empty.
//   - SyncInterval: push/pull period of the run loop.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr string
	DatabasePath       string
	FarmID             string
	DeviceID           string
	DeviceType         string
	Location           string
	AccessToken        string
	SyncInterval       time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DatabasePath = "pestscan-device.db"
	c.DeviceType = "ANDROID"
	c.SyncInterval = 30 * time.Second
	c.LogLevel = "info"
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
