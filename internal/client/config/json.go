package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/katlaang/pestscan-sub001/internal/flagx"
	"github.com/katlaang/pestscan-sub001/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DatabasePath       string         `json:"database_path"`
	FarmID             string         `json:"farm_id"`
	DeviceID           string         `json:"device_id"`
	DeviceType         string         `json:"device_type"`
	Location           string         `json:"location"`
	AccessToken        string         `json:"access_token"`
	SyncInterval       timex.Duration `json:"sync_interval"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Fields absent from the file keep their current values.
// Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.FarmID, jc.FarmID)
	setString(&cfg.DeviceID, jc.DeviceID)
	setString(&cfg.DeviceType, jc.DeviceType)
	setString(&cfg.Location, jc.Location)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.SyncInterval.Duration != 0 {
		cfg.SyncInterval = time.Duration(jc.SyncInterval.Duration)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
