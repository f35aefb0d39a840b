package config

import (
	"os"
	"time"

	"github.com/encorehq/encore/internal/flagx"
	"github.com/encorehq/encore/internal/timex"
	"github.com/goccy/go-json"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "20m"
// or as integer nanoseconds. Absent fields leave the running Config alone.
type JsonConfig struct {
	ServerBaseURL            string         `json:"server_base_url"`
	SetlistFMBaseURL         string         `json:"setlistfm_base_url"`
	SetlistFMAPIKey          string         `json:"setlistfm_api_key"`
	GeocoderBaseURL          string         `json:"geocoder_base_url"`
	DatabasePath             string         `json:"database_path"`
	Locale                   string         `json:"locale"`
	ProximityRefreshInterval timex.Duration `json:"proximity_refresh_interval"`
	NotifyEndpoint           string         `json:"notify_endpoint"`
}

// parseJson overlays cfg with values from the JSON file named by -c/-config.
// No flag, no file, no overlay. Read or unmarshal errors panic; config is
// resolved before anything else starts, so there is nothing to unwind.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.ServerBaseURL, jc.ServerBaseURL)
	overlay(&cfg.SetlistFMBaseURL, jc.SetlistFMBaseURL)
	overlay(&cfg.SetlistFMAPIKey, jc.SetlistFMAPIKey)
	overlay(&cfg.GeocoderBaseURL, jc.GeocoderBaseURL)
	overlay(&cfg.DatabasePath, jc.DatabasePath)
	overlay(&cfg.Locale, jc.Locale)
	overlay(&cfg.NotifyEndpoint, jc.NotifyEndpoint)
	if jc.ProximityRefreshInterval.Duration != 0 {
		cfg.ProximityRefreshInterval = time.Duration(jc.ProximityRefreshInterval.Duration)
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
