package config

import "time"

// Config holds runtime settings for the encore CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// (-c/-config), then command-line flags.
type Config struct {
	// ServerBaseURL is the base URL of the sync backend.
	ServerBaseURL string

	// SetlistFMBaseURL and SetlistFMAPIKey configure the concert search
	// provider.
	SetlistFMBaseURL string
	SetlistFMAPIKey  string

	// GeocoderBaseURL is a Nominatim-compatible geocoding endpoint.
	GeocoderBaseURL string

	// DatabasePath is the local mirror SQLite file.
	DatabasePath string

	// Locale is the preferred provider locale; it is clamped to the
	// supported set downstream.
	Locale string

	// ProximityRefreshInterval is the minimum spacing between region
	// refresh cycles of the proximity loop.
	ProximityRefreshInterval time.Duration

	// NotifyEndpoint, when set, receives proximity notifications as JSON
	// POSTs. Empty means notifications only go to the log.
	NotifyEndpoint string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080"
	c.SetlistFMBaseURL = "https://api.setlist.fm/rest/1.0"
	c.GeocoderBaseURL = "https://nominatim.openstreetmap.org"
	c.DatabasePath = "encore.db"
	c.Locale = "en"
	c.ProximityRefreshInterval = 20 * time.Minute
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
