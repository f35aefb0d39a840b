package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerBaseURL)
	assert.Equal(t, "https://api.setlist.fm/rest/1.0", cfg.SetlistFMBaseURL)
	assert.Equal(t, "encore.db", cfg.DatabasePath)
	assert.Equal(t, "en", cfg.Locale)
	assert.Equal(t, 20*time.Minute, cfg.ProximityRefreshInterval)
	assert.Empty(t, cfg.SetlistFMAPIKey)
	assert.Empty(t, cfg.NotifyEndpoint)
}

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"encore"}, args...)
	t.Cleanup(func() { os.Args = old })
}

func TestParseFlags(t *testing.T) {
	withArgs(t, "-a", "https://sync.example.org", "-k", "secret", "-i", "45")

	var cfg Config
	cfg.LoadDefaults()
	parseFlags(&cfg)

	assert.Equal(t, "https://sync.example.org", cfg.ServerBaseURL)
	assert.Equal(t, "secret", cfg.SetlistFMAPIKey)
	assert.Equal(t, 45*time.Minute, cfg.ProximityRefreshInterval)
	// untouched fields keep their defaults
	assert.Equal(t, "encore.db", cfg.DatabasePath)
}

func TestParseFlags_IgnoresUnknownFlags(t *testing.T) {
	withArgs(t, "-a", "https://sync.example.org", "--verbose", "-x", "y")

	var cfg Config
	cfg.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(&cfg) })
	assert.Equal(t, "https://sync.example.org", cfg.ServerBaseURL)
}
