package config

import (
	"flag"
	"os"
	"time"

	"github.com/encorehq/encore/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the sync backend
//	-s string   base URL of the concert search provider
//	-k string   API key for the search provider
//	-g string   base URL of the geocoding endpoint
//	-d string   path of the local mirror database
//	-l string   preferred locale
//	-i int      proximity refresh interval in minutes
//	-n string   notification webhook endpoint
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, so the CLI's own flags pass through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-k", "-g", "-d", "-l", "-i", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the sync backend")
	fs.StringVar(&cfg.SetlistFMBaseURL, "s", cfg.SetlistFMBaseURL, "base URL of the search provider")
	fs.StringVar(&cfg.SetlistFMAPIKey, "k", cfg.SetlistFMAPIKey, "API key for the search provider")
	fs.StringVar(&cfg.GeocoderBaseURL, "g", cfg.GeocoderBaseURL, "base URL of the geocoding endpoint")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the local mirror database")
	fs.StringVar(&cfg.Locale, "l", cfg.Locale, "preferred locale")
	refreshMinutes := fs.Int("i", int(cfg.ProximityRefreshInterval.Minutes()), "proximity refresh interval (in minutes)")
	fs.StringVar(&cfg.NotifyEndpoint, "n", cfg.NotifyEndpoint, "notification webhook endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.ProximityRefreshInterval = time.Duration(*refreshMinutes) * time.Minute
}
