package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/encorehq/encore/internal/client/config"
	"github.com/spf13/cobra"
)

type appKey struct{}

// appFrom pulls the wired App out of the command context.
func appFrom(cmd *cobra.Command) *App {
	return cmd.Context().Value(appKey{}).(*App)
}

// NewRootCmd assembles the CLI. The App is built once in the persistent
// pre-run so every subcommand shares the session and database handle.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "encore",
		Short:         "Save and sync concert setlists",
		Long:          "encore keeps an offline-first mirror of your saved concerts and syncs it with your account.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// the config layer reads these from os.Args itself; registering them
	// here keeps cobra's parser and help output in agreement
	pf := root.PersistentFlags()
	pf.StringP("server", "a", "", "base URL of the sync backend")
	pf.StringP("provider", "s", "", "base URL of the search provider")
	pf.StringP("key", "k", "", "API key for the search provider")
	pf.StringP("geocoder", "g", "", "base URL of the geocoding endpoint")
	pf.StringP("db", "d", "", "path of the local mirror database")
	pf.StringP("locale", "l", "", "preferred locale")
	pf.IntP("interval", "i", 0, "proximity refresh interval in minutes")
	pf.StringP("notify", "n", "", "notification webhook endpoint")
	pf.StringP("config", "c", "", "path to a JSON config file")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		applyFlagOverrides(cmd, cfg)

		app, err := NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
		return nil
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app, ok := cmd.Context().Value(appKey{}).(*App); ok {
			return app.Close()
		}
		return nil
	}

	root.AddCommand(
		newRegisterCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newSearchCmd(),
		newShowCmd(),
		newSaveCmd(),
		newUnsaveCmd(),
		newListCmd(),
		newSyncCmd(),
		newReviewCmd(),
		newWatchCmd(),
		newDeleteAccountCmd(),
		newVersionCmd(),
	)
	return root
}

// applyFlagOverrides copies long-form cobra flag values into cfg. Short
// forms were already consumed by the config layer; Changed catches both, so
// the copy is idempotent.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	override := func(name string, dst *string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	override("server", &cfg.ServerBaseURL)
	override("provider", &cfg.SetlistFMBaseURL)
	override("key", &cfg.SetlistFMAPIKey)
	override("geocoder", &cfg.GeocoderBaseURL)
	override("db", &cfg.DatabasePath)
	override("locale", &cfg.Locale)
	override("notify", &cfg.NotifyEndpoint)

	if f := cmd.Flags().Lookup("interval"); f != nil && f.Changed {
		if minutes, err := cmd.Flags().GetInt("interval"); err == nil && minutes > 0 {
			cfg.ProximityRefreshInterval = time.Duration(minutes) * time.Minute
		}
	}
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("encore: %w", err)
	}
	return nil
}
