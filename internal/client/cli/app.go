// Package cli implements the encore command-line client: account flows,
// concert search, the saved-concert mirror, reviews, and the proximity
// watcher.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/encorehq/encore/internal/client/config"
	"github.com/encorehq/encore/internal/client/geo"
	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/localdb"
	"github.com/encorehq/encore/internal/client/proximity"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/encorehq/encore/internal/client/services"
	"github.com/encorehq/encore/internal/client/setlistfm"
	"github.com/encorehq/encore/internal/logging"

	_ "modernc.org/sqlite"
)

// App wires the client stack: local database, session, gateway, services.
// Commands receive it through the cobra context.
type App struct {
	Config  *config.Config
	Log     logging.Logger
	Session *identity.Session

	Auth    *services.AuthService
	Sync    *services.SyncService
	Reviews *services.ReviewService
	Search  *setlistfm.Client

	Geocoder geo.Geocoder
	GeoCache *geo.Cache

	db     *sql.DB
	out    io.Writer
	reader *bufio.Reader
}

// NewApp builds the client from config: opens and migrates the mirror
// database, restores any persisted session, and wires the services.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	repos, db, err := localdb.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}

	session := identity.NewSession()
	gateway := remote.NewGateway(cfg.ServerBaseURL, session, nil)

	app := &App{
		Config:   cfg,
		Log:      log,
		Session:  session,
		Auth:     services.NewAuthService(log, gateway, session, repos.Metadata),
		Sync:     services.NewSyncService(log, gateway, repos.Concerts, session),
		Reviews:  services.NewReviewService(gateway, session),
		Search:   setlistfm.NewClient(cfg.SetlistFMBaseURL, cfg.SetlistFMAPIKey, cfg.Locale, nil),
		Geocoder: geo.WithTimeout(geo.NewNominatimGeocoder(cfg.GeocoderBaseURL, nil), geo.DefaultTimeout),
		GeoCache: geo.NewCache(),
		db:       db,
		out:      os.Stdout,
		reader:   bufio.NewReader(os.Stdin),
	}

	if _, err := app.Auth.Restore(ctx); err != nil {
		log.Warn(ctx, "session restore failed, starting as guest", "error", err)
	}
	return app, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.db.Close()
}

// Notifier picks the delivery channel from config.
func (a *App) Notifier() proximity.Notifier {
	if a.Config.NotifyEndpoint != "" {
		return proximity.NewWebhookNotifier(a.Config.NotifyEndpoint)
	}
	return &proximity.LogNotifier{Log: a.Log}
}
