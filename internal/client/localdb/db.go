// Package localdb bootstraps the client's local SQLite database: it opens
// the file, applies embedded goose migrations, and hands out the repository
// set the services work with.
package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/encorehq/encore/internal/client/migrations"
	"github.com/encorehq/encore/internal/client/repositories/concerts"
	"github.com/encorehq/encore/internal/client/repositories/metadata"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the local data access layers.
type Repositories struct {
	Concerts concerts.Repository
	Metadata metadata.Repository
}

// RunMigrations applies the embedded migrations to db.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the mirror database at dsn, migrates it, and returns
// the repositories plus the handle (the caller owns closing it).
func InitDatabase(ctx context.Context, dsn string) (*Repositories, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	repos := &Repositories{
		Concerts: concerts.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
	}
	return repos, db, nil
}
