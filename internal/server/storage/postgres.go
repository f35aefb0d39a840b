package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/server/migrations"
	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Query shapes a select call, mirroring the client gateway's wire format.
type Query struct {
	Filters map[string]any `json:"filters,omitempty"`
	Order   string         `json:"order,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

// Store executes the generic verbs against PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens the database at dsn and applies the embedded migrations.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(context.Background(), db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing handle without migrating. Used in tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Conn exposes the underlying handle for the RPC queries and shutdown.
func (s *Store) Conn() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts or updates one row, resolving conflicts on conflictKeys.
func (s *Store) Upsert(ctx context.Context, c Collection, row map[string]any, conflictKeys []string) error {
	for _, key := range conflictKeys {
		if _, ok := c.column(key); !ok {
			return fmt.Errorf("unknown conflict key %q in %s", key, c.Name)
		}
	}
	query, args, err := buildUpsert(c, row, conflictKeys)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		// unique violations outside the conflict keys, e.g. a taken username
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", common.ErrConflict, pgErr.ConstraintName)
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Select reads matching rows as JSON-ready maps.
func (s *Store) Select(ctx context.Context, c Collection, q Query) ([]map[string]any, error) {
	query, args, err := buildSelect(c, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	return scanMaps(rows)
}

// Delete removes matching rows and reports how many went away.
func (s *Store) Delete(ctx context.Context, c Collection, filters map[string]any) (int64, error) {
	query, args, err := buildDelete(c, filters)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// scanMaps converts a result set into JSON-ready maps: JSONB columns come
// back as decoded values, timestamps as RFC 3339 strings, dates as
// "yyyy-MM-dd".
func scanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, name := range cols {
			row[name] = jsonValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func jsonValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case []byte:
		// JSONB and similar columns arrive as raw bytes
		var decoded any
		if err := json.Unmarshal(value, &decoded); err == nil {
			return decoded
		}
		return string(value)
	case time.Time:
		if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
			return value.Format("2006-01-02")
		}
		return value.Format(time.RFC3339)
	default:
		return value
	}
}
