package concerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/common"
	"github.com/encorehq/encore/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const allColumns = `setlist_id, owner_id, artist_name, venue_name, city, country,
	event_date, songs, attribution_url, local_rating, local_comment,
	pending_push, last_sync_at`

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.SavedConcert) error {
	query := `INSERT INTO saved_concerts (` + allColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(setlist_id, owner_id) DO UPDATE SET
			artist_name = excluded.artist_name,
			venue_name = excluded.venue_name,
			city = excluded.city,
			country = excluded.country,
			event_date = excluded.event_date,
			songs = excluded.songs,
			attribution_url = excluded.attribution_url,
			local_rating = excluded.local_rating,
			local_comment = excluded.local_comment,
			pending_push = excluded.pending_push,
			last_sync_at = excluded.last_sync_at
	`
	var rating sql.NullInt64
	if c.LocalRating != nil {
		rating = sql.NullInt64{Int64: int64(*c.LocalRating), Valid: true}
	}
	var syncedAt sql.NullInt64
	if c.LastSyncAt != nil {
		syncedAt = sql.NullInt64{Int64: c.LastSyncAt.Unix(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		c.SetlistID, c.Owner.ID(), c.ArtistName, c.VenueName, c.City, c.Country,
		models.FormatYMD(c.EventDate), models.JoinSongs(c.Songs), c.AttributionURL,
		rating, c.LocalComment, boolToInt(c.PendingPush), syncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert saved concert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByKey(ctx context.Context, setlistID string, owner identity.Owner) (*models.SavedConcert, error) {
	query := `SELECT ` + allColumns + ` FROM saved_concerts WHERE setlist_id = ? AND owner_id = ?`

	row := r.db.QueryRowContext(ctx, query, setlistID, owner.ID())
	c, err := scanConcert(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select saved concert: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, owner identity.Owner) ([]models.SavedConcert, error) {
	query := `SELECT ` + allColumns + ` FROM saved_concerts
		WHERE owner_id = ? ORDER BY event_date DESC, setlist_id`
	return r.list(ctx, query, owner.ID())
}

func (r *SQLiteRepository) ListPending(ctx context.Context, owner identity.Owner) ([]models.SavedConcert, error) {
	query := `SELECT ` + allColumns + ` FROM saved_concerts
		WHERE pending_push = 1 AND owner_id = ? ORDER BY setlist_id`
	return r.list(ctx, query, owner.ID())
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.SavedConcert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select saved concerts: %w", err)
	}
	defer rows.Close()

	var result []models.SavedConcert
	for rows.Next() {
		c, err := scanConcert(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByKey(ctx context.Context, setlistID string, owner identity.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_concerts WHERE setlist_id = ? AND owner_id = ?`,
		setlistID, owner.ID())
	if err != nil {
		return fmt.Errorf("failed to delete saved concert: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForOwner(ctx context.Context, owner identity.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_concerts WHERE owner_id = ?`, owner.ID())
	if err != nil {
		return fmt.Errorf("failed to delete saved concerts for owner: %w", err)
	}
	return nil
}

func scanConcert(scan func(dest ...any) error) (*models.SavedConcert, error) {
	var (
		c        models.SavedConcert
		ownerID  string
		date     string
		songs    string
		rating   sql.NullInt64
		pending  int
		syncedAt sql.NullInt64
	)
	err := scan(&c.SetlistID, &ownerID, &c.ArtistName, &c.VenueName, &c.City,
		&c.Country, &date, &songs, &c.AttributionURL, &rating, &c.LocalComment,
		&pending, &syncedAt)
	if err != nil {
		return nil, err
	}

	c.Owner = identity.FromString(ownerID)
	c.EventDate = models.ParseYMD(date)
	c.Songs = models.SplitSongs(songs)
	if rating.Valid {
		v := int(rating.Int64)
		c.LocalRating = &v
	}
	c.PendingPush = pending != 0
	if syncedAt.Valid {
		t := time.Unix(syncedAt.Int64, 0).UTC()
		c.LastSyncAt = &t
	}
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
