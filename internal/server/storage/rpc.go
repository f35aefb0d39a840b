package storage

import (
	"context"
	"fmt"

	"github.com/encorehq/encore/internal/common"
)

// RPC procedures: named read queries too join-heavy for the generic select
// verb. Each takes string params from the request body and returns
// JSON-ready rows.

// CallRPC dispatches a named procedure. Unknown names map to
// common.ErrNotFound.
func (s *Store) CallRPC(ctx context.Context, proc string, params map[string]string) ([]map[string]any, error) {
	switch proc {
	case "my_saved_setlists":
		return s.mySavedSetlists(ctx, params["user_id"])
	case "reviews_with_users":
		return s.reviewsWithUsers(ctx, params)
	default:
		return nil, fmt.Errorf("%w: no procedure %q", common.ErrNotFound, proc)
	}
}

// mySavedSetlists joins the user's save edges with the shared setlist
// cache, newest save first.
func (s *Store) mySavedSetlists(ctx context.Context, userID string) ([]map[string]any, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: my_saved_setlists requires user_id", common.ErrUnauthenticated)
	}

	query := `
SELECT s.id, s.artist_name, s.venue_name, s.city, s.country, s.event_date,
       s.songs, s.attribution_url
FROM user_setlists us
JOIN setlists s ON s.id = us.setlist_id
WHERE us.user_id = $1
ORDER BY us.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()
	return scanMaps(rows)
}

// reviewsWithUsers returns reviews joined with reviewer usernames, setlist
// display fields, and vote tallies. Filterable by setlist_id or by the
// reviewing user_id.
func (s *Store) reviewsWithUsers(ctx context.Context, params map[string]string) ([]map[string]any, error) {
	setlistID := params["setlist_id"]
	userID := params["user_id"]
	if setlistID == "" && userID == "" {
		return nil, fmt.Errorf("reviews_with_users requires setlist_id or user_id")
	}

	query := `
SELECT r.id, r.setlist_id, r.rating, r.comment, r.created_at, r.updated_at,
       r.user_id, COALESCE(p.username, '') AS username,
       s.artist_name, s.venue_name, s.event_date,
       COALESCE(SUM(CASE WHEN v.value = 1 THEN 1 ELSE 0 END), 0)::int AS up_votes,
       COALESCE(SUM(CASE WHEN v.value = -1 THEN 1 ELSE 0 END), 0)::int AS down_votes
FROM reviews r
LEFT JOIN profiles p ON p.id = r.user_id
JOIN setlists s ON s.id = r.setlist_id
LEFT JOIN review_votes v ON v.review_id = r.id
WHERE ($1 = '' OR r.setlist_id = $1)
  AND ($2 = '' OR r.user_id = $2::uuid)
GROUP BY r.id, p.username, s.artist_name, s.venue_name, s.event_date
ORDER BY r.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, setlistID, userID)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()
	return scanMaps(rows)
}
