package remote

import (
	"context"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
)

// Store is the typed surface the services consume. Splitting it from
// Gateway keeps the sync engine testable against a fake remote.
type Store interface {
	// Setlist cache (shared rows, upsert by id).
	UpsertSetlist(ctx context.Context, row models.SetlistRow) error

	// Save edges.
	SaveToUser(ctx context.Context, owner identity.Owner, setlistID, attendedOn string) error
	UnsaveFromUser(ctx context.Context, owner identity.Owner, setlistID string) error
	LoadSavedSetlists(ctx context.Context, owner identity.Owner) ([]models.SetlistRow, error)

	// Reviews and votes.
	SubmitReview(ctx context.Context, w models.ReviewWrite) error
	LoadReviews(ctx context.Context, setlistID string) ([]models.ReviewRead, error)
	LoadMyReviews(ctx context.Context, owner identity.Owner) ([]models.ReviewRead, error)
	DeleteMyReview(ctx context.Context, owner identity.Owner, reviewID int64) error
	UpsertVote(ctx context.Context, w models.VoteWrite) error
	ClearVote(ctx context.Context, owner identity.Owner, reviewID int64) error
	LoadMyVotes(ctx context.Context, owner identity.Owner, reviewIDs []int64) (map[int64]int, error)

	// Profiles.
	FetchProfile(ctx context.Context, owner identity.Owner) (*models.ProfileRow, error)
	UpsertProfile(ctx context.Context, row models.ProfileRow) error
	EmailForUsername(ctx context.Context, username string) (string, error)
	IsUsernameAvailable(ctx context.Context, username string) (bool, error)

	// Owner-scoped bulk deletes, one collection at a time. The cascade
	// ordering is owned by the sync engine.
	DeleteAllForOwner(ctx context.Context, collection string, owner identity.Owner) error
}

// Collection names on the remote store.
const (
	CollectionSetlists     = "setlists"
	CollectionUserSetlists = "user_setlists"
	CollectionReviews      = "reviews"
	CollectionReviewVotes  = "review_votes"
	CollectionProfiles     = "profiles"
)

func (g *Gateway) UpsertSetlist(ctx context.Context, row models.SetlistRow) error {
	return g.Upsert(ctx, CollectionSetlists, row, "id")
}

func (g *Gateway) SaveToUser(ctx context.Context, owner identity.Owner, setlistID, attendedOn string) error {
	w := models.UserSetlistWrite{UserID: owner.ID(), SetlistID: setlistID, AttendedOn: attendedOn}
	return g.Upsert(ctx, CollectionUserSetlists, w, "user_id", "setlist_id")
}

// UnsaveFromUser deletes the edge filtered by both user and setlist.
// Filtering on setlist_id alone would rely entirely on row-level
// authorization to protect other users' edges; the explicit owner filter
// keeps a misconfigured server from ever matching them.
func (g *Gateway) UnsaveFromUser(ctx context.Context, owner identity.Owner, setlistID string) error {
	return g.Delete(ctx, CollectionUserSetlists, Filters{
		"user_id":    owner.ID(),
		"setlist_id": setlistID,
	})
}

// LoadSavedSetlists returns the owner's saved concerts joined with the
// shared setlist cache, newest save first. The join runs server-side.
func (g *Gateway) LoadSavedSetlists(ctx context.Context, owner identity.Owner) ([]models.SetlistRow, error) {
	var rows []models.SetlistRow
	params := map[string]string{"user_id": owner.ID()}
	if err := g.RPC(ctx, "my_saved_setlists", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *Gateway) SubmitReview(ctx context.Context, w models.ReviewWrite) error {
	return g.Upsert(ctx, CollectionReviews, w, "user_id", "setlist_id")
}

func (g *Gateway) LoadReviews(ctx context.Context, setlistID string) ([]models.ReviewRead, error) {
	var rows []models.ReviewRead
	params := map[string]string{"setlist_id": setlistID}
	if err := g.RPC(ctx, "reviews_with_users", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *Gateway) LoadMyReviews(ctx context.Context, owner identity.Owner) ([]models.ReviewRead, error) {
	var rows []models.ReviewRead
	params := map[string]string{"user_id": owner.ID()}
	if err := g.RPC(ctx, "reviews_with_users", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *Gateway) DeleteMyReview(ctx context.Context, owner identity.Owner, reviewID int64) error {
	return g.Delete(ctx, CollectionReviews, Filters{
		"id":      reviewID,
		"user_id": owner.ID(),
	})
}

func (g *Gateway) UpsertVote(ctx context.Context, w models.VoteWrite) error {
	return g.Upsert(ctx, CollectionReviewVotes, w, "user_id", "review_id")
}

func (g *Gateway) ClearVote(ctx context.Context, owner identity.Owner, reviewID int64) error {
	return g.Delete(ctx, CollectionReviewVotes, Filters{
		"user_id":   owner.ID(),
		"review_id": reviewID,
	})
}

func (g *Gateway) LoadMyVotes(ctx context.Context, owner identity.Owner, reviewIDs []int64) (map[int64]int, error) {
	if len(reviewIDs) == 0 {
		return map[int64]int{}, nil
	}
	var rows []struct {
		ReviewID int64 `json:"review_id"`
		Value    int   `json:"value"`
	}
	err := g.Select(ctx, CollectionReviewVotes, Query{
		Filters: Filters{"user_id": owner.ID(), "review_id": reviewIDs},
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(rows))
	for _, r := range rows {
		out[r.ReviewID] = r.Value
	}
	return out, nil
}

func (g *Gateway) FetchProfile(ctx context.Context, owner identity.Owner) (*models.ProfileRow, error) {
	var rows []models.ProfileRow
	err := g.Select(ctx, CollectionProfiles, Query{
		Filters: Filters{"id": owner.ID()},
		Limit:   1,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (g *Gateway) UpsertProfile(ctx context.Context, row models.ProfileRow) error {
	return g.Upsert(ctx, CollectionProfiles, row, "id")
}

func (g *Gateway) EmailForUsername(ctx context.Context, username string) (string, error) {
	var rows []struct {
		Email string `json:"email"`
	}
	err := g.Select(ctx, CollectionProfiles, Query{
		Filters: Filters{"username": username},
		Limit:   1,
	}, &rows)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || rows[0].Email == "" {
		return "", nil
	}
	return rows[0].Email, nil
}

func (g *Gateway) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	err := g.Select(ctx, CollectionProfiles, Query{
		Filters: Filters{"username": username},
		Limit:   1,
	}, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) == 0, nil
}

// DeleteAllForOwner issues an owner-scoped delete on one collection. The
// profiles table keys the owner by "id", the rest by "user_id".
func (g *Gateway) DeleteAllForOwner(ctx context.Context, collection string, owner identity.Owner) error {
	key := "user_id"
	if collection == CollectionProfiles {
		key = "id"
	}
	return g.Delete(ctx, collection, Filters{key: owner.ID()})
}
