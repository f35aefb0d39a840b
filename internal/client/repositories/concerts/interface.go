package concerts

import (
	"context"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/models"
)

// Repository describes CRUD and query operations over the local mirror of
// saved concerts. Implementations are backed by a local SQLite database.
//
// Every operation is scoped by the compound key (setlistID, owner): at most
// one row exists per pair, and rows belonging to different owners never
// affect each other.
type Repository interface {
	// Upsert inserts a new mirror row or replaces an existing one for the
	// same (setlistID, owner) pair.
	Upsert(ctx context.Context, c *models.SavedConcert) error

	// GetByKey returns the row for (setlistID, owner), or common.ErrNotFound.
	GetByKey(ctx context.Context, setlistID string, owner identity.Owner) (*models.SavedConcert, error)

	// ListByOwner returns every row owned by the given identity, newest
	// event first.
	ListByOwner(ctx context.Context, owner identity.Owner) ([]models.SavedConcert, error)

	// ListPending returns rows with local changes not yet confirmed
	// remotely, restricted to the given owner. Guest rows are never
	// returned for a signed-in owner.
	ListPending(ctx context.Context, owner identity.Owner) ([]models.SavedConcert, error)

	// DeleteByKey removes the row for (setlistID, owner) if present.
	DeleteByKey(ctx context.Context, setlistID string, owner identity.Owner) error

	// DeleteAllForOwner removes every row owned by the given identity.
	DeleteAllForOwner(ctx context.Context, owner identity.Owner) error
}
