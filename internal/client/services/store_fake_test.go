package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/encorehq/encore/internal/client/identity"
	"github.com/encorehq/encore/internal/client/localdb"
	"github.com/encorehq/encore/internal/client/models"
	"github.com/encorehq/encore/internal/client/remote"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// memStore is an in-memory remote.Store with per-verb fault injection.
type memStore struct {
	mu sync.Mutex

	setlists map[string]models.SetlistRow
	edges    map[string]map[string]string // user id -> setlist id -> attended_on
	reviews  map[int64]models.ReviewWrite
	votes    map[string]map[int64]int // user id -> review id -> value
	profiles map[string]models.ProfileRow

	nextReviewID int64

	upsertSetlistErr error
	saveToUserErr    error
	unsaveErr        error
	loadErr          error
	deleteErr        error

	deletedCollections []string
}

func newMemStore() *memStore {
	return &memStore{
		setlists: map[string]models.SetlistRow{},
		edges:    map[string]map[string]string{},
		reviews:  map[int64]models.ReviewWrite{},
		votes:    map[string]map[int64]int{},
		profiles: map[string]models.ProfileRow{},
	}
}

var _ remote.Store = (*memStore)(nil)

func (m *memStore) UpsertSetlist(ctx context.Context, row models.SetlistRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertSetlistErr != nil {
		return m.upsertSetlistErr
	}
	m.setlists[row.ID] = row
	return nil
}

func (m *memStore) SaveToUser(ctx context.Context, owner identity.Owner, setlistID, attendedOn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveToUserErr != nil {
		return m.saveToUserErr
	}
	if m.edges[owner.ID()] == nil {
		m.edges[owner.ID()] = map[string]string{}
	}
	m.edges[owner.ID()][setlistID] = attendedOn
	return nil
}

func (m *memStore) UnsaveFromUser(ctx context.Context, owner identity.Owner, setlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsaveErr != nil {
		return m.unsaveErr
	}
	delete(m.edges[owner.ID()], setlistID)
	return nil
}

func (m *memStore) LoadSavedSetlists(ctx context.Context, owner identity.Owner) ([]models.SetlistRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var out []models.SetlistRow
	for setlistID := range m.edges[owner.ID()] {
		if row, ok := m.setlists[setlistID]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memStore) SubmitReview(ctx context.Context, w models.ReviewWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.reviews {
		if existing.UserID == w.UserID && existing.SetlistID == w.SetlistID {
			m.reviews[id] = w
			return nil
		}
	}
	m.nextReviewID++
	m.reviews[m.nextReviewID] = w
	return nil
}

func (m *memStore) LoadReviews(ctx context.Context, setlistID string) ([]models.ReviewRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewRead
	for id, w := range m.reviews {
		if w.SetlistID == setlistID {
			out = append(out, models.ReviewRead{ID: id, SetlistID: w.SetlistID, Rating: w.Rating, Comment: w.Comment, UserID: w.UserID})
		}
	}
	return out, nil
}

func (m *memStore) LoadMyReviews(ctx context.Context, owner identity.Owner) ([]models.ReviewRead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewRead
	for id, w := range m.reviews {
		if w.UserID == owner.ID() {
			out = append(out, models.ReviewRead{ID: id, SetlistID: w.SetlistID, Rating: w.Rating, Comment: w.Comment, UserID: w.UserID})
		}
	}
	return out, nil
}

func (m *memStore) DeleteMyReview(ctx context.Context, owner identity.Owner, reviewID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.reviews[reviewID]; ok && w.UserID == owner.ID() {
		delete(m.reviews, reviewID)
	}
	return nil
}

func (m *memStore) UpsertVote(ctx context.Context, w models.VoteWrite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.votes[w.UserID] == nil {
		m.votes[w.UserID] = map[int64]int{}
	}
	m.votes[w.UserID][w.ReviewID] = w.Value
	return nil
}

func (m *memStore) ClearVote(ctx context.Context, owner identity.Owner, reviewID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.votes[owner.ID()], reviewID)
	return nil
}

func (m *memStore) LoadMyVotes(ctx context.Context, owner identity.Owner, reviewIDs []int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[int64]int{}
	for _, id := range reviewIDs {
		if v, ok := m.votes[owner.ID()][id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (m *memStore) FetchProfile(ctx context.Context, owner identity.Owner) (*models.ProfileRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[owner.ID()]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *memStore) UpsertProfile(ctx context.Context, row models.ProfileRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[row.ID] = row
	return nil
}

func (m *memStore) EmailForUsername(ctx context.Context, username string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return p.Email, nil
		}
	}
	return "", nil
}

func (m *memStore) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Username == username {
			return false, nil
		}
	}
	return true, nil
}

func (m *memStore) DeleteAllForOwner(ctx context.Context, collection string, owner identity.Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return fmt.Errorf("deleting %s: %w", collection, m.deleteErr)
	}
	m.deletedCollections = append(m.deletedCollections, collection)
	switch collection {
	case remote.CollectionUserSetlists:
		delete(m.edges, owner.ID())
	case remote.CollectionProfiles:
		delete(m.profiles, owner.ID())
	case remote.CollectionReviews:
		for id, w := range m.reviews {
			if w.UserID == owner.ID() {
				delete(m.reviews, id)
			}
		}
	case remote.CollectionReviewVotes:
		delete(m.votes, owner.ID())
	}
	return nil
}

func (m *memStore) edgeCount(owner identity.Owner) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges[owner.ID()])
}

// seedRemoteSave installs a setlist row plus the owner's edge to it.
func (m *memStore) seedRemoteSave(owner identity.Owner, row models.SetlistRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setlists[row.ID] = row
	if m.edges[owner.ID()] == nil {
		m.edges[owner.ID()] = map[string]string{}
	}
	m.edges[owner.ID()][row.ID] = row.EventDate
}

// newTestRepos opens a migrated in-memory mirror database.
func newTestRepos(t *testing.T) (*localdb.Repositories, *sql.DB) {
	t.Helper()
	repos, db, err := localdb.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repos, db
}
