// Package models holds the client-side data types: the local mirror record
// and the wire rows exchanged with the remote store.
package models

import (
	"strings"
	"time"

	"github.com/encorehq/encore/internal/client/identity"
)

// SavedConcert is the on-device mirror of a saved concert, scoped to the
// owner it was saved under. The same device may hold rows for several
// identities (including guest); the compound key (SetlistID, Owner) keeps
// them apart.
type SavedConcert struct {
	SetlistID string
	Owner     identity.Owner

	ArtistName     string
	VenueName      string
	City           string
	Country        string
	EventDate      *time.Time
	Songs          []string
	AttributionURL string

	// Local-only notes, never synchronized.
	LocalRating  *int
	LocalComment string

	// Sync bookkeeping. PendingPush marks rows created or edited locally
	// that have not been confirmed remotely yet.
	PendingPush bool
	LastSyncAt  *time.Time
}

// Songs are persisted as a single newline-joined column so the mirror table
// stays flat.

// JoinSongs encodes a song list for storage.
func JoinSongs(songs []string) string {
	return strings.Join(songs, "\n")
}

// SplitSongs decodes a stored song blob. An empty blob yields no songs.
func SplitSongs(blob string) []string {
	if blob == "" {
		return nil
	}
	return strings.Split(blob, "\n")
}
