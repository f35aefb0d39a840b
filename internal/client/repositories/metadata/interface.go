// Package metadata stores small client-side key/value records: the persisted
// session (tokens, user id) and sync bookkeeping that does not belong in the
// mirror table.
package metadata

import "context"

// Repository is a tiny KV store backed by the local database.
type Repository interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key if present.
	Delete(ctx context.Context, key string) error

	// Clear removes every key. Used on sign-out.
	Clear(ctx context.Context) error
}

// Well-known keys.
const (
	KeyUserID       = "user_id"
	KeyEmail        = "email"
	KeyUsername     = "username"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)
