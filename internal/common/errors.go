// Package common defines shared constants and sentinel errors used across
// the client and server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Lookup errors.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means an operation requiring an identity was
	// attempted without one (or with an invalid token).
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTransient covers network failures and rate limiting: the operation
	// did not complete but is safe to retry later.
	ErrTransient = errors.New("transient error")

	// ErrDecoding means the server answered but the body did not match the
	// expected shape. Distinct from ErrTransient so callers can tell
	// "server is broken" from "network is down".
	ErrDecoding = errors.New("decoding error")

	// ErrConflict is a uniqueness violation surfaced by the remote store,
	// e.g. a duplicate username.
	ErrConflict = errors.New("conflict")

	// ErrCancelled is returned when a timeout or explicit cancellation cut
	// an operation short.
	ErrCancelled = errors.New("cancelled")

	// Token lifecycle errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
