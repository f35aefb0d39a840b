// Package geo provides forward and reverse geocoding behind a small
// interface, a hard-timeout combinator so unattended callers can never
// stall on a geocode, and a per-record coordinate cache.
package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/encorehq/encore/internal/common"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Place is the coarse locality a reverse lookup resolves to.
type Place struct {
	City        string
	StateCode   string
	CountryCode string
}

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	// Forward resolves a free-form address. common.ErrNotFound when the
	// address yields no result.
	Forward(ctx context.Context, address string) (Coordinate, error)

	// Reverse resolves a coordinate to a locality. common.ErrNotFound when
	// nothing is there.
	Reverse(ctx context.Context, c Coordinate) (Place, error)
}

// DefaultTimeout bounds a single geocode call.
const DefaultTimeout = 10 * time.Second

// WithTimeout wraps g so every call resolves within d: either with the
// underlying result or with common.ErrCancelled, exactly once. The
// underlying call is cancelled when it loses the race.
func WithTimeout(g Geocoder, d time.Duration) Geocoder {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutGeocoder{inner: g, d: d}
}

type timeoutGeocoder struct {
	inner Geocoder
	d     time.Duration
}

func (t *timeoutGeocoder) Forward(ctx context.Context, address string) (Coordinate, error) {
	return race(ctx, t.d, func(ctx context.Context) (Coordinate, error) {
		return t.inner.Forward(ctx, address)
	})
}

func (t *timeoutGeocoder) Reverse(ctx context.Context, c Coordinate) (Place, error) {
	return race(ctx, t.d, func(ctx context.Context) (Place, error) {
		return t.inner.Reverse(ctx, c)
	})
}

// race runs fn against a timer and returns whichever finishes first. The
// result channel is buffered so a late fn cannot block or deliver twice.
func race[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && ctx.Err() != nil {
			var zero T
			return zero, fmt.Errorf("%w: geocode: %w", common.ErrCancelled, ctx.Err())
		}
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: geocode: %w", common.ErrCancelled, ctx.Err())
	}
}
