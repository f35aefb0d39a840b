package proximity

import (
	"context"
	"sync"
	"time"

	"github.com/encorehq/encore/internal/client/geo"
	"github.com/encorehq/encore/internal/client/setlistfm"
	"github.com/encorehq/encore/internal/logging"
)

const (
	// DefaultRefreshInterval is the minimum spacing between two region
	// refresh cycles. Location fixes inside the window still feed the
	// entry detector, they just don't rebuild the region set.
	DefaultRefreshInterval = 20 * time.Minute

	// MaxRegions caps the monitored set per refresh cycle.
	MaxRegions = 20

	// RegionRadiusMeters is the geofence radius around each venue.
	RegionRadiusMeters = 250.0
)

// Permission mirrors the platform location-permission tiers.
type Permission int

const (
	PermissionDenied Permission = iota
	PermissionWhenInUse
	PermissionAlways
)

// State is the loop's lifecycle state. Monitoring starts only once the
// strongest permission tier is granted.
type State int

const (
	StateDisabled State = iota
	StateAwaitingPermission
	StateMonitoring
)

func (s State) String() string {
	switch s {
	case StateAwaitingPermission:
		return "awaiting-permission"
	case StateMonitoring:
		return "monitoring"
	default:
		return "disabled"
	}
}

// Searcher is the slice of the search provider client the loop needs.
type Searcher interface {
	SearchSetlists(ctx context.Context, q setlistfm.SetlistQuery) ([]setlistfm.Setlist, error)
}

// Loop keeps a geofence set of nearby concert venues and raises a
// notification when the device enters one. Every internal failure is
// soft: a failed refresh either keeps the stale region set (when the
// city cannot be resolved) or installs a smaller one, and the next
// cycle tries again.
type Loop struct {
	log      logging.Logger
	geocoder geo.Geocoder
	cache    *geo.Cache
	search   Searcher
	notifier Notifier
	monitor  *Monitor

	refreshEvery time.Duration
	now          func() time.Time

	mu            sync.Mutex
	state         State
	lastRefreshAt time.Time
}

// NewLoop wires a Loop. The geocoder should already carry its per-call
// timeout (geo.WithTimeout); the loop adds no deadline of its own.
func NewLoop(log logging.Logger, geocoder geo.Geocoder, cache *geo.Cache, search Searcher, notifier Notifier) *Loop {
	l := &Loop{
		log:          log,
		geocoder:     geocoder,
		cache:        cache,
		search:       search,
		notifier:     notifier,
		refreshEvery: DefaultRefreshInterval,
		now:          time.Now,
	}
	l.monitor = NewMonitor(l.handleEntry)
	return l
}

// State reports the loop's lifecycle state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// OnPermissionChanged moves the loop through its lifecycle. Losing the
// background tier drops back to awaiting; a denial disables the loop and
// clears the region set.
func (l *Loop) OnPermissionChanged(p Permission) {
	l.mu.Lock()
	prev := l.state
	switch p {
	case PermissionAlways:
		l.state = StateMonitoring
	case PermissionWhenInUse:
		l.state = StateAwaitingPermission
	default:
		l.state = StateDisabled
	}
	next := l.state
	l.mu.Unlock()

	if next == StateDisabled && prev != StateDisabled {
		l.monitor.ReplaceAll(nil)
	}
	if next != prev {
		l.log.Info(context.Background(), "proximity state changed", "from", prev.String(), "to", next.String())
	}
}

// Regions exposes the monitored set, mainly for status output.
func (l *Loop) Regions() []Region {
	return l.monitor.Regions()
}

// OnLocation feeds a location fix into the loop. Entry detection runs on
// every fix; the region set is rebuilt at most once per refresh interval.
// The refresh runs synchronously on the caller's goroutine, so fixes from
// a single feed serialize naturally.
func (l *Loop) OnLocation(ctx context.Context, loc geo.Coordinate) {
	if l.State() != StateMonitoring {
		return
	}

	l.monitor.Update(loc)

	l.mu.Lock()
	now := l.now()
	if !l.lastRefreshAt.IsZero() && now.Sub(l.lastRefreshAt) < l.refreshEvery {
		l.mu.Unlock()
		return
	}
	l.lastRefreshAt = now
	l.mu.Unlock()

	l.refresh(ctx, loc)
}

// Run consumes a location feed until the context ends or the feed closes.
func (l *Loop) Run(ctx context.Context, fixes <-chan geo.Coordinate) {
	for {
		select {
		case <-ctx.Done():
			return
		case loc, ok := <-fixes:
			if !ok {
				return
			}
			l.OnLocation(ctx, loc)
		}
	}
}

// refresh rebuilds the region set around loc: reverse geocode to a city,
// search recent setlists there, geocode each venue, install the result.
func (l *Loop) refresh(ctx context.Context, loc geo.Coordinate) {
	place, err := l.geocoder.Reverse(ctx, loc)
	if err != nil || place.City == "" {
		// no city, no search terms; keep whatever set we have
		l.log.Warn(ctx, "proximity refresh skipped, no city resolved", "error", err)
		return
	}

	items, err := l.search.SearchSetlists(ctx, setlistfm.SetlistQuery{
		CityName:    place.City,
		StateCode:   place.StateCode,
		CountryCode: place.CountryCode,
	})
	if err == nil && len(items) == 0 && (place.StateCode != "" || place.CountryCode != "") {
		items, err = l.search.SearchSetlists(ctx, setlistfm.SetlistQuery{CityName: place.City})
	}
	if err != nil {
		// a failed search still yields a definitive (empty) answer for
		// this cycle; install it so we never alert on long-gone venues
		l.log.Warn(ctx, "proximity search failed", "city", place.City, "error", err)
		items = nil
	}
	if len(items) > MaxRegions {
		items = items[:MaxRegions]
	}

	regions := make([]Region, 0, len(items))
	for _, s := range items {
		venue := s.VenueName()
		if venue == "" {
			continue
		}
		addr := venue + ", " + place.City
		if country := s.CountryName(); country != "" {
			addr += ", " + country
		}
		coord, ok := l.resolve(ctx, s.ID, addr)
		if !ok {
			continue
		}
		regions = append(regions, Region{
			ID:           s.ID,
			Center:       coord,
			RadiusMeters: RegionRadiusMeters,
		})
	}

	l.monitor.ReplaceAll(regions)
	l.log.Debug(ctx, "proximity regions refreshed", "city", place.City, "count", len(regions))

	// the fix that triggered the refresh may already be inside one of
	// the fresh regions
	l.monitor.Update(loc)
}

// resolve returns the coordinate for the setlist's venue, keyed in the
// process-lifetime cache by external id so repeat cycles never pay for the
// same forward geocode twice.
func (l *Loop) resolve(ctx context.Context, id, addr string) (geo.Coordinate, bool) {
	if coord, ok := l.cache.Get(id); ok {
		return coord, true
	}
	coord, err := l.geocoder.Forward(ctx, addr)
	if err != nil {
		l.log.Debug(ctx, "venue geocode failed", "address", addr, "error", err)
		return geo.Coordinate{}, false
	}
	l.cache.Put(id, coord)
	return coord, true
}

func (l *Loop) handleEntry(regionID string) {
	ctx := context.Background()
	err := l.notifier.ScheduleImmediate(ctx, Notification{
		ID:      "save-" + regionID,
		Title:   "At a concert?",
		Body:    "Looks like you're at a venue with a show tonight. Save the setlist?",
		Payload: map[string]string{"setlistId": regionID},
	})
	if err != nil {
		l.log.Warn(ctx, "notification delivery failed", "region", regionID, "error", err)
	}
}
