package proximity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/encorehq/encore/internal/client/geo"
	"github.com/encorehq/encore/internal/client/setlistfm"
	"github.com/encorehq/encore/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGeocoder struct {
	place        geo.Place
	reverseErr   error
	forwardErr   error
	forwardCalls int
}

func (f *fakeGeocoder) Reverse(ctx context.Context, c geo.Coordinate) (geo.Place, error) {
	if f.reverseErr != nil {
		return geo.Place{}, f.reverseErr
	}
	return f.place, nil
}

func (f *fakeGeocoder) Forward(ctx context.Context, address string) (geo.Coordinate, error) {
	f.forwardCalls++
	if f.forwardErr != nil {
		return geo.Coordinate{}, f.forwardErr
	}
	// stable, address-derived coordinate
	return geo.Coordinate{Lat: float64(len(address)), Lon: 1}, nil
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []setlistfm.SetlistQuery
	results []setlistfm.Setlist
	err     error
}

func (f *fakeSearcher) SearchSetlists(ctx context.Context, q setlistfm.SetlistQuery) ([]setlistfm.Setlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.results, f.err
}

func (f *fakeSearcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	fail error
}

func (f *fakeNotifier) ScheduleImmediate(ctx context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, n)
	return nil
}

func nearbyResults(n int) []setlistfm.Setlist {
	out := make([]setlistfm.Setlist, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, setlistfm.Setlist{
			ID: fmt.Sprintf("sl-%02d", i),
			Venue: &setlistfm.Venue{
				Name: fmt.Sprintf("Venue %02d", i),
				City: &setlistfm.City{Name: "Graz", Country: &setlistfm.Country{Name: "Austria"}},
			},
		})
	}
	return out
}

func newTestLoop(t *testing.T, gc *fakeGeocoder, search *fakeSearcher) (*Loop, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	l := NewLoop(logging.NewNopLogger(), gc, geo.NewCache(), search, notifier)
	l.OnPermissionChanged(PermissionAlways)
	return l, notifier
}

func TestLoop_RegionSetNeverExceedsCap(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz", CountryCode: "AT"}}
	search := &fakeSearcher{results: nearbyResults(35)}
	l, _ := newTestLoop(t, gc, search)

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})

	regions := l.Regions()
	assert.LessOrEqual(t, len(regions), MaxRegions)
	assert.Len(t, regions, MaxRegions)
	for _, r := range regions {
		assert.Equal(t, RegionRadiusMeters, r.RadiusMeters)
	}
}

func TestLoop_GeocodeCacheKeyedByExternalID(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(2)}
	notifier := &fakeNotifier{}
	cache := geo.NewCache()
	l := NewLoop(logging.NewNopLogger(), gc, cache, search, notifier)
	l.OnPermissionChanged(PermissionAlways)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	require.Equal(t, 2, gc.forwardCalls)

	// entries are keyed by the setlist id, not the address string
	_, ok := cache.Get("sl-00")
	assert.True(t, ok)
	_, ok = cache.Get("sl-01")
	assert.True(t, ok)

	// the next cycle hits the cache and pays for no geocodes
	clock = base.Add(25 * time.Minute)
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47.1, Lon: 15})
	assert.Equal(t, 2, gc.forwardCalls)
}

func TestLoop_RefreshThrottle(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(3)}
	l, _ := newTestLoop(t, gc, search)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	clock = base.Add(5 * time.Minute)
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47.1, Lon: 15})
	assert.Equal(t, 1, search.calls(), "fixes 5 minutes apart must refresh once")

	clock = base.Add(25 * time.Minute)
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47.2, Lon: 15})
	assert.Equal(t, 2, search.calls(), "a fix past the interval refreshes again")
}

func TestLoop_IgnoresFixesUntilMonitoring(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(2)}
	notifier := &fakeNotifier{}
	l := NewLoop(logging.NewNopLogger(), gc, geo.NewCache(), search, notifier)

	assert.Equal(t, StateDisabled, l.State())
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Zero(t, search.calls())

	l.OnPermissionChanged(PermissionWhenInUse)
	assert.Equal(t, StateAwaitingPermission, l.State())
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Zero(t, search.calls())

	l.OnPermissionChanged(PermissionAlways)
	assert.Equal(t, StateMonitoring, l.State())
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Equal(t, 1, search.calls())
}

func TestLoop_DenialClearsRegions(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(4)}
	l, _ := newTestLoop(t, gc, search)

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	require.NotEmpty(t, l.Regions())

	l.OnPermissionChanged(PermissionDenied)
	assert.Equal(t, StateDisabled, l.State())
	assert.Empty(t, l.Regions())
}

func TestLoop_CityOnlyFallback(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz", StateCode: "Styria", CountryCode: "AT"}}
	search := &fakeSearcher{}
	l, _ := newTestLoop(t, gc, search)

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})

	require.Equal(t, 2, search.calls())
	assert.Equal(t, "Styria", search.queries[0].StateCode)
	assert.Equal(t, "AT", search.queries[0].CountryCode)
	assert.Equal(t, setlistfm.SetlistQuery{CityName: "Graz"}, search.queries[1])
}

func TestLoop_NoCityKeepsStaleRegions(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(3)}
	l, _ := newTestLoop(t, gc, search)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	require.Len(t, l.Regions(), 3)

	gc.reverseErr = errors.New("geocoder down")
	clock = base.Add(time.Hour)
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Len(t, l.Regions(), 3, "a failed reverse geocode must not drop the set")
}

func TestLoop_SearchFailureEmptiesRegions(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(3)}
	l, _ := newTestLoop(t, gc, search)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time { return clock }

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	require.Len(t, l.Regions(), 3)

	search.err = errors.New("provider down")
	clock = base.Add(time.Hour)
	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Empty(t, l.Regions(), "a failed search installs an empty set for the cycle")
}

func TestLoop_EntryNotificationCarriesSetlistID(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}}
	search := &fakeSearcher{results: nearbyResults(1)}
	l, notifier := newTestLoop(t, gc, search)

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	require.Len(t, l.Regions(), 1)

	// walk into the freshly installed region
	l.OnLocation(context.Background(), l.Regions()[0].Center)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, "save-sl-00", n.ID)
	assert.Equal(t, "sl-00", n.Payload["setlistId"])
}

func TestLoop_SkipsVenuesThatFailGeocoding(t *testing.T) {
	gc := &fakeGeocoder{place: geo.Place{City: "Graz"}, forwardErr: errors.New("no result")}
	search := &fakeSearcher{results: nearbyResults(5)}
	l, _ := newTestLoop(t, gc, search)

	l.OnLocation(context.Background(), geo.Coordinate{Lat: 47, Lon: 15})
	assert.Empty(t, l.Regions())
}
