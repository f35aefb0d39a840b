package proximity

import (
	"math"
	"sync"

	"github.com/encorehq/encore/internal/client/geo"
)

// Region is a circular geofence around a venue, monitored for entry only.
// Regions are ephemeral: the set is recomputed every refresh cycle and
// replaced wholesale, never grown incrementally.
type Region struct {
	ID           string
	Center       geo.Coordinate
	RadiusMeters float64
}

// Monitor is a software geofence evaluator: it holds the active region set
// and derives entry events from successive location fixes. Events are
// edge-triggered: entering fires once, and re-arms only after the fix
// leaves the region again.
type Monitor struct {
	mu      sync.Mutex
	regions map[string]Region
	inside  map[string]bool
	onEnter func(regionID string)
}

// NewMonitor returns a Monitor delivering entry events to onEnter. The
// callback runs on the goroutine that called Update.
func NewMonitor(onEnter func(regionID string)) *Monitor {
	return &Monitor{
		regions: make(map[string]Region),
		inside:  make(map[string]bool),
		onEnter: onEnter,
	}
}

// ReplaceAll atomically swaps the monitored set: every previous region is
// dropped, then the new set installed. Entry state is carried over for
// region ids present in both sets so a refresh cannot re-fire for a venue
// the device is already inside.
func (m *Monitor) ReplaceAll(regions []Region) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]Region, len(regions))
	nextInside := make(map[string]bool, len(regions))
	for _, r := range regions {
		next[r.ID] = r
		if m.inside[r.ID] {
			nextInside[r.ID] = true
		}
	}
	m.regions = next
	m.inside = nextInside
}

// Update evaluates a location fix against the active set, firing onEnter
// for every region newly entered.
func (m *Monitor) Update(loc geo.Coordinate) {
	m.mu.Lock()
	var entered []string
	for id, r := range m.regions {
		in := haversineMeters(loc, r.Center) <= r.RadiusMeters
		switch {
		case in && !m.inside[id]:
			m.inside[id] = true
			entered = append(entered, id)
		case !in && m.inside[id]:
			delete(m.inside, id)
		}
	}
	cb := m.onEnter
	m.mu.Unlock()

	if cb == nil {
		return
	}
	for _, id := range entered {
		cb(id)
	}
}

// Regions returns a snapshot of the monitored set.
func (m *Monitor) Regions() []Region {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	return out
}

const earthRadiusMeters = 6371000.0

func haversineMeters(a, b geo.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
