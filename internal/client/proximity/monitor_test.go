package proximity

import (
	"testing"

	"github.com/encorehq/encore/internal/client/geo"
	"github.com/stretchr/testify/assert"
)

var (
	redRocks = geo.Coordinate{Lat: 39.6654, Lon: -105.2057}
	farAway  = geo.Coordinate{Lat: 48.2082, Lon: 16.3738}
)

func TestMonitor_EntryIsEdgeTriggered(t *testing.T) {
	var entries []string
	m := NewMonitor(func(id string) { entries = append(entries, id) })
	m.ReplaceAll([]Region{{ID: "sl-1", Center: redRocks, RadiusMeters: 250}})

	m.Update(redRocks)
	m.Update(redRocks) // still inside, must not re-fire
	assert.Equal(t, []string{"sl-1"}, entries)

	m.Update(farAway)
	m.Update(redRocks) // left and came back, fires again
	assert.Equal(t, []string{"sl-1", "sl-1"}, entries)
}

func TestMonitor_OutsideRadiusNoEvent(t *testing.T) {
	var entries []string
	m := NewMonitor(func(id string) { entries = append(entries, id) })
	m.ReplaceAll([]Region{{ID: "sl-1", Center: redRocks, RadiusMeters: 250}})

	// roughly 1.1km north of the center
	m.Update(geo.Coordinate{Lat: redRocks.Lat + 0.01, Lon: redRocks.Lon})
	assert.Empty(t, entries)
}

func TestMonitor_ReplaceAllKeepsInsideStateForSurvivors(t *testing.T) {
	var entries []string
	m := NewMonitor(func(id string) { entries = append(entries, id) })
	m.ReplaceAll([]Region{{ID: "sl-1", Center: redRocks, RadiusMeters: 250}})
	m.Update(redRocks)

	// same venue survives the refresh; standing still must not re-alert
	m.ReplaceAll([]Region{
		{ID: "sl-1", Center: redRocks, RadiusMeters: 250},
		{ID: "sl-2", Center: farAway, RadiusMeters: 250},
	})
	m.Update(redRocks)
	assert.Equal(t, []string{"sl-1"}, entries)
	assert.Len(t, m.Regions(), 2)
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, haversineMeters(redRocks, redRocks), 0.001)

	// one degree of latitude is about 111km
	d := haversineMeters(geo.Coordinate{Lat: 39, Lon: -105}, geo.Coordinate{Lat: 40, Lon: -105})
	assert.InDelta(t, 111000, d, 500)
}
