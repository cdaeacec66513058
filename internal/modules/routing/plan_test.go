package routing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

func pathKm(origin *geo.Point, points []geo.Point, order []int) float64 {
	var total float64
	at := origin
	for _, i := range order {
		if at != nil {
			total += geo.DistanceKm(*at, points[i])
		}
		p := points[i]
		at = &p
	}
	return total
}

func TestPlan_Empty(t *testing.T) {
	assert.Nil(t, Plan(nil, nil))
}

func TestPlan_NearestNeighbourOnALine(t *testing.T) {
	origin := &geo.Point{Lat: 6.5, Lng: 3.30}
	points := []geo.Point{{Lat: 6.5, Lng: 3.50}, {Lat: 6.5, Lng: 3.40}, {Lat: 6.5, Lng: 3.60}}
	assert.Equal(t, []int{1, 0, 2}, Plan(origin, points))
}

func TestPlan_TwoOptRemovesCrossings(t *testing.T) {
	origin := &geo.Point{Lat: 6.60, Lng: 3.35}
	points := []geo.Point{
		{Lat: 6.498, Lng: 3.359},
		{Lat: 6.524, Lng: 3.371},
		{Lat: 6.575, Lng: 3.263},
		{Lat: 6.453, Lng: 3.417},
		{Lat: 6.502, Lng: 3.297},
	}
	// Greedy visits 1, 0, 4, 2, 3 for about 49.5 km.
	greedy := pathKm(origin, points, []int{1, 0, 4, 2, 3})

	got := Plan(origin, points)
	assert.Equal(t, []int{2, 4, 0, 1, 3}, got)
	assert.InDelta(t, 38.38, pathKm(origin, points, got), 0.01)
	assert.Less(t, pathKm(origin, points, got), greedy)
}

func TestPlan_WithoutOriginKeepsFirstStop(t *testing.T) {
	points := []geo.Point{{Lat: 6.5, Lng: 3.40}, {Lat: 6.5, Lng: 3.60}, {Lat: 6.5, Lng: 3.50}}
	assert.Equal(t, []int{0, 2, 1}, Plan(nil, points))
}

func TestSchedule(t *testing.T) {
	r := &Route{
		ID:   uuid.New(),
		Date: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Stops: []*Stop{
			{ID: uuid.New(), Latitude: 6.5, Longitude: 3.35},
			{ID: uuid.New(), Latitude: 6.635, Longitude: 3.35},
		},
	}
	Schedule(r, nil)

	require.NotNil(t, r.Stops[0].EstimatedArrival)
	assert.Equal(t, 1, r.Stops[0].StopNumber)
	assert.Equal(t, 2, r.Stops[1].StopNumber)
	assert.Equal(t, time.Date(2026, 10, 20, 8, 0, 0, 0, time.UTC), *r.Stops[0].EstimatedArrival)
	// 5 minutes at the first stop, then 15 km at 30 km/h.
	assert.Equal(t, time.Date(2026, 10, 20, 8, 35, 0, 0, time.UTC), *r.Stops[1].EstimatedArrival)
	assert.InDelta(t, 15.01, r.TotalDistanceKm, 0.001)
	assert.Equal(t, 41, r.EstimatedDurationMinutes)
}

func TestSchedule_FromOrigin(t *testing.T) {
	r := &Route{
		Date:  time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		Stops: []*Stop{{Latitude: 6.635, Longitude: 3.35}},
	}
	Schedule(r, &geo.Point{Lat: 6.5, Lng: 3.35})

	assert.Equal(t, time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC), *r.Stops[0].EstimatedArrival)
	assert.Equal(t, 36, r.EstimatedDurationMinutes)
}
