package routing

import (
	"math"
	"time"

	"github.com/foodrient/foodrient-backend/internal/platform/geo"
)

const (
	// SpeedKmh is the average driving speed assumed between stops.
	SpeedKmh = 30.0
	// StopMinutes is the time spent handing over each delivery.
	StopMinutes = 5
	// StartHour is the UTC hour the driver leaves on the route date.
	StartHour = 8
)

// Plan returns the visiting order of points as indices into points. It
// starts from origin, or from the first point when origin is nil, builds a
// nearest-neighbour tour and then improves it with 2-opt until no reversal
// shortens the path. The tour does not return to the origin.
func Plan(origin *geo.Point, points []geo.Point) []int {
	n := len(points)
	if n == 0 {
		return nil
	}

	// Stage 1: nearest neighbour.
	visited := make([]bool, n)
	order := make([]int, 0, n)
	var at geo.Point
	if origin != nil {
		at = *origin
	} else {
		at = points[0]
		visited[0] = true
		order = append(order, 0)
	}
	for len(order) < n {
		best, bestD := -1, math.Inf(1)
		for i, p := range points {
			if visited[i] {
				continue
			}
			if d := geo.DistanceKm(at, p); d < bestD {
				best, bestD = i, d
			}
		}
		visited[best] = true
		order = append(order, best)
		at = points[best]
	}

	// Stage 2: 2-opt. With an origin the first leg can be reversed too;
	// without one the first point stays fixed.
	first := 0
	if origin == nil {
		first = 1
	}
	for improved := true; improved; {
		improved = false
		for i := first; i < n-1; i++ {
			for j := i + 1; j < n; j++ {
				if gain(origin, points, order, i, j) > 1e-9 {
					reverse(order[i : j+1])
					improved = true
				}
			}
		}
	}
	return order
}

// gain is how much shorter the path gets by reversing order[i..j].
func gain(origin *geo.Point, points []geo.Point, order []int, i, j int) float64 {
	prev := func(k int) (geo.Point, bool) {
		if k > 0 {
			return points[order[k-1]], true
		}
		if origin != nil {
			return *origin, true
		}
		return geo.Point{}, false
	}
	a, hasA := prev(i)
	b, c := points[order[i]], points[order[j]]

	var before, after float64
	if hasA {
		before += geo.DistanceKm(a, b)
		after += geo.DistanceKm(a, c)
	}
	if j+1 < len(order) {
		d := points[order[j+1]]
		before += geo.DistanceKm(c, d)
		after += geo.DistanceKm(b, d)
	}
	return before - after
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Schedule renumbers stops in their current order and fills in estimated
// arrivals, the total distance and the duration of the route.
func Schedule(r *Route, origin *geo.Point) {
	clock := time.Date(r.Date.Year(), r.Date.Month(), r.Date.Day(), StartHour, 0, 0, 0, time.UTC)
	var total, minutes float64
	at := origin
	for i, s := range r.Stops {
		p := s.Point()
		if at != nil {
			leg := geo.DistanceKm(*at, p)
			total += leg
			travel := leg / SpeedKmh * 60
			minutes += travel
			clock = clock.Add(time.Duration(travel * float64(time.Minute)))
		}
		eta := clock.Truncate(time.Minute)
		s.StopNumber = i + 1
		s.EstimatedArrival = &eta
		clock = clock.Add(StopMinutes * time.Minute)
		minutes += StopMinutes
		at = &p
	}
	r.TotalDistanceKm = geo.Round2(total)
	r.EstimatedDurationMinutes = int(math.Ceil(minutes))
}
