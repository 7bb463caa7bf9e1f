package opt

import "math"

const (
	earthRadiusNM    = 3440.0 // nautical miles
	cruiseSpeedKnots = 15.0
	fuelTonnesPerNM  = 0.5
	voyageNormNM     = 5000.0 // typical long-voyage distance used to normalize scores
)

// Fitness is the multi-objective cost of a position vector: the weighted sum
// of the fuel, time and safety sub-scores of its decoded path. Pure — no
// swarm state is touched — so it is usable standalone in tests and in the
// opposition pass.
func Fitness(position []float64, start, destination Coord, pr Priorities) float64 {
	path := GeneratePath(start, destination, position)
	return pr.Fuel*FuelScore(path) + pr.Time*TimeScore(path) + pr.Safety*SafetyScore(path)
}

// GeneratePath decodes interpolation fractions into a full waypoint path:
// start, then one waypoint per fraction pair, then destination. Waypoints
// are deliberately not sorted along the route — backtracking paths are part
// of the search space and the encoding must stay faithful to that.
func GeneratePath(start, destination Coord, position []float64) []Coord {
	n := len(position) / 2
	path := make([]Coord, 0, n+2)
	path = append(path, start)
	for i := 0; i < n; i++ {
		path = append(path, Coord{
			Lat: start.Lat + (destination.Lat-start.Lat)*position[2*i],
			Lon: start.Lon + (destination.Lon-start.Lon)*position[2*i+1],
		})
	}
	return append(path, destination)
}

// PathDistance sums great-circle segment lengths in nautical miles.
func PathDistance(path []Coord) float64 {
	total := 0.0
	for i := 0; i < len(path)-1; i++ {
		total += Haversine(path[i], path[i+1])
	}
	return total
}

// Haversine returns the great-circle distance between two coordinates in
// nautical miles.
func Haversine(a, b Coord) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusNM * 2 * math.Asin(math.Sqrt(h))
}

// FuelScore normalizes total distance against a typical long voyage.
// Always in [0,1], lower is better.
func FuelScore(path []Coord) float64 {
	return math.Min(PathDistance(path)/voyageNormNM, 1)
}

// TimeScore blends normalized distance with deviation from the direct
// great-circle line between the path's endpoints.
func TimeScore(path []Coord) float64 {
	distance := PathDistance(path)
	direct := Haversine(path[0], path[len(path)-1])
	deviation := (distance - direct) / math.Max(direct, 1)
	return math.Min((distance/voyageNormNM+deviation)/2, 1)
}

// SafetyScore penalizes hazardous latitude bands: +0.1 per waypoint in the
// tropical band [-10,10], +0.2 per waypoint in the polar bands (|lat| > 60),
// averaged over the path length. Stands in for real weather/ocean data.
func SafetyScore(path []Coord) float64 {
	hazard := 0.0
	for _, c := range path {
		if c.Lat >= -10 && c.Lat <= 10 {
			hazard += 0.1
		}
		if math.Abs(c.Lat) > 60 {
			hazard += 0.2
		}
	}
	return math.Min(hazard/float64(len(path)), 1)
}

// clamp01 clips a position component to [0,1]. Plain clipping, not
// reflection or wrapping.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
