package analytics

import (
	"math/rand"

	"github.com/enviducate/backend/internal/gee"
)

const (
	samplePointCount = 20
	sampleSeed       = 42
	sampleScale      = 1000
)

// samplePoints spreads pseudo-random points across the Michigan bounding
// box. The generator is re-seeded per call and all longitudes are drawn
// before any latitude, so every analysis run samples the same locations.
func samplePoints(n int) []gee.Point {
	rng := rand.New(rand.NewSource(sampleSeed))

	west, south, east, north := MichiganBBox[0], MichiganBBox[1], MichiganBBox[2], MichiganBBox[3]

	lons := make([]float64, n)
	for i := range lons {
		lons[i] = west + (east-west)*rng.Float64()
	}
	lats := make([]float64, n)
	for i := range lats {
		lats[i] = south + (north-south)*rng.Float64()
	}

	points := make([]gee.Point, n)
	for i := range points {
		points[i] = gee.Point{Lon: lons[i], Lat: lats[i]}
	}

	return points
}
