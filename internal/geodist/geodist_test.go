package geodist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_Zero(t *testing.T) {
	p := Point{Lat: 48.8566, Lng: 2.3522}
	assert.Zero(t, Haversine(p, p))
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Point{Lat: 51.5074, Lng: -0.1278}  // London
	b := Point{Lat: 40.7128, Lng: -74.0060} // New York
	assert.Equal(t, Haversine(a, b), Haversine(b, a))
}

func TestHaversine_KnownDistances(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		km   float64
	}{
		{"one degree longitude at equator", Point{0, 0}, Point{0, 1}, 111.19},
		{"paris to london", Point{48.8566, 2.3522}, Point{51.5074, -0.1278}, 343.5},
		{"antipodal", Point{0, 0}, Point{0, 180}, math.Pi * EarthRadiusKm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.km, Haversine(tt.a, tt.b), 1.0)
		})
	}
}

func TestHaversine_NonNegative(t *testing.T) {
	pts := []Point{
		{90, 0}, {-90, 0}, {0, 180}, {0, -180}, {45.5, -122.6}, {-33.9, 151.2},
	}
	for _, a := range pts {
		for _, b := range pts {
			assert.GreaterOrEqual(t, Haversine(a, b), 0.0)
		}
	}
}

func TestValidCoords(t *testing.T) {
	assert.True(t, ValidCoords(0, 0))
	assert.True(t, ValidCoords(-90, 180))
	assert.False(t, ValidCoords(90.1, 0))
	assert.False(t, ValidCoords(0, -180.5))
	assert.False(t, ValidCoords(math.NaN(), 0))
	assert.False(t, ValidCoords(0, math.NaN()))
}
