// Package geo converts between small latitude/longitude offsets and metres.
package geo

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// DefaultThreshold is how far, in degrees, latitude may drift before the
// metres-per-degree factors are recomputed.
const DefaultThreshold = 0.1

// EarthRadiusM is the mean Earth radius used for great-circle distances.
const EarthRadiusM = 6371010.0

// Coefficients caches metres per degree of latitude and longitude around a
// reference latitude. The zero value computes on first use.
type Coefficients struct {
	LatM      float64 // metres per degree of latitude
	LonM      float64 // metres per degree of longitude
	Lat0      float64 // latitude the factors were computed for
	Threshold float64 // degrees; <= 0 means DefaultThreshold

	valid bool
}

// Update recomputes the factors if lat is at least Threshold away from Lat0
// and reports whether it did.
func (c *Coefficients) Update(lat float64) bool {
	thr := c.Threshold
	if thr <= 0 {
		thr = DefaultThreshold
	}
	if c.valid && math.Abs(lat-c.Lat0) < thr {
		return false
	}
	a := (s1.Angle(lat) * s1.Degree).Radians()
	c.LatM = 111132.92 - 559.82*math.Cos(2*a) + 1.175*math.Cos(4*a)
	c.LonM = 111412.84*math.Cos(a) - 93.5*math.Cos(3*a) + 0.118*math.Cos(5*a)
	c.Lat0 = lat
	c.valid = true
	return true
}

// Inverse returns the north and east offsets in metres from point 1 to point 2.
func (c *Coefficients) Inverse(lat1, lon1, lat2, lon2 float64) (north, east float64) {
	c.Update((lat1 + lat2) * 0.5)
	return (lat2 - lat1) * c.LatM, (lon2 - lon1) * c.LonM
}

// Move returns the point north and east metres away from lat, lon.
func (c *Coefficients) Move(lat, lon, north, east float64) (lat2, lon2 float64) {
	c.Update(lat)
	return lat + north/c.LatM, lon + east/c.LonM
}

// Distance is the great-circle distance in metres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusM
}
