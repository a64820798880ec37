// Package geomath computes great-circle distances between GPS coordinates.
package geomath

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Distance returns the haversine distance in meters between two lat/lon
// pairs given in degrees. Identical coordinates yield exactly zero.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}
