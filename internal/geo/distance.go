// Package geo computes great-circle distances between coordinates.
package geo

import "math"

const earthRadiusKm = 6371

// DistanceKm returns the haversine great-circle distance in kilometers
// between two points given in decimal degrees. Coordinates are assumed to be
// in valid ranges; out-of-range input is a caller contract violation.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Asin(math.Sqrt(a))

	return c * earthRadiusKm
}
