// Package geo computes great-circle distances between coordinates.
package geo

import (
	"fmt"
	"math"
	"strconv"
)

const earthRadiusKm = 6371

type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceKm returns the haversine distance between a and b in kilometres,
// rounded to two decimals.
func DistanceKm(a, b Point) float64 {
	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(earthRadiusKm*c*100) / 100
}

// EstimateDuration gives a rough travel time label for a distance in km.
func EstimateDuration(km float64) string {
	switch {
	case km < 1:
		return "moins de 5 min"
	case km < 2:
		return "5-10 min"
	case km < 5:
		return "10-15 min"
	case km < 10:
		return "15-30 min"
	case km < 20:
		return "30-45 min"
	}
	return "plus de 45 min"
}

// FormatDistance renders metres below 1 km and kilometres above.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	}
	return strconv.FormatFloat(km, 'f', -1, 64) + "km"
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
