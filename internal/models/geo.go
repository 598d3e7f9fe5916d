package models

import "math"

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// InterpolatePath returns n evenly spaced points from a to b inclusive.
// Линейная интерполяция в градусах: геодезически неточно, но для анимации
// трека на карте достаточно.
func InterpolatePath(a, b Coordinate, n int) []Coordinate {
	if n < 2 {
		n = 2
	}
	out := make([]Coordinate, 0, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		out = append(out, Coordinate{
			Lat: a.Lat + (b.Lat-a.Lat)*t,
			Lng: a.Lng + (b.Lng-a.Lng)*t,
		})
	}
	return out
}
