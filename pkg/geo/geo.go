// Package geo provides geographic primitives shared across the viewer and
// the map art renderer.
package geo

import (
	"fmt"
	"math"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// kmPerDegree is the approximate length of one degree of latitude in km.
const kmPerDegree = 111.0

// Location is a WGS84 coordinate pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate returns an error if the location is outside valid WGS84 ranges.
func (l Location) Validate() error {
	return ValidateCoords(l.Latitude, l.Longitude)
}

// ValidateCoords validates latitude and longitude values.
func ValidateCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", lon)
	}
	return nil
}

// BoundingBox represents a geographic bounding box.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewBoundingBox returns an empty bounding box ready to be extended.
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

// IsEmpty reports whether the box has never been extended.
func (b *BoundingBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// ExtendWithPoint grows the box to include the given point.
func (b *BoundingBox) ExtendWithPoint(lat, lon float64) {
	b.MinLat = math.Min(b.MinLat, lat)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MinLon = math.Min(b.MinLon, lon)
	b.MaxLon = math.Max(b.MaxLon, lon)
}

// Center returns the midpoint of the box.
func (b *BoundingBox) Center() Location {
	return Location{
		Latitude:  (b.MinLat + b.MaxLat) / 2,
		Longitude: (b.MinLon + b.MaxLon) / 2,
	}
}

// Contains reports whether the point lies within the box.
func (b *BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BoundsAround derives a bounding box covering radiusKm around center.
// One degree of latitude spans roughly 111 km; the longitude span is
// widened by 1/cos(lat) so the box stays square on the ground.
func BoundsAround(center Location, radiusKm float64) BoundingBox {
	latOffset := radiusKm / kmPerDegree
	cos := math.Abs(math.Cos(center.Latitude * math.Pi / 180))
	if cos < 1e-6 {
		cos = 1e-6 // polar centers degenerate to full longitude span otherwise
	}
	lonOffset := radiusKm / (kmPerDegree * cos)
	return BoundingBox{
		MinLat: center.Latitude - latOffset,
		MaxLat: center.Latitude + latOffset,
		MinLon: center.Longitude - lonOffset,
		MaxLon: center.Longitude + lonOffset,
	}
}

// HaversineDistance calculates the great-circle distance in meters between
// two points.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}
