// Package geo holds the shared location type and the haversine radius checks used by gig search
// and new-gig matching.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type Location struct {
	Address string   `json:"address"`
	City    string   `json:"city"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

func (l Location) Point() (orb.Point, bool) {
	if !l.HasCoordinates() {
		return orb.Point{}, false
	}
	return orb.Point{*l.Lng, *l.Lat}, true
}

// Valid reports whether any coordinates present are within WGS84 bounds.
func (l Location) Valid() bool {
	if l.Lat == nil && l.Lng == nil {
		return true
	}
	if !l.HasCoordinates() {
		return false
	}
	return *l.Lat >= -90 && *l.Lat <= 90 && *l.Lng >= -180 && *l.Lng <= 180
}

// DistanceKm is the great-circle distance between two coordinates.
func DistanceKm(a, b orb.Point) float64 {
	return geo.DistanceHaversine(a, b) / 1000
}

// Within reports whether b lies within radiusKm of a.
func Within(a, b orb.Point, radiusKm float64) bool {
	return DistanceKm(a, b) <= radiusKm
}

// BoundingBox is a lat/lng rectangle used to pre-filter rows in SQL before the exact haversine
// check. MinLng > MaxLng means the box wraps across the antimeridian.
type BoundingBox struct {
	MinLat, MaxLat, MinLng, MaxLng float64
}

func BoxAround(center orb.Point, radiusKm float64) BoundingBox {
	b := geo.NewBoundAroundPoint(center, radiusKm*1000)
	box := BoundingBox{
		MinLat: math.Max(b.Min.Lat(), -90),
		MaxLat: math.Min(b.Max.Lat(), 90),
		MinLng: b.Min.Lon(),
		MaxLng: b.Max.Lon(),
	}
	// Near a pole every meridian is within reach.
	if box.MaxLat >= 90 || box.MinLat <= -90 || math.IsNaN(box.MinLng) || math.IsNaN(box.MaxLng) ||
		box.MaxLng-box.MinLng >= 360 {
		box.MinLng, box.MaxLng = -180, 180
		return box
	}
	box.MinLng = wrapLng(box.MinLng)
	box.MaxLng = wrapLng(box.MaxLng)
	return box
}

// wrapLng maps a longitude into [-180, 180].
func wrapLng(lng float64) float64 {
	for lng < -180 {
		lng += 360
	}
	for lng > 180 {
		lng -= 360
	}
	return lng
}

// WrapsAntimeridian reports whether the box spans the ±180° meridian.
func (b BoundingBox) WrapsAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

func (b BoundingBox) Contains(lat, lng float64) bool {
	if lat < b.MinLat || lat > b.MaxLat {
		return false
	}
	if b.WrapsAntimeridian() {
		return lng >= b.MinLng || lng <= b.MaxLng
	}
	return lng >= b.MinLng && lng <= b.MaxLng
}

// LngCondition renders the longitude filter for column. minArg and maxArg are the positional
// parameters bound to MinLng and MaxLng.
func (b BoundingBox) LngCondition(column string, minArg, maxArg int) string {
	if b.WrapsAntimeridian() {
		return fmt.Sprintf("(%[1]s >= $%[2]d OR %[1]s <= $%[3]d)", column, minArg, maxArg)
	}
	return fmt.Sprintf("%[1]s BETWEEN $%[2]d AND $%[3]d", column, minArg, maxArg)
}

func Float(v float64) *float64 {
	return &v
}
