package types

import "math"

// Vertex is a single polygon corner. X is the longitude and Y the latitude.
type Vertex struct {
	X float64
	Y float64
}

// Polygon is the outer ring of a zone. The ring may or may not repeat its
// first vertex at the end.
type Polygon []Vertex

// Enclosing reports whether the ring has enough vertices to enclose an area.
func (p Polygon) Enclosing() bool {
	return len(p) >= 3
}

// Point is a geographic location.
type Point struct {
	Lat float64
	Lon float64
}

// Validate checks that the point is a finite coordinate on the globe.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return ErrNotANumber
	}
	if p.Lat < -90 || p.Lat > 90 {
		return ErrInvalidLatitude
	}
	if p.Lon < -180 || p.Lon > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

// Zone is a delivery area with an integer id.
type Zone struct {
	ID      int64
	Polygon Polygon
}

// GeoPoint is the search engine's geo_point object form.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
