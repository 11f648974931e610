// Package geo resolves geographic points to delivery zones.
//
// Zone geometry arrives from the relational source as WKT text. ParsePolygon
// decodes the outer ring of a POLYGON value into vertices, Contains performs
// an even-odd ray casting test against one ring, and Resolve scans a zone
// list in order and returns the first zone containing the point.
//
// # Basic Usage
//
//	poly, err := geo.ParsePolygon("POLYGON((0 0,10 0,10 10,0 10,0 0))")
//	if err != nil {
//	    // malformed geometry, skip this zone
//	}
//	zones := []types.Zone{{ID: 1, Polygon: poly}}
//	id, ok := geo.Resolve(types.Point{Lat: 5, Lon: 5}, zones)
//
// # Loading Zones
//
// Store reads active zones from the source database. Service wraps a loader
// with a snapshot that is refreshed once it is older than the configured
// interval. Readers always see a complete snapshot, never a partially
// refreshed one.
//
// # Coordinate Order
//
// WKT vertices are "x y" pairs. Within this package x is the longitude and y
// is the latitude, matching the output of ST_AsText on zone geometry columns.
package geo
