// Package types provides shared type definitions for searchsync.
//
// This package defines the domain types passed between the source reader,
// the transformer, the embedding augmenter and the bulk loader, plus the
// geometry types used for delivery zone resolution.
//
// # Core Types
//
// SourceRecord is one joined row from the relational catalog. Nullable
// columns are carried as pointers so "absent" and "zero" stay distinct:
//
//	rec := types.SourceRecord{
//	    ID:        42,
//	    Name:      ptr("Paneer Tikka"),
//	    Latitude:  ptr("23.0225"),
//	    Longitude: ptr("72.5714"),
//	}
//
// FullDocument and PatchDocument are the two shapes written to the search
// engine. A full document replaces whatever is stored under its id. A patch
// document is merged into the stored document, leaving fields it does not
// carry (for example previously stored vectors) untouched.
//
// StoreRecord and CategoryRecord are rows of the stores and categories
// tables, written as StoreDocument and CategoryDocument to their own indices.
// They are always written in full and carry no vectors.
//
// # Geometry
//
// Zone geometry is stored as an outer ring of (x, y) vertices where x is the
// longitude and y is the latitude:
//
//	zone := types.Zone{
//	    ID:      7,
//	    Polygon: types.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}},
//	}
//
// # Run Statistics
//
// RunStats accumulates processed, succeeded and failed counts across the
// batches of a sync run. Processed always covers every record read, so
// Succeeded + Failed never exceeds it.
package types
