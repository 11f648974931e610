// Package transform turns source records into search documents.
//
// Two paths exist. Full builds the complete document written with an index
// action. Patch builds the partial document merged with an update action. The
// paths coerce the same columns the same way except the veg flag, which is a
// boolean in full documents and 0/1 in patch documents.
//
// Coercion never fails: a NULL, empty or unparsable numeric column becomes 0,
// and missing text becomes its default. Store coordinates produce the
// store_location geo-point only when both latitude and longitude parse.
//
// Texts derives the three strings embedded for each item.
package transform
