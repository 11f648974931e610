package types

import "errors"

// Domain errors for type validation
var (
	// Write mode errors
	ErrInvalidWriteMode = errors.New("write mode must be full or patch")

	// Geometry errors
	ErrInvalidLatitude  = errors.New("latitude must be between -90 and 90")
	ErrInvalidLongitude = errors.New("longitude must be between -180 and 180")
	ErrNotANumber       = errors.New("coordinate is not a finite number")
)
