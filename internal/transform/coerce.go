package transform

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/dshills/searchsync/pkg/types"
)

// Defaults for missing text columns.
const (
	DefaultCategoryName = "Other"
	DefaultDeliveryTime = "30-40 min"
	DefaultTimeStarts   = "00:00:00"
	DefaultTimeEnds     = "23:59:59"
)

func text(s *string, def string) string {
	if s == nil {
		return def
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return def
	}
	return v
}

func float(s *string) float64 {
	if s == nil {
		return 0
	}
	v, err := cast.ToFloat64E(strings.TrimSpace(*s))
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// integer truncates the decimal value of s. Strings are always read as
// base 10, so "08" is 8 rather than an octal parse error.
func integer(s *string) int {
	f := float(s)
	if math.Abs(f) > 1<<53 {
		return 0
	}
	return int(f)
}

// StorePoint returns the store coordinates when both parse to a valid point.
func StorePoint(rec types.SourceRecord) (types.Point, bool) {
	if rec.Latitude == nil || rec.Longitude == nil {
		return types.Point{}, false
	}
	lat, err := cast.ToFloat64E(strings.TrimSpace(*rec.Latitude))
	if err != nil {
		return types.Point{}, false
	}
	lon, err := cast.ToFloat64E(strings.TrimSpace(*rec.Longitude))
	if err != nil {
		return types.Point{}, false
	}
	p := types.Point{Lat: lat, Lon: lon}
	if p.Validate() != nil {
		return types.Point{}, false
	}
	return p, true
}

// geo returns the geo-point and the two plain coordinate fields, all nil
// unless both coordinates are usable.
func geo(rec types.SourceRecord) (*types.GeoPoint, *float64, *float64) {
	p, ok := StorePoint(rec)
	if !ok {
		return nil, nil, nil
	}
	lat, lon := p.Lat, p.Lon
	return &types.GeoPoint{Lat: lat, Lon: lon}, &lat, &lon
}
