package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/searchsync/pkg/types"
)

// Decoding errors
var (
	ErrMalformedVertex     = errors.New("vertex must have exactly two coordinates")
	ErrMalformedCoordinate = errors.New("coordinate is not a number")
)

const polygonTag = "POLYGON"

// ParsePolygon decodes the outer ring of a WKT POLYGON.
//
// The tag is matched without regard to case. Empty input and anything that is
// not a POLYGON (MULTIPOLYGON, POINT, ...) decode to an empty ring with no
// error. Inner rings are ignored. A vertex
// without exactly two numeric coordinates is an error; callers skip the zone.
func ParsePolygon(wkt string) (types.Polygon, error) {
	wkt = strings.TrimSpace(wkt)
	if len(wkt) < len(polygonTag) || !strings.EqualFold(wkt[:len(polygonTag)], polygonTag) {
		return nil, nil
	}

	body := strings.TrimSpace(wkt[len(polygonTag):])
	start := strings.Index(body, "((")
	if start < 0 {
		// POLYGON EMPTY and similar
		return nil, nil
	}
	ring := body[start+2:]
	if end := strings.IndexByte(ring, ')'); end >= 0 {
		ring = ring[:end]
	}
	if strings.TrimSpace(ring) == "" {
		return nil, nil
	}

	parts := strings.Split(ring, ",")
	poly := make(types.Polygon, 0, len(parts))
	for i, part := range parts {
		coords := strings.Fields(part)
		if len(coords) != 2 {
			return nil, fmt.Errorf("%w: vertex %d %q", ErrMalformedVertex, i, strings.TrimSpace(part))
		}

		x, err := strconv.ParseFloat(coords[0], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: vertex %d x %q", ErrMalformedCoordinate, i, coords[0])
		}
		y, err := strconv.ParseFloat(coords[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: vertex %d y %q", ErrMalformedCoordinate, i, coords[1])
		}

		poly = append(poly, types.Vertex{X: x, Y: y})
	}

	return poly, nil
}
