package geo

import (
	"math"

	"github.com/dshills/searchsync/pkg/types"
)

// Contains reports whether pt lies inside poly using even-odd ray casting.
//
// A horizontal ray is cast from the point towards +x. Each of the n edges
// (including the wrap-around edge from the last vertex back to the first)
// toggles the result when the point's y lies in (min(y1,y2), max(y1,y2)] and
// the point is left of the edge. Horizontal edges never toggle. Rings with
// fewer than three vertices contain nothing.
//
// Points exactly on an edge get a deterministic but unspecified answer.
func Contains(poly types.Polygon, pt types.Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	x, y := pt.Lon, pt.Lat
	inside := false

	p1 := poly[0]
	for i := 1; i <= n; i++ {
		p2 := poly[i%n]

		if p1.Y != p2.Y &&
			y > math.Min(p1.Y, p2.Y) &&
			y <= math.Max(p1.Y, p2.Y) &&
			x <= math.Max(p1.X, p2.X) {
			if p1.X == p2.X {
				inside = !inside
			} else {
				xinters := (y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y) + p1.X
				if x <= xinters {
					inside = !inside
				}
			}
		}

		p1 = p2
	}

	return inside
}

// Resolve returns the id of the first zone in zones whose ring contains pt.
// Overlapping zones are resolved by list order.
func Resolve(pt types.Point, zones []types.Zone) (int64, bool) {
	for _, z := range zones {
		if Contains(z.Polygon, pt) {
			return z.ID, true
		}
	}
	return 0, false
}
