package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Buffer returns the band of half-width w around a planar line. Each segment
// becomes a rectangle extended by w past both ends and the rectangles are
// unioned, so joints are square rather than round.
func Buffer(line orb.LineString, w float64) orb.MultiPolygon {
	if len(line) == 0 || w <= 0 {
		return nil
	}

	ls := line
	if len(line) > 2 {
		if s, ok := simplify.DouglasPeucker(w / 4).Simplify(line.Clone()).(orb.LineString); ok && len(s) >= 2 {
			ls = s
		}
	}

	if len(ls) == 1 {
		p := ls[0]
		return orb.MultiPolygon{{rect(p, p, w)}}
	}

	var parts orb.MultiPolygon
	for i := 0; i < len(ls)-1; i++ {
		if ls[i].Equal(ls[i+1]) {
			continue
		}
		parts = append(parts, orb.Polygon{rect(ls[i], ls[i+1], w)})
	}
	if len(parts) == 0 {
		return orb.MultiPolygon{{rect(ls[0], ls[0], w)}}
	}
	return Union(parts)
}

// rect builds the rectangle covering segment a-b widened by w on every side.
func rect(a, b orb.Point, w float64) orb.Ring {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	ux, uy := 1.0, 0.0
	if l > 0 {
		ux, uy = dx/l, dy/l
	}
	nx, ny := -uy*w, ux*w
	ex, ey := ux*w, uy*w

	return orb.Ring{
		{a[0] - ex + nx, a[1] - ey + ny},
		{a[0] - ex - nx, a[1] - ey - ny},
		{b[0] + ex - nx, b[1] + ey - ny},
		{b[0] + ex + nx, b[1] + ey + ny},
		{a[0] - ex + nx, a[1] - ey + ny},
	}
}
