package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify applies Douglas-Peucker to every ring with the given tolerance
// while preserving topology: a ring keeps its original vertices when the
// simplified version would collapse, self-intersect or cross any other ring
// of the multipolygon.
func Simplify(mp orb.MultiPolygon, tolerance float64) orb.MultiPolygon {
	if tolerance <= 0 {
		return orb.Clone(mp).(orb.MultiPolygon)
	}

	dp := simplify.DouglasPeucker(tolerance)

	var all []orb.Ring
	for _, p := range mp {
		all = append(all, p...)
	}

	out := make(orb.MultiPolygon, 0, len(mp))
	k := 0
	for _, p := range mp {
		poly := make(orb.Polygon, 0, len(p))
		for _, r := range p {
			s := simplifyRing(dp, r)
			if s != nil && ValidRing(s) && !crosses(s, without(all, k)) {
				all[k] = s
			} else {
				all[k] = r.Clone()
			}
			poly = append(poly, all[k])
			k++
		}
		out = append(out, poly)
	}
	return out
}

func simplifyRing(dp *simplify.DouglasPeuckerSimplifier, r orb.Ring) orb.Ring {
	// Rings are simplified as open lines so the closing vertex is kept.
	ls, ok := dp.Simplify(orb.LineString(r.Clone())).(orb.LineString)
	if !ok || len(ls) < 4 {
		return nil
	}
	return orb.Ring(ls)
}

func without(rings []orb.Ring, i int) []orb.Ring {
	out := make([]orb.Ring, 0, len(rings)-1)
	out = append(out, rings[:i]...)
	return append(out, rings[i+1:]...)
}
