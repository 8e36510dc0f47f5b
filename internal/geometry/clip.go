// Package geometry holds the polygon algebra used to cut the borough: boolean
// operations, validity checks and repair, line merging, buffering, splitting
// and topology-preserving simplification.
package geometry

import (
	"math"
	"sort"

	polyclip "github.com/akavel/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Union merges all polygons into one normalized multipolygon.
func Union(polys ...orb.MultiPolygon) orb.MultiPolygon {
	var acc polyclip.Polygon
	for _, mp := range polys {
		for _, p := range mp {
			c := toClip(orb.MultiPolygon{p})
			if len(c) == 0 {
				continue
			}
			if len(acc) == 0 {
				acc = normalizeClip(c)
				continue
			}
			acc = acc.Construct(polyclip.UNION, c)
		}
	}
	return fromClip(acc)
}

// Intersection returns the area shared by a and b.
func Intersection(a, b orb.MultiPolygon) orb.MultiPolygon {
	ca, cb := toClip(a), toClip(b)
	if len(ca) == 0 || len(cb) == 0 {
		return nil
	}
	return fromClip(ca.Construct(polyclip.INTERSECTION, cb))
}

// Difference returns the area of a not covered by b.
func Difference(a, b orb.MultiPolygon) orb.MultiPolygon {
	ca, cb := toClip(a), toClip(b)
	if len(ca) == 0 {
		return nil
	}
	if len(cb) == 0 {
		return Repair(a)
	}
	return fromClip(ca.Construct(polyclip.DIFFERENCE, cb))
}

// Repair rebuilds a multipolygon from its rings under the even-odd rule,
// splitting self-intersecting rings and re-nesting holes. It plays the role
// of the classic zero-width buffer.
func Repair(mp orb.MultiPolygon) orb.MultiPolygon {
	c := toClip(mp)
	if len(c) == 0 {
		return nil
	}
	return fromClip(normalizeClip(c))
}

// FromRings assembles loose rings into polygons by nesting depth: rings at
// even depth become shells and rings at odd depth become holes of the
// smallest shell around them. Orientation of the input does not matter.
func FromRings(rings []orb.Ring) orb.MultiPolygon {
	type item struct {
		ring  orb.Ring
		area  float64
		depth int
	}

	items := make([]item, 0, len(rings))
	for _, r := range rings {
		r = closeRing(r)
		if len(r) < 4 {
			continue
		}
		a := math.Abs(ringArea(r))
		if a == 0 {
			continue
		}
		items = append(items, item{ring: r, area: a})
	}

	// Larger rings first so parents precede children.
	sort.SliceStable(items, func(i, j int) bool { return items[i].area > items[j].area })

	parent := make([]int, len(items))
	for i := range items {
		parent[i] = -1
		for j := i - 1; j >= 0; j-- {
			if ringInside(items[i].ring, items[j].ring) {
				parent[i] = j
				break
			}
		}
		if parent[i] >= 0 {
			items[i].depth = items[parent[i]].depth + 1
		}
	}

	var out orb.MultiPolygon
	shellIndex := make(map[int]int)
	for i, it := range items {
		if it.depth%2 != 0 {
			continue
		}
		shell := orient(it.ring, orb.CCW)
		shellIndex[i] = len(out)
		out = append(out, orb.Polygon{shell})
	}
	for i, it := range items {
		if it.depth%2 == 0 {
			continue
		}
		idx, ok := shellIndex[parent[i]]
		if !ok {
			continue
		}
		out[idx] = append(out[idx], orient(it.ring, orb.CW))
	}
	return out
}

// normalizeClip runs the contours through the sweep once by clipping them to
// their own bounding box, which resolves self-intersections.
func normalizeClip(c polyclip.Polygon) polyclip.Polygon {
	bb := c.BoundingBox()
	pad := math.Max(bb.Max.X-bb.Min.X, bb.Max.Y-bb.Min.Y) + 1
	box := polyclip.Polygon{{
		{X: bb.Min.X - pad, Y: bb.Min.Y - pad},
		{X: bb.Max.X + pad, Y: bb.Min.Y - pad},
		{X: bb.Max.X + pad, Y: bb.Max.Y + pad},
		{X: bb.Min.X - pad, Y: bb.Max.Y + pad},
	}}
	return c.Construct(polyclip.INTERSECTION, box)
}

func toClip(mp orb.MultiPolygon) polyclip.Polygon {
	var out polyclip.Polygon
	for _, p := range mp {
		for _, r := range p {
			c := make(polyclip.Contour, 0, len(r))
			for i, pt := range r {
				if i == len(r)-1 && len(r) > 1 && pt.Equal(r[0]) {
					break
				}
				if len(c) > 0 && c[len(c)-1].X == pt[0] && c[len(c)-1].Y == pt[1] {
					continue
				}
				c = append(c, polyclip.Point{X: pt[0], Y: pt[1]})
			}
			if len(c) >= 3 {
				out = append(out, c)
			}
		}
	}
	return out
}

func fromClip(pc polyclip.Polygon) orb.MultiPolygon {
	rings := make([]orb.Ring, 0, len(pc))
	for _, c := range pc {
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		rings = append(rings, r)
	}
	return FromRings(rings)
}

func closeRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	if !r[0].Equal(r[len(r)-1]) {
		out := make(orb.Ring, len(r), len(r)+1)
		copy(out, r)
		return append(out, r[0])
	}
	return r
}

func orient(r orb.Ring, o orb.Orientation) orb.Ring {
	out := r.Clone()
	if out.Orientation() != o {
		out.Reverse()
	}
	return out
}

// ringArea is the signed shoelace area, positive for counter-clockwise rings.
func ringArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

// ringInside reports whether inner lies inside outer. Rings produced by the
// clipper never cross, so a vote over a few vertices is enough to step over
// a vertex that sits exactly on the other boundary.
func ringInside(inner, outer orb.Ring) bool {
	if !outer.Bound().Contains(inner[0]) {
		return false
	}
	votes, in := 0, 0
	for i := 0; i < len(inner)-1 && votes < 3; i++ {
		votes++
		if planar.RingContains(outer, inner[i]) {
			in++
		}
	}
	return in*2 > votes
}
