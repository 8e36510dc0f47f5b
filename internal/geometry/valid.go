package geometry

import (
	"sort"

	"github.com/paulmach/orb"
)

type segment struct {
	a, b orb.Point
	ring int
	idx  int
	n    int // edges in the owning ring
}

// Valid reports whether every polygon has closed rings of at least four
// points with non-zero area, and no ring crosses itself or another ring.
func Valid(mp orb.MultiPolygon) bool {
	if len(mp) == 0 {
		return false
	}

	var segs []segment
	ring := 0
	for _, p := range mp {
		if len(p) == 0 {
			return false
		}
		for _, r := range p {
			if len(r) < 4 || !r[0].Equal(r[len(r)-1]) || ringArea(r) == 0 {
				return false
			}
			n := len(r) - 1
			for i := 0; i < n; i++ {
				segs = append(segs, segment{a: r[i], b: r[i+1], ring: ring, idx: i, n: n})
			}
			ring++
		}
	}
	return !anyCrossing(segs)
}

// ValidRing reports whether a single ring is simple.
func ValidRing(r orb.Ring) bool {
	return Valid(orb.MultiPolygon{{r}})
}

// anyCrossing sweeps segments ordered by their minimum x and tests each
// pair whose x ranges overlap. Adjacent edges of the same ring may share
// their common vertex.
func anyCrossing(segs []segment) bool {
	sort.Slice(segs, func(i, j int) bool { return minX(segs[i]) < minX(segs[j]) })

	for i := range segs {
		si := segs[i]
		maxI := maxX(si)
		for j := i + 1; j < len(segs); j++ {
			sj := segs[j]
			if minX(sj) > maxI {
				break
			}
			if adjacent(si, sj) {
				if overlapsCollinear(si, sj) {
					return true
				}
				continue
			}
			if segmentsIntersect(si.a, si.b, sj.a, sj.b) {
				return true
			}
		}
	}
	return false
}

// crosses reports whether ring r intersects any ring in others.
func crosses(r orb.Ring, others []orb.Ring) bool {
	segs := make([]segment, 0, len(r))
	for i := 0; i < len(r)-1; i++ {
		segs = append(segs, segment{a: r[i], b: r[i+1], ring: 0, idx: i, n: len(r) - 1})
	}
	for k, o := range others {
		for i := 0; i < len(o)-1; i++ {
			segs = append(segs, segment{a: o[i], b: o[i+1], ring: k + 1, idx: i, n: len(o) - 1})
		}
	}

	sort.Slice(segs, func(i, j int) bool { return minX(segs[i]) < minX(segs[j]) })
	for i := range segs {
		maxI := maxX(segs[i])
		for j := i + 1; j < len(segs); j++ {
			if minX(segs[j]) > maxI {
				break
			}
			if (segs[i].ring == 0) == (segs[j].ring == 0) {
				continue
			}
			if segmentsIntersect(segs[i].a, segs[i].b, segs[j].a, segs[j].b) {
				return true
			}
		}
	}
	return false
}

func adjacent(s, t segment) bool {
	if s.ring != t.ring {
		return false
	}
	d := s.idx - t.idx
	if d < 0 {
		d = -d
	}
	return d == 1 || d == s.n-1
}

// overlapsCollinear catches a ring that doubles back on itself.
func overlapsCollinear(s, t segment) bool {
	if cross(s.a, s.b, t.a) != 0 || cross(s.a, s.b, t.b) != 0 {
		return false
	}
	var shared, far orb.Point
	switch {
	case s.b.Equal(t.a):
		shared, far = s.b, t.b
	case s.a.Equal(t.b):
		shared, far = s.a, t.a
	default:
		return false
	}
	other := s.a
	if shared.Equal(s.a) {
		other = s.b
	}
	// Same direction from the shared vertex means the edges overlap.
	return dot(other, shared, far) > 0
}

func segmentsIntersect(p1, p2, p3, p4 orb.Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(p3, p4, p1)) ||
		(d2 == 0 && onSegment(p3, p4, p2)) ||
		(d3 == 0 && onSegment(p1, p2, p3)) ||
		(d4 == 0 && onSegment(p1, p2, p4))
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func dot(a, origin, b orb.Point) float64 {
	return (a[0]-origin[0])*(b[0]-origin[0]) + (a[1]-origin[1])*(b[1]-origin[1])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

func minX(s segment) float64 { return min(s.a[0], s.b[0]) }
func maxX(s segment) float64 { return max(s.a[0], s.b[0]) }
