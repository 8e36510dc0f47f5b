package geometry

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// LineMerge sews line strings that share end points into the longest
// possible paths. Lines are joined only through nodes of degree two; nodes
// where three or more lines meet end a path. The result is sorted by
// geodesic length, longest first.
func LineMerge(lines []orb.LineString) []orb.LineString {
	type edge struct {
		line orb.LineString
		used bool
	}

	edges := make([]*edge, 0, len(lines))
	nodes := make(map[orb.Point][]int)
	for _, l := range lines {
		l = dedupe(l)
		if len(l) < 2 {
			continue
		}
		i := len(edges)
		edges = append(edges, &edge{line: l})
		nodes[l[0]] = append(nodes[l[0]], i)
		nodes[l[len(l)-1]] = append(nodes[l[len(l)-1]], i)
	}

	walk := func(start orb.Point, first int) orb.LineString {
		path := orb.LineString{start}
		cur, ei := start, first
		for {
			e := edges[ei]
			e.used = true
			seg := e.line
			if !seg[0].Equal(cur) {
				seg = reversed(seg)
			}
			path = append(path, seg[1:]...)
			cur = seg[len(seg)-1]

			next := -1
			if adj := nodes[cur]; len(adj) == 2 {
				for _, j := range adj {
					if !edges[j].used {
						next = j
					}
				}
			}
			if next < 0 {
				return path
			}
			ei = next
		}
	}

	// Deterministic start order: sort node keys.
	keys := make([]orb.Point, 0, len(nodes))
	for p := range nodes {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	var out []orb.LineString
	for _, p := range keys {
		if len(nodes[p]) == 2 {
			continue
		}
		for _, ei := range nodes[p] {
			if !edges[ei].used {
				out = append(out, walk(p, ei))
			}
		}
	}
	// Whatever is left forms closed loops.
	for i, e := range edges {
		if !e.used {
			out = append(out, walk(e.line[0], i))
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return geo.Length(out[i]) > geo.Length(out[j]) })
	return out
}

func dedupe(l orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(l))
	for _, p := range l {
		if len(out) > 0 && out[len(out)-1].Equal(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func reversed(l orb.LineString) orb.LineString {
	out := l.Clone()
	out.Reverse()
	return out
}
