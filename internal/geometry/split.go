package geometry

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
)

// extendAcross prolongs both ends of a planar line horizontally until they
// lie margin units outside the bound.
func extendAcross(line orb.LineString, b orb.Bound, margin float64) orb.LineString {
	first, last := line[0], line[len(line)-1]

	westX := math.Min(math.Min(first[0], last[0]), b.Min[0]) - margin
	eastX := math.Max(math.Max(first[0], last[0]), b.Max[0]) + margin

	out := make(orb.LineString, 0, len(line)+2)
	if first[0] <= last[0] {
		out = append(out, orb.Point{westX, first[1]})
		out = append(out, line...)
		out = append(out, orb.Point{eastX, last[1]})
	} else {
		out = append(out, orb.Point{eastX, first[1]})
		out = append(out, line...)
		out = append(out, orb.Point{westX, last[1]})
	}
	return out
}

// splitByBand removes the band from the box and returns the pieces left.
func splitByBand(b orb.Bound, band orb.MultiPolygon) []orb.Polygon {
	return Difference(orb.MultiPolygon{b.ToPolygon()}, band)
}

// splitByLine cuts the box along the line. It succeeds only when the line
// crosses the box once, entering and leaving through the boundary.
func splitByLine(b orb.Bound, line orb.LineString) []orb.Polygon {
	clipped := clip.LineString(b, line.Clone())
	if len(clipped) != 1 || len(clipped[0]) < 2 {
		return nil
	}
	cut := clipped[0]

	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	eps := 1e-9 * (w + h)
	start, end := cut[0], cut[len(cut)-1]
	if !onBoundary(b, start, eps) || !onBoundary(b, end, eps) {
		return nil
	}

	ts, te := perimeterParam(b, start), perimeterParam(b, end)

	// One side: the cut forwards, then the boundary counter-clockwise from
	// the end back to the start. Other side: the cut backwards, then the
	// boundary from the start to the end.
	left := append(cut.Clone(), cornersBetween(b, te, ts)...)
	left = append(left, start)
	right := append(reversed(cut), cornersBetween(b, ts, te)...)
	right = append(right, end)

	var out []orb.Polygon
	for _, r := range []orb.Ring{orb.Ring(left), orb.Ring(right)} {
		out = append(out, FromRings([]orb.Ring{r})...)
	}
	return out
}

// splitBox runs the two-attempt split: the band difference first and, when
// that leaves fewer than two pieces, the raw line.
func splitBox(ctx context.Context, log *slog.Logger, b orb.Bound, line orb.LineString, band orb.MultiPolygon) ([]orb.Polygon, error) {
	pieces := splitByBand(b, band)
	if len(pieces) >= 2 {
		return pieces, nil
	}

	log.WarnContext(ctx, "Cut band did not split the box, retrying with the raw line", "pieces", len(pieces))

	pieces = splitByLine(b, line)
	if len(pieces) >= 2 {
		return pieces, nil
	}
	return nil, ErrSplitFailed
}

// dropEnclosed removes pieces that do not reach the box boundary. A line
// that hooks back across its own extension leaves such pockets inside the
// band. The input is returned unchanged when fewer than two pieces would
// remain.
func dropEnclosed(b orb.Bound, pieces []orb.Polygon) []orb.Polygon {
	eps := 1e-9 * (b.Max[0] - b.Min[0] + b.Max[1] - b.Min[1])

	var out []orb.Polygon
	for _, p := range pieces {
		if len(p) == 0 {
			continue
		}
		for _, pt := range p[0] {
			if onBoundary(b, pt, eps) {
				out = append(out, p)
				break
			}
		}
	}
	if len(out) < 2 {
		return pieces
	}
	return out
}

func onBoundary(b orb.Bound, p orb.Point, eps float64) bool {
	if p[0] < b.Min[0]-eps || p[0] > b.Max[0]+eps || p[1] < b.Min[1]-eps || p[1] > b.Max[1]+eps {
		return false
	}
	return math.Abs(p[0]-b.Min[0]) <= eps || math.Abs(p[0]-b.Max[0]) <= eps ||
		math.Abs(p[1]-b.Min[1]) <= eps || math.Abs(p[1]-b.Max[1]) <= eps
}

// perimeterParam maps a boundary point to its distance along the box
// perimeter, walking counter-clockwise from the south-west corner.
func perimeterParam(b orb.Bound, p orb.Point) float64 {
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]

	d := []float64{
		math.Abs(p[1] - b.Min[1]), // south
		math.Abs(p[0] - b.Max[0]), // east
		math.Abs(p[1] - b.Max[1]), // north
		math.Abs(p[0] - b.Min[0]), // west
	}
	side := 0
	for i := 1; i < 4; i++ {
		if d[i] < d[side] {
			side = i
		}
	}

	switch side {
	case 0:
		return p[0] - b.Min[0]
	case 1:
		return w + (p[1] - b.Min[1])
	case 2:
		return w + h + (b.Max[0] - p[0])
	default:
		return 2*w + h + (b.Max[1] - p[1])
	}
}

// cornersBetween lists the box corners met walking counter-clockwise from
// perimeter position from to position to.
func cornersBetween(b orb.Bound, from, to float64) []orb.Point {
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	perimeter := 2 * (w + h)

	corners := []struct {
		t float64
		p orb.Point
	}{
		{0, b.Min},
		{w, orb.Point{b.Max[0], b.Min[1]}},
		{w + h, b.Max},
		{2*w + h, orb.Point{b.Min[0], b.Max[1]}},
	}

	mod := func(x float64) float64 {
		x = math.Mod(x, perimeter)
		if x < 0 {
			x += perimeter
		}
		return x
	}

	span := mod(to - from)
	type hit struct {
		d float64
		p orb.Point
	}
	var hits []hit
	for _, c := range corners {
		d := mod(c.t - from)
		if d > 0 && d < span {
			hits = append(hits, hit{d, c.p})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	out := make([]orb.Point, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out
}
