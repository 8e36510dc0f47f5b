package geometry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/UnknownOlympus/borocut/internal/crs"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrLineOutsideBox is returned when the reference line does not reach
	// the padded bounding box of the borough.
	ErrLineOutsideBox = errors.New("reference line does not intersect the borough bounding box")
	// ErrSplitFailed is returned when neither the cut band nor the raw line
	// divides the bounding box into at least two pieces.
	ErrSplitFailed = errors.New("split produced fewer than two pieces")
	// ErrEmptyResult is returned when the selected piece does not overlap
	// the borough.
	ErrEmptyResult = errors.New("result polygon is empty")
)

// Default split parameters.
const (
	DefaultCutBufferMeters = 8.0
	DefaultSimplifyMeters  = 6.0
	DefaultPadRatio        = 0.2
)

// SplitOptions tune SouthOf. Zero values select the defaults, except for
// SimplifyMeters where zero disables simplification.
type SplitOptions struct {
	Work            crs.CRS // planar system the cut is computed in
	CutBufferMeters float64
	SimplifyMeters  float64
	PadRatio        float64
	Logger          *slog.Logger
}

func (o SplitOptions) withDefaults() SplitOptions {
	if o.Work.Code == 0 || o.Work.Geographic() {
		o.Work = crs.NYLongIslandFeet
	}
	if o.CutBufferMeters <= 0 {
		o.CutBufferMeters = DefaultCutBufferMeters
	}
	if o.PadRatio <= 0 {
		o.PadRatio = DefaultPadRatio
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// SouthOf returns the part of the borough that lies south of the line. Both
// inputs and the result are in lon/lat. The result is a single polygon
// without holes.
func SouthOf(ctx context.Context, borough orb.MultiPolygon, line orb.LineString, opts SplitOptions) (orb.Polygon, error) {
	opts = opts.withDefaults()
	work := opts.Work
	log := opts.Logger

	if len(borough) == 0 {
		return nil, fmt.Errorf("borough: %w", ErrEmptyResult)
	}
	if len(line) < 2 {
		return nil, fmt.Errorf("line with %d points: %w", len(line), ErrLineOutsideBox)
	}

	mp, _ := crs.Transform(borough, crs.WGS84, work).(orb.MultiPolygon)
	ls, _ := crs.Transform(line, crs.WGS84, work).(orb.LineString)

	bound := mp.Bound()
	pad := opts.PadRatio * math.Max(bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1])
	box := bound.Pad(pad)

	if len(clip.LineString(box, ls.Clone())) == 0 {
		return nil, ErrLineOutsideBox
	}

	width := work.MetersToUnits(opts.CutBufferMeters)
	extended := extendAcross(ls, box, math.Max(pad/10, 4*width))
	band := Buffer(extended, width)

	log.DebugContext(ctx, "Splitting bounding box",
		"crs", work.String(),
		"band_width", width,
		"line_points", len(extended),
	)

	pieces, err := splitBox(ctx, log, box, extended, band)
	if err != nil {
		return nil, err
	}

	if open := dropEnclosed(box, pieces); len(open) < len(pieces) {
		log.DebugContext(ctx, "Dropped enclosed pieces", "dropped", len(pieces)-len(open))
		pieces = open
	}

	south := pickSouth(pieces, line, work)

	cut := Intersection(orb.MultiPolygon{south}, mp)
	if !Valid(cut) {
		cut = Repair(cut)
	}
	if len(cut) == 0 {
		return nil, ErrEmptyResult
	}

	if opts.SimplifyMeters > 0 {
		cut = Simplify(cut, work.MetersToUnits(opts.SimplifyMeters))
	}

	largest := LargestPart(cut)
	if largest == nil {
		return nil, ErrEmptyResult
	}

	out, _ := crs.Transform(orb.Polygon{largest[0]}, work, crs.WGS84).(orb.Polygon)
	out[0] = orient(out[0], orb.CCW)

	log.DebugContext(ctx, "South polygon ready",
		"pieces", len(pieces),
		"parts", len(cut),
		"vertices", len(out[0]),
	)
	return out, nil
}

// pickSouth keeps the pieces whose centroid is south of the line centroid,
// falling back to all pieces, and returns the one whose northern edge is
// lowest.
func pickSouth(pieces []orb.Polygon, line orb.LineString, work crs.CRS) orb.Polygon {
	lineCentroid, _ := planar.CentroidArea(line)
	inv := work.Inverse()

	var candidates []orb.Polygon
	for _, p := range pieces {
		c, _ := planar.CentroidArea(p)
		if inv(c)[1] < lineCentroid[1] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = pieces
	}

	best := candidates[0]
	bestMax := math.Inf(1)
	for _, p := range candidates {
		geoP, _ := crs.Transform(p, work, crs.WGS84).(orb.Polygon)
		if m := geoP.Bound().Max[1]; m < bestMax {
			best, bestMax = p, m
		}
	}
	return best
}

// LargestPart returns the polygon with the largest planar area.
func LargestPart(mp orb.MultiPolygon) orb.Polygon {
	var best orb.Polygon
	bestArea := -1.0
	for _, p := range mp {
		if a := math.Abs(planar.Area(p)); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}
