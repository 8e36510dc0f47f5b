package borough

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/borocut/internal/crs"
	"github.com/UnknownOlympus/borocut/internal/geometry"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

var (
	// ErrNameColumnMissing is returned when the attribute table has none of
	// the expected borough-name columns.
	ErrNameColumnMissing = errors.New("borough name column not found")
	// ErrBoroughNotFound is returned when no record matches the borough name.
	ErrBoroughNotFound = errors.New("borough not found in shapefile")
)

// LoadOptions control which records Load keeps and how they are projected.
type LoadOptions struct {
	NameColumns []string // Candidate attribute columns, first present wins
	Match       string   // Case-insensitive substring of the borough name
	DefaultCRS  crs.CRS  // Used when the shapefile has no .prj sidecar
	Logger      *slog.Logger
}

// DefaultNameColumns are the borough-name attributes of the NYC borough
// boundary datasets.
var DefaultNameColumns = []string{"BoroName", "Borough"}

func (o LoadOptions) withDefaults() LoadOptions {
	if len(o.NameColumns) == 0 {
		o.NameColumns = DefaultNameColumns
	}
	if o.Match == "" {
		o.Match = "Manhattan"
	}
	if o.DefaultCRS.Code == 0 {
		o.DefaultCRS = crs.NYLongIslandFeet
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Load reads the shapefile, keeps the records whose name matches, converts
// them to lon/lat and returns their union as a valid multipolygon.
func Load(shpPath string, opts LoadOptions) (orb.MultiPolygon, error) {
	opts = opts.withDefaults()

	source, found, err := crs.ReadPRJ(shpPath)
	if err != nil {
		return nil, err
	}
	if !found {
		opts.Logger.Warn("No projection file next to shapefile, assuming default", "crs", opts.DefaultCRS.String())
		source = opts.DefaultCRS
	}

	r, err := shp.Open(shpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", shpPath, err)
	}
	defer r.Close()

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimSpace(f.String())
	}

	col := nameColumn(names, opts.NameColumns)
	if col < 0 {
		return nil, fmt.Errorf("%w: available columns %v", ErrNameColumnMissing, names)
	}

	needle := strings.ToLower(opts.Match)
	var parts []orb.MultiPolygon
	for r.Next() {
		n, shape := r.Shape()
		name := strings.TrimSpace(r.ReadAttribute(n, col))
		if !strings.Contains(strings.ToLower(name), needle) {
			continue
		}

		rings := shapeRings(shape)
		if len(rings) == 0 {
			opts.Logger.Warn("Skipping record without polygon geometry", "record", n, "name", name)
			continue
		}

		mp := geometry.FromRings(rings)
		projected, _ := crs.Transform(mp, source, crs.WGS84).(orb.MultiPolygon)
		parts = append(parts, projected)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", shpPath, err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %q in column %s", ErrBoroughNotFound, opts.Match, names[col])
	}

	borough := geometry.Union(parts...)
	if !geometry.Valid(borough) {
		opts.Logger.Info("Borough geometry is invalid, repairing")
		borough = geometry.Repair(borough)
	}
	if len(borough) == 0 {
		return nil, fmt.Errorf("%w: %q has no area", ErrBoroughNotFound, opts.Match)
	}

	opts.Logger.Info("Borough loaded",
		"records", len(parts),
		"polygons", len(borough),
		"source_crs", source.String(),
	)
	return borough, nil
}

func nameColumn(fields, candidates []string) int {
	for _, c := range candidates {
		for i, f := range fields {
			if f == c {
				return i
			}
		}
	}
	return -1
}

// shapeRings returns the part rings of polygon shapes. Other shape types
// yield nothing.
func shapeRings(s shp.Shape) []orb.Ring {
	var parts []int32
	var points []shp.Point

	switch p := s.(type) {
	case *shp.Polygon:
		parts, points = p.Parts, p.Points
	case *shp.PolygonZ:
		parts, points = p.Parts, p.Points
	case *shp.PolygonM:
		parts, points = p.Parts, p.Points
	default:
		return nil
	}

	rings := make([]orb.Ring, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start >= end || end > int32(len(points)) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}
