package overpass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UnknownOlympus/borocut/internal/geocoding"
	"github.com/UnknownOlympus/borocut/internal/geometry"
	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrNoLines is returned when the place has no line features for the tag.
	ErrNoLines = errors.New("no line geometries returned from OSM")
	// ErrNoNameColumns is returned when no fetched feature has any of the name attributes.
	ErrNoNameColumns = errors.New("OSM data missing name columns")
	// ErrNoMatches is returned when no line feature name matches.
	ErrNoMatches = errors.New("no OSM lines match the street name")
)

// Default name filter for 125th Street, also signed as Martin Luther King Jr Blvd.
var (
	DefaultNameColumns = []string{"name", "alt_name", "official_name"}
	DefaultNeedles     = []string{"125th", "martin luther king"}
)

// FetchOptions select which features become the reference line.
type FetchOptions struct {
	Tag         string   // OSM tag the ways must carry, "highway" by default
	NameColumns []string // Properties searched for the street name
	Needles     []string // Case-insensitive substrings of the street name
}

// CenterLine is the merged reference line and how it was obtained.
type CenterLine struct {
	Line     orb.LineString // Longest merged path, lon/lat
	Place    *models.Place  // Place the features were fetched for
	Features int            // Features returned by the source
	Lines    int            // Line features among them
	Matched  int            // Line features whose name matched
	Parts    int            // Connected paths after merging
	LengthM  float64        // Geodesic length of Line in metres
}

// Fetcher resolves a place and derives the street centerline inside it.
type Fetcher struct {
	geocoder geocoding.Provider
	source   FeatureSource
	opts     FetchOptions
	log      *slog.Logger
}

// NewFetcher creates a Fetcher. Empty options select the 125th Street filter.
func NewFetcher(geocoder geocoding.Provider, source FeatureSource, opts FetchOptions, log *slog.Logger) *Fetcher {
	if opts.Tag == "" {
		opts.Tag = "highway"
	}
	if len(opts.NameColumns) == 0 {
		opts.NameColumns = DefaultNameColumns
	}
	if len(opts.Needles) == 0 {
		opts.Needles = DefaultNeedles
	}
	return &Fetcher{geocoder: geocoder, source: source, opts: opts, log: log}
}

// CenterLine resolves the place, fetches its tagged ways, keeps the lines
// whose name matches and returns the longest connected path.
func (f *Fetcher) CenterLine(ctx context.Context, query string) (*CenterLine, error) {
	place, err := f.geocoder.Resolve(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", query, err)
	}

	f.log.InfoContext(ctx, "Place resolved",
		"query", query,
		"name", place.DisplayName,
		"osm_type", place.OSMType,
		"osm_id", place.OSMID,
	)

	fc, err := f.source.Features(ctx, place, f.opts.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OSM features: %w", err)
	}

	columns := presentColumns(fc.Features, f.opts.NameColumns)
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: looked for %s", ErrNoNameColumns, strings.Join(f.opts.NameColumns, ", "))
	}

	var lineFeatures []*geojson.Feature
	for _, feat := range fc.Features {
		switch feat.Geometry.(type) {
		case orb.LineString, orb.MultiLineString:
			lineFeatures = append(lineFeatures, feat)
		}
	}
	if len(lineFeatures) == 0 {
		return nil, fmt.Errorf("%w: %d features for %s", ErrNoLines, len(fc.Features), f.opts.Tag)
	}

	var lines []orb.LineString
	matched := 0
	for _, feat := range lineFeatures {
		if !MatchesName(feat.Properties, columns, f.opts.Needles) {
			continue
		}
		matched++
		switch g := feat.Geometry.(type) {
		case orb.LineString:
			lines = append(lines, g)
		case orb.MultiLineString:
			lines = append(lines, g...)
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatches, strings.Join(f.opts.Needles, ", "))
	}

	merged := geometry.LineMerge(lines)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: matched lines are degenerate", ErrNoMatches)
	}

	cl := &CenterLine{
		Line:     merged[0],
		Place:    place,
		Features: len(fc.Features),
		Lines:    len(lineFeatures),
		Matched:  matched,
		Parts:    len(merged),
		LengthM:  geo.Length(merged[0]),
	}

	f.log.InfoContext(ctx, "Reference line ready",
		"matched", cl.Matched,
		"parts", cl.Parts,
		"points", len(cl.Line),
		"length_m", int(cl.LengthM),
	)
	return cl, nil
}

// MatchesName reports whether any of the columns holds a string containing
// one of the needles, compared case-insensitively. Missing and non-string
// values are skipped.
func MatchesName(props geojson.Properties, columns, needles []string) bool {
	for _, c := range columns {
		v, ok := props[c].(string)
		if !ok {
			continue
		}
		v = strings.ToLower(v)
		for _, n := range needles {
			if strings.Contains(v, strings.ToLower(n)) {
				return true
			}
		}
	}
	return false
}

func presentColumns(features []*geojson.Feature, columns []string) []string {
	var out []string
	for _, c := range columns {
		for _, f := range features {
			if _, ok := f.Properties[c]; ok {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
