// Package service runs the borough cut from input archive to stored region.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/UnknownOlympus/borocut/internal/borough"
	"github.com/UnknownOlympus/borocut/internal/geometry"
	"github.com/UnknownOlympus/borocut/internal/metrics"
	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/UnknownOlympus/borocut/internal/overpass"
	"github.com/UnknownOlympus/borocut/internal/repository"
	"github.com/paulmach/orb"
)

// LineSource provides the reference street line for a place.
type LineSource interface {
	CenterLine(ctx context.Context, query string) (*overpass.CenterLine, error)
}

// Landmark is a named point the result is expected to contain.
type Landmark struct {
	Name  string
	Point orb.Point
}

// Options describe one run.
type Options struct {
	ZipCandidates []string              // Archive paths tried in order
	ExtractDir    string                // Where the archive is unpacked
	Load          borough.LoadOptions   // Borough selection and fallback CRS
	Place         string                // Geocoding query the street is searched in
	Split         geometry.SplitOptions // Cut parameters
	Slug          string
	Name          string
	Landmark      *Landmark // Optional containment check, warning only
}

// Pipeline is the sequence locate, load, centerline, split, save. Each stage
// either succeeds or stops the run; stores are only written after the region
// has been computed.
type Pipeline struct {
	log     *slog.Logger
	lines   LineSource
	stores  []repository.Store
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// NewPipeline creates a Pipeline writing to the given stores in order.
func NewPipeline(
	log *slog.Logger,
	lines LineSource,
	stores []repository.Store,
	metrics *metrics.Metrics,
	opts Options,
) *Pipeline {
	if opts.Load.Logger == nil {
		opts.Load.Logger = log
	}
	if opts.Split.Logger == nil {
		opts.Split.Logger = log
	}
	return &Pipeline{
		log:     log,
		lines:   lines,
		stores:  stores,
		metrics: metrics,
		opts:    opts,
		now:     time.Now,
	}
}

// Run executes every stage and returns the stored region.
func (p *Pipeline) Run(ctx context.Context) (*models.Region, error) {
	region, err := p.run(ctx)
	if err != nil {
		p.metrics.Runs.WithLabelValues("failure").Inc()
		return nil, err
	}
	p.metrics.Runs.WithLabelValues("success").Inc()
	return region, nil
}

func (p *Pipeline) run(ctx context.Context) (*models.Region, error) {
	var (
		shpPath string
		shape   orb.MultiPolygon
		line    *overpass.CenterLine
		south   orb.Polygon
	)

	err := p.stage(ctx, "locate", func(context.Context) error {
		var err error
		shpPath, err = borough.Locate(p.opts.ZipCandidates, p.opts.ExtractDir)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "load", func(context.Context) error {
		var err error
		shape, err = borough.Load(shpPath, p.opts.Load)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "centerline", func(ctx context.Context) error {
		var err error
		line, err = p.lines.CenterLine(ctx, p.opts.Place)
		if err != nil {
			return err
		}
		p.metrics.FeaturesFetched.Add(float64(line.Features))
		p.metrics.LinesMatched.Add(float64(line.Matched))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, "split", func(ctx context.Context) error {
		var err error
		south, err = geometry.SouthOf(ctx, shape, line.Line, p.opts.Split)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.metrics.ResultVertices.Set(float64(len(south[0])))
	if lm := p.opts.Landmark; lm != nil && !geometry.ContainsLandmark(south, lm.Point) {
		p.log.WarnContext(ctx, "Result does not contain the landmark",
			"landmark", lm.Name,
			"lon", lm.Point[0],
			"lat", lm.Point[1],
		)
	}

	region := &models.Region{
		Slug:      p.opts.Slug,
		Name:      p.opts.Name,
		Polygon:   south,
		Source:    filepath.Base(shpPath),
		CreatedAt: p.now().UTC(),
	}

	err = p.stage(ctx, "save", func(ctx context.Context) error {
		for _, s := range p.stores {
			if err := s.SaveRegion(ctx, *region); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return region, nil
}

// stage runs fn unless ctx is already done and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.metrics.StageSeconds.WithLabelValues(name).Observe(elapsed.Seconds())

	if err != nil {
		p.log.ErrorContext(ctx, "Stage failed", "stage", name, "duration", elapsed, "error", err)
		return fmt.Errorf("%s: %w", name, err)
	}
	p.log.InfoContext(ctx, "Stage finished", "stage", name, "duration", elapsed)
	return nil
}
