package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/borocut/internal/borough"
	"github.com/UnknownOlympus/borocut/internal/config"
	"github.com/UnknownOlympus/borocut/internal/crs"
	"github.com/UnknownOlympus/borocut/internal/geocoding"
	"github.com/UnknownOlympus/borocut/internal/geometry"
	"github.com/UnknownOlympus/borocut/internal/metrics"
	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/UnknownOlympus/borocut/internal/overpass"
	"github.com/UnknownOlympus/borocut/internal/repository"
	"github.com/UnknownOlympus/borocut/internal/service"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

func main() {
	// Cancelled on Ctrl+C so in-flight HTTP and database calls stop.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg := config.MustLoad()
	logger := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	region, err := run(ctx, cfg, logger, appMetrics)

	if cfg.Metrics.PushgatewayURL != "" {
		if errPush := metrics.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, reg); errPush != nil {
			logger.WarnContext(ctx, "Metrics were not pushed", "error", errPush)
		}
	}
	stop()

	if err != nil {
		logger.ErrorContext(ctx, "Run failed", "error", err)
		fmt.Fprintf(os.Stderr, "borocut: %v\n", err)
		os.Exit(1)
	}

	south, north := region.LatitudeRange()
	logger.InfoContext(ctx, "Region written", "path", cfg.Output.Path, "min_lat", south, "max_lat", north)
	fmt.Printf("Wrote %s (lat %.5f..%.5f)\n", cfg.Output.Path, south, north)
}

// run wires the pipeline from the configuration and executes it once.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, appMetrics *metrics.Metrics) (*models.Region, error) {
	defaultCRS, err := crs.Lookup(cfg.Input.DefaultEPSG)
	if err != nil {
		return nil, fmt.Errorf("input.default_epsg: %w", err)
	}
	workCRS, err := crs.Lookup(cfg.Split.WorkEPSG)
	if err != nil {
		return nil, fmt.Errorf("split.work_epsg: %w", err)
	}

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Geocoder.Provider),
		APIKey:    cfg.Geocoder.APIKey,
		RateLimit: cfg.Geocoder.RateLimit,
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}
	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Geocoder.Provider)

	userAgent := cfg.Overpass.UserAgent
	if userAgent == "" {
		userAgent = geocoding.DefaultUserAgent
	}
	osmClient := overpass.NewClient(cfg.Overpass.URL, userAgent, cfg.Overpass.Timeout, logger)
	fetcher := overpass.NewFetcher(geoProvider, osmClient, overpass.FetchOptions{
		Tag:         cfg.Overpass.Tag,
		NameColumns: cfg.Overpass.NameColumns,
		Needles:     cfg.Overpass.Needles,
	}, logger)

	stores := []repository.Store{repository.NewFileStore(cfg.Output.Path, logger)}
	if cfg.Postgres.Enabled {
		dtb, err := repository.NewDatabase(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer dtb.Close()

		pgStore := repository.NewPostgresStore(dtb, logger)
		if err = pgStore.Migrate(ctx); err != nil {
			return nil, err
		}
		stores = append(stores, pgStore)
	}

	opts := service.Options{
		ZipCandidates: cfg.Input.ZipCandidates,
		ExtractDir:    cfg.Input.ExtractDir,
		Load: borough.LoadOptions{
			NameColumns: cfg.Input.NameColumns,
			Match:       cfg.Input.Match,
			DefaultCRS:  defaultCRS,
		},
		Place: cfg.Place,
		Split: geometry.SplitOptions{
			Work:            workCRS,
			CutBufferMeters: cfg.Split.CutBufferMeters,
			SimplifyMeters:  cfg.Split.SimplifyMeters,
			PadRatio:        cfg.Split.PadRatio,
		},
		Slug: cfg.Output.Slug,
		Name: cfg.Output.Name,
	}
	if cfg.Landmark.Name != "" {
		opts.Landmark = &service.Landmark{Name: cfg.Landmark.Name, Point: orb.Point{cfg.Landmark.Lon, cfg.Landmark.Lat}}
	}

	return service.NewPipeline(logger, fetcher, stores, appMetrics, opts).Run(ctx)
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
