package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const migrateQuery = `
	CREATE EXTENSION IF NOT EXISTS postgis;
	CREATE TABLE IF NOT EXISTS regions (
		slug       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		source     TEXT NOT NULL DEFAULT '',
		geom       geometry(Polygon, 4326) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
`

const saveRegionQuery = `
	INSERT INTO regions (slug, name, source, geom, created_at)
	VALUES ($1, $2, $3, ST_SetSRID(ST_GeomFromGeoJSON($4), 4326), $5)
	ON CONFLICT (slug) DO UPDATE SET
		name = EXCLUDED.name,
		source = EXCLUDED.source,
		geom = EXCLUDED.geom,
		created_at = EXCLUDED.created_at;
`

const loadRegionQuery = `
	SELECT slug, name, source, ST_AsGeoJSON(geom), created_at
	FROM regions
	WHERE slug = $1;
`

// PostgresStore keeps regions in a PostGIS table keyed by slug.
type PostgresStore struct {
	db  Database
	log *slog.Logger
}

// NewPostgresStore creates a PostgresStore on top of the database.
func NewPostgresStore(db Database, log *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, log: log}
}

// Migrate enables PostGIS and creates the regions table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, migrateQuery); err != nil {
		return fmt.Errorf("failed to migrate regions table: %w", err)
	}
	return nil
}

// SaveRegion inserts the region or replaces the one stored under its slug.
// A stored region with the same name, source and outline is left untouched.
func (s *PostgresStore) SaveRegion(ctx context.Context, region models.Region) error {
	if len(region.Polygon) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyRegion, region.Slug)
	}

	stored, err := s.LoadRegion(ctx, region.Slug)
	switch {
	case errors.Is(err, ErrRegionNotFound):
	case err != nil:
		return fmt.Errorf("failed to look up region %s: %w", region.Slug, err)
	case sameRegion(*stored, region):
		s.log.InfoContext(ctx, "Region unchanged, skipping write",
			"slug", region.Slug,
			"stored_at", stored.CreatedAt,
		)
		return nil
	}

	geom, err := geojson.NewGeometry(region.Polygon).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode region geometry: %w", err)
	}

	_, err = s.db.Exec(ctx, saveRegionQuery, region.Slug, region.Name, region.Source, string(geom), region.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save region %s: %w", region.Slug, err)
	}

	s.log.InfoContext(ctx, "Region stored in database", "slug", region.Slug)
	return nil
}

// LoadRegion returns the region stored under the slug.
func (s *PostgresStore) LoadRegion(ctx context.Context, slug string) (*models.Region, error) {
	var (
		region models.Region
		geom   string
	)

	err := s.db.QueryRow(ctx, loadRegionQuery, slug).
		Scan(&region.Slug, &region.Name, &region.Source, &geom, &region.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load region %s: %w", slug, err)
	}

	g, err := geojson.UnmarshalGeometry([]byte(geom))
	if err != nil {
		return nil, fmt.Errorf("failed to decode region geometry: %w", err)
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("region %s: unexpected geometry %s", slug, g.Geometry().GeoJSONType())
	}
	region.Polygon = poly

	return &region, nil
}

// coordTolerance absorbs the rounding of ST_AsGeoJSON, which keeps nine digits.
const coordTolerance = 1e-8

func sameRegion(a, b models.Region) bool {
	if a.Name != b.Name || a.Source != b.Source || len(a.Polygon) != len(b.Polygon) {
		return false
	}
	for i := range a.Polygon {
		if len(a.Polygon[i]) != len(b.Polygon[i]) {
			return false
		}
		for j, p := range a.Polygon[i] {
			q := b.Polygon[i][j]
			if math.Abs(p[0]-q[0]) > coordTolerance || math.Abs(p[1]-q[1]) > coordTolerance {
				return false
			}
		}
	}
	return true
}
