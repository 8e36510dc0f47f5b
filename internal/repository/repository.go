// Package repository persists computed regions, as a GeoJSON file for the
// web client and optionally in a PostGIS table.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrEmptyRegion is returned when a region without a polygon is saved.
	ErrEmptyRegion = errors.New("region has no polygon")
	// ErrRegionNotFound is returned when no region is stored under a slug.
	ErrRegionNotFound = errors.New("region not found")
)

// Store is a sink for computed regions.
type Store interface {
	SaveRegion(ctx context.Context, region models.Region) error
}

// Database is the subset of pgxpool.Pool used by PostgresStore.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewDatabase opens a connection pool for the DSN and pings the server.
func NewDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
