package repository_test

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/borocut/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func geometryJSON(t *testing.T) string {
	t.Helper()
	data, err := geojson.NewGeometry(lowerManhattan).MarshalJSON()
	require.NoError(t, err)
	return string(data)
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	logger := slog.Default()

	t.Run("error - exec", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS postgis").WillReturnError(assert.AnError)

		err = store.Migrate(t.Context())

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to migrate regions table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS regions").WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, store.Migrate(t.Context()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_SaveRegion(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	columns := []string{"slug", "name", "source", "st_asgeojson", "created_at"}
	r := region()

	t.Run("error - exec", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs(r.Slug).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectExec(regexp.QuoteMeta(saveRegionQuery)).
			WithArgs(r.Slug, r.Name, r.Source, geometryJSON(t), r.CreatedAt).
			WillReturnError(assert.AnError)

		err = store.SaveRegion(t.Context(), r)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to save region manhattan-south125")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - lookup", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs(r.Slug).
			WillReturnError(assert.AnError)

		err = store.SaveRegion(t.Context(), r)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to look up region manhattan-south125")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - empty polygon", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)
		empty := region()
		empty.Polygon = nil

		err = store.SaveRegion(t.Context(), empty)

		require.ErrorIs(t, err, repository.ErrEmptyRegion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - insert", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs(r.Slug).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectExec(regexp.QuoteMeta(saveRegionQuery)).
			WithArgs(r.Slug, r.Name, r.Source, geometryJSON(t), r.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.SaveRegion(t.Context(), r))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - changed region is updated", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)
		earlier := r.CreatedAt.Add(-24 * time.Hour)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs(r.Slug).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(r.Slug, "old name", r.Source, geometryJSON(t), earlier))
		mock.ExpectExec(regexp.QuoteMeta(saveRegionQuery)).
			WithArgs(r.Slug, r.Name, r.Source, geometryJSON(t), r.CreatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, store.SaveRegion(t.Context(), r))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - unchanged region skips the write", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		var buf bytes.Buffer
		store := repository.NewPostgresStore(mock, slog.New(slog.NewTextHandler(&buf, nil)))
		earlier := r.CreatedAt.Add(-24 * time.Hour)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs(r.Slug).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(r.Slug, r.Name, r.Source, geometryJSON(t), earlier))

		require.NoError(t, store.SaveRegion(t.Context(), r))
		assert.NoError(t, mock.ExpectationsWereMet(), "no upsert is expected")
		assert.Contains(t, buf.String(), "Region unchanged")
	})
}

func TestPostgresStore_LoadRegion(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	columns := []string{"slug", "name", "source", "st_asgeojson", "created_at"}
	created := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("error - not found", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		got, err := store.LoadRegion(t.Context(), "missing")

		require.Nil(t, got)
		require.ErrorIs(t, err, repository.ErrRegionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - query", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs("manhattan-south125").
			WillReturnError(assert.AnError)

		_, err = store.LoadRegion(t.Context(), "manhattan-south125")

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to load region")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - not a polygon", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs("point").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("point", "A point", "", `{"type":"Point","coordinates":[-73.98,40.75]}`, created))

		_, err = store.LoadRegion(t.Context(), "point")

		require.ErrorContains(t, err, "unexpected geometry Point")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := repository.NewPostgresStore(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(loadRegionQuery)).
			WithArgs("manhattan-south125").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("manhattan-south125", "Manhattan south of 125th (cut via bbox)", "nybb_25b.zip", geometryJSON(t), created))

		got, err := store.LoadRegion(t.Context(), "manhattan-south125")

		require.NoError(t, err)
		assert.Equal(t, "manhattan-south125", got.Slug)
		assert.Equal(t, "nybb_25b.zip", got.Source)
		assert.Equal(t, lowerManhattan, got.Polygon)
		assert.Equal(t, created, got.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
