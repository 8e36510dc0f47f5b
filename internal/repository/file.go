package repository

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/borocut/internal/models"
	"github.com/paulmach/orb/geojson"
)

// FileStore writes a region as a GeoJSON FeatureCollection holding one feature.
type FileStore struct {
	path string
	log  *slog.Logger
}

// NewFileStore creates a FileStore writing to path.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Path returns the file the store writes to.
func (s *FileStore) Path() string {
	return s.path
}

// SaveRegion writes the region polygon with its name as the only property.
// Missing parent directories are created and an existing file is replaced.
func (s *FileStore) SaveRegion(ctx context.Context, region models.Region) error {
	if len(region.Polygon) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyRegion, region.Slug)
	}

	feature := geojson.NewFeature(region.Polygon)
	feature.Properties["name"] = region.Name

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)

	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode region %s: %w", region.Slug, err)
	}

	if err = os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".region-*.geojson")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write region: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write region: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move region into place: %w", err)
	}

	s.log.InfoContext(ctx, "Region written", "slug", region.Slug, "path", s.path, "bytes", len(data))
	return nil
}
