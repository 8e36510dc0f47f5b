// Package borough finds the borough boundary archive on disk, unpacks it and
// loads the requested borough geometry from the shapefile inside.
package borough

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrArchiveNotFound is returned when none of the candidate archive paths exists.
	ErrArchiveNotFound = errors.New("boundary archive not found")
	// ErrShapefileNotFound is returned when the extracted archive holds no .shp file.
	ErrShapefileNotFound = errors.New("no shapefile found")
	// ErrUnsafeArchive is returned for archive entries that would be written
	// outside the extraction directory.
	ErrUnsafeArchive = errors.New("archive entry escapes extraction directory")
)

// FindArchive returns the first candidate that exists as a regular file.
// Relative paths are resolved against the working directory and a leading
// "~" expands to the home directory.
func FindArchive(candidates []string) (string, error) {
	for _, c := range candidates {
		p, err := resolve(c)
		if err != nil {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrArchiveNotFound, strings.Join(candidates, ", "))
}

// Extract unpacks the archive into dir. If dir already exists nothing is
// done, so repeated runs reuse the first extraction.
func Extract(zipPath, dir string) (string, error) {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, nil
	}

	r, err := zip.OpenReader(zipPath)
	if errors.Is(err, zip.ErrInsecurePath) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, zipPath)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open archive %s: %w", zipPath, err)
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve extraction directory: %w", err)
	}

	for _, f := range r.File {
		if err := extractFile(f, root); err != nil {
			// A partial directory would be taken as a finished extraction.
			_ = os.RemoveAll(root)
			return "", err
		}
	}
	// Archives with only files and no directory entries still create dir.
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}
	return dir, nil
}

func extractFile(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafeArchive, f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s from archive: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	return dst.Close()
}

// FindShapefile walks dir and returns the first file with a .shp extension,
// compared case-insensitively.
func FindShapefile(dir string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.ToLower(filepath.Ext(path)) == ".shp" {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", dir, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w in %s", ErrShapefileNotFound, dir)
	}
	return found, nil
}

// Locate finds the archive, extracts it to dir and returns the shapefile path.
func Locate(candidates []string, dir string) (string, error) {
	zipPath, err := FindArchive(candidates)
	if err != nil {
		return "", err
	}
	if _, err := Extract(zipPath, dir); err != nil {
		return "", err
	}
	return FindShapefile(dir)
}

func resolve(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}
