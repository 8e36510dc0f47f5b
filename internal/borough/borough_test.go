package borough_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/borocut/internal/borough"
	"github.com/UnknownOlympus/borocut/internal/crs"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geographicPRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],` +
	`PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

type record struct {
	name  string
	rings [][]shp.Point
}

// clockwise square, the shapefile convention for outer rings.
func cwSquare(x0, y0, x1, y1 float64) []shp.Point {
	return []shp.Point{{X: x0, Y: y0}, {X: x0, Y: y1}, {X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}}
}

func writeShapefile(t *testing.T, path, column, prj string, records []record) {
	t.Helper()

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(column, 32)}))

	for _, rec := range records {
		poly := shp.Polygon(*shp.NewPolyLine(rec.rings))
		n := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(n), 0, rec.name))
	}
	w.Close()

	base := path[:len(path)-len(filepath.Ext(path))]
	// The writer names the attribute table "<base>dbf", without the dot.
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))

	if prj != "" {
		require.NoError(t, os.WriteFile(base+".prj", []byte(prj), 0o600))
	}
}

func zipDir(t *testing.T, src, zipPath string, extra map[string]string) {
	t.Helper()

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	entries, err := os.ReadDir(src)
	require.NoError(t, err)
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		require.NoError(t, err)
		w, err := zw.Create("nybb_25b/" + e.Name())
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	for name, body := range extra {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestFindArchive(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	archive := filepath.Join(dir, "nybb_25b.zip")
	filet.File(t, archive, "zip")

	t.Run("first existing candidate wins", func(t *testing.T) {
		got, err := borough.FindArchive([]string{filepath.Join(dir, "missing.zip"), archive, dir})

		require.NoError(t, err)
		assert.Equal(t, archive, got)
	})

	t.Run("directories are not archives", func(t *testing.T) {
		_, err := borough.FindArchive([]string{dir})

		require.ErrorIs(t, err, borough.ErrArchiveNotFound)
	})

	t.Run("relative to working directory", func(t *testing.T) {
		t.Chdir(dir)

		got, err := borough.FindArchive([]string{"nybb_25b.zip"})

		require.NoError(t, err)
		assert.Equal(t, "nybb_25b.zip", filepath.Base(got))
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("home directory expansion", func(t *testing.T) {
		t.Setenv("HOME", dir)

		got, err := borough.FindArchive([]string{"~/nybb_25b.zip"})

		require.NoError(t, err)
		assert.Equal(t, archive, got)
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := borough.FindArchive([]string{filepath.Join(dir, "a.zip"), "~/Downloads/none-such.zip"})

		require.ErrorIs(t, err, borough.ErrArchiveNotFound)
		assert.Contains(t, err.Error(), "a.zip")
	})
}

func TestExtractAndLocate(t *testing.T) {
	defer filet.CleanUp(t)
	src := filet.TmpDir(t, "")
	work := filet.TmpDir(t, "")

	writeShapefile(t, filepath.Join(src, "nybb.shp"), "BoroName", geographicPRJ, []record{
		{name: "Manhattan", rings: [][]shp.Point{cwSquare(-74.0, 40.7, -73.9, 40.8)}},
	})
	archive := filepath.Join(work, "nybb_25b.zip")
	zipDir(t, src, archive, nil)
	out := filepath.Join(work, "nybb_25b_unzipped")

	shpPath, err := borough.Locate([]string{archive}, out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "nybb_25b", "nybb.shp"), shpPath)
	assert.True(t, filet.Exists(t, filepath.Join(out, "nybb_25b", "nybb.prj")))

	t.Run("existing directory is reused", func(t *testing.T) {
		marker := filepath.Join(out, "marker.txt")
		filet.File(t, marker, "keep")
		require.NoError(t, os.Remove(archive))

		dir, err := borough.Extract(archive, out)

		require.NoError(t, err)
		assert.Equal(t, out, dir)
		assert.True(t, filet.Exists(t, marker))
	})

	t.Run("missing archive", func(t *testing.T) {
		_, err := borough.Extract(filepath.Join(work, "none.zip"), filepath.Join(work, "fresh"))

		require.Error(t, err)
	})
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	defer filet.CleanUp(t)
	src := filet.TmpDir(t, "")
	work := filet.TmpDir(t, "")

	archive := filepath.Join(work, "evil.zip")
	zipDir(t, src, archive, map[string]string{"../outside.txt": "nope"})
	out := filepath.Join(work, "unzipped")

	_, err := borough.Extract(archive, out)

	require.ErrorIs(t, err, borough.ErrUnsafeArchive)
	assert.False(t, filet.Exists(t, filepath.Join(work, "outside.txt")))
	assert.False(t, filet.Exists(t, out))
}

func TestFindShapefile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	_, err := borough.FindShapefile(dir)
	require.ErrorIs(t, err, borough.ErrShapefileNotFound)

	filet.File(t, filepath.Join(dir, "readme.txt"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deep"), 0o755))
	filet.File(t, filepath.Join(dir, "deep", "NYBB.SHP"), "")

	got, err := borough.FindShapefile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deep", "NYBB.SHP"), got)
}

func TestLoad(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	t.Run("keeps matching records and unions them", func(t *testing.T) {
		path := filepath.Join(dir, "boros.shp")
		writeShapefile(t, path, "BoroName", geographicPRJ, []record{
			{name: "Manhattan", rings: [][]shp.Point{cwSquare(-74.0, 40.70, -73.95, 40.75)}},
			{name: "Brooklyn", rings: [][]shp.Point{cwSquare(-74.0, 40.60, -73.90, 40.69)}},
			{name: "MANHATTAN (islands)", rings: [][]shp.Point{cwSquare(-73.95, 40.70, -73.93, 40.75)}},
		})

		mp, err := borough.Load(path, borough.LoadOptions{})
		require.NoError(t, err)

		require.Len(t, mp, 1)
		b := mp.Bound()
		assert.InDelta(t, -74.0, b.Min[0], 1e-9)
		assert.InDelta(t, -73.93, b.Max[0], 1e-9)
		assert.InDelta(t, 40.70, b.Min[1], 1e-9)
		assert.False(t, planar.MultiPolygonContains(mp, orb.Point{-73.95, 40.65}))
	})

	t.Run("holes survive", func(t *testing.T) {
		path := filepath.Join(dir, "holes.shp")
		hole := []shp.Point{{X: -73.98, Y: 40.72}, {X: -73.97, Y: 40.72}, {X: -73.97, Y: 40.73}, {X: -73.98, Y: 40.73}, {X: -73.98, Y: 40.72}}
		writeShapefile(t, path, "BoroName", geographicPRJ, []record{
			{name: "Manhattan", rings: [][]shp.Point{cwSquare(-74.0, 40.70, -73.95, 40.75), hole}},
		})

		mp, err := borough.Load(path, borough.LoadOptions{})
		require.NoError(t, err)

		require.Len(t, mp, 1)
		assert.Len(t, mp[0], 2)
		assert.False(t, planar.MultiPolygonContains(mp, orb.Point{-73.975, 40.725}))
	})

	t.Run("falls back to the Borough column", func(t *testing.T) {
		path := filepath.Join(dir, "alt.shp")
		writeShapefile(t, path, "Borough", geographicPRJ, []record{
			{name: "manhattan", rings: [][]shp.Point{cwSquare(-74.0, 40.70, -73.95, 40.75)}},
		})

		mp, err := borough.Load(path, borough.LoadOptions{})

		require.NoError(t, err)
		assert.Len(t, mp, 1)
	})

	t.Run("no name column", func(t *testing.T) {
		path := filepath.Join(dir, "noname.shp")
		writeShapefile(t, path, "Code", geographicPRJ, []record{
			{name: "1", rings: [][]shp.Point{cwSquare(-74.0, 40.70, -73.95, 40.75)}},
		})

		_, err := borough.Load(path, borough.LoadOptions{})

		require.ErrorIs(t, err, borough.ErrNameColumnMissing)
		assert.Contains(t, err.Error(), "Code")
	})

	t.Run("no matching record", func(t *testing.T) {
		path := filepath.Join(dir, "queens.shp")
		writeShapefile(t, path, "BoroName", geographicPRJ, []record{
			{name: "Queens", rings: [][]shp.Point{cwSquare(-73.9, 40.70, -73.8, 40.75)}},
		})

		_, err := borough.Load(path, borough.LoadOptions{})

		require.ErrorIs(t, err, borough.ErrBoroughNotFound)
	})

	t.Run("state plane without prj uses the default system", func(t *testing.T) {
		path := filepath.Join(dir, "stateplane.shp")
		fwd := crs.NYLongIslandFeet.Forward()
		sw := fwd(orb.Point{-74.0, 40.70})
		ne := fwd(orb.Point{-73.95, 40.75})
		writeShapefile(t, path, "BoroName", "", []record{
			{name: "Manhattan", rings: [][]shp.Point{cwSquare(sw[0], sw[1], ne[0], ne[1])}},
		})

		mp, err := borough.Load(path, borough.LoadOptions{})
		require.NoError(t, err)

		assert.True(t, planar.MultiPolygonContains(mp, orb.Point{-73.975, 40.725}))
		b := mp.Bound()
		assert.InDelta(t, 40.70, b.Min[1], 0.001)
		assert.InDelta(t, 40.75, b.Max[1], 0.001)
	})

	t.Run("custom match", func(t *testing.T) {
		path := filepath.Join(dir, "custom.shp")
		writeShapefile(t, path, "NAME", geographicPRJ, []record{
			{name: "Bronx", rings: [][]shp.Point{cwSquare(-73.9, 40.80, -73.8, 40.90)}},
		})

		mp, err := borough.Load(path, borough.LoadOptions{NameColumns: []string{"NAME"}, Match: "bronx"})

		require.NoError(t, err)
		assert.Len(t, mp, 1)
	})
}
