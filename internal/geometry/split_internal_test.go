package geometry

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtendAcross(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}

	t.Run("west to east", func(t *testing.T) {
		out := extendAcross(orb.LineString{{20, 50}, {80, 60}}, box, 5)

		assert.Equal(t, orb.LineString{{-5, 50}, {20, 50}, {80, 60}, {105, 60}}, out)
	})

	t.Run("east to west", func(t *testing.T) {
		out := extendAcross(orb.LineString{{80, 60}, {20, 50}}, box, 5)

		assert.Equal(t, orb.LineString{{105, 60}, {80, 60}, {20, 50}, {-5, 50}}, out)
	})

	t.Run("line already past the box", func(t *testing.T) {
		out := extendAcross(orb.LineString{{-20, 50}, {80, 60}}, box, 5)

		assert.InDelta(t, -25.0, out[0][0], 1e-12)
	})
}

func TestPerimeterParam(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 4}}

	tests := []struct {
		p    orb.Point
		want float64
	}{
		{orb.Point{0, 0}, 0},
		{orb.Point{3, 0}, 3},
		{orb.Point{10, 2}, 12},
		{orb.Point{10, 4}, 14},
		{orb.Point{4, 4}, 20},
		{orb.Point{0, 1}, 27},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, perimeterParam(box, tt.p), 1e-12, "%v", tt.p)
	}
}

func TestCornersBetween(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 4}}

	assert.Equal(t, []orb.Point{{10, 0}, {10, 4}}, cornersBetween(box, 5, 17))
	assert.Equal(t, []orb.Point{{0, 4}, {0, 0}}, cornersBetween(box, 17, 5))
	assert.Empty(t, cornersBetween(box, 1, 2))
}

func TestSplitByLine(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}

	t.Run("crossing line gives two halves", func(t *testing.T) {
		pieces := splitByLine(box, orb.LineString{{-1, 4}, {5, 6}, {11, 4}})

		require.Len(t, pieces, 2)
		var sum float64
		for _, p := range pieces {
			assert.True(t, ValidRing(p[0]))
			sum += math.Abs(planar.Area(p))
		}
		assert.InDelta(t, 100.0, sum, 1e-9)
	})

	t.Run("line ending inside fails", func(t *testing.T) {
		assert.Empty(t, splitByLine(box, orb.LineString{{-1, 4}, {5, 5}}))
	})

	t.Run("line crossing twice fails", func(t *testing.T) {
		assert.Empty(t, splitByLine(box, orb.LineString{{-1, 4}, {5, 5}, {-1, 6}, {5, 7}, {-1, 8}}))
	})
}

func TestSplitBox(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	line := orb.LineString{{-2, 5}, {12, 5}}

	t.Run("band splits", func(t *testing.T) {
		pieces, err := splitBox(t.Context(), slog.New(slog.DiscardHandler), box, line, Buffer(line, 0.5))

		require.NoError(t, err)
		assert.Len(t, pieces, 2)
	})

	t.Run("falls back to the raw line", func(t *testing.T) {
		var buf bytes.Buffer
		log := slog.New(slog.NewTextHandler(&buf, nil))

		pieces, err := splitBox(t.Context(), log, box, line, nil)

		require.NoError(t, err)
		assert.Len(t, pieces, 2)
		assert.Contains(t, buf.String(), "retrying with the raw line")
	})

	t.Run("inner line fails", func(t *testing.T) {
		inner := orb.LineString{{3, 5}, {7, 5}}

		_, err := splitBox(t.Context(), slog.New(slog.DiscardHandler), box, inner, Buffer(inner, 0.5))

		require.ErrorIs(t, err, ErrSplitFailed)
	})
}

func TestDropEnclosed(t *testing.T) {
	box := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	north := orb.Polygon{{{0, 6}, {10, 6}, {10, 10}, {0, 10}, {0, 6}}}
	south := orb.Polygon{{{0, 0}, {10, 0}, {10, 4}, {0, 4}, {0, 0}}}
	pocket := orb.Polygon{{{4, 4.5}, {6, 4.5}, {6, 5.5}, {4, 5.5}, {4, 4.5}}}

	t.Run("drops pockets inside the band", func(t *testing.T) {
		out := dropEnclosed(box, []orb.Polygon{north, pocket, south})

		assert.Equal(t, []orb.Polygon{north, south}, out)
	})

	t.Run("keeps everything when too little would remain", func(t *testing.T) {
		pieces := []orb.Polygon{pocket, south}

		assert.Equal(t, pieces, dropEnclosed(box, pieces))
	})

	t.Run("box minus a hooked band leaves an enclosed piece", func(t *testing.T) {
		hooked := extendAcross(orb.LineString{{2, 5}, {6, 5}, {7, 3}, {5, 4}}, box, 1)
		pieces, err := splitBox(t.Context(), slog.New(slog.DiscardHandler), box, hooked, Buffer(hooked, 0.1))
		require.NoError(t, err)

		open := dropEnclosed(box, pieces)

		assert.Len(t, open, 2)
		for _, p := range open {
			assert.Greater(t, math.Abs(planar.Area(p)), 10.0)
		}
	})
}
