// Package crs converts geometries between geographic (longitude/latitude)
// coordinates and the planar reference systems used for buffering and
// simplification.
package crs

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// usSurveyFoot is the length of one US survey foot in metres.
const usSurveyFoot = 1200.0 / 3937.0

// ErrUnsupportedCRS is returned when a coordinate system code or a .prj
// definition is not one of the systems this package knows how to project.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// CRS describes a coordinate reference system.
type CRS struct {
	Code int     // EPSG code
	Name string  // Human readable name
	Unit float64 // Metres per coordinate unit, zero for geographic systems

	proj *lambertConformal
}

var (
	// WGS84 is geographic longitude/latitude (EPSG:4326).
	WGS84 = CRS{Code: 4326, Name: "WGS 84"}

	// NYLongIslandFeet is NAD83 / New York Long Island in US survey feet (EPSG:2263).
	NYLongIslandFeet = CRS{
		Code: 2263,
		Name: "NAD83 / New York Long Island (ftUS)",
		Unit: usSurveyFoot,
		proj: nyLongIsland,
	}

	// NYLongIslandMeters is NAD83 / New York Long Island in metres (EPSG:32118).
	NYLongIslandMeters = CRS{
		Code: 32118,
		Name: "NAD83 / New York Long Island",
		Unit: 1,
		proj: nyLongIsland,
	}
)

var known = map[int]CRS{
	WGS84.Code:              WGS84,
	4269:                    {Code: 4269, Name: "NAD83"},
	NYLongIslandFeet.Code:   NYLongIslandFeet,
	NYLongIslandMeters.Code: NYLongIslandMeters,
}

// Lookup returns the reference system registered under an EPSG code.
func Lookup(code int) (CRS, error) {
	c, ok := known[code]
	if !ok {
		return CRS{}, fmt.Errorf("%w: EPSG:%d", ErrUnsupportedCRS, code)
	}
	return c, nil
}

// Geographic reports whether coordinates are longitude/latitude degrees.
func (c CRS) Geographic() bool {
	return c.proj == nil
}

// MetersToUnits converts a length in metres to coordinate units. For
// geographic systems the length is returned unchanged.
func (c CRS) MetersToUnits(m float64) float64 {
	if c.Geographic() || c.Unit == 0 {
		return m
	}
	return m / c.Unit
}

// Forward maps longitude/latitude to planar coordinates.
func (c CRS) Forward() orb.Projection {
	if c.Geographic() {
		return identity
	}
	return func(p orb.Point) orb.Point {
		x, y := c.proj.forward(p[0], p[1])
		return orb.Point{x / c.Unit, y / c.Unit}
	}
}

// Inverse maps planar coordinates back to longitude/latitude.
func (c CRS) Inverse() orb.Projection {
	if c.Geographic() {
		return identity
	}
	return func(p orb.Point) orb.Point {
		lon, lat := c.proj.inverse(p[0]*c.Unit, p[1]*c.Unit)
		return orb.Point{lon, lat}
	}
}

func (c CRS) String() string {
	return fmt.Sprintf("EPSG:%d (%s)", c.Code, c.Name)
}

// Transform returns a copy of g converted from one system to another.
// The input geometry is never modified.
func Transform(g orb.Geometry, from, to CRS) orb.Geometry {
	out := orb.Clone(g)
	if from.Geographic() && to.Geographic() {
		return out
	}
	if from.Code == to.Code {
		return out
	}
	if !from.Geographic() {
		out = project.Geometry(out, from.Inverse())
	}
	if !to.Geographic() {
		out = project.Geometry(out, to.Forward())
	}
	return out
}

func identity(p orb.Point) orb.Point { return p }
