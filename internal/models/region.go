package models

import (
	"time"

	"github.com/paulmach/orb"
)

// Region is a named polygon produced by the pipeline and handed to storage.
type Region struct {
	Slug      string      // Slug is the stable key of the region, e.g. manhattan-south125.
	Name      string      // Name is the human readable name stored with the feature.
	Polygon   orb.Polygon // Polygon is the lon/lat outline, a single ring.
	Source    string      // Source is the boundary archive the polygon was cut from.
	CreatedAt time.Time   // CreatedAt is when the region was computed.
}

// LatitudeRange returns the southern and northern extent of the polygon.
func (r Region) LatitudeRange() (float64, float64) {
	b := r.Polygon.Bound()
	return b.Min[1], b.Max[1]
}
