package models

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// areaIDOffset is added to relation ids to form Overpass area ids.
const areaIDOffset = 3600000000

// Place is a named location resolved by a geocoding provider.
type Place struct {
	Query       string      // Query is the text the place was resolved from.
	DisplayName string      // DisplayName is the provider's full name for the place.
	OSMType     osm.Type    // OSMType is node, way or relation; empty when unknown.
	OSMID       int64       // OSMID is the OpenStreetMap element id, zero when unknown.
	Bound       orb.Bound   // Bound is the lon/lat bounding box of the place.
	Center      Coordinates // Center is the representative point of the place.
}

// AreaID returns the Overpass area id for places backed by an OSM relation.
func (p Place) AreaID() (int64, bool) {
	if p.OSMType != osm.TypeRelation || p.OSMID <= 0 {
		return 0, false
	}
	return areaIDOffset + p.OSMID, true
}

// HasBound reports whether the place carries a usable bounding box.
func (p Place) HasBound() bool {
	return p.Bound.Max[0] > p.Bound.Min[0] && p.Bound.Max[1] > p.Bound.Min[1]
}
