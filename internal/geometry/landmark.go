package geometry

import (
	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// ContainsLandmark reports whether the lon/lat point lies inside the lon/lat
// polygon, tested on the sphere.
func ContainsLandmark(poly orb.Polygon, pt orb.Point) bool {
	if len(poly) == 0 {
		return false
	}

	loops := make([]*s2.Loop, 0, len(poly))
	for i, r := range poly {
		want := orb.CCW
		if i > 0 {
			want = orb.CW
		}
		r = orient(closeRing(r), want)

		pts := make([]s2.Point, 0, len(r))
		for j, p := range r {
			// s2 loops are implicitly closed.
			if j == len(r)-1 {
				continue
			}
			pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(p[1], p[0])))
		}
		loops = append(loops, s2.LoopFromPoints(pts))
	}

	return s2.PolygonFromOrientedLoops(loops).ContainsPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(pt[1], pt[0])))
}
