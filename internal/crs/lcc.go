package crs

import "math"

// lambertConformal is a Lambert Conformal Conic projection with two
// standard parallels on an ellipsoid. Outputs are in metres.
type lambertConformal struct {
	a, e           float64 // semi-major axis, eccentricity
	lon0           float64 // central meridian, radians
	falseE, falseN float64 // metres

	n, f, rho0 float64
}

// grs80 parameters, shared by NAD83.
const (
	grs80A = 6378137.0
	grs80F = 1 / 298.257222101
)

// nyLongIsland holds the parameters of the New York Long Island state
// plane zone (FIPS 3104).
var nyLongIsland = newLambertConformal(
	grs80A, grs80F,
	dms(40, 10), -74,
	dms(41, 2), dms(40, 40),
	300000, 0,
)

func dms(deg, minutes float64) float64 {
	return deg + minutes/60
}

func newLambertConformal(a, flattening, lat0, lon0, lat1, lat2, falseE, falseN float64) *lambertConformal {
	e := math.Sqrt(2*flattening - flattening*flattening)
	l := &lambertConformal{
		a:      a,
		e:      e,
		lon0:   lon0 * math.Pi / 180,
		falseE: falseE,
		falseN: falseN,
	}

	phi0 := lat0 * math.Pi / 180
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180

	m1, m2 := l.m(phi1), l.m(phi2)
	t0, t1, t2 := l.t(phi0), l.t(phi1), l.t(phi2)

	l.n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	l.f = m1 / (l.n * math.Pow(t1, l.n))
	l.rho0 = a * l.f * math.Pow(t0, l.n)
	return l
}

func (l *lambertConformal) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-l.e*l.e*s*s)
}

func (l *lambertConformal) t(phi float64) float64 {
	s := math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-l.e*s)/(1+l.e*s), l.e/2)
}

func (l *lambertConformal) forward(lon, lat float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180

	rho := l.a * l.f * math.Pow(l.t(phi), l.n)
	theta := l.n * (lambda - l.lon0)

	x := l.falseE + rho*math.Sin(theta)
	y := l.falseN + l.rho0 - rho*math.Cos(theta)
	return x, y
}

func (l *lambertConformal) inverse(x, y float64) (float64, float64) {
	dx := x - l.falseE
	dy := l.rho0 - (y - l.falseN)

	rho := math.Copysign(math.Hypot(dx, dy), l.n)
	theta := math.Atan2(dx, dy)
	if l.n < 0 {
		theta = math.Atan2(-dx, -dy)
	}

	t := math.Pow(rho/(l.a*l.f), 1/l.n)
	phi := math.Pi/2 - 2*math.Atan(t)
	for range 15 {
		s := math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-l.e*s)/(1+l.e*s), l.e/2))
		if math.Abs(next-phi) < 1e-12 {
			phi = next
			break
		}
		phi = next
	}

	lambda := theta/l.n + l.lon0
	return lambda * 180 / math.Pi, phi * 180 / math.Pi
}
