package sphere

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// UnitVector converts a longitude/latitude pair in degrees to a unit vector.
func UnitVector(lon, lat float64) r3.Vec {
	l, b := lon*deg2rad, lat*deg2rad
	cb := math.Cos(b)
	return r3.Vec{X: cb * math.Cos(l), Y: cb * math.Sin(l), Z: math.Sin(b)}
}

// LonLat converts a unit vector back to degrees, longitude in [0, 360).
func LonLat(v r3.Vec) (lon, lat float64) {
	lon = math.Atan2(v.Y, v.X) * rad2deg
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	lat = math.Atan2(v.Z, math.Hypot(v.X, v.Y)) * rad2deg
	return lon, lat
}

// AngleToChord returns the straight-line distance between two unit vectors
// separated by the given angle. Angles beyond pi saturate at the diameter.
func AngleToChord(angle float64) float64 {
	if angle >= math.Pi {
		return 2
	}
	if angle <= 0 {
		return 0
	}
	return 2 * math.Sin(angle/2)
}

// ChordToAngle is the inverse of AngleToChord.
func ChordToAngle(chord float64) float64 {
	h := chord / 2
	if h >= 1 {
		return math.Pi
	}
	return 2 * math.Asin(h)
}

// Separation returns the great-circle distance between two unit vectors in
// radians. The chord form stays accurate for tiny separations, where the
// arccos of a dot product loses half its digits.
func Separation(a, b r3.Vec) float64 {
	return ChordToAngle(r3.Norm(r3.Sub(a, b)))
}

// SeparationDeg is Separation for longitude/latitude pairs in degrees.
func SeparationDeg(lon1, lat1, lon2, lat2 float64) float64 {
	return Separation(UnitVector(lon1, lat1), UnitVector(lon2, lat2)) * rad2deg
}

// TangentBasis returns the east and north unit vectors of the tangent plane
// at a. At the poles, where east is undefined, the lon=0 meridian fixes the
// basis.
func TangentBasis(a r3.Vec) (east, north r3.Vec) {
	rho := math.Hypot(a.X, a.Y)
	if rho < 1e-12 {
		if a.Z >= 0 {
			return r3.Vec{Y: 1}, r3.Vec{X: -1}
		}
		return r3.Vec{Y: 1}, r3.Vec{X: 1}
	}
	east = r3.Vec{X: -a.Y / rho, Y: a.X / rho}
	north = r3.Vec{X: -a.Z * a.X / rho, Y: -a.Z * a.Y / rho, Z: rho}
	return east, north
}

// Offset returns the separation of b from a together with its east and north
// components on the tangent plane at a, all in radians. The components are
// scaled so that hypot(dEast, dNorth) == sep.
func Offset(a, b r3.Vec) (sep, dEast, dNorth float64) {
	sep = Separation(a, b)
	east, north := TangentBasis(a)
	d := r3.Sub(b, a)
	x, y := r3.Dot(d, east), r3.Dot(d, north)
	h := math.Hypot(x, y)
	if h == 0 {
		return sep, 0, 0
	}
	return sep, sep * x / h, sep * y / h
}
