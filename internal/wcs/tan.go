package wcs

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/low-sky/cygrid/internal/sphere"
)

const deg2rad = math.Pi / 180

// TAN is the gnomonic projection about CRVal. Positions 90 degrees or more
// from the reference point have no projection.
type TAN struct {
	p           Params
	ref         r3.Vec
	east, north r3.Vec
}

func newTAN(p Params) *TAN {
	ref := sphere.UnitVector(p.CRVal[0], p.CRVal[1])
	east, north := sphere.TangentBasis(ref)
	return &TAN{p: p, ref: ref, east: east, north: north}
}

func (t *TAN) PixelToSky(col, row float64) (lon, lat float64, ok bool) {
	x := (col - t.p.CRPix[0]) * t.p.CDelt[0] * deg2rad
	y := (row - t.p.CRPix[1]) * t.p.CDelt[1] * deg2rad
	if !finite(x) || !finite(y) {
		return 0, 0, false
	}
	v := r3.Add(t.ref, r3.Add(r3.Scale(x, t.east), r3.Scale(y, t.north)))
	lon, lat = sphere.LonLat(r3.Unit(v))
	return lon, lat, true
}

func (t *TAN) SkyToPixel(lon, lat float64) (col, row float64, ok bool) {
	if !finite(lon) || !finite(lat) || math.Abs(lat) > 90 {
		return 0, 0, false
	}
	v := sphere.UnitVector(lon, lat)
	d := r3.Dot(v, t.ref)
	if d <= 1e-10 {
		return 0, 0, false
	}
	x := r3.Dot(v, t.east) / d
	y := r3.Dot(v, t.north) / d
	col = t.p.CRPix[0] + x/deg2rad/t.p.CDelt[0]
	row = t.p.CRPix[1] + y/deg2rad/t.p.CDelt[1]
	return col, row, true
}
