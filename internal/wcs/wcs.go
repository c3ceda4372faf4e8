// Package wcs implements the two minimal celestial projections the cygrid
// command needs to describe a target map: a linear longitude/latitude
// lattice (CAR with its reference on the equator) and the gnomonic
// projection (TAN). Both implement grid.Projection.
//
// Pixel coordinates are zero-based with pixel centres at integers; note
// that FITS CRPIX values are one-based.
package wcs

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/low-sky/cygrid/internal/grid"
)

// ErrUnknownProjection is returned by New for unsupported projection codes.
var ErrUnknownProjection = errors.New("unknown projection")

// Params describes a projection in FITS-like terms, angles in degrees.
type Params struct {
	Code  string     // "CAR" or "TAN"
	CRVal [2]float64 // reference sky position (lon, lat)
	CRPix [2]float64 // zero-based pixel of the reference position
	CDelt [2]float64 // degrees per pixel along col and row
}

// New returns the projection described by p.
func New(p Params) (grid.Projection, error) {
	if p.CDelt[0] == 0 || p.CDelt[1] == 0 || !finite(p.CDelt[0]) || !finite(p.CDelt[1]) {
		return nil, fmt.Errorf("cdelt must be non-zero and finite, got %v", p.CDelt)
	}
	if math.Abs(p.CRVal[1]) > 90 {
		return nil, fmt.Errorf("reference latitude %g out of range", p.CRVal[1])
	}
	switch strings.ToUpper(p.Code) {
	case "CAR":
		return &CAR{p: p}, nil
	case "TAN":
		return newTAN(p), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, p.Code)
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// wrap180 maps an angle difference into [-180, 180).
func wrap180(d float64) float64 {
	d = math.Mod(d+180, 360)
	if d < 0 {
		d += 360
	}
	return d - 180
}
