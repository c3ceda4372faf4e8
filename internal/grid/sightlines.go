package grid

import (
	"fmt"
	"math"
)

// NewSightlines returns a Target whose pixels are an arbitrary list of sky
// positions (degrees) rather than a projected map. The shape is
// len(lons) x 1. Sight-line targets have no projection domain, so every
// sample is considered covered.
func NewSightlines(lons, lats []float64, nchan int) (*Target, error) {
	if len(lons) != len(lats) {
		return nil, fmt.Errorf("%w: %d longitudes but %d latitudes", ErrInvalidTarget, len(lons), len(lats))
	}
	if len(lons) == 0 {
		return nil, fmt.Errorf("%w: no sight lines", ErrInvalidTarget)
	}
	for i := range lons {
		if !finite(lons[i]) || !finite(lats[i]) || math.Abs(lats[i]) > 90 {
			return nil, fmt.Errorf("%w: sight line %d has invalid position (%g, %g)", ErrInvalidTarget, i, lons[i], lats[i])
		}
	}
	sl := &sightlines{lons: append([]float64(nil), lons...), lats: append([]float64(nil), lats...)}
	return NewMap(sl, len(lons), 1, nchan)
}

type sightlines struct {
	lons, lats []float64
}

func (s *sightlines) PixelToSky(col, row float64) (lon, lat float64, ok bool) {
	i := int(col)
	if row != 0 || float64(i) != col || i < 0 || i >= len(s.lons) {
		return 0, 0, false
	}
	return s.lons[i], s.lats[i], true
}

// SkyToPixel accepts every position; there is no pixel lattice to map onto,
// so the returned coordinates carry no meaning.
func (s *sightlines) SkyToPixel(lon, lat float64) (col, row float64, ok bool) {
	return math.NaN(), math.NaN(), true
}
