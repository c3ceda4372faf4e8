// Package kernel provides the convolution kernels used for gridding.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"github.com/low-sky/cygrid/internal/monitoring"
)

const deg2rad = math.Pi / 180

// Kind names a kernel family.
type Kind string

// Kernel kinds recognised by the configuration surface.
const (
	Gaussian1D  Kind = "gaussian1d"
	Gaussian2D  Kind = "gaussian2d"
	TaperedSinc Kind = "tapered_sinc"
	Nearest     Kind = "nearest"
)

// ValidKinds lists the supported kernel kinds.
var ValidKinds = []Kind{Gaussian1D, Gaussian2D, TaperedSinc, Nearest}

// ErrInvalidParams is wrapped by every kernel parameter validation failure.
var ErrInvalidParams = errors.New("invalid kernel parameters")

// ShapeParamCount returns how many shape parameters kind expects:
// gaussian1d (sigma), gaussian2d (sigma_major, sigma_minor, position_angle),
// tapered_sinc (sigma, a, b), nearest (none).
func ShapeParamCount(kind Kind) (int, bool) {
	switch kind {
	case Gaussian1D:
		return 1, true
	case Gaussian2D:
		return 3, true
	case TaperedSinc:
		return 3, true
	case Nearest:
		return 0, true
	default:
		return 0, false
	}
}

// Params configures a kernel. All angles are in degrees.
type Params struct {
	Kind  Kind
	Shape []float64

	// SupportRadius is the hard cutoff beyond which the weight is exactly zero.
	SupportRadius float64

	// IndexResolution is the spatial index granularity hint. Zero means
	// SupportRadius/2.
	IndexResolution float64
}

// Validate checks kind, shape parameter count and ranges, support radius
// and resolution hint.
func (p Params) Validate() error {
	want, ok := ShapeParamCount(p.Kind)
	if !ok {
		return fmt.Errorf("%w: unknown kernel kind %q", ErrInvalidParams, p.Kind)
	}
	if len(p.Shape) != want {
		return fmt.Errorf("%w: %s expects %d shape parameters, got %d", ErrInvalidParams, p.Kind, want, len(p.Shape))
	}
	for i, v := range p.Shape {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: shape parameter %d is not finite", ErrInvalidParams, i)
		}
		// The position angle of gaussian2d may take any finite value.
		if p.Kind == Gaussian2D && i == 2 {
			continue
		}
		if v <= 0 {
			return fmt.Errorf("%w: shape parameter %d must be positive, got %g", ErrInvalidParams, i, v)
		}
	}
	if !(p.SupportRadius > 0) || math.IsInf(p.SupportRadius, 0) {
		return fmt.Errorf("%w: support radius must be positive and finite, got %g", ErrInvalidParams, p.SupportRadius)
	}
	if p.SupportRadius > 180 {
		return fmt.Errorf("%w: support radius must not exceed 180 degrees, got %g", ErrInvalidParams, p.SupportRadius)
	}
	if p.IndexResolution < 0 || math.IsNaN(p.IndexResolution) || math.IsInf(p.IndexResolution, 0) {
		return fmt.Errorf("%w: index resolution must be non-negative and finite, got %g", ErrInvalidParams, p.IndexResolution)
	}
	return nil
}

// Resolution returns the index resolution hint in degrees.
func (p Params) Resolution() float64 {
	if p.IndexResolution > 0 {
		return p.IndexResolution
	}
	return p.SupportRadius / 2
}

// Kernel maps a pixel-to-sample separation to a non-negative weight.
// Implementations are pure: the same arguments always give the same weight.
type Kernel interface {
	Kind() Kind
	// Weight takes the great-circle separation and the east/north offset
	// components on the tangent plane at the pixel, all in radians. It
	// returns 0 for sep beyond Support.
	Weight(sep, dEast, dNorth float64) float64
	// Support is the cutoff radius in radians.
	Support() float64
	// Anisotropic reports whether Weight reads the offset components.
	Anisotropic() bool
}

var (
	_ Kernel = (*gaussian1D)(nil)
	_ Kernel = (*gaussian2D)(nil)
	_ Kernel = (*taperedSinc)(nil)
	_ Kernel = (*nearest)(nil)
)

// New validates p and returns the kernel it describes.
func New(p Params) (Kernel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Resolution() > p.SupportRadius/2 {
		monitoring.Logf("[kernel] index resolution %g deg is coarser than half the support radius (%g deg); queries will scan more cells",
			p.Resolution(), p.SupportRadius)
	}
	support := p.SupportRadius * deg2rad
	switch p.Kind {
	case Gaussian1D:
		return newGaussian1D(p.Shape[0]*deg2rad, support), nil
	case Gaussian2D:
		return newGaussian2D(p.Shape[0]*deg2rad, p.Shape[1]*deg2rad, p.Shape[2]*deg2rad, support), nil
	case TaperedSinc:
		return newTaperedSinc(p.Shape[0]*deg2rad, p.Shape[1], p.Shape[2], support), nil
	default:
		return &nearest{support: support}, nil
	}
}

type nearest struct {
	support float64
}

func (k *nearest) Kind() Kind        { return Nearest }
func (k *nearest) Support() float64  { return k.support }
func (k *nearest) Anisotropic() bool { return false }

// Weight is 1 anywhere inside the support. Picking the single closest sample
// is a reduction over all candidates and is done by the gridding engine.
func (k *nearest) Weight(sep, _, _ float64) float64 {
	if sep > k.support {
		return 0
	}
	return 1
}
