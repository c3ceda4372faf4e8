package kernel

import "math"

type gaussian1D struct {
	sigma   float64
	inv2s2  float64
	support float64
}

func newGaussian1D(sigma, support float64) *gaussian1D {
	return &gaussian1D{sigma: sigma, inv2s2: 1 / (2 * sigma * sigma), support: support}
}

func (k *gaussian1D) Kind() Kind        { return Gaussian1D }
func (k *gaussian1D) Support() float64  { return k.support }
func (k *gaussian1D) Anisotropic() bool { return false }

func (k *gaussian1D) Weight(sep, _, _ float64) float64 {
	if sep > k.support {
		return 0
	}
	return math.Exp(-sep * sep * k.inv2s2)
}

// gaussian2D is an elliptical Gaussian. The position angle is measured from
// north through east to the major axis.
type gaussian2D struct {
	invMaj, invMin float64 // 1/(2 sigma^2)
	sinPA, cosPA   float64
	support        float64
}

func newGaussian2D(sigmaMajor, sigmaMinor, pa, support float64) *gaussian2D {
	return &gaussian2D{
		invMaj:  1 / (2 * sigmaMajor * sigmaMajor),
		invMin:  1 / (2 * sigmaMinor * sigmaMinor),
		sinPA:   math.Sin(pa),
		cosPA:   math.Cos(pa),
		support: support,
	}
}

func (k *gaussian2D) Kind() Kind        { return Gaussian2D }
func (k *gaussian2D) Support() float64  { return k.support }
func (k *gaussian2D) Anisotropic() bool { return true }

func (k *gaussian2D) Weight(sep, dEast, dNorth float64) float64 {
	if sep > k.support {
		return 0
	}
	dMaj := dEast*k.sinPA + dNorth*k.cosPA
	dMin := dEast*k.cosPA - dNorth*k.sinPA
	return math.Exp(-(dMaj*dMaj*k.invMaj + dMin*dMin*k.invMin))
}
