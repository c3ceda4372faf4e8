package kernel

import "math"

// taperedSinc is sinc(pi*sep/(b*sigma)) * exp(-(sep/(a*sigma))^2), an
// approximation of the ideal low-pass resampling filter with finite support.
// Negative side lobes are clipped to zero so weights stay non-negative.
type taperedSinc struct {
	sincScale  float64 // pi / (b*sigma)
	taperScale float64 // 1 / (a*sigma)
	support    float64
}

func newTaperedSinc(sigma, a, b, support float64) *taperedSinc {
	return &taperedSinc{
		sincScale:  math.Pi / (b * sigma),
		taperScale: 1 / (a * sigma),
		support:    support,
	}
}

func (k *taperedSinc) Kind() Kind        { return TaperedSinc }
func (k *taperedSinc) Support() float64  { return k.support }
func (k *taperedSinc) Anisotropic() bool { return false }

func (k *taperedSinc) Weight(sep, _, _ float64) float64 {
	if sep > k.support {
		return 0
	}
	x := sep * k.sincScale
	s := 1.0
	if x != 0 {
		s = math.Sin(x) / x
	}
	if s <= 0 {
		return 0
	}
	t := sep * k.taperScale
	return s * math.Exp(-t*t)
}
