// Package accum holds per-pixel running sums for convolution gridding.
//
// Each pixel carries a weighted sum per channel and a single weight sum
// shared by all channels, since one sample contributes the same spatial
// weight to each of its channels. Everything is float64.
package accum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Accumulator is a dense, unsynchronised accumulator over npix pixels of
// nchan channels. Use Shared when several goroutines add to the same pixels.
type Accumulator struct {
	npix, nchan int
	sums        []float64 // pixel-major: sums[p*nchan+c]
	weights     []float64
}

// New returns an empty accumulator.
func New(npix, nchan int) *Accumulator {
	return &Accumulator{
		npix:    npix,
		nchan:   nchan,
		sums:    make([]float64, npix*nchan),
		weights: make([]float64, npix),
	}
}

// Pixels returns the number of pixels.
func (a *Accumulator) Pixels() int { return a.npix }

// Channels returns the number of channels per pixel.
func (a *Accumulator) Channels() int { return a.nchan }

// SizeBytes is the memory footprint of an accumulator of this shape.
func SizeBytes(npix, nchan int) int64 {
	return int64(npix) * int64(nchan+1) * 8
}

// Add folds w*values into pixel. Weights that are not positive and finite
// are ignored, which keeps every weight sum >= 0.
func (a *Accumulator) Add(pixel int, values []float64, w float64) {
	if !(w > 0) || math.IsInf(w, 1) {
		return
	}
	a.weights[pixel] += w
	floats.AddScaled(a.sums[pixel*a.nchan:(pixel+1)*a.nchan], w, values)
}

// Merge adds other's sums into a. The shapes must match.
func (a *Accumulator) Merge(other *Accumulator) error {
	if other.npix != a.npix || other.nchan != a.nchan {
		return fmt.Errorf("accumulator shape mismatch: %dx%d vs %dx%d", a.npix, a.nchan, other.npix, other.nchan)
	}
	floats.Add(a.weights, other.weights)
	floats.Add(a.sums, other.sums)
	return nil
}

// WeightSum returns the raw accumulated weight of pixel.
func (a *Accumulator) WeightSum(pixel int) float64 { return a.weights[pixel] }

// Finalize returns the weight-normalised channel vector of pixel. ok is
// false when the pixel gathered no weight (NoData).
func (a *Accumulator) Finalize(pixel int) (values []float64, ok bool) {
	w := a.weights[pixel]
	if w <= 0 {
		return nil, false
	}
	values = make([]float64, a.nchan)
	floats.ScaleTo(values, 1/w, a.sums[pixel*a.nchan:(pixel+1)*a.nchan])
	return values, true
}

// Cube returns the normalised cube, pixel-major then channel, with NaN for
// every channel of a NoData pixel.
func (a *Accumulator) Cube() []float64 {
	cube := make([]float64, len(a.sums))
	for p := 0; p < a.npix; p++ {
		dst := cube[p*a.nchan : (p+1)*a.nchan]
		w := a.weights[p]
		if w <= 0 {
			for c := range dst {
				dst[c] = math.NaN()
			}
			continue
		}
		floats.ScaleTo(dst, 1/w, a.sums[p*a.nchan:(p+1)*a.nchan])
	}
	return cube
}

// Weights returns a copy of the per-pixel weight sums.
func (a *Accumulator) Weights() []float64 {
	return append([]float64(nil), a.weights...)
}

// Sums returns a copy of the un-normalised weighted sums, laid out as Cube.
func (a *Accumulator) Sums() []float64 {
	return append([]float64(nil), a.sums...)
}

// PixelsWithData counts pixels with a positive weight sum.
func (a *Accumulator) PixelsWithData() int {
	n := 0
	for _, w := range a.weights {
		if w > 0 {
			n++
		}
	}
	return n
}
