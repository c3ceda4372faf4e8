// Package grid describes the output pixel grid of a gridding run.
//
// A Target couples a pixel shape and channel count with the coordinate
// transform supplied by the caller. Pixel sky positions are computed once
// per Target and cached, since transforms are assumed to be expensive.
package grid

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/low-sky/cygrid/internal/sphere"
)

// ErrInvalidTarget is wrapped by every Target construction failure.
var ErrInvalidTarget = errors.New("invalid grid target")

// Projection converts between zero-based pixel coordinates (pixel centres at
// integer values) and sky longitude/latitude in degrees. ok is false where
// the transform is undefined. Implementations must be pure and safe for
// concurrent use.
type Projection interface {
	PixelToSky(col, row float64) (lon, lat float64, ok bool)
	SkyToPixel(lon, lat float64) (col, row float64, ok bool)
}

// Target is an output grid: ncols x nrows pixels, each holding nchan channels.
type Target struct {
	ncols, nrows, nchan int
	proj                Projection

	once    sync.Once
	centres []r3.Vec
	valid   []bool
	nvalid  int
}

// NewMap returns a Target for a projected map.
func NewMap(proj Projection, ncols, nrows, nchan int) (*Target, error) {
	if proj == nil {
		return nil, fmt.Errorf("%w: nil projection", ErrInvalidTarget)
	}
	if ncols < 1 || nrows < 1 {
		return nil, fmt.Errorf("%w: shape must be at least 1x1, got %dx%d", ErrInvalidTarget, ncols, nrows)
	}
	if nchan < 1 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidTarget, nchan)
	}
	return &Target{ncols: ncols, nrows: nrows, nchan: nchan, proj: proj}, nil
}

// Shape returns the pixel dimensions.
func (t *Target) Shape() (ncols, nrows int) { return t.ncols, t.nrows }

// Channels returns the number of spectral channels per pixel.
func (t *Target) Channels() int { return t.nchan }

// NumPixels returns ncols*nrows.
func (t *Target) NumPixels() int { return t.ncols * t.nrows }

// Projection returns the transform backing the target.
func (t *Target) Projection() Projection { return t.proj }

// PixelIndex returns the linear index of (col, row), row-major.
func (t *Target) PixelIndex(col, row int) int { return row*t.ncols + col }

// PixelCoords is the inverse of PixelIndex.
func (t *Target) PixelCoords(i int) (col, row int) { return i % t.ncols, i / t.ncols }

// Covers reports whether a sky position lies in the projection's valid
// domain. Samples outside it never contribute to the target.
func (t *Target) Covers(lon, lat float64) bool {
	_, _, ok := t.proj.SkyToPixel(lon, lat)
	return ok
}

// Centres returns the unit vector of every pixel centre and whether the
// projection defines it. The transform is evaluated once, spread over
// workers goroutines (<= 0 means runtime.NumCPU()); later calls return the
// cached slices, which callers must not modify.
func (t *Target) Centres(workers int) (centres []r3.Vec, valid []bool) {
	t.once.Do(func() { t.computeCentres(workers) })
	return t.centres, t.valid
}

// ValidPixels returns how many pixel centres the projection defines.
func (t *Target) ValidPixels() int {
	t.Centres(0)
	return t.nvalid
}

func (t *Target) computeCentres(workers int) {
	n := t.NumPixels()
	t.centres = make([]r3.Vec, n)
	t.valid = make([]bool, n)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	counts := make([]int, workers)
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > n {
			hi = n
		}
		go func(w, lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				col, row := t.PixelCoords(i)
				lon, lat, ok := t.proj.PixelToSky(float64(col), float64(row))
				if !ok || !finite(lon) || !finite(lat) || math.Abs(lat) > 90 {
					continue
				}
				t.centres[i] = sphere.UnitVector(lon, lat)
				t.valid[i] = true
				counts[w]++
			}
		}(w, lo, hi)
	}
	wg.Wait()
	for _, c := range counts {
		t.nvalid += c
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
