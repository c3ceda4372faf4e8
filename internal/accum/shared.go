package accum

import "sync"

// DefaultStripes is the lock count used by NewShared when stripes <= 0.
const DefaultStripes = 256

// Shared wraps an Accumulator for concurrent Add calls. Pixels map onto a
// fixed set of mutexes, so two goroutines adding to one pixel serialise
// while most adds to different pixels proceed in parallel.
type Shared struct {
	acc   *Accumulator
	locks []sync.Mutex
}

// NewShared returns an empty concurrent accumulator.
func NewShared(npix, nchan, stripes int) *Shared {
	return Wrap(New(npix, nchan), stripes)
}

// Wrap guards an existing accumulator. acc must not be used directly until
// all Add calls through the returned Shared have completed.
func Wrap(acc *Accumulator, stripes int) *Shared {
	if stripes <= 0 {
		stripes = DefaultStripes
	}
	return &Shared{acc: acc, locks: make([]sync.Mutex, stripes)}
}

// Add is Accumulator.Add under the pixel's stripe lock.
func (s *Shared) Add(pixel int, values []float64, w float64) {
	mu := &s.locks[pixel%len(s.locks)]
	mu.Lock()
	s.acc.Add(pixel, values, w)
	mu.Unlock()
}

// Accumulator returns the wrapped accumulator. Callers must not use it while
// Add calls are in flight.
func (s *Shared) Accumulator() *Accumulator { return s.acc }
