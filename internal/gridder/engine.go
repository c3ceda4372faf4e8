// Package gridder resamples irregular sky samples onto a grid.Target by
// convolution: every output pixel is the kernel-weighted mean of the samples
// within the kernel's support radius.
//
// A run indexes the larger of {samples, valid pixel centres} in a
// sphere.Index and queries it with the smaller set, spread across workers.
// When pixels are queried each worker owns a disjoint set of pixels and
// writes straight into the accumulator. When samples are queried each
// worker fills its own partial accumulator and the partials are merged in
// worker order, or, if the partials would not fit the memory budget, every
// worker adds to one lock-striped accumulator.
package gridder

import (
	"fmt"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/low-sky/cygrid/internal/accum"
	"github.com/low-sky/cygrid/internal/grid"
	"github.com/low-sky/cygrid/internal/kernel"
	"github.com/low-sky/cygrid/internal/monitoring"
	"github.com/low-sky/cygrid/internal/sphere"
)

const deg2rad = math.Pi / 180

// Stats summarises the work done by a Gridder.
type Stats struct {
	SamplesUsed       int // inside the target's coverage with positive data weight
	SamplesExcluded   int // outside the target's coverage
	SamplesZeroWeight int // covered but carrying a zero data weight
	PixelsWithData    int
	Batches           int

	// Describe the most recent batch.
	Indexed           Strategy
	IndexOrder        int
	SharedAccumulator bool

	Elapsed time.Duration
}

// Result is the outcome of a run. Cube is laid out (row, col, channel) with
// NaN for NoData; Weights and Sums share that pixel order.
type Result struct {
	Ncols, Nrows, Nchan int

	Cube    []float64
	Weights []float64 // per pixel, channel-invariant
	Sums    []float64 // un-normalised weighted sums, same layout as Cube
	Stats   Stats
}

// At returns the value of channel ch at (col, row), NaN for NoData.
func (r *Result) At(col, row, ch int) float64 {
	return r.Cube[(row*r.Ncols+col)*r.Nchan+ch]
}

// Spectrum returns all channels at (col, row).
func (r *Result) Spectrum(col, row int) []float64 {
	p := row*r.Ncols + col
	return r.Cube[p*r.Nchan : (p+1)*r.Nchan]
}

// WeightAt returns the accumulated weight at (col, row).
func (r *Result) WeightAt(col, row int) float64 { return r.Weights[row*r.Ncols+col] }

// HasData reports whether (col, row) received any weight.
func (r *Result) HasData(col, row int) bool { return r.WeightAt(col, row) > 0 }

// Grid runs a self-contained gridding of samples onto target.
func Grid(samples *Samples, target *grid.Target, params kernel.Params, opts Options) (*Result, error) {
	g, err := New(target, params, opts)
	if err != nil {
		return nil, err
	}
	if err := g.Add(samples); err != nil {
		return nil, err
	}
	return g.Result(), nil
}

// Gridder accumulates one or more sample batches onto a target. Splitting
// the samples over several Add calls gives the same result as one call on
// their union, up to floating-point rounding. A Gridder is not safe for
// concurrent use; it parallelises internally.
type Gridder struct {
	target *grid.Target
	params kernel.Params
	kern   kernel.Kernel
	opts   Options

	acc *accum.Accumulator

	// nearest kernel only: the winning sample per pixel and its data.
	near     *nearestTable
	nearVals []float64
	nearW    []float64

	seen  int64 // samples offered so far; base of the next batch's global indices
	stats Stats
}

// New validates params and returns an empty Gridder for target.
func New(target *grid.Target, params kernel.Params, opts Options) (*Gridder, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: nil target", ErrConfiguration)
	}
	kern, err := kernel.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	opts, err = opts.withDefaults()
	if err != nil {
		return nil, err
	}

	g := &Gridder{target: target, params: params, kern: kern, opts: opts}
	npix, nchan := target.NumPixels(), target.Channels()
	if kern.Kind() == kernel.Nearest {
		g.near = newNearestTable(npix)
		g.nearVals = make([]float64, npix*nchan)
		g.nearW = make([]float64, npix)
	} else {
		g.acc = accum.New(npix, nchan)
	}
	return g, nil
}

// batch is the part of one Samples set that can contribute to the target.
type batch struct {
	s    *Samples
	ids  []int    // contributing sample indices, ascending
	vecs []r3.Vec // vecs[k] is the position of ids[k]
	base int64

	excluded, zeroWeight int
}

// Add folds samples into the running sums. Samples outside the target's
// projection domain are skipped silently. On error nothing is folded.
func (g *Gridder) Add(samples *Samples) error {
	if samples == nil {
		return &InputError{Reason: "nil sample set"}
	}
	if samples.Len() == 0 {
		return nil
	}
	if samples.Channels() != g.target.Channels() {
		return fmt.Errorf("%w: samples carry %d channels, target expects %d",
			ErrConfiguration, samples.Channels(), g.target.Channels())
	}

	start := time.Now()
	b := g.prepare(samples)
	g.seen += int64(samples.Len())

	centres, valid := g.target.Centres(g.opts.Workers)
	pixels := make([]int, 0, len(valid))
	for p, ok := range valid {
		if ok {
			pixels = append(pixels, p)
		}
	}

	strategy := g.opts.Strategy
	if strategy == StrategyAuto {
		strategy = StrategyIndexPixels
		if len(b.ids) >= len(pixels) {
			strategy = StrategyIndexSamples
		}
	}
	g.stats.Indexed = strategy
	g.stats.SharedAccumulator = false

	if len(b.ids) > 0 && len(pixels) > 0 {
		if strategy == StrategyIndexSamples {
			g.querySamplesIndex(b, centres, pixels)
		} else {
			g.queryPixelsIndex(b, centres, pixels)
		}
	}

	g.stats.Batches++
	g.stats.Elapsed += time.Since(start)
	monitoring.Logf("[gridder] batch %d: %d samples used, %d outside target, %d zero weight; indexed %s at order %d",
		g.stats.Batches, len(b.ids), b.excluded, b.zeroWeight, strategy, g.stats.IndexOrder)
	return nil
}

// prepare projects every sample once and keeps those inside the target's
// coverage with a positive data weight.
func (g *Gridder) prepare(s *Samples) batch {
	const (
		outside = iota
		zeroWeight
		used
	)
	n := s.Len()
	status := make([]uint8, n)
	forEachChunk(n, g.opts.Workers, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			lon, lat := s.Position(i)
			if !g.target.Covers(lon, lat) {
				status[i] = outside
			} else if s.Weight(i) <= 0 {
				status[i] = zeroWeight
			} else {
				status[i] = used
			}
		}
	})

	b := batch{s: s, base: g.seen}
	for i, st := range status {
		switch st {
		case outside:
			b.excluded++
		case zeroWeight:
			b.zeroWeight++
		default:
			lon, lat := s.Position(i)
			b.ids = append(b.ids, i)
			b.vecs = append(b.vecs, sphere.UnitVector(lon, lat))
		}
	}
	g.stats.SamplesUsed += len(b.ids)
	g.stats.SamplesExcluded += b.excluded
	g.stats.SamplesZeroWeight += b.zeroWeight
	return b
}

func (g *Gridder) weight(pix, smp r3.Vec, sep float64) float64 {
	if !g.kern.Anisotropic() {
		return g.kern.Weight(sep, 0, 0)
	}
	_, dEast, dNorth := sphere.Offset(pix, smp)
	return g.kern.Weight(sep, dEast, dNorth)
}

// querySamplesIndex indexes the batch and walks the pixels. Every worker
// owns a contiguous run of pixels, so writes never collide.
func (g *Gridder) querySamplesIndex(b batch, centres []r3.Vec, pixels []int) {
	done := monitoring.Stage("index samples")
	idx := sphere.NewIndex(b.vecs, g.params.Resolution()*deg2rad)
	done()
	g.stats.IndexOrder = idx.Order()

	var table *nearestTable
	if g.near != nil {
		table = newNearestTable(g.target.NumPixels())
	}
	support := g.kern.Support()

	done = monitoring.Stage("accumulate over pixels")
	forEachChunk(len(pixels), g.opts.Workers, func(_, lo, hi int) {
		for _, p := range pixels[lo:hi] {
			c := centres[p]
			idx.Visit(c, support, func(k int, sep float64) {
				j := b.ids[k]
				if table != nil {
					table.offer(p, sep, b.base+int64(j))
					return
				}
				g.acc.Add(p, b.s.Values(j), g.weight(c, b.vecs[k], sep)*b.s.Weight(j))
			})
		}
	})
	done()

	if table != nil {
		g.foldNearest(table, b)
	}
}

// queryPixelsIndex indexes the valid pixel centres and walks the samples.
func (g *Gridder) queryPixelsIndex(b batch, centres []r3.Vec, pixels []int) {
	done := monitoring.Stage("index pixels")
	pvecs := make([]r3.Vec, len(pixels))
	for k, p := range pixels {
		pvecs[k] = centres[p]
	}
	idx := sphere.NewIndex(pvecs, g.params.Resolution()*deg2rad)
	done()
	g.stats.IndexOrder = idx.Order()

	npix, nchan := g.target.NumPixels(), g.target.Channels()
	workers := g.opts.Workers
	if workers > len(b.ids) {
		workers = len(b.ids)
	}
	partialBytes := int64(workers) * accum.SizeBytes(npix, nchan)
	if g.near != nil {
		partialBytes = int64(workers) * int64(npix) * 16
	}
	shared := partialBytes > int64(g.opts.PartialBudgetMB)<<20
	g.stats.SharedAccumulator = shared
	if shared {
		monitoring.Logf("[gridder] %d partial accumulators need %d MiB, over the %d MiB budget; using a shared accumulator",
			workers, partialBytes>>20, g.opts.PartialBudgetMB)
	}
	support := g.kern.Support()

	// visit calls add for every (pixel, sample) pair of samples [lo, hi).
	visit := func(lo, hi int, add func(p, k int, sep float64)) {
		for k := lo; k < hi; k++ {
			idx.Visit(b.vecs[k], support, func(i int, sep float64) {
				add(pixels[i], k, sep)
			})
		}
	}

	done = monitoring.Stage("accumulate over samples")
	defer done()

	if g.near != nil {
		table := newNearestTable(npix)
		if shared {
			locked := &lockedNearest{t: table, locks: make([]sync.Mutex, accum.DefaultStripes)}
			forEachChunk(len(b.ids), workers, func(_, lo, hi int) {
				visit(lo, hi, func(p, k int, sep float64) {
					locked.offer(p, sep, b.base+int64(b.ids[k]))
				})
			})
		} else {
			partials := make([]*nearestTable, workers)
			forEachChunk(len(b.ids), workers, func(w, lo, hi int) {
				t := newNearestTable(npix)
				visit(lo, hi, func(p, k int, sep float64) {
					t.offer(p, sep, b.base+int64(b.ids[k]))
				})
				partials[w] = t
			})
			for _, t := range partials {
				if t != nil {
					table.merge(t)
				}
			}
		}
		g.foldNearest(table, b)
		return
	}

	add := func(dst interface {
		Add(pixel int, values []float64, w float64)
	}) func(p, k int, sep float64) {
		return func(p, k int, sep float64) {
			j := b.ids[k]
			dst.Add(p, b.s.Values(j), g.weight(centres[p], b.vecs[k], sep)*b.s.Weight(j))
		}
	}

	if shared {
		sh := accum.Wrap(g.acc, accum.DefaultStripes)
		forEachChunk(len(b.ids), workers, func(_, lo, hi int) {
			visit(lo, hi, add(sh))
		})
		return
	}

	partials := make([]*accum.Accumulator, workers)
	forEachChunk(len(b.ids), workers, func(w, lo, hi int) {
		part := accum.New(npix, nchan)
		visit(lo, hi, add(part))
		partials[w] = part
	})
	for _, part := range partials {
		if part == nil {
			continue
		}
		if err := g.acc.Merge(part); err != nil {
			// Shapes are fixed by the target; a mismatch is a programming error.
			panic(err)
		}
	}
}

// foldNearest merges a batch's winners into the session, copying the
// winning samples' data so later batches can still lose to them.
func (g *Gridder) foldNearest(table *nearestTable, b batch) {
	nchan := g.target.Channels()
	for p, idx := range table.idx {
		if idx < 0 || !g.near.offer(p, table.sep[p], idx) {
			continue
		}
		j := int(idx - b.base)
		copy(g.nearVals[p*nchan:(p+1)*nchan], b.s.Values(j))
		g.nearW[p] = b.s.Weight(j)
	}
}

// Result normalises the running sums. It can be called at any point and
// does not consume the Gridder.
func (g *Gridder) Result() *Result {
	done := monitoring.Stage("finalise")
	defer done()

	ncols, nrows := g.target.Shape()
	nchan := g.target.Channels()
	acc := g.acc
	if g.near != nil {
		acc = accum.New(g.target.NumPixels(), nchan)
		for p, idx := range g.near.idx {
			if idx >= 0 {
				acc.Add(p, g.nearVals[p*nchan:(p+1)*nchan], g.nearW[p])
			}
		}
	}

	stats := g.stats
	stats.PixelsWithData = acc.PixelsWithData()
	return &Result{
		Ncols:   ncols,
		Nrows:   nrows,
		Nchan:   nchan,
		Cube:    acc.Cube(),
		Weights: acc.Weights(),
		Sums:    acc.Sums(),
		Stats:   stats,
	}
}

// forEachChunk splits [0, n) into at most workers contiguous chunks and runs
// fn on each in its own goroutine, returning when all are done. w is the
// chunk's ordinal, so per-chunk outputs can be combined in a fixed order.
func forEachChunk(n, workers int, fn func(w, lo, hi int)) {
	if n == 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w*chunk < n; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			fn(w, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
}
