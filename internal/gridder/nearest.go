package gridder

import (
	"math"
	"sync"
)

// nearestTable tracks, per pixel, the closest sample seen so far. Ties on
// separation go to the lower sample index, so the outcome does not depend
// on visit order.
type nearestTable struct {
	sep []float64
	idx []int64 // -1 where no sample has been offered
}

func newNearestTable(npix int) *nearestTable {
	t := &nearestTable{sep: make([]float64, npix), idx: make([]int64, npix)}
	for p := range t.sep {
		t.sep[p] = math.Inf(1)
		t.idx[p] = -1
	}
	return t
}

func (t *nearestTable) offer(p int, sep float64, idx int64) bool {
	cur := t.idx[p]
	if cur >= 0 && (sep > t.sep[p] || (sep == t.sep[p] && idx > cur)) {
		return false
	}
	t.sep[p], t.idx[p] = sep, idx
	return true
}

func (t *nearestTable) merge(o *nearestTable) {
	for p, idx := range o.idx {
		if idx >= 0 {
			t.offer(p, o.sep[p], idx)
		}
	}
}

// lockedNearest serialises offers to one table with striped locks.
type lockedNearest struct {
	t     *nearestTable
	locks []sync.Mutex
}

func (l *lockedNearest) offer(p int, sep float64, idx int64) {
	mu := &l.locks[p%len(l.locks)]
	mu.Lock()
	l.t.offer(p, sep, idx)
	mu.Unlock()
}
