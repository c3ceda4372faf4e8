package sphere

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/low-sky/cygrid/internal/monitoring"
)

// radiusPad absorbs rounding in the cell enumeration; it only admits
// candidates, the exact chord test below decides membership.
const radiusPad = 1e-9

// minSearchRadius floors the cell enumeration radius. Below it the cosine
// ring intervals in discRanges lose more precision than radiusPad absorbs.
const minSearchRadius = 1e-6

// EstimatedPointsPerCell is used for initial arena capacity estimation.
const EstimatedPointsPerCell = 4

// Index buckets unit vectors by HEALPix cell for angular-radius queries.
// Storage is an arena: occupied cell codes in ascending order, an offsets
// table into a flat member list, and the member vectors laid out in the
// same order so a cell's points are contiguous in memory.
//
// An Index is immutable after NewIndex and safe for concurrent queries.
type Index struct {
	hp      Healpix
	keys    []int64  // occupied cell codes, ascending
	offsets []int32  // len(keys)+1; members of keys[k] are members[offsets[k]:offsets[k+1]]
	members []int32  // original point indices grouped by cell
	vecs    []r3.Vec // vecs[m] is the position of members[m]

	// cellRadius is the largest distance (radians) from any indexed point
	// to the centre of its cell. Query discs are widened by it so that no
	// cell holding a true neighbour is skipped.
	cellRadius float64
}

// NewIndex builds an index over points. resolution (radians) picks the
// tessellation order: the coarsest with mean cell size <= resolution.
// A resolution that is not positive is replaced by one derived from the
// spread and count of the points. Build cost is O(N log N).
func NewIndex(points []r3.Vec, resolution float64) *Index {
	if !(resolution > 0) {
		resolution = densityResolution(points)
	}
	order := OrderForResolution(resolution)
	if size := PixelSize(order); size > resolution {
		monitoring.Logf("[sphere] index resolution %.3g arcsec is finer than the deepest order %d (%.3g arcsec cells)",
			resolution*rad2deg*3600, order, size*rad2deg*3600)
	}
	idx := &Index{hp: NewHealpix(order)}
	if len(points) == 0 {
		idx.offsets = []int32{0}
		return idx
	}

	type entry struct {
		cell int64
		pt   int32
	}
	entries := make([]entry, len(points))
	for i, p := range points {
		entries[i] = entry{cell: idx.hp.Ang2Pix(p), pt: int32(i)}
	}
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].cell != entries[b].cell {
			return entries[a].cell < entries[b].cell
		}
		return entries[a].pt < entries[b].pt
	})

	idx.members = make([]int32, len(entries))
	idx.vecs = make([]r3.Vec, len(entries))
	idx.keys = make([]int64, 0, len(entries)/EstimatedPointsPerCell+1)
	idx.offsets = make([]int32, 0, cap(idx.keys)+1)

	var centre r3.Vec
	maxChord := 0.0
	for m, e := range entries {
		if m == 0 || e.cell != entries[m-1].cell {
			idx.keys = append(idx.keys, e.cell)
			idx.offsets = append(idx.offsets, int32(m))
			centre = idx.hp.Pix2Vec(e.cell)
		}
		p := points[e.pt]
		idx.members[m] = e.pt
		idx.vecs[m] = p
		if d := r3.Norm(r3.Sub(p, centre)); d > maxChord {
			maxChord = d
		}
	}
	idx.offsets = append(idx.offsets, int32(len(entries)))
	idx.cellRadius = ChordToAngle(maxChord)
	return idx
}

// densityResolution returns the cell size at which points spread uniformly
// over the cap that bounds them would fill about EstimatedPointsPerCell per
// cell. Degenerate sets get the coarsest order.
func densityResolution(points []r3.Vec) float64 {
	if len(points) == 0 {
		return math.Pi
	}
	var sum r3.Vec
	for _, p := range points {
		sum = r3.Add(sum, p)
	}
	extent := math.Pi
	if n := r3.Norm(sum); n > 1e-9 {
		mean := r3.Scale(1/n, sum)
		extent = 0
		for _, p := range points {
			extent = math.Max(extent, Separation(p, mean))
		}
	}
	h := math.Sin(extent / 2)
	area := 4 * math.Pi * h * h
	res := math.Sqrt(area * EstimatedPointsPerCell / float64(len(points)))
	if !(res > 0) {
		return math.Pi
	}
	return res
}

// NewIndexLonLat is NewIndex for longitude/latitude arrays in degrees,
// with the resolution also in degrees.
func NewIndexLonLat(lons, lats []float64, resolutionDeg float64) *Index {
	pts := make([]r3.Vec, len(lons))
	for i := range lons {
		pts[i] = UnitVector(lons[i], lats[i])
	}
	return NewIndex(pts, resolutionDeg*deg2rad)
}

// Len returns the number of indexed points.
func (idx *Index) Len() int { return len(idx.members) }

// Cells returns the number of occupied cells.
func (idx *Index) Cells() int { return len(idx.keys) }

// Order returns the tessellation order chosen at build time.
func (idx *Index) Order() int { return idx.hp.Order() }

// CellRadius returns the widest point-to-cell-centre distance in radians.
func (idx *Index) CellRadius() float64 { return idx.cellRadius }

// Visit calls fn for every indexed point whose great-circle distance from
// centre is <= radius (radians), passing the point's original index and its
// separation in radians. There are no false positives and no false
// negatives, including discs that cross longitude 0 or contain a pole.
// Visit order is by cell code, then by point index.
func (idx *Index) Visit(centre r3.Vec, radius float64, fn func(i int, sep float64)) {
	if len(idx.members) == 0 || !(radius >= 0) {
		return
	}
	// Cheap squared-chord rejection first; survivors get the same exact
	// separation as Separation so results agree with a brute-force scan.
	slack := AngleToChord(radius)*(1+1e-9) + 1e-15
	slack2 := slack * slack
	search := math.Max(radius+idx.cellRadius+radiusPad, minSearchRadius)
	idx.hp.discRanges(centre, search, func(lo, hi int64) {
		k := sort.Search(len(idx.keys), func(k int) bool { return idx.keys[k] >= lo })
		for ; k < len(idx.keys) && idx.keys[k] <= hi; k++ {
			for m := idx.offsets[k]; m < idx.offsets[k+1]; m++ {
				d := r3.Sub(idx.vecs[m], centre)
				if r3.Dot(d, d) > slack2 {
					continue
				}
				if sep := ChordToAngle(r3.Norm(d)); sep <= radius {
					fn(int(idx.members[m]), sep)
				}
			}
		}
	})
}

// Query returns the indices of all points within radius (radians) of centre.
func (idx *Index) Query(centre r3.Vec, radius float64) []int {
	var out []int
	idx.Visit(centre, radius, func(i int, _ float64) {
		out = append(out, i)
	})
	return out
}

// QueryLonLat is Query with the centre and radius in degrees.
func (idx *Index) QueryLonLat(lon, lat, radiusDeg float64) []int {
	return idx.Query(UnitVector(lon, lat), radiusDeg*deg2rad)
}
