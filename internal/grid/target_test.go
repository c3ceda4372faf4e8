package grid

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/low-sky/cygrid/internal/sphere"
)

// linear is a 0.1 deg/pixel lon/lat lattice starting at (10, 20) whose
// valid sky domain is lon in [9, 12), lat in [19, 22). It counts
// PixelToSky calls.
type linear struct {
	calls int64
}

func (l *linear) PixelToSky(col, row float64) (float64, float64, bool) {
	atomic.AddInt64(&l.calls, 1)
	if col >= 8 {
		return 0, 0, false
	}
	return 10 + 0.1*col, 20 + 0.1*row, true
}

func (l *linear) SkyToPixel(lon, lat float64) (float64, float64, bool) {
	if lon < 9 || lon >= 12 || lat < 19 || lat >= 22 {
		return 0, 0, false
	}
	return (lon - 10) / 0.1, (lat - 20) / 0.1, true
}

func TestNewMapValidation(t *testing.T) {
	tests := []struct {
		name                string
		proj                Projection
		ncols, nrows, nchan int
	}{
		{"nil projection", nil, 4, 4, 1},
		{"zero cols", &linear{}, 0, 4, 1},
		{"negative rows", &linear{}, 4, -1, 1},
		{"zero channels", &linear{}, 4, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMap(tt.proj, tt.ncols, tt.nrows, tt.nchan)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTarget))
		})
	}
}

func TestPixelIndexRoundTrip(t *testing.T) {
	tg, err := NewMap(&linear{}, 7, 5, 3)
	require.NoError(t, err)
	assert.Equal(t, 35, tg.NumPixels())
	assert.Equal(t, 3, tg.Channels())
	for i := 0; i < tg.NumPixels(); i++ {
		col, row := tg.PixelCoords(i)
		assert.Equal(t, i, tg.PixelIndex(col, row))
	}
	assert.Equal(t, 7*2+3, tg.PixelIndex(3, 2))
}

func TestCentresComputedOnceAndCached(t *testing.T) {
	proj := &linear{}
	tg, err := NewMap(proj, 10, 6, 1)
	require.NoError(t, err)

	centres, valid := tg.Centres(3)
	require.Len(t, centres, 60)
	require.Len(t, valid, 60)
	assert.Equal(t, int64(60), atomic.LoadInt64(&proj.calls))

	again, _ := tg.Centres(8)
	assert.Equal(t, int64(60), atomic.LoadInt64(&proj.calls), "centres must be cached")
	assert.Same(t, &centres[0], &again[0])

	// Columns 8 and 9 fall outside the projection.
	assert.Equal(t, 48, tg.ValidPixels())
	assert.False(t, valid[tg.PixelIndex(9, 0)])
	assert.True(t, valid[tg.PixelIndex(2, 3)])

	lon, lat := sphere.LonLat(centres[tg.PixelIndex(2, 3)])
	assert.InDelta(t, 10.2, lon, 1e-9)
	assert.InDelta(t, 20.3, lat, 1e-9)
}

func TestCovers(t *testing.T) {
	tg, err := NewMap(&linear{}, 4, 4, 1)
	require.NoError(t, err)
	assert.True(t, tg.Covers(10.05, 20.05))
	assert.False(t, tg.Covers(200, 20))
}

func TestSightlines(t *testing.T) {
	lons := []float64{0, 359.5, 120}
	lats := []float64{0, -89.9, 45}
	tg, err := NewSightlines(lons, lats, 2)
	require.NoError(t, err)
	lons[2] = 99 // caller mutation must not leak into the target
	lons = []float64{0, 359.5, 120}

	ncols, nrows := tg.Shape()
	assert.Equal(t, 3, ncols)
	assert.Equal(t, 1, nrows)
	assert.True(t, tg.Covers(10, 10))

	centres, valid := tg.Centres(2)
	for i := range lons {
		require.True(t, valid[i])
		lon, lat := sphere.LonLat(centres[i])
		assert.InDelta(t, lats[i], lat, 1e-9)
		if math.Abs(lats[i]) < 89 {
			assert.InDelta(t, lons[i], lon, 1e-9)
		}
	}
}

func TestSightlinesValidation(t *testing.T) {
	_, err := NewSightlines([]float64{1, 2}, []float64{1}, 1)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = NewSightlines(nil, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = NewSightlines([]float64{1}, []float64{95}, 1)
	assert.ErrorIs(t, err, ErrInvalidTarget)
	_, err = NewSightlines([]float64{math.NaN()}, []float64{0}, 1)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}
