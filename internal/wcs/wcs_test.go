package wcs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/low-sky/cygrid/internal/sphere"
)

func TestNewRejectsBadParams(t *testing.T) {
	_, err := New(Params{Code: "SIN", CDelt: [2]float64{1, 1}})
	assert.ErrorIs(t, err, ErrUnknownProjection)
	_, err = New(Params{Code: "CAR", CDelt: [2]float64{0, 1}})
	assert.Error(t, err)
	_, err = New(Params{Code: "TAN", CRVal: [2]float64{0, 91}, CDelt: [2]float64{1, 1}})
	assert.Error(t, err)
}

func TestCARRoundTripAcrossZero(t *testing.T) {
	p, err := New(Params{Code: "car", CRVal: [2]float64{0, 0}, CRPix: [2]float64{10, 10}, CDelt: [2]float64{-0.1, 0.1}})
	require.NoError(t, err)

	lon, lat, ok := p.PixelToSky(10, 10)
	require.True(t, ok)
	assert.InDelta(t, 0, lon, 1e-12)
	assert.InDelta(t, 0, lat, 1e-12)

	// Negative cdelt: increasing column means decreasing longitude, wrapping to 359.x.
	lon, _, ok = p.PixelToSky(12, 10)
	require.True(t, ok)
	assert.InDelta(t, 359.8, lon, 1e-9)

	for _, sky := range [][2]float64{{359.8, 0.3}, {0.4, -0.5}, {1.0, 0}} {
		col, row, ok := p.SkyToPixel(sky[0], sky[1])
		require.True(t, ok)
		lon, lat, ok := p.PixelToSky(col, row)
		require.True(t, ok)
		assert.InDelta(t, 0, sphere.SeparationDeg(sky[0], sky[1], lon, lat), 1e-9)
	}
}

func TestCARRejectsBeyondPole(t *testing.T) {
	p, err := New(Params{Code: "CAR", CRVal: [2]float64{0, 89.5}, CDelt: [2]float64{1, 1}})
	require.NoError(t, err)
	_, _, ok := p.PixelToSky(0, 1)
	assert.False(t, ok)
	_, _, ok = p.SkyToPixel(0, math.NaN())
	assert.False(t, ok)
}

func TestTANRoundTrip(t *testing.T) {
	p, err := New(Params{Code: "TAN", CRVal: [2]float64{83.6, 22.0}, CRPix: [2]float64{50, 50}, CDelt: [2]float64{-0.01, 0.01}})
	require.NoError(t, err)

	lon, lat, ok := p.PixelToSky(50, 50)
	require.True(t, ok)
	assert.InDelta(t, 83.6, lon, 1e-9)
	assert.InDelta(t, 22.0, lat, 1e-9)

	// One pixel north is ~0.01 deg away.
	lon2, lat2, _ := p.PixelToSky(50, 51)
	assert.InDelta(t, 0.01, sphere.SeparationDeg(lon, lat, lon2, lat2), 1e-7)
	assert.Greater(t, lat2, lat)

	// Negative cdelt1: increasing column moves west.
	lon3, _, _ := p.PixelToSky(51, 50)
	assert.Less(t, lon3, lon)

	for _, px := range [][2]float64{{0, 0}, {99, 0}, {13.5, 77.25}} {
		lon, lat, ok := p.PixelToSky(px[0], px[1])
		require.True(t, ok)
		col, row, ok := p.SkyToPixel(lon, lat)
		require.True(t, ok)
		assert.InDelta(t, px[0], col, 1e-6)
		assert.InDelta(t, px[1], row, 1e-6)
	}
}

func TestTANUndefinedOnFarHemisphere(t *testing.T) {
	p, err := New(Params{Code: "TAN", CRVal: [2]float64{0, 0}, CDelt: [2]float64{0.1, 0.1}})
	require.NoError(t, err)
	_, _, ok := p.SkyToPixel(180, 0)
	assert.False(t, ok)
	_, _, ok = p.SkyToPixel(90, 0)
	assert.False(t, ok)
	_, _, ok = p.SkyToPixel(45, 0)
	assert.True(t, ok)
}

func TestTANAtPole(t *testing.T) {
	p, err := New(Params{Code: "TAN", CRVal: [2]float64{0, 90}, CRPix: [2]float64{5, 5}, CDelt: [2]float64{0.1, 0.1}})
	require.NoError(t, err)
	lon, lat, ok := p.PixelToSky(5, 5)
	require.True(t, ok)
	assert.InDelta(t, 90, lat, 1e-9)
	col, row, ok := p.SkyToPixel(lon, lat)
	require.True(t, ok)
	assert.InDelta(t, 5, col, 1e-6)
	assert.InDelta(t, 5, row, 1e-6)
}
