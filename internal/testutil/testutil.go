// Package testutil provides shared test helpers and deterministic sky
// fixtures.
package testutil

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// RandomSky draws n positions uniformly by area from the patch
// [lon0, lon1] x [lat0, lat1] (degrees). lon1 may exceed 360 to describe a
// patch straddling longitude 0; returned longitudes are wrapped to [0, 360).
func RandomSky(rng *rand.Rand, n int, lon0, lon1, lat0, lat1 float64) (lons, lats []float64) {
	z0 := math.Sin(lat0 * math.Pi / 180)
	z1 := math.Sin(lat1 * math.Pi / 180)
	lons = make([]float64, n)
	lats = make([]float64, n)
	for i := range lons {
		lon := lon0 + rng.Float64()*(lon1-lon0)
		lons[i] = math.Mod(lon+360, 360)
		lats[i] = math.Asin(z0+rng.Float64()*(z1-z0)) * 180 / math.Pi
	}
	return lons, lats
}

// Noise returns n rows of nchan independent normal deviates.
func Noise(rng *rand.Rand, n, nchan int, mu, sigma float64) [][]float64 {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, nchan)
		for c := range rows[i] {
			rows[i][c] = dist.Rand()
		}
	}
	return rows
}

// Constant returns n rows of nchan copies of v.
func Constant(n, nchan int, v float64) [][]float64 {
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, nchan)
		for c := range rows[i] {
			rows[i][c] = v
		}
	}
	return rows
}
