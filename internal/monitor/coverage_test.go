package monitor

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/low-sky/cygrid/internal/gridder"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testResult() *gridder.Result {
	nan := math.NaN()
	return &gridder.Result{
		Ncols: 3, Nrows: 2, Nchan: 2,
		Cube:    []float64{1, 2, nan, nan, 3, 4, 5, 6, nan, nan, 7, 8},
		Weights: []float64{0.5, 0, 1, 2, 0, 1.5},
	}
}

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Errorf("%s is not a PNG", path)
	}
}

func TestSaveWeightMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.png")
	if err := SaveWeightMap(testResult(), path); err != nil {
		t.Fatalf("SaveWeightMap: %v", err)
	}
	assertPNG(t, path)
}

func TestSaveChannelMap(t *testing.T) {
	dir := t.TempDir()
	for ch := 0; ch < 2; ch++ {
		path := filepath.Join(dir, "channel.png")
		if err := SaveChannelMap(testResult(), ch, path); err != nil {
			t.Fatalf("SaveChannelMap(%d): %v", ch, err)
		}
		assertPNG(t, path)
	}
	if err := SaveChannelMap(testResult(), 2, filepath.Join(dir, "x.png")); err == nil {
		t.Error("expected out-of-range channel error")
	}
}

func TestSaveMapWithoutData(t *testing.T) {
	res := testResult()
	for i := range res.Weights {
		res.Weights[i] = 0
	}
	err := SaveWeightMap(res, filepath.Join(t.TempDir(), "empty.png"))
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestSaveConstantMap(t *testing.T) {
	res := testResult()
	for i := range res.Weights {
		res.Weights[i] = 1
	}
	path := filepath.Join(t.TempDir(), "flat.png")
	if err := SaveWeightMap(res, path); err != nil {
		t.Fatalf("SaveWeightMap: %v", err)
	}
	assertPNG(t, path)
}

func TestSaveSpectrum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spectrum.png")
	if err := SaveSpectrum(testResult(), 0, 0, path); err != nil {
		t.Fatalf("SaveSpectrum: %v", err)
	}
	assertPNG(t, path)

	if err := SaveSpectrum(testResult(), 1, 0, path); !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
	if err := SaveSpectrum(testResult(), 3, 0, path); err == nil {
		t.Error("expected out-of-range pixel error")
	}
}
