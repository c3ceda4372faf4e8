// Package monitor renders diagnostic plots of gridding results.
package monitor

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/low-sky/cygrid/internal/gridder"
)

// ErrNoData is returned when a map has no finite value to draw.
var ErrNoData = errors.New("nothing to plot: every pixel is NoData")

// pixelGrid adapts one plane of a result to plotter.GridXYZ. Pixel centres
// sit at integer column/row coordinates.
type pixelGrid struct {
	ncols, nrows int
	z            func(col, row int) float64
}

func (g pixelGrid) Dims() (c, r int)   { return g.ncols, g.nrows }
func (g pixelGrid) Z(c, r int) float64 { return g.z(c, r) }
func (g pixelGrid) X(c int) float64    { return float64(c) }
func (g pixelGrid) Y(r int) float64    { return float64(r) }

func (g pixelGrid) finiteRange() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for r := 0; r < g.nrows; r++ {
		for c := 0; c < g.ncols; c++ {
			v := g.z(c, r)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			min, max = math.Min(min, v), math.Max(max, v)
			ok = true
		}
	}
	return min, max, ok
}

// SaveWeightMap writes the weight cube as a PNG heat map. Pixels with zero
// weight are drawn transparent.
func SaveWeightMap(res *gridder.Result, path string) error {
	g := pixelGrid{ncols: res.Ncols, nrows: res.Nrows, z: func(c, r int) float64 {
		w := res.WeightAt(c, r)
		if w <= 0 {
			return math.NaN()
		}
		return w
	}}
	return saveHeatMap(g, "Weight", path)
}

// SaveChannelMap writes channel ch of the data cube as a PNG heat map with
// NoData transparent.
func SaveChannelMap(res *gridder.Result, ch int, path string) error {
	if ch < 0 || ch >= res.Nchan {
		return fmt.Errorf("channel %d out of range [0, %d)", ch, res.Nchan)
	}
	g := pixelGrid{ncols: res.Ncols, nrows: res.Nrows, z: func(c, r int) float64 {
		return res.At(c, r, ch)
	}}
	return saveHeatMap(g, fmt.Sprintf("Channel %d", ch), path)
}

func saveHeatMap(g pixelGrid, title, path string) error {
	min, max, ok := g.finiteRange()
	if !ok {
		return ErrNoData
	}
	if min == max {
		min, max = min-0.5, max+0.5
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"

	hm := plotter.NewHeatMap(g, palette.Heat(32, 1))
	hm.Min, hm.Max = min, max
	hm.NaN = color.Transparent
	p.Add(hm)

	size := 6 * vg.Inch
	if err := p.Save(size, size*vg.Length(g.nrows)/vg.Length(g.ncols), path); err != nil {
		return fmt.Errorf("save %s plot: %w", title, err)
	}
	return nil
}

// SaveSpectrum writes the channel values at (col, row) as a line plot.
func SaveSpectrum(res *gridder.Result, col, row int, path string) error {
	if col < 0 || col >= res.Ncols || row < 0 || row >= res.Nrows {
		return fmt.Errorf("pixel (%d, %d) outside %dx%d map", col, row, res.Ncols, res.Nrows)
	}
	if !res.HasData(col, row) {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Spectrum at pixel (%d, %d)", col, row)
	p.X.Label.Text = "Channel"
	p.Y.Label.Text = "Value"

	spec := res.Spectrum(col, row)
	pts := make(plotter.XYs, len(spec))
	for c, v := range spec {
		pts[c] = plotter.XY{X: float64(c), Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save spectrum plot: %w", err)
	}
	return nil
}
