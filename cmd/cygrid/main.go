// Command cygrid grids a CSV table of sky samples onto a map described by a
// JSON config, optionally storing the run in SQLite and plotting coverage.
//
// Input rows are lon,lat,ch0,...,chN-1 with an extra trailing data weight
// when -weights is set. Lines starting with '#' and a non-numeric header
// row are skipped.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/low-sky/cygrid/internal/config"
	"github.com/low-sky/cygrid/internal/db"
	"github.com/low-sky/cygrid/internal/grid"
	"github.com/low-sky/cygrid/internal/gridder"
	"github.com/low-sky/cygrid/internal/monitor"
	"github.com/low-sky/cygrid/internal/monitoring"
	"github.com/low-sky/cygrid/internal/version"
	"github.com/low-sky/cygrid/internal/wcs"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Printf("cygrid: %v", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("cygrid", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultConfigPath, "Gridding config JSON")
	inputPath := fs.String("input", "", "CSV of lon,lat,channels... (- for stdin)")
	weights := fs.Bool("weights", false, "Last CSV column is a per-sample data weight")
	dbPath := fs.String("db", "", "SQLite run store; empty disables storage")
	description := fs.String("description", "", "Description stored with the run")
	plotPath := fs.String("plot", "", "Write a weight-map PNG to this path")
	list := fs.Bool("list", false, "List runs stored in -db and exit")
	quiet := fs.Bool("quiet", false, "Suppress progress logging")
	showVersion := fs.Bool("version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	if *list {
		if *dbPath == "" {
			return fmt.Errorf("-list needs -db")
		}
		return listRuns(*dbPath, stdout)
	}

	cfg, err := config.LoadGriddingConfig(*configPath)
	if err != nil {
		return err
	}
	params, err := cfg.KernelParams()
	if err != nil {
		return err
	}
	target, err := buildTarget(cfg)
	if err != nil {
		return err
	}
	if *inputPath == "" {
		return fmt.Errorf("-input is required")
	}

	in := os.Stdin
	if *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	samples, err := readSamples(in, target.Channels(), *weights)
	if err != nil {
		return err
	}

	res, err := gridder.Grid(samples, target, params, cfg.Options())
	if err != nil {
		return err
	}
	printSummary(stdout, res)

	if *plotPath != "" {
		if err := monitor.SaveWeightMap(res, *plotPath); err != nil {
			return fmt.Errorf("plot: %w", err)
		}
		fmt.Fprintf(stdout, "weight map: %s\n", *plotPath)
	}

	if *dbPath != "" {
		store, err := db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("open run store: %w", err)
		}
		defer store.Close()
		r, err := db.RunFromResult(res, string(params.Kind), cfg)
		if err != nil {
			return err
		}
		r.Description = *description
		if err := store.InsertRun(r); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "run id: %s\n", r.RunID)
	}
	return nil
}

// buildTarget constructs the output map from the config's target section.
func buildTarget(cfg *config.GriddingConfig) (*grid.Target, error) {
	t := cfg.Target
	if t == nil {
		return nil, fmt.Errorf("config has no target section")
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	proj, err := wcs.New(wcs.Params{
		Code:  t.GetProjection(),
		CRVal: [2]float64{t.CRVal[0], t.CRVal[1]},
		CRPix: t.GetCRPix(),
		CDelt: [2]float64{t.CDelt[0], t.CDelt[1]},
	})
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return grid.NewMap(proj, t.Shape[0], t.Shape[1], t.GetChannels())
}

// readSamples parses the CSV sample table.
func readSamples(r io.Reader, nchan int, withWeights bool) (*gridder.Samples, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	want := 2 + nchan
	if withWeights {
		want++
	}
	cr.FieldsPerRecord = want

	var lons, lats, ws []float64
	var values [][]float64
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}
		row, err := parseRow(rec)
		if err != nil {
			if line == 1 && isHeader(rec) {
				continue
			}
			return nil, fmt.Errorf("input row %d: %w", line, err)
		}
		lons = append(lons, row[0])
		lats = append(lats, row[1])
		values = append(values, row[2:2+nchan])
		if withWeights {
			ws = append(ws, row[2+nchan])
		}
	}

	s, err := gridder.NewSamples(lons, lats, values)
	if err != nil {
		return nil, err
	}
	if withWeights {
		return s.WithWeights(ws)
	}
	return s, nil
}

// isHeader reports whether rec is a header row: no field is a number.
func isHeader(rec []string) bool {
	for _, f := range rec {
		if _, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			return false
		}
	}
	return true
}

func parseRow(rec []string) ([]float64, error) {
	out := make([]float64, len(rec))
	for i, f := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("column %d: invalid float %q", i+1, f)
		}
		out[i] = v
	}
	return out, nil
}

func printSummary(w io.Writer, res *gridder.Result) {
	st := res.Stats
	fmt.Fprintf(w, "map %dx%d, %d channels\n", res.Ncols, res.Nrows, res.Nchan)
	fmt.Fprintf(w, "samples: %d used, %d outside map, %d zero weight\n",
		st.SamplesUsed, st.SamplesExcluded, st.SamplesZeroWeight)
	fmt.Fprintf(w, "pixels with data: %d of %d\n", st.PixelsWithData, res.Ncols*res.Nrows)

	var vals, wts []float64
	for p, wt := range res.Weights {
		if wt > 0 {
			vals = append(vals, res.Cube[p*res.Nchan])
			wts = append(wts, wt)
		}
	}
	if len(vals) > 0 {
		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			std = 0
		}
		fmt.Fprintf(w, "channel 0: mean %.6g, std %.6g\n", mean, std)
		fmt.Fprintf(w, "weight: median %.6g, max %.6g\n", median(wts), floats.Max(wts))
	}
	fmt.Fprintf(w, "elapsed: %v (indexed %s, order %d)\n", st.Elapsed, st.Indexed, st.IndexOrder)
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func listRuns(path string, w io.Writer) error {
	store, err := db.NewDB(path)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()
	runs, err := store.ListRuns(0)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-12s  %dx%dx%d  %d samples  %d pixels  %s\n",
			r.RunID, r.KernelKind, r.Ncols, r.Nrows, r.Nchannels, r.SamplesUsed, r.PixelsWithData, r.Description)
	}
	return nil
}
