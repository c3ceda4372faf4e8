package gridder

import (
	"fmt"
	"math"
)

// Samples is an immutable set of sky measurements: positions in degrees and
// one channel vector per position, optionally with a data weight each.
type Samples struct {
	lons, lats []float64
	values     []float64 // sample-major, nchan per sample
	nchan      int
	weights    []float64 // nil means every sample weighs 1
}

// NewSamples validates and copies parallel longitude, latitude and value
// sequences. Every row of values must have the same length.
func NewSamples(lons, lats []float64, values [][]float64) (*Samples, error) {
	if len(lons) != len(lats) || len(lons) != len(values) {
		return nil, &InputError{Reason: fmt.Sprintf("length mismatch: %d longitudes, %d latitudes, %d value rows",
			len(lons), len(lats), len(values))}
	}
	s := &Samples{
		lons: append([]float64(nil), lons...),
		lats: append([]float64(nil), lats...),
	}
	if len(values) == 0 {
		return s, nil
	}
	s.nchan = len(values[0])
	if s.nchan == 0 {
		return nil, &InputError{Reason: "samples carry no channels"}
	}

	var badPos, badLen, badVal recordList
	s.values = make([]float64, 0, len(values)*s.nchan)
	for i := range lons {
		if !finite(lons[i]) || !finite(lats[i]) || math.Abs(lats[i]) > 90 {
			badPos.add(i)
		}
		row := values[i]
		if len(row) != s.nchan {
			badLen.add(i)
			continue
		}
		for _, v := range row {
			if !finite(v) {
				badVal.add(i)
				break
			}
		}
		s.values = append(s.values, row...)
	}
	if err := badPos.err("non-finite or out-of-range coordinates"); err != nil {
		return nil, err
	}
	if err := badLen.err(fmt.Sprintf("channel count differs from the first sample's %d", s.nchan)); err != nil {
		return nil, err
	}
	if err := badVal.err("non-finite channel values"); err != nil {
		return nil, err
	}
	return s, nil
}

// WithWeights returns a copy of s whose samples carry the given data weights.
// A sample's kernel weight is multiplied by its data weight; zero drops it.
func (s *Samples) WithWeights(weights []float64) (*Samples, error) {
	if len(weights) != s.Len() {
		return nil, &InputError{Reason: fmt.Sprintf("%d weights for %d samples", len(weights), s.Len())}
	}
	var bad recordList
	for i, w := range weights {
		if !finite(w) || w < 0 {
			bad.add(i)
		}
	}
	if err := bad.err("negative or non-finite data weights"); err != nil {
		return nil, err
	}
	out := *s
	out.weights = append([]float64(nil), weights...)
	return &out, nil
}

// Len returns the number of samples.
func (s *Samples) Len() int { return len(s.lons) }

// Channels returns the channel count, 0 for an empty set.
func (s *Samples) Channels() int { return s.nchan }

// Position returns sample i's longitude and latitude in degrees.
func (s *Samples) Position(i int) (lon, lat float64) { return s.lons[i], s.lats[i] }

// Values returns sample i's channel vector. The slice must not be modified.
func (s *Samples) Values(i int) []float64 { return s.values[i*s.nchan : (i+1)*s.nchan] }

// Weight returns sample i's data weight.
func (s *Samples) Weight(i int) float64 {
	if s.weights == nil {
		return 1
	}
	return s.weights[i]
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
