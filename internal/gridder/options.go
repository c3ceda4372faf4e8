package gridder

import (
	"fmt"
	"runtime"
)

// Strategy chooses which set the engine indexes.
type Strategy string

const (
	// StrategyAuto indexes the larger of {samples, valid pixel centres}.
	StrategyAuto Strategy = "auto"
	// StrategyIndexSamples indexes samples and iterates over pixels.
	StrategyIndexSamples Strategy = "samples"
	// StrategyIndexPixels indexes pixel centres and iterates over samples.
	StrategyIndexPixels Strategy = "pixels"
)

// DefaultPartialBudgetMB bounds the memory spent on per-worker partial
// accumulators before the engine switches to one shared accumulator.
const DefaultPartialBudgetMB = 512

// Options tunes how a run is executed. Results do not depend on them
// beyond floating-point rounding. The zero value selects defaults.
type Options struct {
	Workers         int      // <= 0 means runtime.NumCPU()
	PartialBudgetMB int      // <= 0 means DefaultPartialBudgetMB
	Strategy        Strategy // "" means StrategyAuto
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.PartialBudgetMB <= 0 {
		o.PartialBudgetMB = DefaultPartialBudgetMB
	}
	switch o.Strategy {
	case "":
		o.Strategy = StrategyAuto
	case StrategyAuto, StrategyIndexSamples, StrategyIndexPixels:
	default:
		return o, fmt.Errorf("%w: unknown index strategy %q", ErrConfiguration, o.Strategy)
	}
	return o, nil
}
