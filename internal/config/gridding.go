package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/low-sky/cygrid/internal/gridder"
	"github.com/low-sky/cygrid/internal/kernel"
	"github.com/low-sky/cygrid/internal/units"
)

// DefaultConfigPath is the path to the canonical gridding defaults file.
const DefaultConfigPath = "config/gridding.defaults.json"

// GriddingConfig is the root configuration of a gridding run. Angles are
// strings with a unit suffix ("3arcmin", "0.05deg"); bare numbers are
// degrees.
type GriddingConfig struct {
	// Kernel params
	KernelKind          *string  `json:"kernel_kind,omitempty"`
	ShapeParams         []string `json:"shape_params,omitempty"`
	SupportRadius       *string  `json:"support_radius,omitempty"`
	IndexResolutionHint *string  `json:"index_resolution_hint,omitempty"`

	// Execution params
	Workers         *int    `json:"workers,omitempty"`
	PartialBudgetMB *int    `json:"partial_budget_mb,omitempty"`
	IndexStrategy   *string `json:"index_strategy,omitempty"`

	Target *TargetConfig `json:"target,omitempty"`
}

// TargetConfig describes the output map for the cygrid command.
type TargetConfig struct {
	Projection *string   `json:"projection,omitempty"` // CAR or TAN
	CRVal      []float64 `json:"crval,omitempty"`      // reference lon, lat in degrees
	CDelt      []float64 `json:"cdelt,omitempty"`      // degrees per pixel
	CRPix      []float64 `json:"crpix,omitempty"`      // zero-based reference pixel
	Shape      []int     `json:"shape,omitempty"`      // ncols, nrows
	Channels   *int      `json:"channels,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyGriddingConfig returns a GriddingConfig with all fields unset.
func EmptyGriddingConfig() *GriddingConfig {
	return &GriddingConfig{}
}

// DefaultGriddingConfig returns the built-in defaults, matching
// config/gridding.defaults.json.
func DefaultGriddingConfig() *GriddingConfig {
	return &GriddingConfig{
		KernelKind:      ptrString(string(kernel.Gaussian1D)),
		ShapeParams:     []string{"1arcmin"},
		SupportRadius:   ptrString("3arcmin"),
		Workers:         ptrInt(0),
		PartialBudgetMB: ptrInt(gridder.DefaultPartialBudgetMB),
		IndexStrategy:   ptrString(string(gridder.StrategyAuto)),
	}
}

// LoadGriddingConfig loads a GriddingConfig from a JSON file.
// The file must have a .json extension and be at most 1MB. Fields omitted
// from the file fall back to the Get* defaults.
func LoadGriddingConfig(path string) (*GriddingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyGriddingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *GriddingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadGriddingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every set field and that the kernel they describe is
// consistent. Errors wrap gridder.ErrConfiguration.
func (c *GriddingConfig) Validate() error {
	if _, err := c.KernelParams(); err != nil {
		return err
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", gridder.ErrConfiguration, *c.Workers)
	}
	if c.PartialBudgetMB != nil && *c.PartialBudgetMB < 0 {
		return fmt.Errorf("%w: partial_budget_mb must be non-negative, got %d", gridder.ErrConfiguration, *c.PartialBudgetMB)
	}
	switch gridder.Strategy(c.GetIndexStrategy()) {
	case gridder.StrategyAuto, gridder.StrategyIndexSamples, gridder.StrategyIndexPixels:
	default:
		return fmt.Errorf("%w: index_strategy must be one of auto, samples, pixels, got %q",
			gridder.ErrConfiguration, c.GetIndexStrategy())
	}
	if c.Target != nil {
		if err := c.Target.Validate(); err != nil {
			return fmt.Errorf("%w: target: %w", gridder.ErrConfiguration, err)
		}
	}
	return nil
}

// GetKernelKind returns kernel_kind or the default gaussian1d.
func (c *GriddingConfig) GetKernelKind() string {
	if c.KernelKind == nil {
		return string(kernel.Gaussian1D)
	}
	return strings.ToLower(*c.KernelKind)
}

// GetShapeParams returns shape_params or, for the default kernel, one
// arcminute.
func (c *GriddingConfig) GetShapeParams() []string {
	if c.ShapeParams == nil && c.KernelKind == nil {
		return []string{"1arcmin"}
	}
	return c.ShapeParams
}

// GetSupportRadius returns support_radius or the default.
func (c *GriddingConfig) GetSupportRadius() string {
	if c.SupportRadius == nil {
		return "3arcmin" // default
	}
	return *c.SupportRadius
}

// GetIndexResolutionHint returns index_resolution_hint, or "" meaning half
// the support radius.
func (c *GriddingConfig) GetIndexResolutionHint() string {
	if c.IndexResolutionHint == nil {
		return ""
	}
	return *c.IndexResolutionHint
}

// GetWorkers returns workers or 0, meaning one per CPU.
func (c *GriddingConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetPartialBudgetMB returns partial_budget_mb or the default.
func (c *GriddingConfig) GetPartialBudgetMB() int {
	if c.PartialBudgetMB == nil || *c.PartialBudgetMB == 0 {
		return gridder.DefaultPartialBudgetMB
	}
	return *c.PartialBudgetMB
}

// GetIndexStrategy returns index_strategy or "auto".
func (c *GriddingConfig) GetIndexStrategy() string {
	if c.IndexStrategy == nil || *c.IndexStrategy == "" {
		return string(gridder.StrategyAuto)
	}
	return strings.ToLower(*c.IndexStrategy)
}

// KernelParams converts the kernel fields to kernel.Params in degrees.
// Shape parameters of tapered_sinc after the first are unitless ratios and
// gaussian2d's position angle is parsed as an angle.
func (c *GriddingConfig) KernelParams() (kernel.Params, error) {
	kind := kernel.Kind(c.GetKernelKind())
	p := kernel.Params{Kind: kind}

	for i, s := range c.GetShapeParams() {
		var v float64
		var err error
		if kind == kernel.TaperedSinc && i > 0 {
			v, err = parseRatio(s)
		} else {
			v, err = units.ParseAngle(s)
		}
		if err != nil {
			return p, fmt.Errorf("%w: shape_params[%d]: %w", gridder.ErrConfiguration, i, err)
		}
		p.Shape = append(p.Shape, v)
	}

	var err error
	if p.SupportRadius, err = units.ParseAngle(c.GetSupportRadius()); err != nil {
		return p, fmt.Errorf("%w: support_radius: %w", gridder.ErrConfiguration, err)
	}
	if hint := c.GetIndexResolutionHint(); hint != "" {
		if p.IndexResolution, err = units.ParseAngle(hint); err != nil {
			return p, fmt.Errorf("%w: index_resolution_hint: %w", gridder.ErrConfiguration, err)
		}
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("%w: %w", gridder.ErrConfiguration, err)
	}
	return p, nil
}

// Options returns the engine execution options.
func (c *GriddingConfig) Options() gridder.Options {
	return gridder.Options{
		Workers:         c.GetWorkers(),
		PartialBudgetMB: c.GetPartialBudgetMB(),
		Strategy:        gridder.Strategy(c.GetIndexStrategy()),
	}
}

func parseRatio(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// GetProjection returns the projection code or CAR.
func (t *TargetConfig) GetProjection() string {
	if t.Projection == nil || *t.Projection == "" {
		return "CAR"
	}
	return strings.ToUpper(*t.Projection)
}

// GetChannels returns channels or 1.
func (t *TargetConfig) GetChannels() int {
	if t.Channels == nil {
		return 1
	}
	return *t.Channels
}

// Validate checks array lengths and basic ranges.
func (t *TargetConfig) Validate() error {
	switch t.GetProjection() {
	case "CAR", "TAN":
	default:
		return fmt.Errorf("projection must be CAR or TAN, got %q", t.GetProjection())
	}
	if len(t.CRVal) != 2 {
		return fmt.Errorf("crval needs 2 values, got %d", len(t.CRVal))
	}
	if len(t.CDelt) != 2 || t.CDelt[0] == 0 || t.CDelt[1] == 0 {
		return fmt.Errorf("cdelt needs 2 non-zero values, got %v", t.CDelt)
	}
	if len(t.Shape) != 2 || t.Shape[0] < 1 || t.Shape[1] < 1 {
		return fmt.Errorf("shape needs 2 positive values, got %v", t.Shape)
	}
	if t.CRPix != nil && len(t.CRPix) != 2 {
		return fmt.Errorf("crpix needs 2 values, got %d", len(t.CRPix))
	}
	if t.GetChannels() < 1 {
		return fmt.Errorf("channels must be positive, got %d", t.GetChannels())
	}
	return nil
}

// GetCRPix returns crpix, defaulting to the map centre.
func (t *TargetConfig) GetCRPix() [2]float64 {
	if len(t.CRPix) == 2 {
		return [2]float64{t.CRPix[0], t.CRPix[1]}
	}
	return [2]float64{float64(t.Shape[0]-1) / 2, float64(t.Shape[1]-1) / 2}
}
