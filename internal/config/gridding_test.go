package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/low-sky/cygrid/internal/gridder"
	"github.com/low-sky/cygrid/internal/kernel"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gridding.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultGriddingConfig(t *testing.T) {
	cfg := DefaultGriddingConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	p, err := cfg.KernelParams()
	if err != nil {
		t.Fatalf("KernelParams() error: %v", err)
	}
	if p.Kind != kernel.Gaussian1D {
		t.Errorf("Kind = %q, want gaussian1d", p.Kind)
	}
	if len(p.Shape) != 1 || p.Shape[0] != 1.0/60 {
		t.Errorf("Shape = %v, want [1/60]", p.Shape)
	}
	if p.SupportRadius != 3.0/60 {
		t.Errorf("SupportRadius = %g, want 0.05", p.SupportRadius)
	}
	if got := cfg.GetPartialBudgetMB(); got != gridder.DefaultPartialBudgetMB {
		t.Errorf("GetPartialBudgetMB() = %d", got)
	}
}

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := EmptyGriddingConfig()
	if cfg.GetKernelKind() != "gaussian1d" {
		t.Errorf("GetKernelKind() = %q", cfg.GetKernelKind())
	}
	if cfg.GetSupportRadius() != "3arcmin" {
		t.Errorf("GetSupportRadius() = %q", cfg.GetSupportRadius())
	}
	if cfg.GetWorkers() != 0 || cfg.GetIndexStrategy() != "auto" {
		t.Errorf("unexpected execution defaults: workers=%d strategy=%q", cfg.GetWorkers(), cfg.GetIndexStrategy())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestMustLoadDefaultConfigMatchesBuiltin(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want, _ := DefaultGriddingConfig().KernelParams()
	got, err := cfg.KernelParams()
	if err != nil {
		t.Fatalf("KernelParams() error: %v", err)
	}
	if got.Kind != want.Kind || got.SupportRadius != want.SupportRadius || got.Shape[0] != want.Shape[0] {
		t.Errorf("defaults file %+v differs from built-in %+v", got, want)
	}
	if got.IndexResolution != 1.5/60 {
		t.Errorf("IndexResolution = %g, want 0.025", got.IndexResolution)
	}
	if cfg.Target == nil || cfg.Target.GetProjection() != "CAR" {
		t.Fatalf("defaults file should describe a CAR target, got %+v", cfg.Target)
	}
	if crpix := cfg.Target.GetCRPix(); crpix != [2]float64{60, 60} {
		t.Errorf("GetCRPix() = %v, want map centre", crpix)
	}
}

func TestLoadGriddingConfig(t *testing.T) {
	path := writeConfig(t, `{
  "kernel_kind": "gaussian2d",
  "shape_params": ["2arcmin", "1arcmin", "30"],
  "support_radius": "0.1deg",
  "workers": 3,
  "index_strategy": "PIXELS",
  "target": {"projection": "tan", "crval": [83.6, 22], "cdelt": [-0.01, 0.01], "crpix": [10, 12], "shape": [20, 25], "channels": 4}
}`)
	cfg, err := LoadGriddingConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	p, err := cfg.KernelParams()
	if err != nil {
		t.Fatalf("KernelParams() error: %v", err)
	}
	if p.Kind != kernel.Gaussian2D || p.Shape[2] != 30 || p.SupportRadius != 0.1 {
		t.Errorf("unexpected kernel params %+v", p)
	}
	opts := cfg.Options()
	if opts.Workers != 3 || opts.Strategy != gridder.StrategyIndexPixels {
		t.Errorf("unexpected options %+v", opts)
	}
	if cfg.Target.GetProjection() != "TAN" || cfg.Target.GetChannels() != 4 {
		t.Errorf("unexpected target %+v", cfg.Target)
	}
	if crpix := cfg.Target.GetCRPix(); crpix != [2]float64{10, 12} {
		t.Errorf("GetCRPix() = %v", crpix)
	}
}

func TestTaperedSincRatiosAreUnitless(t *testing.T) {
	cfg := &GriddingConfig{
		KernelKind:    ptrString("tapered_sinc"),
		ShapeParams:   []string{"1arcmin", "2.52", "1.55"},
		SupportRadius: ptrString("3arcmin"),
	}
	p, err := cfg.KernelParams()
	if err != nil {
		t.Fatalf("KernelParams() error: %v", err)
	}
	if p.Shape[1] != 2.52 || p.Shape[2] != 1.55 {
		t.Errorf("Shape = %v, want ratios kept as-is", p.Shape)
	}
}

func TestLoadGriddingConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown kernel", `{"kernel_kind": "boxcar"}`, "unknown kernel kind"},
		{"shape count", `{"kernel_kind": "gaussian2d", "shape_params": ["1arcmin"]}`, "expects 3 shape parameters"},
		{"bad unit", `{"support_radius": "3parsec"}`, "support_radius"},
		{"zero support", `{"support_radius": "0"}`, "support radius"},
		{"negative workers", `{"workers": -1}`, "workers"},
		{"bad strategy", `{"index_strategy": "octree"}`, "index_strategy"},
		{"bad target", `{"target": {"crval": [0], "cdelt": [1, 1], "shape": [2, 2]}}`, "crval"},
		{"malformed json", `{"workers": }`, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadGriddingConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidationErrorsWrapConfiguration(t *testing.T) {
	cfg := &GriddingConfig{KernelKind: ptrString("boxcar")}
	err := cfg.Validate()
	if !errors.Is(err, gridder.ErrConfiguration) || !errors.Is(err, kernel.ErrInvalidParams) {
		t.Errorf("error %v should wrap ErrConfiguration and ErrInvalidParams", err)
	}
}

func TestLoadGriddingConfigFileChecks(t *testing.T) {
	if _, err := LoadGriddingConfig("config.yaml"); err == nil {
		t.Error("expected extension error")
	}
	if _, err := LoadGriddingConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected stat error")
	}
	big := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(big, make([]byte, 1024*1024+1), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGriddingConfig(big); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}
