package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if len(cfg.Capture.Steps) != 4 {
		t.Errorf("expected 4 capture steps, got %d", len(cfg.Capture.Steps))
	}
	if got := cfg.Capture.Steps[0].String(); got != "128x128" {
		t.Errorf("first step: got %s, want 128x128", got)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	body := `
verify:
  min_perimeter_ratio: 0.2
  dedup_distance: 30
capture:
  steps:
    - {width: 100, height: 60}
vision:
  provider: gemini
  model: gemini-2.0-flash
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Verify.MinPerimeterRatio != 0.2 {
		t.Errorf("ratio: got %v, want 0.2", cfg.Verify.MinPerimeterRatio)
	}
	if cfg.Verify.DedupDistance != 30 {
		t.Errorf("dedup: got %v, want 30", cfg.Verify.DedupDistance)
	}
	// Untouched fields keep their defaults.
	if cfg.Verify.MinBrightness != 120 {
		t.Errorf("brightness default lost: got %v", cfg.Verify.MinBrightness)
	}
	if len(cfg.Capture.Steps) != 1 || cfg.Capture.Steps[0].Width != 100 {
		t.Errorf("steps not replaced: %+v", cfg.Capture.Steps)
	}
	if cfg.Vision.Provider != "gemini" {
		t.Errorf("provider: got %q", cfg.Vision.Provider)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"BUBBLE_TRACER_WORKERS": "3",
		"BUBBLE_TRACER_DPI":     "200",
		"VISION_PROVIDER":       "azure",
		"VISION_API_KEY":        "secret",
		"VISION_ENDPOINT":       "https://example.invalid",
	}
	cfg := Default()
	if err := cfg.applyEnv(func(k string) string { return env[k] }); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if cfg.Pipeline.Workers != 3 || cfg.Pipeline.DPI != 200 {
		t.Errorf("pipeline overrides not applied: %+v", cfg.Pipeline)
	}
	if cfg.Vision.Provider != "azure" || cfg.Vision.APIKey != "secret" || cfg.Vision.Endpoint != "https://example.invalid" {
		t.Errorf("vision overrides not applied: %+v", cfg.Vision)
	}

	bad := Default()
	err := bad.applyEnv(func(k string) string {
		if k == "BUBBLE_TRACER_WORKERS" {
			return "many"
		}
		return ""
	})
	if err == nil {
		t.Error("expected error for non-numeric worker count")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"inverted hue", func(c *Config) { c.Color.HueMin, c.Color.HueMax = 250, 170 }, "hue_min"},
		{"inverted radius", func(c *Config) { c.Verify.MinRadius = 30 }, "min_radius"},
		{"no steps", func(c *Config) { c.Capture.Steps = nil }, "at least one step"},
		{"zero step", func(c *Config) { c.Capture.Steps[1].Width = 0 }, "non-positive"},
		{"connectivity", func(c *Config) { c.Leader.Connectivity = 6 }, "connectivity"},
		{"sectors", func(c *Config) { c.Verify.PointerSectors = 7 }, "pointer_sectors"},
		{"arc samples", func(c *Config) { c.Verify.ArcSamples = 96 }, "must divide 360"},
		{"workers", func(c *Config) { c.Pipeline.Workers = 0 }, "workers"},
		{"hough", func(c *Config) { c.Candidates.GrayPasses[0].DP = 0 }, "hough pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
