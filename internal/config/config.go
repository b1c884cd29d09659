// Package config holds every tunable threshold of the bubble tracer in one
// value object so that detection parameters can be swept from tests and
// overridden from a YAML file without touching the algorithms.
//
// The defaults are tuned for blue-ink callouts on drawings rendered at
// 300 DPI. Nothing here scales with DPI: a drawing rendered at another
// resolution needs its radius and distance limits adjusted by hand.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ColorBand selects ink pixels by hue, saturation and value.
// Hue is in degrees (0-360), saturation and value are fractions (0-1).
type ColorBand struct {
	HueMin float64 `yaml:"hue_min"`
	HueMax float64 `yaml:"hue_max"`
	SatMin float64 `yaml:"sat_min"`
	SatMax float64 `yaml:"sat_max"`
	ValMin float64 `yaml:"val_min"`
	ValMax float64 `yaml:"val_max"`
}

// HoughPass is one run of the gradient circle transform.
type HoughPass struct {
	// DP is the inverse accumulator resolution (1 = one cell per pixel).
	DP float64 `yaml:"dp"`
	// MinDist is the minimum distance between accepted centers in pixels.
	MinDist float64 `yaml:"min_dist"`
	// EdgeThreshold is the gradient magnitude an edge pixel must reach.
	EdgeThreshold float64 `yaml:"edge_threshold"`
	// Votes is the accumulator count a center must exceed.
	Votes     int `yaml:"votes"`
	MinRadius int `yaml:"min_radius"`
	MaxRadius int `yaml:"max_radius"`
	// BlurRadius selects the pre-blur applied to the grayscale page.
	// Ignored for passes over the color mask.
	BlurRadius float64 `yaml:"blur_radius"`
}

// ContourFilter accepts connected shapes that look like a circle.
type ContourFilter struct {
	MinPoints      int     `yaml:"min_points"`
	MinCircularity float64 `yaml:"min_circularity"`
	MinRadius      float64 `yaml:"min_radius"`
	MaxRadius      float64 `yaml:"max_radius"`
	// MinFill is the filled area over the enclosing circle area. Zero disables it.
	MinFill float64 `yaml:"min_fill"`
}

// Candidates configures the CandidateGenerator.
type Candidates struct {
	MaskBlurRadius  float64       `yaml:"mask_blur_radius"`
	ColorPasses     []HoughPass   `yaml:"color_passes"`
	ColorContour    ContourFilter `yaml:"color_contour"`
	GrayPasses      []HoughPass   `yaml:"gray_passes"`
	GrayContour     ContourFilter `yaml:"gray_contour"`
	GrayBlockSizes  []int         `yaml:"gray_block_sizes"`
	GrayOffset      float64       `yaml:"gray_offset"`
	DedupDistance   float64       `yaml:"dedup_distance"`
	ContourDedupFac float64       `yaml:"contour_dedup_factor"`
}

// Verify configures the five verification gates and the final dedup.
type Verify struct {
	WindowMargin    int `yaml:"window_margin"`
	MinWindowRadius int `yaml:"min_window_radius"`
	MinWindowSide   int `yaml:"min_window_side"`

	ScanMinRadius     int     `yaml:"scan_min_radius"`
	ScanMaxRadius     int     `yaml:"scan_max_radius"`
	RingThickness     float64 `yaml:"ring_thickness"`
	MinPerimeterRatio float64 `yaml:"min_perimeter_ratio"`
	MinRadius         int     `yaml:"min_radius"`
	MaxRadius         int     `yaml:"max_radius"`

	InteriorFraction  float64 `yaml:"interior_fraction"`
	MinInteriorRadius int     `yaml:"min_interior_radius"`
	MinBrightness     float64 `yaml:"min_brightness"`

	DarkThreshold uint8   `yaml:"dark_threshold"`
	MinDarkRatio  float64 `yaml:"min_dark_ratio"`
	MaxDarkRatio  float64 `yaml:"max_dark_ratio"`

	ArcSamples    int `yaml:"arc_samples"`
	ArcTolerance  int `yaml:"arc_tolerance"`
	MinArcDegrees int `yaml:"min_arc_degrees"`

	PointerInner   int `yaml:"pointer_inner"`
	PointerOuter   int `yaml:"pointer_outer"`
	PointerSectors int `yaml:"pointer_sectors"`
	PointerSpan    int `yaml:"pointer_span"`
	MinPointerHits int `yaml:"min_pointer_hits"`

	DedupDistance float64 `yaml:"dedup_distance"`
}

// Leader configures the LeaderTracer.
type Leader struct {
	SearchFactor     int     `yaml:"search_factor"`
	MinWindowSide    int     `yaml:"min_window_side"`
	NeighborPad      int     `yaml:"neighbor_pad"`
	SeedStepDegrees  int     `yaml:"seed_step_degrees"`
	SeedOffsets      []int   `yaml:"seed_offsets"`
	ErasePad         int     `yaml:"erase_pad"`
	MinRemaining     int     `yaml:"min_remaining"`
	Connectivity     int     `yaml:"connectivity"`
	HarrisK          float64 `yaml:"harris_k"`
	ResponseFraction float64 `yaml:"response_fraction"`
	MinDistFactor    float64 `yaml:"min_dist_factor"`
	MaxDistFactor    float64 `yaml:"max_dist_factor"`
}

// Size is a capture box width and height in pixels.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Capture configures the CaptureBoxPlanner.
type Capture struct {
	Steps        []Size `yaml:"steps"`
	AnchorOffset int    `yaml:"anchor_offset"`
	MinCropSide  int    `yaml:"min_crop_side"`
}

// Matcher configures the DimensionMatcher.
type Matcher struct {
	SimilarThreshold float64 `yaml:"similar_threshold"`
}

// Pipeline configures one page run.
type Pipeline struct {
	Workers        int     `yaml:"workers"`
	DPI            int     `yaml:"dpi"`
	ReadingRowSize int     `yaml:"reading_row_size"`
	BubbleCropPad  int     `yaml:"bubble_crop_pad"`
	WarnConfidence float64 `yaml:"warn_confidence"`
	ValidatorLimit int     `yaml:"validator_limit"`
	OCRLanguage    string  `yaml:"ocr_language"`
}

// Vision configures the external vision validator.
type Vision struct {
	Provider   string        `yaml:"provider"` // "gemini", "openai", "azure" or empty to disable
	Model      string        `yaml:"model"`
	APIKey     string        `yaml:"-"`
	Endpoint   string        `yaml:"endpoint"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Config is the complete tunable parameter set.
type Config struct {
	Color      ColorBand  `yaml:"color"`
	Candidates Candidates `yaml:"candidates"`
	Verify     Verify     `yaml:"verify"`
	Leader     Leader     `yaml:"leader"`
	Capture    Capture    `yaml:"capture"`
	Matcher    Matcher    `yaml:"matcher"`
	Pipeline   Pipeline   `yaml:"pipeline"`
	Vision     Vision     `yaml:"vision"`
}

// Default returns the tuned defaults.
func Default() Config {
	return Config{
		Color: ColorBand{
			HueMin: 170, HueMax: 250,
			SatMin: 25.0 / 255, SatMax: 1,
			ValMin: 50.0 / 255, ValMax: 1,
		},
		Candidates: Candidates{
			MaskBlurRadius: 2,
			ColorPasses: []HoughPass{
				{DP: 1.0, MinDist: 18, EdgeThreshold: 60, Votes: 12, MinRadius: 10, MaxRadius: 28},
				{DP: 1.2, MinDist: 20, EdgeThreshold: 80, Votes: 15, MinRadius: 10, MaxRadius: 28},
				{DP: 1.5, MinDist: 18, EdgeThreshold: 50, Votes: 10, MinRadius: 8, MaxRadius: 30},
				{DP: 1.0, MinDist: 15, EdgeThreshold: 40, Votes: 8, MinRadius: 8, MaxRadius: 25},
			},
			ColorContour: ContourFilter{MinPoints: 6, MinCircularity: 0.25, MinRadius: 8, MaxRadius: 35},
			GrayPasses: []HoughPass{
				{DP: 1.2, MinDist: 22, EdgeThreshold: 120, Votes: 23, MinRadius: 12, MaxRadius: 50, BlurRadius: 4},
				{DP: 1.0, MinDist: 18, EdgeThreshold: 100, Votes: 20, MinRadius: 8, MaxRadius: 25, BlurRadius: 2},
				{DP: 1.5, MinDist: 22, EdgeThreshold: 80, Votes: 18, MinRadius: 10, MaxRadius: 45, BlurRadius: 4},
				{DP: 1.0, MinDist: 15, EdgeThreshold: 80, Votes: 15, MinRadius: 10, MaxRadius: 22, BlurRadius: 2},
			},
			GrayContour:     ContourFilter{MinPoints: 8, MinCircularity: 0.65, MinRadius: 8, MaxRadius: 50, MinFill: 0.6},
			GrayBlockSizes:  []int{31, 51, 71},
			GrayOffset:      10,
			DedupDistance:   15,
			ContourDedupFac: 0.6,
		},
		Verify: Verify{
			WindowMargin:      20,
			MinWindowRadius:   20,
			MinWindowSide:     20,
			ScanMinRadius:     8,
			ScanMaxRadius:     26,
			RingThickness:     3,
			MinPerimeterRatio: 0.15,
			MinRadius:         10,
			MaxRadius:         22,
			InteriorFraction:  0.60,
			MinInteriorRadius: 3,
			MinBrightness:     120,
			DarkThreshold:     128,
			MinDarkRatio:      0.03,
			MaxDarkRatio:      0.60,
			ArcSamples:        72,
			ArcTolerance:      1,
			MinArcDegrees:     180,
			PointerInner:      2,
			PointerOuter:      10,
			PointerSectors:    12,
			PointerSpan:       3,
			MinPointerHits:    8,
			DedupDistance:     25,
		},
		Leader: Leader{
			SearchFactor:     3,
			MinWindowSide:    10,
			NeighborPad:      1,
			SeedStepDegrees:  5,
			SeedOffsets:      []int{-1, 1, -2, 2},
			ErasePad:         2,
			MinRemaining:     3,
			Connectivity:     4,
			HarrisK:          0.04,
			ResponseFraction: 0.01,
			MinDistFactor:    0.3,
			MaxDistFactor:    3.0,
		},
		Capture: Capture{
			Steps: []Size{
				{Width: 128, Height: 128},
				{Width: 256, Height: 128},
				{Width: 512, Height: 256},
				{Width: 1024, Height: 512},
			},
			AnchorOffset: 4,
			MinCropSide:  4,
		},
		Matcher: Matcher{SimilarThreshold: 0.75},
		Pipeline: Pipeline{
			Workers:        runtime.NumCPU(),
			DPI:            300,
			ReadingRowSize: 60,
			BubbleCropPad:  2,
			WarnConfidence: 0.8,
			ValidatorLimit: 4,
			OCRLanguage:    "eng",
		},
		Vision: Vision{
			APIVersion: "2024-12-01-preview",
			Timeout:    90 * time.Second,
		},
	}
}

// Load reads a YAML file over the defaults and then applies environment
// overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("BUBBLE_TRACER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUBBLE_TRACER_WORKERS: %w", err)
		}
		c.Pipeline.Workers = n
	}
	if v := getenv("BUBBLE_TRACER_DPI"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BUBBLE_TRACER_DPI: %w", err)
		}
		c.Pipeline.DPI = n
	}
	if v := getenv("VISION_PROVIDER"); v != "" {
		c.Vision.Provider = v
	}
	if v := getenv("VISION_MODEL"); v != "" {
		c.Vision.Model = v
	}
	if v := getenv("VISION_API_KEY"); v != "" {
		c.Vision.APIKey = v
	}
	if v := getenv("VISION_ENDPOINT"); v != "" {
		c.Vision.Endpoint = v
	}
	return nil
}

// Validate reports parameter combinations the algorithms cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.Color.HueMin > c.Color.HueMax {
		errs = append(errs, fmt.Errorf("color: hue_min %.1f > hue_max %.1f", c.Color.HueMin, c.Color.HueMax))
	}
	if c.Verify.MinRadius > c.Verify.MaxRadius {
		errs = append(errs, fmt.Errorf("verify: min_radius %d > max_radius %d", c.Verify.MinRadius, c.Verify.MaxRadius))
	}
	if c.Verify.ScanMinRadius > c.Verify.ScanMaxRadius {
		errs = append(errs, fmt.Errorf("verify: scan_min_radius %d > scan_max_radius %d", c.Verify.ScanMinRadius, c.Verify.ScanMaxRadius))
	}
	if c.Verify.ArcSamples <= 0 || c.Verify.PointerSectors <= 0 || c.Verify.ArcSamples%c.Verify.PointerSectors != 0 {
		errs = append(errs, fmt.Errorf("verify: arc_samples %d must be a positive multiple of pointer_sectors %d",
			c.Verify.ArcSamples, c.Verify.PointerSectors))
	}
	if c.Verify.ArcSamples > 0 && 360%c.Verify.ArcSamples != 0 {
		errs = append(errs, fmt.Errorf("verify: arc_samples %d must divide 360", c.Verify.ArcSamples))
	}
	if len(c.Capture.Steps) == 0 {
		errs = append(errs, errors.New("capture: at least one step is required"))
	}
	for i, s := range c.Capture.Steps {
		if s.Width <= 0 || s.Height <= 0 {
			errs = append(errs, fmt.Errorf("capture: step %d has non-positive size %s", i, s))
		}
	}
	if c.Pipeline.Workers < 1 {
		errs = append(errs, fmt.Errorf("pipeline: workers must be at least 1, got %d", c.Pipeline.Workers))
	}
	if c.Leader.Connectivity != 4 && c.Leader.Connectivity != 8 {
		errs = append(errs, fmt.Errorf("leader: connectivity must be 4 or 8, got %d", c.Leader.Connectivity))
	}
	for _, p := range append(append([]HoughPass{}, c.Candidates.ColorPasses...), c.Candidates.GrayPasses...) {
		if p.DP <= 0 || p.MinRadius <= 0 || p.MinRadius > p.MaxRadius {
			errs = append(errs, fmt.Errorf("candidates: invalid hough pass %+v", p))
		}
	}
	return errors.Join(errs...)
}
