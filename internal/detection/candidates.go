package detection

import (
	"image"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
)

// Source records which technique proposed a candidate.
type Source string

const (
	SourceColorHough   Source = "color-hough"
	SourceColorContour Source = "color-contour"
	SourceGrayHough    Source = "gray-hough"
	SourceGrayContour  Source = "gray-contour"
)

// Candidate is a circle proposed for verification. Its radius is nominal;
// the verifier re-measures it.
type Candidate struct {
	CX     int    `json:"cx"`
	CY     int    `json:"cy"`
	Radius int    `json:"radius"`
	Source Source `json:"source"`
}

// candidateSet accumulates candidates, rejecting any whose center falls
// near one already accepted.
type candidateSet struct {
	list []Candidate
}

// addFixed accepts c unless an existing center lies within dist.
func (s *candidateSet) addFixed(c Candidate, dist float64) bool {
	for _, e := range s.list {
		if distance(e.CX, e.CY, c.CX, c.CY) < dist {
			return false
		}
	}
	s.list = append(s.list, c)
	return true
}

// addRelative accepts c unless an existing center lies within factor times
// the larger of the two radii.
func (s *candidateSet) addRelative(c Candidate, factor float64) bool {
	for _, e := range s.list {
		limit := float64(max(e.Radius, c.Radius)) * factor
		if distance(e.CX, e.CY, c.CX, c.CY) < limit {
			return false
		}
	}
	s.list = append(s.list, c)
	return true
}

// SweepCounts reports how many candidates each technique contributed.
type SweepCounts map[Source]int

// GenerateCandidates proposes bubble circles from two independent sweeps
// over the page.
//
// The color sweep closes small gaps in the ink mask, runs the configured
// Hough passes over a blurred copy, then traces the outlines of a slightly
// dilated copy and keeps the round ones. The grayscale sweep repeats both
// techniques on the luminance image, with contours taken from adaptive
// thresholds at several block sizes, to catch bubbles whose ink is too
// faded for the color band.
//
// Passes run concurrently on up to workers goroutines, but candidates are
// merged in a fixed order, so the result depends only on the page and cfg.
func GenerateCandidates(page *imaging.Page, cfg config.Candidates, workers int) ([]Candidate, SweepCounts) {
	if workers < 1 {
		workers = 1
	}
	set := &candidateSet{}
	counts := SweepCounts{}

	// Color sweep.
	closed := imaging.Close(page.Mask, imaging.Kernel3x3)
	colorBlur := imaging.Blur(closed, cfg.MaskBlurRadius)
	colorCircles := runPasses(cfg.ColorPasses, func(int) *image.Gray { return colorBlur }, workers)
	for _, circles := range colorCircles {
		for _, c := range circles {
			if set.addFixed(Candidate{CX: int(c.X), CY: int(c.Y), Radius: c.Radius, Source: SourceColorHough}, cfg.DedupDistance) {
				counts[SourceColorHough]++
			}
		}
	}

	dilated := imaging.Dilate(closed, imaging.Kernel2x2)
	for _, s := range FindShapes(dilated) {
		if !acceptShape(s, cfg.ColorContour) {
			continue
		}
		c := Candidate{CX: int(s.CX), CY: int(s.CY), Radius: int(s.Radius), Source: SourceColorContour}
		if set.addFixed(c, cfg.DedupDistance) {
			counts[SourceColorContour]++
		}
	}

	// Grayscale sweep. Each distinct blur is computed once and shared.
	blurs := make(map[float64]*image.Gray)
	for _, p := range cfg.GrayPasses {
		if _, ok := blurs[p.BlurRadius]; !ok {
			blurs[p.BlurRadius] = imaging.Blur(page.Gray, p.BlurRadius)
		}
	}
	grayCircles := runPasses(cfg.GrayPasses, func(i int) *image.Gray { return blurs[cfg.GrayPasses[i].BlurRadius] }, workers)
	for _, circles := range grayCircles {
		for _, c := range circles {
			if set.addFixed(Candidate{CX: int(c.X), CY: int(c.Y), Radius: c.Radius, Source: SourceGrayHough}, cfg.DedupDistance) {
				counts[SourceGrayHough]++
			}
		}
	}

	shapeSets := make([][]Shape, len(cfg.GrayBlockSizes))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, block := range cfg.GrayBlockSizes {
		g.Go(func() error {
			binary := imaging.AdaptiveThresholdInv(page.Gray, block, cfg.GrayOffset)
			shapeSets[i] = FindShapes(imaging.Close(binary, imaging.Kernel2x2))
			return nil
		})
	}
	_ = g.Wait()

	for _, shapes := range shapeSets {
		for _, s := range shapes {
			if !acceptShape(s, cfg.GrayContour) {
				continue
			}
			c := Candidate{CX: int(s.CX), CY: int(s.CY), Radius: int(s.Radius), Source: SourceGrayContour}
			if set.addRelative(c, cfg.ContourDedupFac) {
				counts[SourceGrayContour]++
			}
		}
	}

	return set.list, counts
}

// runPasses runs each Hough pass over the image chosen for it and returns
// the circles indexed by pass.
func runPasses(passes []config.HoughPass, input func(i int) *image.Gray, workers int) [][]Circle {
	out := make([][]Circle, len(passes))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, p := range passes {
		g.Go(func() error {
			out[i] = HoughCircles(input(i), p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// acceptShape applies a contour filter. With MinFill set, the size test
// uses the area-equivalent radius and the shape must also fill its
// enclosing circle; otherwise the enclosing radius is tested.
func acceptShape(s Shape, f config.ContourFilter) bool {
	if s.Vertices < f.MinPoints || s.Perimeter < 1 {
		return false
	}
	if s.Circularity() < f.MinCircularity {
		return false
	}
	if f.MinFill > 0 {
		r := math.Sqrt(s.Area / math.Pi)
		if r < f.MinRadius || r > f.MaxRadius {
			return false
		}
		if s.Radius <= 0 || s.Area/(math.Pi*s.Radius*s.Radius) < f.MinFill {
			return false
		}
		return true
	}
	return s.Radius >= f.MinRadius && s.Radius <= f.MaxRadius
}

func distance(x1, y1, x2, y2 int) float64 {
	return math.Hypot(float64(x1-x2), float64(y1-y2))
}
