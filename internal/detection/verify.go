package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
)

// Gate names one verification test.
type Gate string

const (
	GateWindow     Gate = "window"
	GatePerimeter  Gate = "perimeter-ratio"
	GateBrightness Gate = "interior-brightness"
	GateDarkRatio  Gate = "interior-dark-ratio"
	GateArc        Gate = "continuous-arc"
	GatePointer    Gate = "pointer"
)

// Rejection says which gate dropped a candidate and why.
type Rejection struct {
	Gate   Gate   `json:"gate"`
	Reason string `json:"reason"`
}

// Measurement collects what the gates observed. Fields are filled in gate
// order; after a rejection the later fields stay zero.
type Measurement struct {
	// Radius is the verified radius chosen by the perimeter scan.
	Radius         int     `json:"radius"`
	PerimeterRatio float64 `json:"perimeter_ratio"`
	Brightness     float64 `json:"brightness"`
	DarkRatio      float64 `json:"dark_ratio"`
	ArcDegrees     int     `json:"arc_degrees"`
	PointerHits    int     `json:"pointer_hits"`
}

// Score ranks a verified bubble for deduplication.
func (m Measurement) Score() float64 {
	return 100*m.PerimeterRatio + 50*float64(m.ArcDegrees)/360 + 20*m.DarkRatio + 0.1*m.Brightness
}

// VerifiedBubble is a candidate that passed every gate.
type VerifiedBubble struct {
	CX     int     `json:"cx"`
	CY     int     `json:"cy"`
	Radius int     `json:"radius"`
	Score  float64 `json:"score"`
	Source Source  `json:"source"`
}

// Verdict is the outcome of verifying one candidate.
type Verdict struct {
	Candidate   Candidate   `json:"candidate"`
	Measurement Measurement `json:"measurement"`
	Rejection   *Rejection  `json:"rejection,omitempty"`
}

// Passed reports whether every gate accepted the candidate.
func (v Verdict) Passed() bool { return v.Rejection == nil }

// Bubble converts a passing verdict into a VerifiedBubble.
func (v Verdict) Bubble() VerifiedBubble {
	return VerifiedBubble{
		CX:     v.Candidate.CX,
		CY:     v.Candidate.CY,
		Radius: v.Measurement.Radius,
		Score:  v.Measurement.Score(),
		Source: v.Candidate.Source,
	}
}

// window is the local neighborhood of one candidate, copied out of the page
// so gates never read outside it.
type window struct {
	gray, mask *image.Gray
	cx, cy     int
}

func (w *window) size() (int, int) {
	return w.gray.Bounds().Dx(), w.gray.Bounds().Dy()
}

type gate struct {
	name  Gate
	check func(w *window, cfg config.Verify, m *Measurement) string
}

// gates run in order; the first non-empty reason rejects the candidate.
var gates = []gate{
	{GatePerimeter, checkPerimeter},
	{GateBrightness, checkBrightness},
	{GateDarkRatio, checkDarkRatio},
	{GateArc, checkArc},
	{GatePointer, checkPointer},
}

// Verify runs the gates for one candidate against the page.
func Verify(c Candidate, page *imaging.Page, cfg config.Verify) Verdict {
	v := Verdict{Candidate: c}

	w, ok := extractWindow(c, page, cfg)
	if !ok {
		v.Rejection = &Rejection{Gate: GateWindow, Reason: "window too small at page edge"}
		return v
	}
	for _, g := range gates {
		if reason := g.check(w, cfg, &v.Measurement); reason != "" {
			v.Rejection = &Rejection{Gate: g.name, Reason: reason}
			return v
		}
	}
	return v
}

func extractWindow(c Candidate, page *imaging.Page, cfg config.Verify) (*window, bool) {
	reach := max(c.Radius, cfg.MinWindowRadius) + cfg.WindowMargin
	r := image.Rect(c.CX-reach, c.CY-reach, c.CX+reach, c.CY+reach).Intersect(page.Bounds())
	if r.Dx() < cfg.MinWindowSide || r.Dy() < cfg.MinWindowSide {
		return nil, false
	}
	return &window{
		gray: imaging.SubGray(page.Gray, r),
		mask: imaging.SubGray(page.Mask, r),
		cx:   c.CX - r.Min.X,
		cy:   c.CY - r.Min.Y,
	}, true
}

// checkPerimeter scans rings of every radius in the scan range and keeps
// the one with the highest share of ink pixels. The winning radius replaces
// the candidate's nominal radius.
func checkPerimeter(w *window, cfg config.Verify, m *Measurement) string {
	ww, wh := w.size()
	scanMax := min(w.cx, w.cy, ww-w.cx, wh-w.cy) - 2
	scanMax = min(scanMax, cfg.ScanMaxRadius)

	bestRatio, bestR := 0.0, 0
	for r := cfg.ScanMinRadius; r <= scanMax; r++ {
		reach := r + int(math.Ceil(cfg.RingThickness/2))
		var total, ink int
		for y := max(0, w.cy-reach); y <= min(wh-1, w.cy+reach); y++ {
			for x := max(0, w.cx-reach); x <= min(ww-1, w.cx+reach); x++ {
				if !imaging.InRing(x-w.cx, y-w.cy, float64(r), cfg.RingThickness) {
					continue
				}
				total++
				if w.mask.Pix[y*w.mask.Stride+x] != 0 {
					ink++
				}
			}
		}
		if total == 0 {
			continue
		}
		if ratio := float64(ink) / float64(total); ratio > bestRatio {
			bestRatio, bestR = ratio, r
		}
	}

	m.PerimeterRatio = bestRatio
	m.Radius = bestR
	if bestRatio < cfg.MinPerimeterRatio {
		return fmt.Sprintf("perimeter ink ratio %.3f below %.2f", bestRatio, cfg.MinPerimeterRatio)
	}
	if bestR < cfg.MinRadius || bestR > cfg.MaxRadius {
		return fmt.Sprintf("verified radius %d outside [%d,%d]", bestR, cfg.MinRadius, cfg.MaxRadius)
	}
	return ""
}

// interior visits the pixels of the inner disk and returns how many there were.
func interior(w *window, cfg config.Verify, radius int, visit func(v uint8)) int {
	inner := max(cfg.MinInteriorRadius, int(float64(radius)*cfg.InteriorFraction))
	ww, wh := w.size()
	n := 0
	for y := max(0, w.cy-inner); y <= min(wh-1, w.cy+inner); y++ {
		for x := max(0, w.cx-inner); x <= min(ww-1, w.cx+inner); x++ {
			if !imaging.InDisk(x-w.cx, y-w.cy, inner) {
				continue
			}
			visit(w.gray.Pix[y*w.gray.Stride+x])
			n++
		}
	}
	return n
}

// checkBrightness rejects dark interiors such as drilled holes.
func checkBrightness(w *window, cfg config.Verify, m *Measurement) string {
	sum := 0
	n := interior(w, cfg, m.Radius, func(v uint8) { sum += int(v) })
	if n > 0 {
		m.Brightness = float64(sum) / float64(n)
	}
	if m.Brightness < cfg.MinBrightness {
		return fmt.Sprintf("interior brightness %.1f below %.0f", m.Brightness, cfg.MinBrightness)
	}
	return ""
}

// checkDarkRatio requires some printed digit but not a solid fill.
func checkDarkRatio(w *window, cfg config.Verify, m *Measurement) string {
	dark := 0
	n := interior(w, cfg, m.Radius, func(v uint8) {
		if v < cfg.DarkThreshold {
			dark++
		}
	})
	if n > 0 {
		m.DarkRatio = float64(dark) / float64(n)
	}
	if m.DarkRatio < cfg.MinDarkRatio || m.DarkRatio > cfg.MaxDarkRatio {
		return fmt.Sprintf("interior dark ratio %.3f outside [%.2f,%.2f]", m.DarkRatio, cfg.MinDarkRatio, cfg.MaxDarkRatio)
	}
	return ""
}

// sample reports whether the mask is set at polar offset (r, theta) from the
// window center. Offsets truncate toward zero.
func (w *window) sample(r int, theta float64) bool {
	x := w.cx + int(float64(r)*math.Cos(theta))
	y := w.cy + int(float64(r)*math.Sin(theta))
	return imaging.GrayAt(w.mask, x, y) != 0
}

// checkArc requires a long unbroken run of ink around the verified radius.
// Runs wrap past 360 degrees.
func checkArc(w *window, cfg config.Verify, m *Measurement) string {
	n := cfg.ArcSamples
	step := 360 / n
	hit := make([]bool, n)
	for a := 0; a < n; a++ {
		theta := float64(a*step) * math.Pi / 180
		for dr := -cfg.ArcTolerance; dr <= cfg.ArcTolerance; dr++ {
			if w.sample(m.Radius+dr, theta) {
				hit[a] = true
				break
			}
		}
	}

	longest, run := 0, 0
	for i := 0; i < 2*n; i++ {
		if hit[i%n] {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	longest = min(longest, n)

	m.ArcDegrees = longest * step
	if m.ArcDegrees < cfg.MinArcDegrees {
		return fmt.Sprintf("longest ink arc %d° below %d°", m.ArcDegrees, cfg.MinArcDegrees)
	}
	return ""
}

// checkPointer looks for a localized cluster of ink just outside the rim.
// Hits are bucketed into sectors and the best run of adjacent sectors must
// collect enough of them.
func checkPointer(w *window, cfg config.Verify, m *Measurement) string {
	n := cfg.ArcSamples
	step := 360 / n
	perSector := n / cfg.PointerSectors
	sectors := make([]int, cfg.PointerSectors)
	for a := 0; a < n; a++ {
		theta := float64(a*step) * math.Pi / 180
		for off := cfg.PointerInner; off <= cfg.PointerOuter; off++ {
			if w.sample(m.Radius+off, theta) {
				sectors[a/perSector]++
			}
		}
	}

	best := 0
	for s := range sectors {
		sum := 0
		for k := 0; k < cfg.PointerSpan; k++ {
			sum += sectors[(s+k)%len(sectors)]
		}
		best = max(best, sum)
	}

	m.PointerHits = best
	if best < cfg.MinPointerHits {
		return fmt.Sprintf("pointer hits %d below %d", best, cfg.MinPointerHits)
	}
	return ""
}

// VerifyAll verifies candidates concurrently. Verdicts are returned in
// candidate order.
func VerifyAll(cands []Candidate, page *imaging.Page, cfg config.Verify, workers int) []Verdict {
	out := make([]Verdict, len(cands))
	var g errgroup.Group
	g.SetLimit(max(1, workers))
	for i, c := range cands {
		g.Go(func() error {
			out[i] = Verify(c, page, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Deduplicate keeps the highest-scored bubble of every cluster: bubbles are
// visited by descending score and each one suppresses all lower-scored
// bubbles whose centers lie closer than minSeparation. Equal scores keep
// their input order.
func Deduplicate(bubbles []VerifiedBubble, minSeparation float64) []VerifiedBubble {
	sorted := make([]VerifiedBubble, len(bubbles))
	copy(sorted, bubbles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	used := make([]bool, len(sorted))
	result := make([]VerifiedBubble, 0, len(sorted))
	for i, b := range sorted {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !used[j] && distance(b.CX, b.CY, sorted[j].CX, sorted[j].CY) < minSeparation {
				used[j] = true
			}
		}
		result = append(result, b)
	}
	return result
}
