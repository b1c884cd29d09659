package pipeline

import (
	"image"
	"sort"

	"github.com/ironsheep/bubble-tracer/internal/capture"
	"github.com/ironsheep/bubble-tracer/internal/dimension"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// Run status values.
const (
	StatusComplete = "complete"
	StatusError    = "error"
)

// Bubble is one verified bubble as reported in a Result.
type Bubble struct {
	// Number is the balloon number. Zero when OCR could not read it.
	Number int     `json:"number"`
	CX     int     `json:"cx"`
	CY     int     `json:"cy"`
	Radius int     `json:"radius"`
	Score  float64 `json:"score"`
	// OCRText is the raw recognizer output for the bubble crop.
	OCRText   string            `json:"ocrText,omitempty"`
	Direction *leader.Direction `json:"direction"`
	// CaptureBox is the first capture step, nil without a direction.
	CaptureBox *capture.Box `json:"captureBox,omitempty"`
	// Region is the bubble plus its first capture box.
	Region capture.Box `json:"region"`
}

// Warning flags a balloon whose dimension was reconciled with low confidence.
type Warning struct {
	BalloonNo  int     `json:"balloonNo"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// Metrics records stage durations in milliseconds and the peak resident
// memory of the process during the run.
type Metrics struct {
	RenderMs     int64   `json:"renderMs"`
	DetectMs     int64   `json:"detectMs"`
	OCRMs        int64   `json:"ocrMs"`
	TraceMs      int64   `json:"traceMs"`
	LLMMs        int64   `json:"llmMs"`
	MergeMs      int64   `json:"mergeMs"`
	TotalMs      int64   `json:"totalMs"`
	PeakMemoryMB float64 `json:"peakMemoryMb"`
}

// TokenUsage totals validator tokens over a run.
type TokenUsage struct {
	vision.Usage
	LLMCalls int `json:"llmCalls"`
}

// Result is the document produced for one page.
type Result struct {
	RunID       string `json:"runId"`
	Source      string `json:"source"`
	ImageWidth  int    `json:"imageWidth"`
	ImageHeight int    `json:"imageHeight"`

	Bubbles      []Bubble                         `json:"bubbles"`
	DimensionMap map[int]dimension.DimensionMatch `json:"dimensionMap"`

	TotalBubbles     int       `json:"totalBubbles"`
	MatchedBubbles   int       `json:"matchedBubbles"`
	UnmatchedBubbles int       `json:"unmatchedBubbles"`
	Warnings         []Warning `json:"warnings"`

	Metrics    Metrics     `json:"metrics"`
	TokenUsage *TokenUsage `json:"tokenUsage"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Numbers returns the balloon numbers of the dimension map in ascending order.
func (r *Result) Numbers() []int {
	nums := make([]int, 0, len(r.DimensionMap))
	for n := range r.DimensionMap {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Marks converts the bubbles into debug overlay marks.
func (r *Result) Marks() []imaging.Mark {
	marks := make([]imaging.Mark, 0, len(r.Bubbles))
	for _, b := range r.Bubbles {
		m := imaging.Mark{
			Center: image.Pt(b.CX, b.CY),
			Radius: b.Radius,
			Label:  b.Number,
		}
		if b.Direction != nil {
			m.Direction = &[2]float64{b.Direction.DX, b.Direction.DY}
		}
		if b.CaptureBox != nil {
			m.Box = b.CaptureBox.Rect()
		}
		marks = append(marks, m)
	}
	return marks
}

// summarize fills the totals and warnings from the dimension map.
func (r *Result) summarize(warnBelow float64) {
	r.TotalBubbles = len(r.Bubbles)
	r.MatchedBubbles, r.UnmatchedBubbles = 0, 0
	r.Warnings = []Warning{}
	for _, n := range r.Numbers() {
		m := r.DimensionMap[n]
		if m.Dimension != nil {
			r.MatchedBubbles++
		} else {
			r.UnmatchedBubbles++
		}
		if m.Confidence > 0 && m.Confidence < warnBelow {
			msg := "low confidence"
			if m.HasConflict {
				msg = "validator disagrees with table value"
			}
			r.Warnings = append(r.Warnings, Warning{BalloonNo: n, Confidence: m.Confidence, Message: msg})
		}
	}
}
