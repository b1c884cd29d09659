package pipeline

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/ironsheep/bubble-tracer/internal/capture"
	"github.com/ironsheep/bubble-tracer/internal/dimension"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

func TestResult_Summarize(t *testing.T) {
	dim := func(s string) *string { return &s }
	r := &Result{
		Bubbles: make([]Bubble, 2),
		DimensionMap: map[int]dimension.DimensionMatch{
			1: {BalloonNo: 1, Dimension: dim("R0.06"), Confidence: 0.95},
			2: {BalloonNo: 2, Dimension: dim("12.7"), Confidence: 0.6, HasConflict: true},
			3: {BalloonNo: 3, Confidence: 0},
			4: {BalloonNo: 4, Dimension: dim("M6"), Confidence: 0.79},
		},
	}
	r.summarize(0.8)

	if r.TotalBubbles != 2 || r.MatchedBubbles != 3 || r.UnmatchedBubbles != 1 {
		t.Errorf("totals: %d/%d/%d", r.TotalBubbles, r.MatchedBubbles, r.UnmatchedBubbles)
	}
	if len(r.Warnings) != 2 {
		t.Fatalf("warnings: %+v", r.Warnings)
	}
	if r.Warnings[0].BalloonNo != 2 || r.Warnings[0].Message != "validator disagrees with table value" {
		t.Errorf("first warning: %+v", r.Warnings[0])
	}
	if r.Warnings[1].BalloonNo != 4 || r.Warnings[1].Message != "low confidence" {
		t.Errorf("second warning: %+v", r.Warnings[1])
	}
}

func TestResult_Marks(t *testing.T) {
	box := capture.Box{X: 10, Y: 20, Width: 30, Height: 40}
	r := &Result{Bubbles: []Bubble{
		{Number: 7, CX: 50, CY: 60, Radius: 15, Direction: &leader.Direction{DX: 1}, CaptureBox: &box},
		{Number: 0, CX: 90, CY: 60, Radius: 12},
	}}
	marks := r.Marks()
	if len(marks) != 2 {
		t.Fatalf("got %d marks", len(marks))
	}
	if marks[0].Label != 7 || marks[0].Center != image.Pt(50, 60) || marks[0].Box != image.Rect(10, 20, 40, 60) {
		t.Errorf("first mark: %+v", marks[0])
	}
	if marks[0].Direction == nil || marks[0].Direction[0] != 1 {
		t.Errorf("direction not carried: %+v", marks[0].Direction)
	}
	if marks[1].Direction != nil || !marks[1].Box.Empty() {
		t.Errorf("untraced bubble should have no ray or box: %+v", marks[1])
	}
}

func TestResult_JSON(t *testing.T) {
	r := &Result{
		RunID:        "run",
		Bubbles:      []Bubble{},
		DimensionMap: map[int]dimension.DimensionMatch{3: {BalloonNo: 3, Source: dimension.SourceNone}},
		Warnings:     []Warning{},
		TokenUsage:   &TokenUsage{Usage: vision.Usage{InputTokens: 5, OutputTokens: 1, TotalTokens: 6}, LLMCalls: 1},
		Status:       StatusComplete,
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := doc["dimensionMap"].(map[string]any)["3"]; !ok {
		t.Errorf("dimension map keyed by balloon number string: %s", data)
	}
	tu := doc["tokenUsage"].(map[string]any)
	if tu["inputTokens"] != float64(5) || tu["llmCalls"] != float64(1) {
		t.Errorf("token usage flattened wrong: %v", tu)
	}
	if _, ok := doc["error"]; ok {
		t.Error("empty error should be omitted")
	}
}
