package capture

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/logging"
	"github.com/ironsheep/bubble-tracer/internal/synth"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// fakeValidator answers from a per-step script and records requests.
type fakeValidator struct {
	matchWidth int // width of the step that matches; 0 never matches
	failStep   int // 1-based step that returns an error; 0 never fails
	emptyStep  int // 1-based step that returns neither reading nor error
	requests   []vision.Request
	discovered []vision.Request
}

func (f *fakeValidator) Validate(_ context.Context, req vision.Request) (*vision.Reading, error) {
	f.requests = append(f.requests, req)
	if len(f.requests) == f.failStep {
		return nil, errors.New("rate limited")
	}
	if len(f.requests) == f.emptyStep {
		return nil, nil
	}
	return &vision.Reading{
		Observed:   "saw " + req.Size.String(),
		Matches:    req.Size.Width == f.matchWidth,
		Confidence: 0.9,
		Usage:      vision.Usage{InputTokens: 100, OutputTokens: 10, TotalTokens: 110},
	}, nil
}

func (f *fakeValidator) Discover(_ context.Context, req vision.Request) (*vision.Reading, error) {
	f.discovered = append(f.discovered, req)
	return &vision.Reading{Observed: "Ø.500", Confidence: 0.7, Notes: "read from crop"}, nil
}

func validateJob(t *testing.T, v vision.Validator, job Job) *Outcome {
	t.Helper()
	img := synth.Page(2000, 1200)
	p := newPlanner(2000, 1200)
	out, err := p.Validate(context.Background(), img, job, v, logging.Discard())
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return out
}

func centerJob(expected string) Job {
	return Job{
		Bubble:    detection.VerifiedBubble{CX: 1000, CY: 600, Radius: 15},
		Direction: leader.Direction{DX: 1, DY: 0},
		Number:    7,
		Expected:  expected,
	}
}

func TestValidate_StopsOnMatch(t *testing.T) {
	f := &fakeValidator{matchWidth: 256}
	out := validateJob(t, f, centerJob("0.81"))

	if out.Calls != 2 || len(f.requests) != 2 {
		t.Fatalf("calls: got %d, want 2", out.Calls)
	}
	if !out.Reading.Matches || out.CaptureSize() != "256x128" {
		t.Errorf("got %+v at %s, want a match at 256x128", out.Reading, out.CaptureSize())
	}
	if out.Usage.TotalTokens != 220 {
		t.Errorf("usage: got %d total tokens, want 220", out.Usage.TotalTokens)
	}
	for _, req := range f.requests {
		if req.Number != 7 || req.Expected != "0.81" || len(req.Image) == 0 {
			t.Errorf("bad request %+v", req)
		}
	}
}

func TestValidate_BestGuessAfterAllSteps(t *testing.T) {
	f := &fakeValidator{}
	out := validateJob(t, f, centerJob("0.81"))

	if out.Calls != 4 {
		t.Fatalf("calls: got %d, want 4", out.Calls)
	}
	if out.Reading.Matches || out.Reading.Observed != "saw 1024x512" {
		t.Errorf("expected the largest step's reading, got %+v", out.Reading)
	}
	if out.CaptureSize() != "1024x512" {
		t.Errorf("capture size: got %q", out.CaptureSize())
	}
}

func TestValidate_ErrorIsSkipped(t *testing.T) {
	f := &fakeValidator{matchWidth: 256, failStep: 1}
	out := validateJob(t, f, centerJob("0.81"))

	if out.Calls != 2 || !out.Reading.Matches {
		t.Errorf("got %d calls, reading %+v; want the second step to match", out.Calls, out.Reading)
	}
	if out.Usage.TotalTokens != 110 {
		t.Errorf("failed call should not count tokens: got %d", out.Usage.TotalTokens)
	}
}

func TestValidate_NilReadingIsSkipped(t *testing.T) {
	f := &fakeValidator{matchWidth: 256, emptyStep: 1}
	out := validateJob(t, f, centerJob("0.81"))

	if out.Calls != 2 || out.Reading == nil || !out.Reading.Matches {
		t.Fatalf("got %d calls, reading %+v; want the second step to match", out.Calls, out.Reading)
	}
	if out.CaptureSize() != "256x128" {
		t.Errorf("capture size: got %q, want 256x128", out.CaptureSize())
	}
	if out.Usage.TotalTokens != 110 {
		t.Errorf("empty reply should not count tokens: got %d", out.Usage.TotalTokens)
	}
}

func TestValidate_Discovery(t *testing.T) {
	f := &fakeValidator{}
	out := validateJob(t, f, centerJob(""))

	if !out.Discovered || out.Calls != 1 || len(f.discovered) != 1 || len(f.requests) != 0 {
		t.Fatalf("discovery should make one Discover call, got %+v", out)
	}
	if !strings.HasPrefix(out.Reading.Notes, DiscoveryNote) {
		t.Errorf("notes not prefixed: %q", out.Reading.Notes)
	}
	if out.CaptureSize() != "128x128" {
		t.Errorf("discovery should use the smallest step, got %q", out.CaptureSize())
	}
}

func TestValidate_SkipsUnusableSteps(t *testing.T) {
	f := &fakeValidator{}
	job := centerJob("0.81")
	// On the right edge: pushed boxes start one pixel past the center,
	// which is already off the page.
	job.Bubble = detection.VerifiedBubble{CX: 1999, CY: 600, Radius: 15}
	out := validateJob(t, f, job)

	if out.Calls != 0 || out.Reading != nil || out.CaptureSize() != "" {
		t.Errorf("expected no calls, got %+v", out)
	}
}

func TestValidate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPlanner(2000, 1200)
	_, err := p.Validate(ctx, synth.Page(2000, 1200), centerJob("0.81"), &fakeValidator{}, logging.Discard())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
