package capture

import (
	"math"
	"testing"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/leader"
)

func newPlanner(width, height int) *Planner {
	return NewPlanner(config.Default().Capture, width, height)
}

func TestAnchor_SharedByAllSteps(t *testing.T) {
	p := newPlanner(4000, 3000)
	b := detection.VerifiedBubble{CX: 500, CY: 500, Radius: 15}
	d := leader.Direction{DX: 0.6, DY: 0.8}

	plan := p.Plan(b, d)
	if len(plan) != 4 {
		t.Fatalf("got %d placements, want 4", len(plan))
	}
	// radius 15 + 128/2 + 4 = 83 along the ray.
	wantX, wantY := 500+0.6*83, 500+0.8*83
	for _, pl := range plan {
		if math.Abs(pl.AnchorX-wantX) > 1e-9 || math.Abs(pl.AnchorY-wantY) > 1e-9 {
			t.Errorf("step %v: anchor (%v, %v), want (%v, %v)", pl.Size, pl.AnchorX, pl.AnchorY, wantX, wantY)
		}
	}
}

func TestPlace_Downward(t *testing.T) {
	p := newPlanner(2000, 2000)
	b := detection.VerifiedBubble{CX: 500, CY: 500, Radius: 15}
	d := leader.Direction{DX: 0, DY: 1}

	tests := []struct {
		step    int
		want    Box
		centerY float64
	}{
		{0, Box{X: 436, Y: 519, Width: 128, Height: 128}, 583},
		{1, Box{X: 372, Y: 519, Width: 256, Height: 128}, 583},
		// Half height 128 reaches 45px behind the center: pushed by 46.
		{2, Box{X: 244, Y: 501, Width: 512, Height: 256}, 629},
		{3, Box{X: 0, Y: 501, Width: 1012, Height: 512}, 757},
	}
	for _, tt := range tests {
		pl := p.Place(b, d, tt.step)
		if pl.Box != tt.want {
			t.Errorf("step %d: got %+v, want %+v", tt.step, pl.Box, tt.want)
		}
		if pl.CenterY != tt.centerY || pl.CenterX != 500 {
			t.Errorf("step %d: center (%v, %v), want (500, %v)", tt.step, pl.CenterX, pl.CenterY, tt.centerY)
		}
	}
}

func TestPlace_CornersStayForward(t *testing.T) {
	p := newPlanner(5000, 5000)
	b := detection.VerifiedBubble{CX: 2500, CY: 2500, Radius: 18}
	for deg := 0; deg < 360; deg += 15 {
		a := float64(deg) * math.Pi / 180
		d := leader.Direction{DX: math.Cos(a), DY: math.Sin(a)}
		for _, pl := range p.Plan(b, d) {
			hw, hh := float64(pl.Size.Width/2), float64(pl.Size.Height/2)
			for _, sx := range []float64{-1, 1} {
				for _, sy := range []float64{-1, 1} {
					cx := pl.CenterX + sx*hw - float64(b.CX)
					cy := pl.CenterY + sy*hh - float64(b.CY)
					if dot := cx*d.DX + cy*d.DY; dot < -1e-9 {
						t.Errorf("%d° step %v: corner projects %.2f behind the bubble", deg, pl.Size, dot)
					}
				}
			}
		}
	}
}

func TestPlace_ClampedToPage(t *testing.T) {
	p := newPlanner(1000, 600)
	right := leader.Direction{DX: 1, DY: 0}

	pl := p.Place(detection.VerifiedBubble{CX: 950, CY: 300, Radius: 15}, right, 0)
	if want := (Box{X: 969, Y: 236, Width: 31, Height: 128}); pl.Box != want {
		t.Errorf("got %+v, want %+v", pl.Box, want)
	}
	if !p.Usable(pl) {
		t.Error("31px wide box should be usable")
	}

	off := p.Place(detection.VerifiedBubble{CX: 995, CY: 300, Radius: 15}, right, 0)
	if off.Box.Width != 0 {
		t.Errorf("box past the right edge: width %d, want 0", off.Box.Width)
	}
	if p.Usable(off) {
		t.Error("empty box should not be usable")
	}
}

func TestExpandedRegion(t *testing.T) {
	p := newPlanner(1000, 1000)
	b := detection.VerifiedBubble{CX: 100, CY: 100, Radius: 15}

	got := p.ExpandedRegion(b, &leader.Direction{DX: 1, DY: 0})
	if want := (Box{X: 85, Y: 36, Width: 162, Height: 128}); got != want {
		t.Errorf("with leader: got %+v, want %+v", got, want)
	}

	if got := p.ExpandedRegion(b, nil); got != (Box{X: 85, Y: 85, Width: 30, Height: 30}) {
		t.Errorf("without leader: got %+v", got)
	}

	edge := detection.VerifiedBubble{CX: 990, CY: 500, Radius: 15}
	if got := p.ExpandedRegion(edge, &leader.Direction{DX: 1, DY: 0}); got != (Box{X: 975, Y: 485, Width: 25, Height: 30}) {
		t.Errorf("off-page capture box should not widen the region: got %+v", got)
	}
}

func TestBoxRect(t *testing.T) {
	b := Box{X: 3, Y: 4, Width: 10, Height: 20}
	if BoxOf(b.Rect()) != b {
		t.Errorf("round trip changed %+v", b)
	}
}
