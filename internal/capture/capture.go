// Package capture places capture boxes along a bubble's leader and runs the
// progressive validation loop over them.
//
// Every step size shares one anchor: the point at
// radius + (first step width)/2 + offset along the leader. A step's box is
// centered on the anchor and pushed further out only when one of its
// corners would fall behind the bubble center. Boxes are clamped to the
// page last.
package capture

import (
	"image"
	"math"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/leader"
)

// Box is an axis-aligned rectangle in page pixels.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts b to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// BoxOf converts r to a Box.
func BoxOf(r image.Rectangle) Box {
	return Box{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Placement is one step's box together with the geometry behind it.
type Placement struct {
	Step int         `json:"step"`
	Size config.Size `json:"size"`
	// AnchorX and AnchorY are shared by every step of one bubble.
	AnchorX float64 `json:"anchorX"`
	AnchorY float64 `json:"anchorY"`
	// CenterX and CenterY are the box center after the corner push and
	// before clamping.
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Box     Box     `json:"box"`
}

// Planner places capture boxes on a page of fixed size.
type Planner struct {
	cfg           config.Capture
	width, height int
}

// NewPlanner returns a Planner for a width x height page.
func NewPlanner(cfg config.Capture, width, height int) *Planner {
	return &Planner{cfg: cfg, width: width, height: height}
}

// Steps returns the configured step sizes, smallest first.
func (p *Planner) Steps() []config.Size { return p.cfg.Steps }

// Anchor returns the point every step of b is centered on.
func (p *Planner) Anchor(b detection.VerifiedBubble, d leader.Direction) (float64, float64) {
	dist := float64(b.Radius + p.cfg.Steps[0].Width/2 + p.cfg.AnchorOffset)
	return float64(b.CX) + d.DX*dist, float64(b.CY) + d.DY*dist
}

// Place returns the box of the given step for b. A box that falls
// entirely off the page has zero width or height.
func (p *Planner) Place(b detection.VerifiedBubble, d leader.Direction, step int) Placement {
	size := p.cfg.Steps[step]
	halfW, halfH := float64(size.Width/2), float64(size.Height/2)

	ax, ay := p.Anchor(b, d)
	cx, cy := ax, ay

	bx, by := float64(b.CX), float64(b.CY)
	minDot := math.Inf(1)
	for _, c := range [4][2]float64{
		{cx - halfW, cy - halfH},
		{cx + halfW, cy - halfH},
		{cx - halfW, cy + halfH},
		{cx + halfW, cy + halfH},
	} {
		minDot = math.Min(minDot, (c[0]-bx)*d.DX+(c[1]-by)*d.DY)
	}
	if minDot < 0 {
		push := -minDot + 1
		cx += d.DX * push
		cy += d.DY * push
	}

	x1 := max(0, int(cx-halfW))
	y1 := max(0, int(cy-halfH))
	x2 := max(x1, min(p.width, int(cx+halfW)))
	y2 := max(y1, min(p.height, int(cy+halfH)))

	return Placement{
		Step:    step,
		Size:    size,
		AnchorX: ax,
		AnchorY: ay,
		CenterX: cx,
		CenterY: cy,
		Box:     Box{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
	}
}

// Plan returns one placement per configured step.
func (p *Planner) Plan(b detection.VerifiedBubble, d leader.Direction) []Placement {
	out := make([]Placement, len(p.cfg.Steps))
	for i := range p.cfg.Steps {
		out[i] = p.Place(b, d, i)
	}
	return out
}

// Usable reports whether a placed box is large enough to crop.
func (p *Planner) Usable(pl Placement) bool {
	return pl.Box.Width >= p.cfg.MinCropSide && pl.Box.Height >= p.cfg.MinCropSide
}

// ExpandedRegion returns the part of the page a bubble refers to: its own
// bounding box, joined with the first capture box when a leader is known.
func (p *Planner) ExpandedRegion(b detection.VerifiedBubble, d *leader.Direction) Box {
	r := detection.BoundingBox(b, p.width, p.height)
	if d != nil {
		r = r.Union(p.Place(b, *d, 0).Box.Rect())
	}
	return BoxOf(r)
}
