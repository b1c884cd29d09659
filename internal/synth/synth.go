// Package synth draws synthetic drawing pages for tests: white paper with
// blue-ink callout bubbles, a dark digit stroke inside each, and a filled
// triangular pointer on the rim.
package synth

import (
	"image"
	"image/color"
	"math"
)

// Ink is the callout color. Hue is about 227 degrees, well inside the
// default band, and its luminance is 84.
var Ink = color.NRGBA{R: 40, G: 80, B: 220, A: 255}

// Text is the digit stroke color.
var Text = color.NRGBA{A: 255}

// Bubble describes one callout to draw.
type Bubble struct {
	CX, CY int
	Radius int

	// PointerAngle is the direction of the pointer tip in degrees,
	// measured clockwise from +X because image Y grows downward.
	PointerAngle float64
	// PointerLength is how far the tip extends past the rim. Zero means 10.
	PointerLength int
	NoPointer     bool

	// Arc limits the drawn rim to this many degrees starting at ArcStart.
	// Zero draws the full circle.
	Arc      float64
	ArcStart float64

	// NoDigit leaves the interior blank.
	NoDigit bool
	// FilledInterior paints the interior solid black, like a drilled hole.
	FilledInterior bool
}

// Page returns a white page.
func Page(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

// Draw paints b onto img.
func Draw(img *image.NRGBA, b Bubble) {
	r := float64(b.Radius)
	bounds := img.Bounds()

	reach := b.Radius + 2
	if !b.NoPointer {
		reach += b.pointerLength()
	}
	for y := b.CY - reach; y <= b.CY+reach; y++ {
		for x := b.CX - reach; x <= b.CX+reach; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			dx, dy := float64(x-b.CX), float64(y-b.CY)
			d := math.Hypot(dx, dy)

			switch {
			case math.Abs(d-r) <= 1 && b.onArc(dx, dy):
				img.SetNRGBA(x, y, Ink)
			case b.FilledInterior && d < r-1:
				img.SetNRGBA(x, y, Text)
			case !b.NoPointer && b.inPointer(dx, dy):
				img.SetNRGBA(x, y, Ink)
			}
		}
	}

	if !b.NoDigit && !b.FilledInterior {
		// A "1"-like vertical stroke.
		for y := b.CY - b.Radius/3; y <= b.CY+b.Radius/3; y++ {
			for x := b.CX - 1; x <= b.CX+2; x++ {
				img.SetNRGBA(x, y, Text)
			}
		}
	}
}

func (b Bubble) pointerLength() int {
	if b.PointerLength > 0 {
		return b.PointerLength
	}
	return 10
}

func (b Bubble) onArc(dx, dy float64) bool {
	if b.Arc <= 0 || b.Arc >= 360 {
		return true
	}
	a := math.Atan2(dy, dx) * 180 / math.Pi
	rel := math.Mod(a-b.ArcStart+720, 360)
	return rel <= b.Arc
}

// inPointer tests membership in a triangle whose base straddles the rim
// (half-width 5 at radius-1) and whose apex lies pointerLength past the rim.
func (b Bubble) inPointer(dx, dy float64) bool {
	theta := b.PointerAngle * math.Pi / 180
	ux, uy := math.Cos(theta), math.Sin(theta)
	along := dx*ux + dy*uy
	perp := math.Abs(-dx*uy + dy*ux)

	base := float64(b.Radius) - 1
	tip := float64(b.Radius + b.pointerLength())
	if along < base || along > tip {
		return false
	}
	half := 5 * (tip - along) / (tip - base)
	return perp <= half
}

// Direction returns the unit vector of PointerAngle.
func (b Bubble) Direction() (float64, float64) {
	theta := b.PointerAngle * math.Pi / 180
	return math.Cos(theta), math.Sin(theta)
}
