package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
)

// Mark describes one bubble to draw on a debug overlay.
type Mark struct {
	Center image.Point
	Radius int
	// Label is the bubble number; 0 draws no label.
	Label int
	// Direction is the leader unit vector, or nil if unknown.
	Direction *[2]float64
	// Box is the capture box to outline; empty draws nothing.
	Box image.Rectangle
}

// OverlayResult contains the annotated page
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Marks       int    `json:"marks"`
}

// OverlayOptions controls overlay colors. Empty values use the defaults.
type OverlayOptions struct {
	CircleColor string // default "#FF0000"
	BoxColor    string // default "#00A000"
	RayColor    string // default "#FF8000"
}

// Overlay draws verified bubbles, their numbers, leader rays and capture
// boxes on a copy of img and returns it as a base64 PNG.
func Overlay(img image.Image, marks []Mark, opts OverlayOptions) (*OverlayResult, error) {
	result := DrawOverlay(img, marks, opts)
	bounds := result.Bounds()

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Marks:       len(marks),
	}, nil
}

// DrawOverlay is Overlay without the encoding step.
func DrawOverlay(img image.Image, marks []Mark, opts OverlayOptions) *image.RGBA {
	bounds := img.Bounds()

	circleColor := colorOr(opts.CircleColor, color.RGBA{255, 0, 0, 255})
	boxColor := colorOr(opts.BoxColor, color.RGBA{0, 160, 0, 255})
	rayColor := colorOr(opts.RayColor, color.RGBA{255, 128, 0, 255})

	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	bgColor := color.RGBA{0, 0, 0, 180}

	for _, m := range marks {
		drawCircle(result, m.Center, m.Radius, circleColor)
		drawCircle(result, m.Center, m.Radius+1, circleColor)
		if !m.Box.Empty() {
			drawRect(result, m.Box, boxColor)
		}
		if m.Direction != nil {
			start := m.Radius + 2
			for d := start; d <= start+2*m.Radius; d++ {
				x := m.Center.X + int(math.Round(m.Direction[0]*float64(d)))
				y := m.Center.Y + int(math.Round(m.Direction[1]*float64(d)))
				setIn(result, x, y, rayColor)
			}
		}
		if m.Label > 0 {
			drawLabel(result, m.Center.X+m.Radius+2, m.Center.Y-m.Radius-8, strconv.Itoa(m.Label), labelColor, bgColor)
		}
	}

	return result
}

func colorOr(hex string, fallback color.RGBA) color.RGBA {
	if hex == "" {
		return fallback
	}
	c, err := parseHexColor(hex)
	if err != nil {
		return fallback
	}
	return c
}

func setIn(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawCircle plots a one-pixel outline, stepping finely enough that
// consecutive samples never leave a gap.
func drawCircle(img *image.RGBA, center image.Point, r int, c color.RGBA) {
	if r <= 0 {
		return
	}
	steps := int(2*math.Pi*float64(r)) * 2
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x := center.X + int(math.Round(float64(r)*math.Cos(a)))
		y := center.Y + int(math.Round(float64(r)*math.Sin(a)))
		setIn(img, x, y, c)
	}
}

func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		setIn(img, x, r.Min.Y, c)
		setIn(img, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setIn(img, r.Min.X, y, c)
		setIn(img, r.Max.X-1, y, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws a bubble number with a 3x5 pixel digit font.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		'?': {"111", "001", "011", "000", "010"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setIn(img, x+dx, y+dy, bg)
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setIn(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
