package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

// ErrUnreadableImage is returned when a page cannot be decoded or rendered.
// It is the only failure the detection core propagates; a page with no
// bubbles is an empty result, not an error.
var ErrUnreadableImage = errors.New("unreadable page image")

// Page is one rendered drawing page together with its derived buffers.
//
// All three buffers share the same origin-based bounds (0,0)-(Width,Height).
// A Page is never mutated after NewPage returns; algorithms that need to
// modify pixels work on copies of a window.
type Page struct {
	// Color is the page flattened onto white, in non-premultiplied RGBA.
	Color *image.NRGBA

	// Gray is the BT.601 luminance of Color.
	Gray *image.Gray

	// Mask is the ColorFilter output: 255 where the pixel lies inside the
	// configured ink band, 0 elsewhere.
	Mask *image.Gray

	Width  int
	Height int
}

// NewPage builds a Page from a decoded image.
//
// Transparent regions are composited over white so that PNG exports with an
// alpha channel behave like scanned paper.
func NewPage(img image.Image, band config.ColorBand) (*Page, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrUnreadableImage)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty bounds %v", ErrUnreadableImage, b)
	}

	paper := imaging.New(b.Dx(), b.Dy(), color.White)
	flat := imaging.Overlay(paper, img, image.Pt(0, 0), 1.0)

	return &Page{
		Color:  flat,
		Gray:   Grayscale(flat),
		Mask:   ColorMask(flat, band),
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// Bounds returns the page rectangle.
func (p *Page) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Width, p.Height)
}

// Grayscale converts an NRGBA image to luminance using ITU-R BT.601 weights.
// Formula: Y = 0.299*R + 0.587*G + 0.114*B
func Grayscale(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			r, g, bl := float64(src[x*4]), float64(src[x*4+1]), float64(src[x*4+2])
			dst[x] = uint8(0.299*r + 0.587*g + 0.114*bl)
		}
	}
	return out
}

// GrayAt returns the value of a Gray image at (x, y), or 0 outside bounds.
func GrayAt(img *image.Gray, x, y int) uint8 {
	if !(image.Point{X: x, Y: y}).In(img.Rect) {
		return 0
	}
	return img.Pix[(y-img.Rect.Min.Y)*img.Stride+(x-img.Rect.Min.X)]
}

// SubGray copies the part of img inside r into a new origin-based buffer.
// Pixels of r outside img are zero.
func SubGray(img *image.Gray, r image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	clip := r.Intersect(img.Rect)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		src := img.Pix[(y-img.Rect.Min.Y)*img.Stride+(clip.Min.X-img.Rect.Min.X):]
		dst := out.Pix[(y-r.Min.Y)*out.Stride+(clip.Min.X-r.Min.X):]
		copy(dst[:clip.Dx()], src[:clip.Dx()])
	}
	return out
}

// CountNonZero returns the number of non-zero pixels.
func CountNonZero(img *image.Gray) int {
	n := 0
	b := img.Rect
	for y := 0; y < b.Dy(); y++ {
		for _, v := range img.Pix[y*img.Stride : y*img.Stride+b.Dx()] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}
