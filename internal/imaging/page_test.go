package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/synth"
)

// newSolid creates an in-memory RGBA image filled with one color.
func newSolid(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// newQuadrants creates an image with a different color in each quadrant:
// red top-left, green top-right, blue bottom-left, white bottom-right.
func newQuadrants(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.Color
			if x < width/2 && y < height/2 {
				c = color.RGBA{255, 0, 0, 255}
			} else if x >= width/2 && y < height/2 {
				c = color.RGBA{0, 255, 0, 255}
			} else if x < width/2 && y >= height/2 {
				c = color.RGBA{0, 0, 255, 255}
			} else {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestNewPage(t *testing.T) {
	img := synth.Page(120, 80)
	synth.Draw(img, synth.Bubble{CX: 60, CY: 40, Radius: 15, PointerAngle: 0})

	page, err := NewPage(img, config.Default().Color)
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	if page.Width != 120 || page.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", page.Width, page.Height)
	}
	if page.Bounds() != image.Rect(0, 0, 120, 80) {
		t.Errorf("bounds: got %v", page.Bounds())
	}

	// Rim pixel is ink, paper is not.
	if GrayAt(page.Mask, 75, 40) != 255 {
		t.Error("rim pixel (75,40) should be in the color mask")
	}
	if GrayAt(page.Mask, 5, 5) != 0 {
		t.Error("paper pixel should not be in the color mask")
	}
	if got := GrayAt(page.Gray, 5, 5); got != 254 && got != 255 {
		t.Errorf("paper luminance: got %d, want ~255", got)
	}
	if got := GrayAt(page.Gray, 75, 40); got != 83 && got != 84 {
		t.Errorf("ink luminance: got %d, want ~84", got)
	}
}

func TestNewPage_Transparent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10)) // fully transparent
	page, err := NewPage(img, config.Default().Color)
	if err != nil {
		t.Fatalf("NewPage failed: %v", err)
	}
	if got := GrayAt(page.Gray, 3, 3); got < 254 {
		t.Errorf("transparent pixel should flatten to white, got %d", got)
	}
}

func TestNewPage_Unreadable(t *testing.T) {
	if _, err := NewPage(nil, config.Default().Color); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("nil image: got %v, want ErrUnreadableImage", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := NewPage(empty, config.Default().Color); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("empty image: got %v, want ErrUnreadableImage", err)
	}
}

func TestGrayscale(t *testing.T) {
	tests := []struct {
		c    color.NRGBA
		want uint8
	}{
		{color.NRGBA{255, 255, 255, 255}, 254}, // 0.299+0.587+0.114 rounds just under 255 in float
		{color.NRGBA{0, 0, 0, 255}, 0},
		{color.NRGBA{255, 0, 0, 255}, 76},
		{color.NRGBA{0, 255, 0, 255}, 149},
		{color.NRGBA{0, 0, 255, 255}, 29},
	}
	for _, tt := range tests {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, tt.c)
		got := Grayscale(img).Pix[0]
		if got != tt.want && !(tt.want == 254 && got == 255) {
			t.Errorf("Grayscale(%v): got %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestSubGray(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 10, 10))
	for i := range src.Pix {
		src.Pix[i] = uint8(i)
	}

	sub := SubGray(src, image.Rect(2, 3, 6, 5))
	if sub.Rect != image.Rect(0, 0, 4, 2) {
		t.Fatalf("sub bounds: got %v", sub.Rect)
	}
	if sub.Pix[0] != 32 || sub.Pix[sub.Stride+3] != 45 {
		t.Errorf("unexpected copy: %v", sub.Pix)
	}

	// Region hanging off the top-left corner is zero padded.
	edge := SubGray(src, image.Rect(-2, -2, 2, 2))
	if GrayAt(edge, 0, 0) != 0 || GrayAt(edge, 2, 2) != 0 || GrayAt(edge, 3, 3) != 11 {
		t.Errorf("unexpected padded copy: %v", edge.Pix)
	}
}

func TestCountNonZero(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	img.Pix[0], img.Pix[7], img.Pix[24] = 1, 255, 9
	if got := CountNonZero(img); got != 3 {
		t.Errorf("CountNonZero: got %d, want 3", got)
	}
}
