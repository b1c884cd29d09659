package imaging

import (
	"image"
	"testing"
)

func TestHarris_SquareCorners(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 30, 30))
	for y := 10; y < 20; y++ {
		for x := 10; x < 20; x++ {
			img.Pix[y*img.Stride+x] = 255
		}
	}
	resp := Harris(img, 3, 0.04)

	best, at := 0.0, 0
	for i, v := range resp {
		if v > best {
			best, at = v, i
		}
	}
	if best <= 0 {
		t.Fatal("square should produce a positive corner response")
	}
	x, y := at%30, at/30
	near := func(v, c int) bool { return v >= c-2 && v <= c+2 }
	if !(near(x, 10) || near(x, 19)) || !(near(y, 10) || near(y, 19)) {
		t.Errorf("strongest response at (%d,%d), want near a corner", x, y)
	}

	// Straight edges are not corners.
	if edge := resp[15*30+10]; edge > 0 {
		t.Errorf("edge midpoint response %v should not be positive", edge)
	}
	if flat := resp[15*30+15]; flat != 0 {
		t.Errorf("flat interior response %v, want 0", flat)
	}
}

func TestHarris_Blank(t *testing.T) {
	for i, v := range Harris(image.NewGray(image.Rect(0, 0, 8, 8)), 3, 0.04) {
		if v != 0 {
			t.Fatalf("blank image response %v at %d", v, i)
		}
	}
}
