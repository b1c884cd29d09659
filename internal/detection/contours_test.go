package detection

import (
	"image"
	"math"
	"testing"
)

// createMask builds a binary mask from rows of '#' (set) and '.' (clear).
func createMask(rows ...string) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}

func TestFindShapes_Square(t *testing.T) {
	mask := createMask(
		".......",
		".#####.",
		".#####.",
		".#####.",
		".#####.",
		".#####.",
		".......",
	)
	shapes := FindShapes(mask)
	if len(shapes) != 1 {
		t.Fatalf("got %d shapes, want 1", len(shapes))
	}
	s := shapes[0]
	if s.Area != 16 {
		t.Errorf("area: got %v, want 16", s.Area)
	}
	if s.Perimeter != 16 {
		t.Errorf("perimeter: got %v, want 16", s.Perimeter)
	}
	if s.Vertices != 4 {
		t.Errorf("vertices: got %d, want 4", s.Vertices)
	}
	if math.Abs(s.CX-3) > 1e-9 || math.Abs(s.CY-3) > 1e-9 || math.Abs(s.Radius-math.Sqrt(8)) > 1e-9 {
		t.Errorf("enclosing circle: got (%v,%v) r=%v", s.CX, s.CY, s.Radius)
	}
	if s.Hole {
		t.Error("outer boundary marked as hole")
	}
}

func TestFindShapes_RingWithHole(t *testing.T) {
	mask := createMask(
		".........",
		".#######.",
		".#.....#.",
		".#.....#.",
		".#.....#.",
		".#.....#.",
		".#.....#.",
		".#######.",
		".........",
	)
	shapes := FindShapes(mask)
	if len(shapes) != 2 {
		t.Fatalf("got %d shapes, want outer + hole", len(shapes))
	}
	outer, hole := shapes[0], shapes[1]
	if outer.Hole || !hole.Hole {
		t.Fatal("expected the outer boundary first, then the hole")
	}
	if outer.Area != 36 {
		t.Errorf("outer area: got %v, want 36", outer.Area)
	}
	if hole.Area != 16 {
		t.Errorf("hole area: got %v, want 16", hole.Area)
	}
}

func TestFindShapes_SinglePixel(t *testing.T) {
	mask := createMask(
		"...",
		".#.",
		"...",
	)
	shapes := FindShapes(mask)
	if len(shapes) != 1 {
		t.Fatalf("got %d shapes, want 1", len(shapes))
	}
	s := shapes[0]
	if s.Area != 0 || s.Perimeter != 0 || s.Radius != 0 {
		t.Errorf("degenerate shape: %+v", s)
	}
	if s.Circularity() != 0 {
		t.Errorf("circularity of a point: got %v, want 0", s.Circularity())
	}
}

func TestShape_CircularityOfDisk(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			if math.Hypot(float64(x-20), float64(y-20)) <= 12 {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	shapes := FindShapes(img)
	if len(shapes) != 1 {
		t.Fatalf("got %d shapes, want 1", len(shapes))
	}
	s := shapes[0]
	if c := s.Circularity(); c < 0.8 || c > 1.05 {
		t.Errorf("disk circularity: got %.3f", c)
	}
	if math.Abs(s.Radius-12) > 0.5 || math.Abs(s.CX-20) > 0.5 || math.Abs(s.CY-20) > 0.5 {
		t.Errorf("enclosing circle: got (%.2f,%.2f) r=%.2f", s.CX, s.CY, s.Radius)
	}
	if s.Vertices < 8 {
		t.Errorf("a digital circle has many corners, got %d", s.Vertices)
	}
}

func TestTraceBoundary_Square(t *testing.T) {
	labels := []int32{
		1, 1,
		1, 1,
	}
	got := traceBoundary(labels, 2, 2, image.Pt(0, 0), 1)
	want := []image.Point{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
	if len(got) != len(want) {
		t.Fatalf("boundary: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("boundary: got %v, want %v", got, want)
		}
	}
}

func TestEnclosingCircle(t *testing.T) {
	tests := []struct {
		name      string
		pts       [][2]float64
		cx, cy, r float64
	}{
		{"single", [][2]float64{{3, 4}}, 3, 4, 0},
		{"pair", [][2]float64{{0, 0}, {4, 0}}, 2, 0, 2},
		{"inner point", [][2]float64{{0, 0}, {4, 0}, {2, 1}}, 2, 0, 2},
		{"acute triangle", [][2]float64{{0, 0}, {6, 0}, {3, 6}}, 3, 2.25, 3.75},
		{"collinear", [][2]float64{{0, 0}, {1, 0}, {5, 0}}, 2.5, 0, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cy, r := enclosingCircle(tt.pts)
			if math.Abs(cx-tt.cx) > 1e-9 || math.Abs(cy-tt.cy) > 1e-9 || math.Abs(r-tt.r) > 1e-9 {
				t.Errorf("got (%v,%v) r=%v, want (%v,%v) r=%v", cx, cy, r, tt.cx, tt.cy, tt.r)
			}
		})
	}
}
