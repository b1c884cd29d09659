package detection

import (
	"image"
	"math"
	"math/rand"

	"github.com/ironsheep/bubble-tracer/internal/imaging"
)

// Shape is one traced outline of a binary mask: either the outer boundary
// of a connected foreground component or the boundary of a hole inside one.
type Shape struct {
	// Vertices counts the corners of the boundary chain, i.e. the points
	// left after collapsing straight runs.
	Vertices int
	// Area is the polygon area enclosed by the boundary, through pixel centers.
	Area float64
	// Perimeter is the boundary chain length (1 per straight step, √2 per diagonal).
	Perimeter float64
	// CX, CY and Radius describe the minimum enclosing circle of the boundary.
	CX, CY float64
	Radius float64
	Hole   bool
}

// Circularity returns 4π·area/perimeter², 1 for a perfect disk.
// Degenerate shapes return 0.
func (s Shape) Circularity() float64 {
	if s.Perimeter < 1 {
		return 0
	}
	return 4 * math.Pi * s.Area / (s.Perimeter * s.Perimeter)
}

// FindShapes traces every outer boundary (8-connected foreground) and every
// hole boundary (4-connected background fully enclosed by foreground) in
// mask. Shapes are returned outer boundaries first, each group in raster
// order of its first pixel.
func FindShapes(mask *image.Gray) []Shape {
	width, height := mask.Bounds().Dx(), mask.Bounds().Dy()
	comps := imaging.Label(mask, 8)
	_, holes := imaging.FillHoles(mask, 8)

	labels := make([]int32, width*height)
	shapes := make([]Shape, 0, len(comps)+len(holes))
	next := int32(0)

	trace := func(c imaging.Component, hole bool) {
		next++
		for _, p := range c.Pixels {
			labels[p.Y*width+p.X] = next
		}
		boundary := traceBoundary(labels, width, height, c.Pixels[0], next)
		shapes = append(shapes, measure(boundary, hole))
	}

	for _, c := range comps {
		trace(c, false)
	}
	for _, h := range holes {
		trace(h, true)
	}
	return shapes
}

// Moore neighborhood offsets, counterclockwise on screen starting east.
var chain = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

// traceBoundary follows the inner boundary of the region labeled id,
// starting from its top-left pixel. The returned chain is closed
// implicitly: its last point neighbors its first.
func traceBoundary(labels []int32, width, height int, start image.Point, id int32) []image.Point {
	in := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height && labels[p.Y*width+p.X] == id
	}

	boundary := []image.Point{start}
	cur := start
	dir := 7
	for {
		search := (dir + 7) % 8
		if dir%2 == 1 {
			search = (dir + 6) % 8
		}
		found := false
		for k := 0; k < 8; k++ {
			d := (search + k) % 8
			n := cur.Add(chain[d])
			if in(n) {
				cur, dir, found = n, d, true
				break
			}
		}
		if !found {
			return boundary // isolated pixel
		}
		boundary = append(boundary, cur)
		// Stop once the walk re-enters its first step.
		if n := len(boundary); n > 3 && boundary[n-2] == boundary[0] && boundary[n-1] == boundary[1] {
			return boundary[:n-2]
		}
	}
}

func measure(boundary []image.Point, hole bool) Shape {
	s := Shape{Hole: hole}
	n := len(boundary)

	var area2 float64
	prevDir := image.Point{}
	for i := 0; i < n; i++ {
		a, b := boundary[i], boundary[(i+1)%n]
		area2 += float64(a.X*b.Y - b.X*a.Y)
		step := b.Sub(a)
		if step.X != 0 && step.Y != 0 {
			s.Perimeter += math.Sqrt2
		} else if step != (image.Point{}) {
			s.Perimeter++
		}
		if step != prevDir {
			s.Vertices++
			prevDir = step
		}
	}
	if n == 1 {
		s.Vertices = 1
	}
	s.Area = math.Abs(area2) / 2

	pts := make([][2]float64, n)
	for i, p := range boundary {
		pts[i] = [2]float64{float64(p.X), float64(p.Y)}
	}
	s.CX, s.CY, s.Radius = enclosingCircle(pts)
	return s
}

// enclosingCircle returns the minimum enclosing circle using Welzl's
// incremental algorithm. The input order is shuffled with a fixed seed so
// the expected linear running time holds and results stay reproducible.
func enclosingCircle(pts [][2]float64) (cx, cy, r float64) {
	if len(pts) == 0 {
		return 0, 0, 0
	}
	p := make([][2]float64, len(pts))
	copy(p, pts)
	rng := rand.New(rand.NewSource(1))
	rng.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })

	const eps = 1e-7
	inside := func(q [2]float64) bool {
		return math.Hypot(q[0]-cx, q[1]-cy) <= r+eps
	}

	cx, cy, r = p[0][0], p[0][1], 0
	for i := 1; i < len(p); i++ {
		if inside(p[i]) {
			continue
		}
		cx, cy, r = p[i][0], p[i][1], 0
		for j := 0; j < i; j++ {
			if inside(p[j]) {
				continue
			}
			cx, cy, r = circleFrom2(p[i], p[j])
			for k := 0; k < j; k++ {
				if inside(p[k]) {
					continue
				}
				cx, cy, r = circleFrom3(p[i], p[j], p[k])
			}
		}
	}
	return cx, cy, r
}

func circleFrom2(a, b [2]float64) (float64, float64, float64) {
	cx, cy := (a[0]+b[0])/2, (a[1]+b[1])/2
	return cx, cy, math.Hypot(a[0]-cx, a[1]-cy)
}

// circleFrom3 returns the circumcircle of a, b and c, or the widest
// two-point circle when they are collinear.
func circleFrom3(a, b, c [2]float64) (float64, float64, float64) {
	bx, by := b[0]-a[0], b[1]-a[1]
	qx, qy := c[0]-a[0], c[1]-a[1]
	d := 2 * (bx*qy - by*qx)
	if math.Abs(d) < 1e-12 {
		best := [3]float64{}
		for _, pair := range [][2][2]float64{{a, b}, {a, c}, {b, c}} {
			x, y, r := circleFrom2(pair[0], pair[1])
			if r > best[2] {
				best = [3]float64{x, y, r}
			}
		}
		return best[0], best[1], best[2]
	}
	b2 := bx*bx + by*by
	c2 := qx*qx + qy*qy
	ux := (qy*b2 - by*c2) / d
	uy := (bx*c2 - qx*b2) / d
	return a[0] + ux, a[1] + uy, math.Hypot(ux, uy)
}
