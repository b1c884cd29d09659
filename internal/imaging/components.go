package imaging

import "image"

// Component is one connected region of non-zero mask pixels.
type Component struct {
	// Pixels lists every member pixel in discovery order.
	Pixels []image.Point

	// Bounds is the bounding rectangle (Max exclusive).
	Bounds image.Rectangle
}

// Area returns the number of member pixels.
func (c Component) Area() int { return len(c.Pixels) }

// Label finds the connected components of the non-zero pixels of mask.
//
// connectivity is 4 (edge neighbours) or 8 (edge and diagonal neighbours);
// any other value is treated as 8. Components are returned in raster order
// of their first pixel, which keeps the output deterministic.
func Label(mask *image.Gray, connectivity int) []Component {
	b := mask.Rect
	width, height := b.Dx(), b.Dy()
	visited := make([]bool, width*height)

	components := make([]Component, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || mask.Pix[y*mask.Stride+x] == 0 {
				continue
			}
			c := floodFill(mask, visited, image.Pt(x, y), connectivity, func(v uint8) bool { return v != 0 })
			components = append(components, c)
		}
	}
	return components
}

// FloodFill isolates the component of mask that contains seed.
//
// The returned image has the same size as mask with 255 on the component
// and 0 elsewhere. If the seed pixel is zero the result is empty.
func FloodFill(mask *image.Gray, seed image.Point, connectivity int) *image.Gray {
	b := mask.Rect
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	if !seed.In(image.Rect(0, 0, b.Dx(), b.Dy())) || mask.Pix[seed.Y*mask.Stride+seed.X] == 0 {
		return out
	}
	visited := make([]bool, b.Dx()*b.Dy())
	c := floodFill(mask, visited, seed, connectivity, func(v uint8) bool { return v != 0 })
	for _, p := range c.Pixels {
		out.Pix[p.Y*out.Stride+p.X] = 255
	}
	return out
}

// FillHoles returns a copy of mask in which every zero region not reachable
// from the image border is set to 255, along with those hole regions.
//
// Holes are traced with the connectivity complementary to the foreground
// (4 when the foreground is 8-connected) so that a diagonal gap in a ring
// does not let the background leak in.
func FillHoles(mask *image.Gray, connectivity int) (*image.Gray, []Component) {
	b := mask.Rect
	width, height := b.Dx(), b.Dy()
	bgConn := 4
	if connectivity == 4 {
		bgConn = 8
	}

	isBackground := func(v uint8) bool { return v == 0 }
	visited := make([]bool, width*height)

	// Mark background reachable from the border.
	for x := 0; x < width; x++ {
		for _, y := range []int{0, height - 1} {
			if !visited[y*width+x] && mask.Pix[y*mask.Stride+x] == 0 {
				floodFill(mask, visited, image.Pt(x, y), bgConn, isBackground)
			}
		}
	}
	for y := 0; y < height; y++ {
		for _, x := range []int{0, width - 1} {
			if !visited[y*width+x] && mask.Pix[y*mask.Stride+x] == 0 {
				floodFill(mask, visited, image.Pt(x, y), bgConn, isBackground)
			}
		}
	}

	filled := SubGray(mask, b)
	holes := make([]Component, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || mask.Pix[y*mask.Stride+x] != 0 {
				continue
			}
			hole := floodFill(mask, visited, image.Pt(x, y), bgConn, isBackground)
			for _, p := range hole.Pixels {
				filled.Pix[p.Y*filled.Stride+p.X] = 255
			}
			holes = append(holes, hole)
		}
	}
	return filled, holes
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Marks visited pixels and collects those for which
// member returns true.
func floodFill(mask *image.Gray, visited []bool, start image.Point, connectivity int, member func(uint8) bool) Component {
	width, height := mask.Rect.Dx(), mask.Rect.Dy()
	c := Component{
		Pixels: make([]image.Point, 0, 16),
		Bounds: image.Rectangle{Min: start, Max: start.Add(image.Pt(1, 1))},
	}
	stack := []image.Point{start}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		i := p.Y*width + p.X
		if visited[i] || !member(mask.Pix[p.Y*mask.Stride+p.X]) {
			continue
		}

		visited[i] = true
		c.Pixels = append(c.Pixels, p)
		c.Bounds = c.Bounds.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if connectivity == 4 && dx != 0 && dy != 0 {
					continue
				}
				stack = append(stack, image.Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
	return c
}
