package imaging

import (
	"image"
	"math"
)

// Gradient holds Sobel derivatives of a grayscale image.
//
// Values are stored row-major with index y*Width+x. Magnitude uses the L1
// norm |Gx|+|Gy|, which is what the hysteresis thresholds of the circle
// transform are calibrated against.
type Gradient struct {
	Width  int
	Height int
	DX     []float64
	DY     []float64
	Mag    []float64
}

// Sobel computes horizontal and vertical derivatives with 3x3 Sobel kernels.
//
//	Gx:  -1 0 1     Gy:  -1 -2 -1
//	     -2 0 2           0  0  0
//	     -1 0 1           1  2  1
//
// Border pixels use clamped (replicated) edge values. Input intensities are
// used as-is (0-255), so an ideal black/white step yields |Gx| = 1020.
func Sobel(img *image.Gray) *Gradient {
	b := img.Rect
	width, height := b.Dx(), b.Dy()
	g := &Gradient{
		Width:  width,
		Height: height,
		DX:     make([]float64, width*height),
		DY:     make([]float64, width*height),
		Mag:    make([]float64, width*height),
	}

	at := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(img.Pix[y*img.Stride+x])
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tl, tc, tr := at(x-1, y-1), at(x, y-1), at(x+1, y-1)
			ml, mr := at(x-1, y), at(x+1, y)
			bl, bc, br := at(x-1, y+1), at(x, y+1), at(x+1, y+1)

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)

			i := y*width + x
			g.DX[i] = gx
			g.DY[i] = gy
			g.Mag[i] = math.Abs(gx) + math.Abs(gy)
		}
	}
	return g
}

// Edges thins the gradient to one-pixel ridges and applies hysteresis.
//
//  1. Non-maximum suppression: keep a pixel only if its magnitude is not
//     smaller than both neighbours along the gradient direction.
//  2. Pixels at or above high are strong edges.
//  3. Pixels between low and high survive only when 8-connected to a strong
//     edge, traced iteratively so that long weak chains are followed.
//
// Returns a row-major edge bitmap the size of the gradient.
func (g *Gradient) Edges(low, high float64) []bool {
	width, height := g.Width, g.Height
	suppressed := make([]float64, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := g.Mag[i]
			if mag < low {
				continue
			}
			angle := math.Atan2(g.DY[i], g.DX[i])

			// Determine neighbors to compare based on gradient direction
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = g.Mag[i-1]
				n2 = g.Mag[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = g.Mag[i-width-1]
				n2 = g.Mag[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = g.Mag[i-width]
				n2 = g.Mag[i+width]
			} else {
				n1 = g.Mag[i-width+1]
				n2 = g.Mag[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	edges := make([]bool, width*height)
	stack := make([]int, 0, 64)
	for i, v := range suppressed {
		if v >= high && !edges[i] {
			edges[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if !edges[j] && suppressed[j] >= low {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
