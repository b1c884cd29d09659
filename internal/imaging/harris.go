package imaging

import "image"

// Harris returns the Harris corner response of img, row-major with index
// y*Width+x.
//
// Derivatives come from Sobel and are scaled by 1/(4*block*255) so that
// responses are comparable across block sizes. The structure tensor is
// summed (not averaged) over a block x block window with clamped borders.
func Harris(img *image.Gray, block int, k float64) []float64 {
	g := Sobel(img)
	width, height := g.Width, g.Height
	n := width * height
	scale := 1 / (4 * float64(block) * 255)

	xx := make([]float64, n)
	yy := make([]float64, n)
	xy := make([]float64, n)
	for i := range n {
		dx, dy := g.DX[i]*scale, g.DY[i]*scale
		xx[i] = dx * dx
		yy[i] = dy * dy
		xy[i] = dx * dy
	}

	half := block / 2
	resp := make([]float64, n)
	for y := range height {
		for x := range width {
			var a, b, c float64
			for j := y - half; j <= y-half+block-1; j++ {
				row := clamp(j, 0, height-1) * width
				for i := x - half; i <= x-half+block-1; i++ {
					idx := row + clamp(i, 0, width-1)
					a += xx[idx]
					b += xy[idx]
					c += yy[idx]
				}
			}
			tr := a + c
			resp[y*width+x] = a*c - b*b - k*tr*tr
		}
	}
	return resp
}
