package imaging

import (
	"image"
	"math"
)

// FillDisk sets every pixel of img within radius r of (cx, cy) to v.
// Pixels outside img are ignored.
func FillDisk(img *image.Gray, cx, cy, r int, v uint8) {
	if r < 0 {
		return
	}
	b := img.Rect
	r2 := r * r
	for y := max(b.Min.Y, cy-r); y <= min(b.Max.Y-1, cy+r); y++ {
		dy := y - cy
		for x := max(b.Min.X, cx-r); x <= min(b.Max.X-1, cx+r); x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				img.Pix[(y-b.Min.Y)*img.Stride+(x-b.Min.X)] = v
			}
		}
	}
}

// InRing reports whether the offset (dx, dy) lies on a circle outline of
// radius r drawn with the given stroke thickness.
func InRing(dx, dy int, r, thickness float64) bool {
	d := math.Hypot(float64(dx), float64(dy))
	return math.Abs(d-r) <= thickness/2
}

// InDisk reports whether the offset (dx, dy) lies within radius r.
func InDisk(dx, dy, r int) bool {
	return dx*dx+dy*dy <= r*r
}
