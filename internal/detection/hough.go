package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
)

// Circle is one circle found by the gradient Hough transform.
type Circle struct {
	X, Y   float64
	Radius int
	// Votes is the number of edge pixels at the chosen radius.
	Votes int
}

// HoughCircles finds circles in a grayscale image using the gradient Hough
// transform.
//
// The image should already be blurred; the pass does not smooth it.
//
// # Algorithm
//
//  1. Edge Detection: Sobel gradients, thinned and hysteresis-linked with
//     thresholds EdgeThreshold/2 and EdgeThreshold
//  2. Center Voting: every edge pixel votes along its gradient line, in both
//     directions, for every radius in [MinRadius, MaxRadius]. The
//     accumulator has one cell per DP pixels.
//  3. Peak Detection: cells whose count exceeds Votes and which are a local
//     maximum against their four neighbors, strongest first
//  4. Center Separation: a peak closer than MinDist to an accepted circle is
//     skipped
//  5. Radius Estimation: edge pixels around the center are binned by
//     distance; the fullest bin is the radius and must hold at least Votes
//     pixels
//
// Unlike a plain accumulator over all angles, voting only along the
// gradient keeps the cost at O(edges × radius range).
func HoughCircles(img *image.Gray, p config.HoughPass) []Circle {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	if width == 0 || height == 0 || p.MaxRadius < p.MinRadius || p.DP <= 0 {
		return nil
	}

	grad := imaging.Sobel(img)
	edges := grad.Edges(p.EdgeThreshold/2, p.EdgeThreshold)

	// One cell of padding on every side keeps the peak test branch-free.
	aw := int(float64(width)/p.DP) + 3
	ah := int(float64(height)/p.DP) + 3
	acc := make([]int32, aw*ah)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if !edges[i] {
				continue
			}
			gx, gy := grad.DX[i], grad.DY[i]
			norm := math.Hypot(gx, gy)
			if norm == 0 {
				continue
			}
			ux, uy := gx/norm, gy/norm

			for _, sign := range [2]float64{1, -1} {
				last := -1
				for r := p.MinRadius; r <= p.MaxRadius; r++ {
					cx := (float64(x) + sign*float64(r)*ux) / p.DP
					cy := (float64(y) + sign*float64(r)*uy) / p.DP
					if cx < 0 || cy < 0 {
						break
					}
					ax, ay := int(cx)+1, int(cy)+1
					if ax >= aw-1 || ay >= ah-1 {
						break
					}
					cell := ay*aw + ax
					if cell == last {
						continue
					}
					acc[cell]++
					last = cell
				}
			}
		}
	}

	type peak struct {
		cell  int
		votes int32
	}
	var peaks []peak
	for ay := 1; ay < ah-1; ay++ {
		for ax := 1; ax < aw-1; ax++ {
			i := ay*aw + ax
			v := acc[i]
			if int(v) > p.Votes && v > acc[i-1] && v >= acc[i+1] && v > acc[i-aw] && v >= acc[i+aw] {
				peaks = append(peaks, peak{cell: i, votes: v})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	minDist2 := p.MinDist * p.MinDist
	hist := make([]int, p.MaxRadius+2)
	var circles []Circle

	for _, pk := range peaks {
		cx := (float64(pk.cell%aw-1) + 0.5) * p.DP
		cy := (float64(pk.cell/aw-1) + 0.5) * p.DP

		tooClose := false
		for _, c := range circles {
			dx, dy := c.X-cx, c.Y-cy
			if dx*dx+dy*dy < minDist2 {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		for i := range hist {
			hist[i] = 0
		}
		x0 := clampInt(int(cx)-p.MaxRadius-1, 0, width-1)
		x1 := clampInt(int(cx)+p.MaxRadius+1, 0, width-1)
		y0 := clampInt(int(cy)-p.MaxRadius-1, 0, height-1)
		y1 := clampInt(int(cy)+p.MaxRadius+1, 0, height-1)
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				if !edges[y*width+x] {
					continue
				}
				d := math.Hypot(float64(x)-cx, float64(y)-cy)
				r := int(d + 0.5)
				if r < p.MinRadius || r > p.MaxRadius {
					continue
				}
				hist[r]++
			}
		}

		best := p.MinRadius
		for r := p.MinRadius + 1; r <= p.MaxRadius; r++ {
			if hist[r] > hist[best] {
				best = r
			}
		}
		if hist[best] < p.Votes {
			continue
		}
		circles = append(circles, Circle{X: cx, Y: cy, Radius: best, Votes: hist[best]})
	}

	return circles
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
