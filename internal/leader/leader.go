// Package leader estimates which way each bubble's leader line or pointer
// leaves the rim.
//
// The estimate works on the page's color mask. Around each bubble the other
// bubbles are erased, the ink component touching the rim is isolated, and
// the bubble's own disk is removed so that only the protruding leader
// remains. Harris corners of that remainder are averaged, weighted by
// response and by closeness to the rim; without corners the pixel centroid
// is used instead.
package leader

import (
	"image"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/logging"
)

// Method names how a direction was estimated.
type Method string

const (
	MethodHarris   Method = "harris"
	MethodCentroid Method = "centroid"
)

// Direction is a unit vector in image coordinates (Y grows downward)
// pointing from the bubble center along its leader.
type Direction struct {
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Method Method  `json:"method"`
}

// Angle returns the direction in degrees clockwise from +X, in [0, 360).
func (d Direction) Angle() float64 {
	a := math.Atan2(d.DY, d.DX) * 180 / math.Pi
	if a < 0 {
		a += 360
	}
	return a
}

// Tracer estimates leader directions with one configuration.
type Tracer struct {
	cfg     config.Leader
	workers int
	log     logrus.FieldLogger
}

// NewTracer returns a Tracer. A nil logger discards output.
func NewTracer(cfg config.Config, log logrus.FieldLogger) *Tracer {
	if log == nil {
		log = logging.Discard()
	}
	return &Tracer{cfg: cfg.Leader, workers: max(1, cfg.Pipeline.Workers), log: log}
}

// TraceAll returns one direction per bubble, index-aligned with bubbles.
// An entry is nil when no leader could be found.
func (t *Tracer) TraceAll(mask *image.Gray, bubbles []detection.VerifiedBubble) []*Direction {
	out := make([]*Direction, len(bubbles))
	var g errgroup.Group
	g.SetLimit(t.workers)
	for i := range bubbles {
		g.Go(func() error {
			out[i] = t.Trace(mask, bubbles, i)
			return nil
		})
	}
	_ = g.Wait()

	found := 0
	for _, d := range out {
		if d != nil {
			found++
		}
	}
	t.log.WithFields(logrus.Fields{
		"bubbles": len(bubbles),
		"traced":  found,
	}).Debug("Leader directions traced")
	return out
}

// Trace estimates the leader direction of bubbles[i]. The other bubbles
// are needed so their ink can be ignored. mask is not modified.
//
// Only the neighbours' disks are erased. A neighbour's pointer that reaches
// this bubble's ring stays connected to it and biases the result.
func (t *Tracer) Trace(mask *image.Gray, bubbles []detection.VerifiedBubble, i int) *Direction {
	cfg := t.cfg
	b := bubbles[i]
	r := b.Radius

	search := r * cfg.SearchFactor
	win := image.Rect(b.CX-search, b.CY-search, b.CX+search, b.CY+search).Intersect(mask.Rect)
	if win.Dx() < cfg.MinWindowSide || win.Dy() < cfg.MinWindowSide {
		return nil
	}
	roi := imaging.SubGray(mask, win)
	cx, cy := b.CX-win.Min.X, b.CY-win.Min.Y

	for j, o := range bubbles {
		if j == i {
			continue
		}
		ox, oy := o.CX-win.Min.X, o.CY-win.Min.Y
		reach := 2 * o.Radius
		if ox < -reach || ox > win.Dx()+reach || oy < -reach || oy > win.Dy()+reach {
			continue
		}
		imaging.FillDisk(roi, ox, oy, o.Radius+cfg.NeighborPad, 0)
	}

	seed, ok := findSeed(roi, cx, cy, r, cfg)
	if !ok {
		return nil
	}
	leader := imaging.FloodFill(roi, seed, cfg.Connectivity)
	imaging.FillDisk(leader, cx, cy, r+cfg.ErasePad, 0)
	if imaging.CountNonZero(leader) < cfg.MinRemaining {
		return nil
	}

	return harrisDirection(leader, cx, cy, r, cfg)
}

// findSeed walks a circle of radius r around (cx, cy), then circles
// slightly inside and outside it, and returns the first ink pixel found.
func findSeed(roi *image.Gray, cx, cy, r int, cfg config.Leader) (image.Point, bool) {
	step := max(1, cfg.SeedStepDegrees)
	radii := append([]int{0}, cfg.SeedOffsets...)
	for _, off := range radii {
		rr := float64(r + off)
		for deg := 0; deg < 360; deg += step {
			a := float64(deg) * math.Pi / 180
			p := image.Pt(int(float64(cx)+rr*math.Cos(a)), int(float64(cy)+rr*math.Sin(a)))
			if imaging.GrayAt(roi, p.X, p.Y) == 255 {
				return p, true
			}
		}
	}
	return image.Point{}, false
}

func harrisDirection(leader *image.Gray, cx, cy, r int, cfg config.Leader) *Direction {
	width := leader.Rect.Dx()
	resp := imaging.Harris(leader, 3, cfg.HarrisK)
	peak := floats.Max(resp)
	if peak <= 0 {
		return centroidDirection(leader, cx, cy)
	}

	threshold := cfg.ResponseFraction * peak
	rf := float64(r)
	var xs, ys, ws []float64
	for idx, v := range resp {
		if v <= threshold {
			continue
		}
		dx := float64(idx%width - cx)
		dy := float64(idx/width - cy)
		d := math.Hypot(dx, dy)
		if d < cfg.MinDistFactor*rf || d > cfg.MaxDistFactor*rf {
			continue
		}
		edge := math.Max(0.1, 1-math.Abs(d-rf)/(1.5*rf))
		xs = append(xs, dx)
		ys = append(ys, dy)
		ws = append(ws, v*edge)
	}
	if len(ws) == 0 || floats.Sum(ws) < 1e-6 {
		return centroidDirection(leader, cx, cy)
	}
	return unit(floats.Dot(xs, ws), floats.Dot(ys, ws), MethodHarris)
}

func centroidDirection(leader *image.Gray, cx, cy int) *Direction {
	width, height := leader.Rect.Dx(), leader.Rect.Dy()
	var xs, ys []float64
	for y := range height {
		for x := range width {
			if leader.Pix[y*leader.Stride+x] != 0 {
				xs = append(xs, float64(x))
				ys = append(ys, float64(y))
			}
		}
	}
	if len(xs) == 0 {
		return nil
	}
	return unit(stat.Mean(xs, nil)-float64(cx), stat.Mean(ys, nil)-float64(cy), MethodCentroid)
}

// unit normalizes (dx, dy). Vectors shorter than one pixel carry no
// usable direction.
func unit(dx, dy float64, m Method) *Direction {
	n := math.Hypot(dx, dy)
	if n < 1 {
		return nil
	}
	return &Direction{DX: dx / n, DY: dy / n, Method: m}
}
