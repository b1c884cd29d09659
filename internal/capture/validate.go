package capture

import (
	"context"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// DiscoveryNote prefixes the notes of readings taken without a table value.
const DiscoveryNote = "[Table OCR miss] "

// Outcome is the result of validating one bubble.
type Outcome struct {
	// Reading is the last reading obtained: the match, or the best guess
	// at the largest usable step. Nil when no step produced a reading.
	Reading *vision.Reading `json:"reading"`
	// Placement is the step Reading was taken at.
	Placement  *Placement   `json:"placement,omitempty"`
	Calls      int          `json:"calls"`
	Discovered bool         `json:"discovered"`
	Usage      vision.Usage `json:"usage"`
}

// CaptureSize returns the step size label of the final reading, or "".
func (o *Outcome) CaptureSize() string {
	if o == nil || o.Placement == nil {
		return ""
	}
	return o.Placement.Size.String()
}

// Job is one bubble to validate.
type Job struct {
	Bubble    detection.VerifiedBubble
	Direction leader.Direction
	Number    int
	// Expected is the tabulated dimension. Empty switches to discovery:
	// a single Discover call at the smallest step.
	Expected string
}

// Validate walks the capture steps for job, asking v about each crop of img
// until one matches. Steps whose box is too small to crop are skipped.
//
// A validator error or a nil reading is logged and treated as no reading
// for that step. The only error returned is the context's.
func (p *Planner) Validate(ctx context.Context, img image.Image, job Job, v vision.Validator, log logrus.FieldLogger) (*Outcome, error) {
	out := &Outcome{}
	log = log.WithField("bubble", job.Number)

	steps := len(p.cfg.Steps)
	if job.Expected == "" {
		steps = min(steps, 1)
		out.Discovered = true
	}

	for i := range steps {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		pl := p.Place(job.Bubble, job.Direction, i)
		if !p.Usable(pl) {
			log.WithField("step", pl.Size.String()).Debug("Capture box too small, skipping")
			continue
		}
		crop, err := imaging.CropPNG(img, pl.Box.Rect())
		if err != nil {
			log.WithError(err).Warn("Failed to crop capture box")
			continue
		}

		req := vision.Request{Number: job.Number, Expected: job.Expected, Image: crop, Size: pl.Size}
		var reading *vision.Reading
		if out.Discovered {
			reading, err = v.Discover(ctx, req)
		} else {
			reading, err = v.Validate(ctx, req)
		}
		out.Calls++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			log.WithError(err).WithField("step", pl.Size.String()).Warn("Validator call failed")
			continue
		}
		if reading == nil {
			log.WithField("step", pl.Size.String()).Warn("Validator returned no reading")
			continue
		}

		out.Usage.Add(reading.Usage)
		if out.Discovered {
			reading.Notes = DiscoveryNote + reading.Notes
		}
		out.Reading = reading
		out.Placement = &pl

		fields := logrus.Fields{
			"step":       pl.Size.String(),
			"observed":   reading.Observed,
			"matches":    reading.Matches,
			"confidence": reading.Confidence,
		}
		if reading.Matches {
			log.WithFields(fields).Info("Dimension matched")
			break
		}
		log.WithFields(fields).Debug("No match, expanding")
	}
	return out, nil
}
