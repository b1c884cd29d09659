// Package pipeline runs the bubble tracer over one drawing page.
//
// A run loads the page, detects and numbers the bubbles, traces their
// leaders, sends capture boxes to the vision validator on a bounded pool
// and merges the readings with the dimension table into a Result.
//
// OCR and the validator are optional. Without a NumberReader bubbles are
// numbered in reading order; without a Validator every table value is
// reported as table-only.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/bubble-tracer/internal/capture"
	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/dimension"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/leader"
	"github.com/ironsheep/bubble-tracer/internal/logging"
	"github.com/ironsheep/bubble-tracer/internal/ocr"
	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// NumberReader reads the balloon number printed inside a bubble.
// *ocr.Reader satisfies it.
type NumberReader interface {
	ReadNumber(page *imaging.Page, b detection.VerifiedBubble) (ocr.Reading, error)
}

// Input names the page to process.
type Input struct {
	Path string
	// Page is the 0-based page index. Raster files have only page 0.
	Page int
	// Dimensions maps balloon numbers to the dimension text read from the
	// drawing's table. It may be empty.
	Dimensions map[int]string
}

// Pipeline holds the stage components for repeated runs. It is safe for
// concurrent use when its Validator and NumberReader are.
type Pipeline struct {
	cfg       config.Config
	log       logrus.FieldLogger
	cache     *imaging.PageCache
	detector  *detection.Detector
	tracer    *leader.Tracer
	reader    NumberReader
	validator vision.Validator
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithReader sets the bubble number reader.
func WithReader(r NumberReader) Option {
	return func(p *Pipeline) { p.reader = r }
}

// WithValidator sets the vision validator.
func WithValidator(v vision.Validator) Option {
	return func(p *Pipeline) { p.validator = v }
}

// WithCache shares a page cache with other users, such as the MCP server.
func WithCache(c *imaging.PageCache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// New returns a Pipeline for cfg.
func New(cfg config.Config, log logrus.FieldLogger, opts ...Option) *Pipeline {
	if log == nil {
		log = logging.Discard()
	}
	p := &Pipeline{
		cfg:      cfg,
		log:      log,
		detector: detection.NewDetector(cfg, log),
		tracer:   leader.NewTracer(cfg, log),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = imaging.NewPageCache(cfg.Color)
	}
	return p
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// Run loads in.Path and processes the requested page.
//
// An unreadable page returns a Result with status "error" together with an
// error wrapping imaging.ErrUnreadableImage. A page without bubbles is a
// complete run with an empty bubble list.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "source": in.Path})

	page, err := p.cache.Load(in.Path, in.Page, p.cfg.Pipeline.DPI)
	if err != nil {
		log.WithError(err).Error("Failed to load page")
		return &Result{
			RunID:        runID,
			Source:       in.Path,
			Bubbles:      []Bubble{},
			DimensionMap: map[int]dimension.DimensionMatch{},
			Warnings:     []Warning{},
			Status:       StatusError,
			Error:        err.Error(),
		}, fmt.Errorf("failed to load %s: %w", in.Path, err)
	}
	render := time.Since(start)

	res, err := p.process(ctx, runID, in.Path, page, in.Dimensions, log)
	res.Metrics.RenderMs = render.Milliseconds()
	res.Metrics.TotalMs = time.Since(start).Milliseconds()
	return res, err
}

// RunPage processes an already loaded page. source labels the result.
func (p *Pipeline) RunPage(ctx context.Context, source string, page *imaging.Page, dims map[int]string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.WithFields(logrus.Fields{"run_id": runID, "source": source})
	res, err := p.process(ctx, runID, source, page, dims, log)
	res.Metrics.TotalMs = time.Since(start).Milliseconds()
	return res, err
}

func (p *Pipeline) process(ctx context.Context, runID, source string, page *imaging.Page, dims map[int]string, log logrus.FieldLogger) (*Result, error) {
	mem := newMemSampler()
	res := &Result{
		RunID:       runID,
		Source:      source,
		ImageWidth:  page.Width,
		ImageHeight: page.Height,
		Status:      StatusComplete,
	}

	t := time.Now()
	verified := p.detector.Detect(page)
	res.Metrics.DetectMs = time.Since(t).Milliseconds()
	mem.sample()
	log.WithField("bubbles", len(verified)).Info("Detection complete")

	t = time.Now()
	res.Bubbles = p.number(page, verified, log)
	res.Metrics.OCRMs = time.Since(t).Milliseconds()

	t = time.Now()
	dirs := p.tracer.TraceAll(page.Mask, verified)
	planner := capture.NewPlanner(p.cfg.Capture, page.Width, page.Height)
	for i := range res.Bubbles {
		b := &res.Bubbles[i]
		b.Direction = dirs[i]
		b.Region = planner.ExpandedRegion(verified[i], dirs[i])
		if dirs[i] != nil {
			box := planner.Place(verified[i], *dirs[i], 0).Box
			b.CaptureBox = &box
		}
	}
	res.Metrics.TraceMs = time.Since(t).Milliseconds()
	mem.sample()

	t = time.Now()
	outcomes, err := p.validate(ctx, page, planner, verified, res.Bubbles, dims, log)
	res.Metrics.LLMMs = time.Since(t).Milliseconds()
	mem.sample()
	if err != nil {
		res.Status = StatusError
		res.Error = err.Error()
	}

	t = time.Now()
	res.DimensionMap = merge(res.Bubbles, dims, outcomes)
	res.summarize(p.cfg.Pipeline.WarnConfidence)
	res.TokenUsage = tokenUsage(outcomes)
	res.Metrics.MergeMs = time.Since(t).Milliseconds()
	res.Metrics.PeakMemoryMB = mem.PeakMB()

	log.WithFields(logrus.Fields{
		"balloons":  len(res.DimensionMap),
		"matched":   res.MatchedBubbles,
		"unmatched": res.UnmatchedBubbles,
		"warnings":  len(res.Warnings),
	}).Info("Run complete")
	return res, err
}

// number assigns balloon numbers. Without a reader the reading-order index
// is used. With one, unreadable or repeated numbers are left at zero.
func (p *Pipeline) number(page *imaging.Page, verified []detection.VerifiedBubble, log logrus.FieldLogger) []Bubble {
	out := make([]Bubble, len(verified))
	for i, v := range verified {
		out[i] = Bubble{CX: v.CX, CY: v.CY, Radius: v.Radius, Score: v.Score}
	}
	if p.reader == nil {
		for i := range out {
			out[i].Number = i + 1
		}
		return out
	}

	readings := make([]ocr.Reading, len(verified))
	var g errgroup.Group
	g.SetLimit(max(1, p.cfg.Pipeline.Workers))
	for i, v := range verified {
		g.Go(func() error {
			r, err := p.reader.ReadNumber(page, v)
			if err != nil {
				log.WithError(err).WithField("index", i+1).Warn("Bubble OCR failed")
				return nil
			}
			readings[i] = r
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[int]int)
	for i, r := range readings {
		out[i].OCRText = r.Text
		if !r.OK {
			log.WithFields(logrus.Fields{"index": i + 1, "text": r.Text}).Debug("Bubble number unreadable")
			continue
		}
		if prev, dup := seen[r.Number]; dup {
			log.WithFields(logrus.Fields{"bubble": r.Number, "index": i + 1, "first": prev + 1}).Warn("Duplicate bubble number")
			continue
		}
		seen[r.Number] = i
		out[i].Number = r.Number
	}
	return out
}

// validate runs the capture loop for every numbered bubble with a direction.
// Outcomes are keyed by balloon number.
func (p *Pipeline) validate(ctx context.Context, page *imaging.Page, planner *capture.Planner,
	verified []detection.VerifiedBubble, bubbles []Bubble, dims map[int]string, log logrus.FieldLogger) (map[int]*capture.Outcome, error) {

	if p.validator == nil {
		return nil, nil
	}

	results := make([]*capture.Outcome, len(bubbles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.cfg.Pipeline.ValidatorLimit))
	for i, b := range bubbles {
		if b.Number == 0 || b.Direction == nil {
			continue
		}
		job := capture.Job{
			Bubble:    verified[i],
			Direction: *b.Direction,
			Number:    b.Number,
			Expected:  dims[b.Number],
		}
		g.Go(func() error {
			out, err := planner.Validate(gctx, page.Color, job, p.validator, log)
			results[i] = out
			return err
		})
	}
	err := g.Wait()

	outcomes := make(map[int]*capture.Outcome)
	for i, o := range results {
		if o != nil {
			outcomes[bubbles[i].Number] = o
		}
	}
	if err != nil {
		return outcomes, fmt.Errorf("validation interrupted: %w", err)
	}
	return outcomes, nil
}

// merge produces one DimensionMatch per balloon number found on the page
// or listed in the table.
func merge(bubbles []Bubble, dims map[int]string, outcomes map[int]*capture.Outcome) map[int]dimension.DimensionMatch {
	numbers := make(map[int]struct{}, len(dims)+len(bubbles))
	for n := range dims {
		numbers[n] = struct{}{}
	}
	for _, b := range bubbles {
		if b.Number > 0 {
			numbers[b.Number] = struct{}{}
		}
	}

	out := make(map[int]dimension.DimensionMatch, len(numbers))
	for n := range numbers {
		o := outcomes[n]
		var reading *vision.Reading
		if o != nil {
			reading = o.Reading
		}
		out[n] = dimension.Merge(n, dims[n], reading, o.CaptureSize())
	}
	return out
}

func tokenUsage(outcomes map[int]*capture.Outcome) *TokenUsage {
	var tu TokenUsage
	for _, o := range outcomes {
		tu.Add(o.Usage)
		tu.LLMCalls += o.Calls
	}
	if tu.LLMCalls == 0 {
		return nil
	}
	return &tu
}
