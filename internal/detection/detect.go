package detection

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
	"github.com/ironsheep/bubble-tracer/internal/logging"
)

// Report is the full outcome of detecting bubbles on one page.
type Report struct {
	Candidates []Candidate      `json:"candidates"`
	Counts     SweepCounts      `json:"counts"`
	Verdicts   []Verdict        `json:"verdicts"`
	Bubbles    []VerifiedBubble `json:"bubbles"`

	CandidateTime time.Duration `json:"-"`
	VerifyTime    time.Duration `json:"-"`
}

// Detector runs candidate generation, verification, deduplication and
// reading-order sorting with one configuration.
type Detector struct {
	cfg     config.Config
	workers int
	log     logrus.FieldLogger
}

// NewDetector returns a Detector. A nil logger discards output.
func NewDetector(cfg config.Config, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logging.Discard()
	}
	return &Detector{cfg: cfg, workers: max(1, cfg.Pipeline.Workers), log: log}
}

// Detect returns the verified bubbles of page in reading order.
// A page without bubbles yields an empty, non-nil slice.
func (d *Detector) Detect(page *imaging.Page) []VerifiedBubble {
	return d.DetectReport(page).Bubbles
}

// DetectReport is Detect with the intermediate candidates and gate
// verdicts kept for diagnostics.
func (d *Detector) DetectReport(page *imaging.Page) *Report {
	rep := &Report{}

	start := time.Now()
	rep.Candidates, rep.Counts = GenerateCandidates(page, d.cfg.Candidates, d.workers)
	rep.CandidateTime = time.Since(start)
	d.log.WithFields(logrus.Fields{
		"color_hough":   rep.Counts[SourceColorHough],
		"color_contour": rep.Counts[SourceColorContour],
		"gray_hough":    rep.Counts[SourceGrayHough],
		"gray_contour":  rep.Counts[SourceGrayContour],
		"total":         len(rep.Candidates),
	}).Debug("Candidates generated")

	start = time.Now()
	rep.Verdicts = VerifyAll(rep.Candidates, page, d.cfg.Verify, d.workers)
	passed := make([]VerifiedBubble, 0)
	rejected := map[Gate]int{}
	for _, v := range rep.Verdicts {
		if v.Passed() {
			passed = append(passed, v.Bubble())
		} else {
			rejected[v.Rejection.Gate]++
		}
	}
	rep.Bubbles = Deduplicate(passed, d.cfg.Verify.DedupDistance)
	SortReadingOrder(rep.Bubbles, d.cfg.Pipeline.ReadingRowSize)
	rep.VerifyTime = time.Since(start)

	fields := logrus.Fields{"passed": len(passed), "verified": len(rep.Bubbles)}
	for g, n := range rejected {
		fields["rejected_"+string(g)] = n
	}
	d.log.WithFields(fields).Debug("Candidates verified")

	return rep
}
