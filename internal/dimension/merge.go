package dimension

import (
	"strings"

	"github.com/ironsheep/bubble-tracer/internal/vision"
)

// Source describes where a DimensionMatch's value came from.
type Source string

const (
	// SourceTableOnly: a table value with no vision reading.
	SourceTableOnly Source = "table-only"
	// SourceVisionConfirmed: a table value the validator was asked about.
	// HasConflict tells whether it agreed.
	SourceVisionConfirmed Source = "vision-confirmed"
	// SourceVisionDiscovered: no table value; the validator read one.
	SourceVisionDiscovered Source = "vision-discovered"
	SourceNone             Source = "none"
)

// DimensionMatch is the reconciled dimension of one balloon.
type DimensionMatch struct {
	BalloonNo int `json:"balloonNo"`
	// Dimension is the table value, else the observed value. Nil when
	// neither exists.
	Dimension   *string `json:"dimension"`
	Source      Source  `json:"source"`
	Confidence  float64 `json:"confidence"`
	HasConflict bool    `json:"hasConflict"`

	TableValue       *string `json:"tableValue"`
	ObservedValue    *string `json:"observedValue"`
	VisionMatches    *bool   `json:"visionMatches"`
	VisionConfidence float64 `json:"visionConfidence"`
	Notes            string  `json:"notes,omitempty"`
	CaptureSize      string  `json:"captureSize,omitempty"`
}

// Merge reconciles the table value of balloon number with the validator's
// final reading, which may be nil. An empty table value counts as missing.
//
// Confidence is the validator's own when it confirmed a match. When it
// disagreed, the table and observed values are scored against each other.
// A reading with nothing observed keeps the validator's confidence, and no
// reading at all scores 0.
func Merge(number int, table string, reading *vision.Reading, captureSize string) DimensionMatch {
	m := DimensionMatch{BalloonNo: number, Source: SourceNone}

	table = strings.TrimSpace(table)
	if table != "" {
		m.TableValue = &table
		m.Dimension = &table
		m.Source = SourceTableOnly
	}
	if reading == nil {
		return m
	}

	matches := reading.Matches
	m.VisionMatches = &matches
	m.VisionConfidence = round4(reading.Confidence)
	m.Notes = reading.Notes
	m.CaptureSize = captureSize
	m.HasConflict = !reading.Matches

	observed := strings.TrimSpace(reading.Observed)
	if observed != "" {
		m.ObservedValue = &observed
		if m.Dimension == nil {
			m.Dimension = &observed
		}
	}

	m.Source = SourceVisionDiscovered
	if table != "" {
		m.Source = SourceVisionConfirmed
	}

	switch {
	case reading.Matches:
		m.Confidence = reading.Confidence
	case table != "" && observed != "":
		m.Confidence = ConfidenceScore(table, observed)
	default:
		m.Confidence = reading.Confidence
	}
	m.Confidence = round4(clamp01(m.Confidence))
	return m
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}
