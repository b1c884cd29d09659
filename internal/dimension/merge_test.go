package dimension

import (
	"testing"

	"github.com/ironsheep/bubble-tracer/internal/vision"
)

func strOrNil(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name        string
		table       string
		reading     *vision.Reading
		dimension   string
		source      Source
		confidence  float64
		hasConflict bool
	}{
		{
			name:       "table only",
			table:      "0.81",
			dimension:  "0.81",
			source:     SourceTableOnly,
			confidence: 0,
		},
		{
			name:       "confirmed match keeps validator confidence",
			table:      "0.81",
			reading:    &vision.Reading{Observed: "0.81", Matches: true, Confidence: 0.95},
			dimension:  "0.81",
			source:     SourceVisionConfirmed,
			confidence: 0.95,
		},
		{
			name:        "disagreement is scored by edit distance",
			table:       "RO.06",
			reading:     &vision.Reading{Observed: "R0.06", Matches: false, Confidence: 0.9},
			dimension:   "RO.06",
			source:      SourceVisionConfirmed,
			confidence:  0.8,
			hasConflict: true,
		},
		{
			name:        "disagreement without an observation",
			table:       "0.81",
			reading:     &vision.Reading{Matches: false, Confidence: 0.3},
			dimension:   "0.81",
			source:      SourceVisionConfirmed,
			confidence:  0.3,
			hasConflict: true,
		},
		{
			name:        "discovered",
			reading:     &vision.Reading{Observed: " Ø.500 ", Confidence: 0.7, Notes: "[Table OCR miss] ok"},
			dimension:   "Ø.500",
			source:      SourceVisionDiscovered,
			confidence:  0.7,
			hasConflict: true,
		},
		{
			name:       "nothing known",
			table:      "  ",
			dimension:  "<nil>",
			source:     SourceNone,
			confidence: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Merge(12, tt.table, tt.reading, "128x128")
			if m.BalloonNo != 12 {
				t.Errorf("balloon: got %d", m.BalloonNo)
			}
			if got := strOrNil(m.Dimension); got != tt.dimension {
				t.Errorf("dimension: got %q, want %q", got, tt.dimension)
			}
			if m.Source != tt.source {
				t.Errorf("source: got %q, want %q", m.Source, tt.source)
			}
			if m.Confidence != tt.confidence {
				t.Errorf("confidence: got %v, want %v", m.Confidence, tt.confidence)
			}
			if m.HasConflict != tt.hasConflict {
				t.Errorf("hasConflict: got %v, want %v", m.HasConflict, tt.hasConflict)
			}
			if tt.reading == nil {
				if m.VisionMatches != nil || m.CaptureSize != "" {
					t.Error("no reading should leave vision fields empty")
				}
			} else if m.VisionMatches == nil || *m.VisionMatches != tt.reading.Matches || m.CaptureSize != "128x128" {
				t.Errorf("vision fields not copied: %+v", m)
			}
		})
	}
}

func TestMerge_ClampsConfidence(t *testing.T) {
	m := Merge(1, "0.81", &vision.Reading{Observed: "0.81", Matches: true, Confidence: 1.7}, "")
	if m.Confidence != 1 {
		t.Errorf("confidence: got %v, want 1", m.Confidence)
	}
}
