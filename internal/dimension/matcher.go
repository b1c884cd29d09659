// Package dimension reconciles dimension readings from the table OCR and
// the vision validator.
//
// ConfidenceScore compares two readings by edit distance after collapsing
// whitespace and case. NormalizeDimension undoes the character confusions
// OCR engines typically make. Merge combines everything known about one
// balloon into a single DimensionMatch.
package dimension

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultSimilarThreshold is the confidence at which two readings count as
// the same dimension.
const DefaultSimilarThreshold = 0.75

// ConfidenceScore returns the similarity of a and b in [0, 1].
//
// Both are whitespace-collapsed and uppercased. Equal strings score 1,
// two missing readings included. Otherwise a reading that is empty after
// normalization scores 0, and the rest score 1 - distance/max(len) rounded
// to four decimals.
func ConfidenceScore(a, b string) float64 {
	na, nb := normalizeCase(a), normalizeCase(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	longest := max(utf8.RuneCountInString(na), utf8.RuneCountInString(nb))
	d := levenshtein.ComputeDistance(na, nb)
	return round4(1 - float64(d)/float64(longest))
}

// AreSimilar reports whether a and b score at least DefaultSimilarThreshold.
func AreSimilar(a, b string) bool {
	return Similar(a, b, DefaultSimilarThreshold)
}

// Similar reports whether a and b score at least threshold.
func Similar(a, b string, threshold float64) bool {
	return ConfidenceScore(a, b) >= threshold
}

func normalizeCase(s string) string {
	return strings.ToUpper(collapseSpace(s))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
