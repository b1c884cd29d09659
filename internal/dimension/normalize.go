package dimension

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// degreeVariants are glyphs OCR engines return in place of the degree sign.
// They are replaced before NFKC folding, which would turn º into o.
var degreeVariants = strings.NewReplacer("º", "°", "˚", "°", "⁰", "°")

// NormalizeDimension returns s with common OCR confusions undone.
//
// Each whitespace-separated token is handled on its own. A token that is
// mostly digit-like ("0.81", "Ø.5OO", "18°") has O and I/l turned into
// digits unconditionally, S and B only between digits, and diameter
// glyphs into 0. In any other token ("R O.06", "M6x1.O") a confusable
// letter is replaced only next to a digit or decimal point, so words such
// as MATERIAL survive. The result is uppercased.
func NormalizeDimension(s string) string {
	s = norm.NFKC.String(degreeVariants.Replace(s))
	fields := strings.Fields(s)
	for i, tok := range fields {
		if numericToken(tok) {
			fields[i] = normalizeNumeric(tok)
		} else {
			fields[i] = normalizeMixed(tok)
		}
	}
	return strings.ToUpper(strings.Join(fields, " "))
}

func digitLike(r rune) bool {
	return unicode.IsDigit(r) || strings.ContainsRune("./-°OoØ⌀", r)
}

// numericToken reports whether more than 60% of tok's runes are digit-like.
func numericToken(tok string) bool {
	rs := []rune(tok)
	if len(rs) == 0 {
		return false
	}
	n := 0
	for _, r := range rs {
		if digitLike(r) {
			n++
		}
	}
	return float64(n)/float64(len(rs)) > 0.6
}

func normalizeNumeric(tok string) string {
	rs := []rune(tok)
	for i, r := range rs {
		switch r {
		case 'O', 'o', 'Ø', '⌀':
			rs[i] = '0'
		case 'I', 'l':
			rs[i] = '1'
		case 'S':
			if betweenDigits(rs, i) {
				rs[i] = '5'
			}
		case 'B':
			if betweenDigits(rs, i) {
				rs[i] = '8'
			}
		}
	}
	return string(rs)
}

func normalizeMixed(tok string) string {
	rs := []rune(tok)
	for i, r := range rs {
		if !nextToDigit(rs, i) {
			continue
		}
		switch r {
		case 'O', 'o':
			rs[i] = '0'
		case 'I', 'l':
			rs[i] = '1'
		case 'S':
			rs[i] = '5'
		case 'B':
			rs[i] = '8'
		}
	}
	return string(rs)
}

func digitOrPoint(r rune) bool {
	return unicode.IsDigit(r) || r == '.'
}

func nextToDigit(rs []rune, i int) bool {
	return (i > 0 && digitOrPoint(rs[i-1])) || (i < len(rs)-1 && digitOrPoint(rs[i+1]))
}

func betweenDigits(rs []rune, i int) bool {
	return i > 0 && digitOrPoint(rs[i-1]) && i < len(rs)-1 && digitOrPoint(rs[i+1])
}
