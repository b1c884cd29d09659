// Package ocr reads the number printed inside each bubble.
//
// A bubble crop is cleaned before recognition: the blue ring is painted
// out (slightly dilated so its anti-aliased fringe goes too), the rest is
// upscaled six times, binarized with an adaptive threshold and padded with
// white. Tesseract then reads it as a single word, and ParseBubbleNumber
// maps the usual letter-for-digit confusions before accepting 1..99.
//
// # Prerequisites
//
// Tesseract and its English language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng libtesseract-dev
//   - macOS: brew install tesseract
//
// A non-standard data directory can be selected with TESSDATA_PREFIX.
package ocr
