package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"regexp"
	"strconv"
	"strings"

	disimaging "github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/bubble-tracer/internal/config"
	"github.com/ironsheep/bubble-tracer/internal/detection"
	"github.com/ironsheep/bubble-tracer/internal/imaging"
)

// Preprocessing constants for bubble crops.
const (
	upscale     = 6
	threshBlock = 31
	threshC     = 10
	whitePad    = 20
)

// Engine recognizes text in an encoded image.
type Engine interface {
	Recognize(png []byte) (string, error)
}

// Tesseract is an Engine backed by libtesseract in single-word mode.
type Tesseract struct {
	Language string
	// TessdataPrefix overrides the language data directory. Empty uses
	// TESSDATA_PREFIX or the library default.
	TessdataPrefix string
}

// NewTesseract returns a single-word Tesseract engine for language.
func NewTesseract(language string) *Tesseract {
	return &Tesseract{Language: language, TessdataPrefix: os.Getenv("TESSDATA_PREFIX")}
}

// Recognize runs Tesseract over a PNG.
func (t *Tesseract) Recognize(data []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return "", fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(t.Language); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_WORD); err != nil {
		return "", fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Version returns the linked Tesseract version.
func (t *Tesseract) Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// Reader reads bubble numbers off a page.
type Reader struct {
	engine Engine
	band   config.ColorBand
	pad    int
}

// NewReader returns a Reader that crops each bubble with pad pixels of
// margin and strips ink inside band before recognition.
func NewReader(engine Engine, band config.ColorBand, pad int) *Reader {
	return &Reader{engine: engine, band: band, pad: pad}
}

// Reading is the OCR outcome for one bubble.
type Reading struct {
	Text   string `json:"text"`
	Number int    `json:"number"`
	OK     bool   `json:"ok"`
}

// ReadNumber crops b from page and reads its number. An unreadable number
// is a Reading with OK false; only engine failures are errors.
func (r *Reader) ReadNumber(page *imaging.Page, b detection.VerifiedBubble) (Reading, error) {
	box := BubbleCrop(b, r.pad, page.Width, page.Height)
	if box.Empty() {
		return Reading{}, nil
	}
	prepared := PrepareBubble(disimaging.Crop(page.Color, box), r.band)

	var buf bytes.Buffer
	if err := disimaging.Encode(&buf, prepared, disimaging.PNG); err != nil {
		return Reading{}, fmt.Errorf("failed to encode bubble crop: %w", err)
	}
	text, err := r.engine.Recognize(buf.Bytes())
	if err != nil {
		return Reading{}, err
	}
	n, ok := ParseBubbleNumber(text)
	return Reading{Text: text, Number: n, OK: ok}, nil
}

// BubbleCrop returns the square around b grown by pad, clipped to the page.
func BubbleCrop(b detection.VerifiedBubble, pad, width, height int) image.Rectangle {
	r := b.Radius + pad
	return image.Rect(b.CX-r, b.CY-r, b.CX+r, b.CY+r).Intersect(image.Rect(0, 0, width, height))
}

// PrepareBubble turns a bubble crop into a padded black-on-white image
// suitable for single-word recognition.
func PrepareBubble(crop *image.NRGBA, band config.ColorBand) *image.Gray {
	ink := imaging.Dilate(imaging.ColorMask(crop, band), imaging.Kernel3x3)
	cleaned := disimaging.Clone(crop)
	b := cleaned.Bounds()
	for y := range b.Dy() {
		for x := range b.Dx() {
			if ink.Pix[y*ink.Stride+x] != 0 {
				cleaned.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}

	up := disimaging.Resize(cleaned, b.Dx()*upscale, b.Dy()*upscale, disimaging.CatmullRom)
	gray := imaging.Grayscale(up)

	// Adaptive threshold keeps dark strokes black on white.
	dark := imaging.AdaptiveThresholdInv(gray, threshBlock, threshC)
	for i, v := range dark.Pix {
		dark.Pix[i] = 255 - v
	}

	padded := disimaging.New(dark.Rect.Dx()+2*whitePad, dark.Rect.Dy()+2*whitePad, color.White)
	padded = disimaging.Paste(padded, dark, image.Pt(whitePad, whitePad))
	return imaging.Grayscale(padded)
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

var digitConfusions = strings.NewReplacer(
	"#", "",
	"O", "0", "o", "0",
	"l", "1", "I", "1",
	"S", "5", "B", "8",
	" ", "",
)

// ParseBubbleNumber extracts a balloon number in 1..99 from OCR text.
func ParseBubbleNumber(text string) (int, bool) {
	if strings.TrimSpace(text) == "" {
		return 0, false
	}
	digits := nonDigits.ReplaceAllString(digitConfusions.Replace(text), "")
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 99 {
		return 0, false
	}
	return n, true
}
