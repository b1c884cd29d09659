package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts a rectangular region from an image and returns it as a
// base64 PNG, optionally rescaled.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*CropResult, error) {
	data, w, h, err := cropPNG(img, image.Rect(x1, y1, x2, y2), scale)
	if err != nil {
		return nil, err
	}
	return &CropResult{
		Width:       w,
		Height:      h,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// CropPNG extracts r from img and encodes it as PNG bytes. This is the form
// the vision validator and OCR engine consume.
func CropPNG(img image.Image, r image.Rectangle) ([]byte, error) {
	data, _, _, err := cropPNG(img, r, 1.0)
	return data, err
}

func cropPNG(img image.Image, r image.Rectangle, scale float64) ([]byte, int, int, error) {
	bounds := img.Bounds()

	// Validate coordinates
	if !r.In(bounds) {
		return nil, 0, 0, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.PNG); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode cropped image: %w", err)
	}
	return buf.Bytes(), cropped.Bounds().Dx(), cropped.Bounds().Dy(), nil
}
