package imaging

import (
	"image"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

// ColorMask selects the pixels of img whose HSV value lies inside band.
//
// The result is a binary indicator image: 255 for in-band pixels, 0 for all
// others. Hue is compared in degrees and saturation/value as fractions, the
// same units go-colorful reports. Bounds are inclusive on both ends.
//
// A pure white or black pixel has no defined hue; go-colorful reports 0 for
// it, and the saturation/value floors reject it anyway.
func ColorMask(img *image.NRGBA, band config.ColorBand) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			if InBand(src[x*4], src[x*4+1], src[x*4+2], band) {
				dst[x] = 255
			}
		}
	}
	return out
}

// InBand reports whether an 8-bit RGB triple falls inside band.
func InBand(r, g, b uint8, band config.ColorBand) bool {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, v := c.Hsv()
	return h >= band.HueMin && h <= band.HueMax &&
		s >= band.SatMin && s <= band.SatMax &&
		v >= band.ValMin && v <= band.ValMax
}
