package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Kernel radii for the bild spatial filters. bild uses a square window of
// side int(2*radius+1.5), so 1 gives 3x3 and 0.5 gives 2x2.
const (
	Kernel3x3 = 1.0
	Kernel2x2 = 0.5
)

// Dilate grows the white regions of a binary mask by the given kernel radius.
func Dilate(mask *image.Gray, radius float64) *image.Gray {
	return segment.Threshold(effect.Dilate(mask, radius), 128)
}

// Erode shrinks the white regions of a binary mask by the given kernel radius.
func Erode(mask *image.Gray, radius float64) *image.Gray {
	return segment.Threshold(effect.Erode(mask, radius), 128)
}

// Close fills gaps narrower than the kernel: dilation followed by erosion.
func Close(mask *image.Gray, radius float64) *image.Gray {
	return Erode(Dilate(mask, radius), radius)
}

// Blur applies a Gaussian blur and returns the result as luminance.
//
// The bild kernel spans 2*radius+1 pixels with variance 2*radius, so
// radius 2 approximates a 5x5 kernel and radius 4 a 9x9 kernel.
func Blur(img *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return SubGray(img, img.Rect)
	}
	return toGray(blur.Gaussian(img, radius))
}

// AdaptiveThresholdInv marks pixels darker than their neighbourhood.
//
// The local reference is a Gaussian-weighted mean over a block x block
// window. A pixel becomes 255 when it is at least offset below that mean
// and 0 otherwise, so dark ink on light paper comes out white.
func AdaptiveThresholdInv(img *image.Gray, block int, offset float64) *image.Gray {
	mean := Blur(img, float64(block-1)/2)
	b := img.Rect
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+b.Dx()]
		ref := mean.Pix[y*mean.Stride : y*mean.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			if float64(src[x]) <= float64(ref[x])-offset {
				dst[x] = 255
			}
		}
	}
	return out
}

// toGray takes the red channel of an RGBA image produced from gray input,
// where all three channels carry the same value.
func toGray(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[y*img.Stride:]
		dst := out.Pix[y*out.Stride : y*out.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return out
}
