package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// Source yields rendered page images from a drawing file.
//
// Page indexes are 0-based. Raster files have exactly one page and ignore
// the dpi argument.
type Source interface {
	PageCount() int
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// OpenSource opens path as a PDF (by extension) or as a raster image.
// Errors wrap ErrUnreadableImage.
func OpenSource(path string) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewPDFSource(path)
	}
	return NewRasterSource(path)
}

// PDFSource renders PDF pages with MuPDF.
type PDFSource struct {
	doc  *fitz.Document
	path string
}

// NewPDFSource opens a PDF document.
func NewPDFSource(path string) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open pdf %s: %v", ErrUnreadableImage, path, err)
	}
	return &PDFSource{doc: doc, path: path}, nil
}

// PageCount returns the number of pages in the document.
func (s *PDFSource) PageCount() int {
	return s.doc.NumPage()
}

// RenderPage rasterizes one page at the given resolution.
func (s *PDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= s.doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d out of range (document has %d)", ErrUnreadableImage, index+1, s.doc.NumPage())
	}
	img, err := s.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to render page %d of %s: %v", ErrUnreadableImage, index+1, s.path, err)
	}
	return img, nil
}

// Close releases the MuPDF document.
func (s *PDFSource) Close() error {
	return s.doc.Close()
}

// RasterSource serves a single decoded image file as one page.
type RasterSource struct {
	path string
}

// NewRasterSource checks that path exists. Decoding happens in RenderPage.
func NewRasterSource(path string) (*RasterSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return &RasterSource{path: path}, nil
}

// PageCount is always 1.
func (s *RasterSource) PageCount() int { return 1 }

// RenderPage decodes the file, applying any EXIF orientation.
// Supported formats are PNG, JPEG, GIF, TIFF and BMP.
func (s *RasterSource) RenderPage(index int, _ int) (image.Image, error) {
	if index != 0 {
		return nil, fmt.Errorf("%w: page %d out of range (raster has 1)", ErrUnreadableImage, index+1)
	}
	img, err := imaging.Open(s.path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrUnreadableImage, s.path, err)
	}
	return img, nil
}

// Close is a no-op for raster files.
func (s *RasterSource) Close() error { return nil }
