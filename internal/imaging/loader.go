package imaging

import (
	"fmt"
	"sync"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

// PageCache provides thread-safe caching of rendered pages to avoid redundant
// decoding and rasterization.
//
// Rendering a PDF page at 300 DPI and deriving its grayscale and color mask
// is the most expensive step of a run, and the MCP tools typically call
// several operations against the same page in a row. The cache stores the
// finished Page keyed by path, page index and resolution.
//
// PageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached pages remain in memory until explicitly removed via Evict() or
// Clear(). A 300 DPI A1 sheet costs roughly 6 bytes per pixel across the
// three buffers, so long-running servers should evict pages they are done
// with.
//
// # Example Usage
//
//	cache := imaging.NewPageCache(cfg.Color)
//	page, err := cache.Load("/drawings/part.pdf", 0, 300)
//	if err != nil {
//	    return err
//	}
//	// Use page...
//	cache.Evict("/drawings/part.pdf") // Optional: free memory
type PageCache struct {
	mu    sync.RWMutex
	band  config.ColorBand
	pages map[pageKey]*Page
}

type pageKey struct {
	path  string
	index int
	dpi   int
}

// NewPageCache creates an empty cache whose pages are color-filtered with band.
func NewPageCache(band config.ColorBand) *PageCache {
	return &PageCache{
		band:  band,
		pages: make(map[pageKey]*Page),
	}
}

// Load retrieves a page from the cache or renders it if not cached.
//
// Parameters:
//   - path: PDF or raster image file. PDFs are detected by extension.
//   - index: 0-based page number. Must be 0 for raster files.
//   - dpi: rasterization resolution for PDFs. Ignored for raster files.
//
// Errors wrap ErrUnreadableImage so callers can tell an unreadable drawing
// apart from an empty detection result.
func (c *PageCache) Load(path string, index, dpi int) (*Page, error) {
	key := pageKey{path: path, index: index, dpi: dpi}

	c.mu.RLock()
	if p, ok := c.pages[key]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	img, err := src.RenderPage(index, dpi)
	if err != nil {
		return nil, err
	}
	page, err := NewPage(img, c.band)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare page %d of %s: %w", index+1, path, err)
	}

	c.mu.Lock()
	c.pages[key] = page
	c.mu.Unlock()

	return page, nil
}

// Clear removes all pages from the cache, freeing the associated memory.
func (c *PageCache) Clear() {
	c.mu.Lock()
	c.pages = make(map[pageKey]*Page)
	c.mu.Unlock()
}

// Evict removes every cached page rendered from path.
//
// If the path is not in the cache, this method does nothing.
func (c *PageCache) Evict(path string) {
	c.mu.Lock()
	for k := range c.pages {
		if k.path == path {
			delete(c.pages, k)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached pages.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pages)
}
