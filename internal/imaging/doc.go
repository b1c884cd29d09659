// Package imaging provides the pixel-level building blocks of the bubble
// tracer: page construction, color filtering, morphology, gradients,
// connected components, corner response, cropping and debug overlays.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Angles follow the same frame: 0 degrees points along +X and angles grow
// clockwise on screen because Y grows downward.
//
// # Pages
//
// A Page holds three views of one rendered drawing page: the color image
// flattened onto white, its grayscale and the binary ink mask produced by
// ColorMask. Pages are read-only once built. Functions that need to modify
// pixels take a window copy with SubGray.
//
// Masks are *image.Gray with 255 for set pixels and 0 elsewhere.
//
// # Thread Safety
//
// PageCache is safe for concurrent use. All other functions are stateless
// and may run concurrently on the same Page.
//
// # Error Handling
//
// Sources and the cache wrap ErrUnreadableImage for missing files,
// undecodable data and out-of-range pages. Crop returns errors for regions
// outside the image. The geometric helpers never fail: out-of-bounds
// coordinates are clipped.
//
// # Performance Considerations
//
// A 300 DPI A1 sheet is roughly 10000x7000 pixels. Use PageCache so that
// repeated tool calls on the same page render it once, and Evict() pages a
// long-running server no longer needs.
package imaging
