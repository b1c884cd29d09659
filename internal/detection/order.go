package detection

import (
	"image"
	"sort"
)

// SortReadingOrder sorts bubbles top-to-bottom in horizontal bands of
// rowSize pixels, then left-to-right within a band, the way a reader scans
// a drawing. The sort is stable.
func SortReadingOrder(bubbles []VerifiedBubble, rowSize int) {
	if rowSize < 1 {
		rowSize = 1
	}
	sort.SliceStable(bubbles, func(i, j int) bool {
		ri, rj := bubbles[i].CY/rowSize, bubbles[j].CY/rowSize
		if ri != rj {
			return ri < rj
		}
		return bubbles[i].CX < bubbles[j].CX
	})
}

// BoundingBox returns the square around b clipped to a page of the given
// size. The box starts at the clipped top-left corner and keeps at most
// the full diameter.
func BoundingBox(b VerifiedBubble, width, height int) image.Rectangle {
	x := max(0, b.CX-b.Radius)
	y := max(0, b.CY-b.Radius)
	w := min(2*b.Radius, width-x)
	h := min(2*b.Radius, height-y)
	return image.Rect(x, y, x+w, y+h)
}
