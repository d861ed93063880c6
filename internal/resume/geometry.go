package resume

// Rect is an axis-aligned rectangle in page space: PDF points with the
// origin at the top-left corner of the page, y growing downward.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect builds a rectangle from two arbitrary corners.
func NewRect(ax, ay, bx, by float64) Rect {
	if ax > bx {
		ax, bx = bx, ax
	}
	if ay > by {
		ay, by = by, ay
	}
	return Rect{X0: ax, Y0: ay, X1: bx, Y1: by}
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.X0 >= r.X1 || r.Y0 >= r.Y1
}

// Contains reports whether inner lies within r. Edges are inclusive: a
// rectangle contains itself.
func (r Rect) Contains(inner Rect) bool {
	return r.X0 <= inner.X0 &&
		r.Y0 <= inner.Y0 &&
		r.X1 >= inner.X1 &&
		r.Y1 >= inner.Y1
}

// ContainsPoint reports whether (x, y) lies within r, edges included.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Overlaps reports whether the two rectangles share at least one point.
func (r Rect) Overlaps(other Rect) bool {
	return !(r.X1 < other.X0 || other.X1 < r.X0 || r.Y1 < other.Y0 || other.Y1 < r.Y0)
}

// Union returns the smallest rectangle covering r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		X0: min(r.X0, other.X0),
		Y0: min(r.Y0, other.Y0),
		X1: max(r.X1, other.X1),
		Y1: max(r.Y1, other.Y1),
	}
}

// BoundingBox is a labeled region on one page of a document, as produced by
// a layout detector. Label is whatever the detector reports ("text",
// "table", "caption", ...); it is not a closed set.
type BoundingBox struct {
	Label string  `json:"label"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	Page  int     `json:"page"`
}

func (b BoundingBox) Rect() Rect {
	return Rect{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1}
}

// Contains reports whether inner lies within b on the same page.
func (b BoundingBox) Contains(inner BoundingBox) bool {
	if b.Page != inner.Page {
		return false
	}
	return b.Rect().Contains(inner.Rect())
}

// Overlaps reports whether the boxes intersect on the same page.
func (b BoundingBox) Overlaps(other BoundingBox) bool {
	if b.Page != other.Page {
		return false
	}
	return b.Rect().Overlaps(other.Rect())
}

// NewBoundingBox places r on page under label.
func NewBoundingBox(label string, r Rect, page int) BoundingBox {
	return BoundingBox{Label: label, X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1, Page: page}
}
