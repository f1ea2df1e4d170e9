package render

// Point is a location in page space (PDF points).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in page space. X0,Y0 is the
// top-left corner and X1,Y1 the bottom-right corner.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// TopLeft returns the top-left corner of the rectangle.
func (r Rect) TopLeft() Point {
	return Point{X: r.X0, Y: r.Y0}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Intersect returns the largest rectangle contained in both r and other.
// The result may be empty.
func (r Rect) Intersect(other Rect) Rect {
	out := r
	if other.X0 > out.X0 {
		out.X0 = other.X0
	}
	if other.Y0 > out.Y0 {
		out.Y0 = other.Y0
	}
	if other.X1 < out.X1 {
		out.X1 = other.X1
	}
	if other.Y1 < out.Y1 {
		out.Y1 = other.Y1
	}
	if out.IsEmpty() {
		return Rect{X0: out.X0, Y0: out.Y0, X1: out.X0, Y1: out.Y0}
	}
	return out
}
