package domain

import "math"

// BoundingBox is an axis-aligned rectangle in canvas coordinates. Width and
// Height are extents, not corner coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsValid reports whether the box has non-negative extents.
func (b BoundingBox) IsValid() bool {
	return b.Width >= 0 && b.Height >= 0 &&
		!math.IsNaN(b.X) && !math.IsNaN(b.Y) && !math.IsNaN(b.Width) && !math.IsNaN(b.Height) &&
		!math.IsInf(b.X, 0) && !math.IsInf(b.Y, 0) && !math.IsInf(b.Width, 0) && !math.IsInf(b.Height, 0)
}

// MaxX returns the right edge coordinate.
func (b BoundingBox) MaxX() float64 { return b.X + b.Width }

// MaxY returns the bottom edge coordinate.
func (b BoundingBox) MaxY() float64 { return b.Y + b.Height }

// ContainsPoint reports whether (x, y) lies inside the box. Edges are
// inclusive so hit-testing a component border counts as a hit.
func (b BoundingBox) ContainsPoint(x, y float64) bool {
	return x >= b.X && x <= b.MaxX() && y >= b.Y && y <= b.MaxY()
}

// Intersects reports whether the two boxes overlap, touching edges included.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.X <= other.MaxX() && other.X <= b.MaxX() &&
		b.Y <= other.MaxY() && other.Y <= b.MaxY()
}

// Contains reports whether other lies fully inside the box.
func (b BoundingBox) Contains(other BoundingBox) bool {
	return other.X >= b.X && other.Y >= b.Y &&
		other.MaxX() <= b.MaxX() && other.MaxY() <= b.MaxY()
}

// DistanceToPoint returns the Euclidean distance from (x, y) to the nearest
// edge of the box, or zero when the point is inside it.
func (b BoundingBox) DistanceToPoint(x, y float64) float64 {
	dx := math.Max(math.Max(b.X-x, 0), x-b.MaxX())
	dy := math.Max(math.Max(b.Y-y, 0), y-b.MaxY())
	return math.Hypot(dx, dy)
}
