package domain

import (
	"math"
	"testing"
)

func TestBoundingBoxContainsPoint(t *testing.T) {
	b := BoundingBox{X: 10, Y: 20, Width: 100, Height: 50}
	cases := []struct {
		name string
		x, y float64
		want bool
	}{
		{"center", 60, 45, true},
		{"top-left corner", 10, 20, true},
		{"bottom-right corner", 110, 70, true},
		{"left of box", 9.9, 45, false},
		{"below box", 60, 70.1, false},
	}
	for _, tc := range cases {
		if got := b.ContainsPoint(tc.x, tc.y); got != tc.want {
			t.Errorf("%s: ContainsPoint(%v, %v) = %v, want %v", tc.name, tc.x, tc.y, got, tc.want)
		}
	}
}

func TestBoundingBoxIntersects(t *testing.T) {
	a := BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}
	if !a.Intersects(BoundingBox{X: 5, Y: 5, Width: 10, Height: 10}) {
		t.Fatalf("expected overlapping boxes to intersect")
	}
	if !a.Intersects(BoundingBox{X: 10, Y: 0, Width: 5, Height: 5}) {
		t.Fatalf("expected edge-touching boxes to intersect")
	}
	if a.Intersects(BoundingBox{X: 11, Y: 11, Width: 5, Height: 5}) {
		t.Fatalf("expected disjoint boxes not to intersect")
	}
}

func TestBoundingBoxContains(t *testing.T) {
	outer := BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}
	if !outer.Contains(BoundingBox{X: 10, Y: 10, Width: 20, Height: 20}) {
		t.Fatalf("expected inner box to be contained")
	}
	if outer.Contains(BoundingBox{X: 90, Y: 90, Width: 20, Height: 20}) {
		t.Fatalf("expected overflowing box not to be contained")
	}
}

func TestBoundingBoxDistanceToPoint(t *testing.T) {
	b := BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}
	if d := b.DistanceToPoint(5, 5); d != 0 {
		t.Fatalf("expected zero distance for interior point, got %v", d)
	}
	if d := b.DistanceToPoint(13, 14); math.Abs(d-5) > 1e-9 {
		t.Fatalf("expected 3-4-5 distance, got %v", d)
	}
	if d := b.DistanceToPoint(-4, 5); math.Abs(d-4) > 1e-9 {
		t.Fatalf("expected horizontal distance 4, got %v", d)
	}
}

func TestBoundingBoxIsValid(t *testing.T) {
	if (BoundingBox{Width: -1}).IsValid() {
		t.Fatalf("negative width should be invalid")
	}
	if (BoundingBox{X: math.NaN()}).IsValid() {
		t.Fatalf("NaN coordinate should be invalid")
	}
	if !(BoundingBox{X: -5, Y: -5, Width: 0, Height: 0}).IsValid() {
		t.Fatalf("zero-size box at negative coords should be valid")
	}
}
