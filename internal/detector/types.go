package detector

import (
	"fmt"
	"image"
	"strings"
)

// BoundingBox is an axis-aligned face box in source-image pixels
type BoundingBox struct {
	X1, Y1 int // top-left
	X2, Y2 int // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() int {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() int {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() image.Point {
	return image.Pt((b.X1+b.X2)/2, (b.Y1+b.Y2)/2)
}

// Area returns box area, zero for degenerate boxes
func (b BoundingBox) Area() float64 {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return float64(b.Width()) * float64(b.Height())
}

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Contains reports whether (x, y) lies inside the box, edges included
func (b BoundingBox) Contains(x, y int) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// Clamp limits the box to a width×height image
func (b BoundingBox) Clamp(width, height int) BoundingBox {
	return BoundingBox{
		X1: clampInt(b.X1, 0, width),
		Y1: clampInt(b.Y1, 0, height),
		X2: clampInt(b.X2, 0, width),
		Y2: clampInt(b.Y2, 0, height),
	}
}

// Rect returns the box as an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Face is one detected face. Faces are immutable once returned by the detector.
type Face struct {
	ID          int
	BoundingBox BoundingBox
	Confidence  float32
}

// Area returns the face's box area
func (f Face) Area() float64 {
	return f.BoundingBox.Area()
}

// Boxes returns the bounding boxes of faces, in order
func Boxes(faces []Face) []BoundingBox {
	boxes := make([]BoundingBox, len(faces))
	for i, f := range faces {
		boxes[i] = f.BoundingBox
	}
	return boxes
}

// Summary describes faces for display, largest first
func Summary(faces []Face) string {
	if len(faces) == 0 {
		return "No faces detected"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Detected %d face(s), largest first:\n", len(faces))
	for _, f := range faces {
		fmt.Fprintf(&sb, "#%d: area=%dpx², confidence=%.2f\n", f.ID, int(f.Area()), f.Confidence)
	}
	return sb.String()
}

func clampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
