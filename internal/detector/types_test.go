package detector

import (
	"strings"
	"testing"
)

func TestBoundingBoxArea(t *testing.T) {
	tests := []struct {
		name string
		box  BoundingBox
		want float64
	}{
		{"regular", BoundingBox{10, 10, 110, 60}, 5000},
		{"zero width", BoundingBox{10, 10, 10, 60}, 0},
		{"inverted", BoundingBox{50, 50, 10, 10}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.box.Area(); got != tc.want {
				t.Errorf("Area() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBoundingBoxClamp(t *testing.T) {
	box := BoundingBox{-20, 5, 130, 300}.Clamp(100, 200)
	want := BoundingBox{0, 5, 100, 200}
	if box != want {
		t.Errorf("Clamp = %+v, want %+v", box, want)
	}

	outside := BoundingBox{150, 150, 180, 180}.Clamp(100, 100)
	if !outside.Empty() {
		t.Errorf("box outside image should clamp to empty, got %+v", outside)
	}
}

func TestBoundingBoxContainsEdges(t *testing.T) {
	box := BoundingBox{10, 10, 20, 20}

	for _, p := range [][2]int{{10, 10}, {20, 20}, {15, 15}, {10, 20}} {
		if !box.Contains(p[0], p[1]) {
			t.Errorf("expected %v inside %+v", p, box)
		}
	}
	for _, p := range [][2]int{{9, 15}, {21, 15}, {15, 21}, {0, 0}} {
		if box.Contains(p[0], p[1]) {
			t.Errorf("expected %v outside %+v", p, box)
		}
	}
}

func TestBoundingBoxCenter(t *testing.T) {
	c := BoundingBox{10, 20, 30, 60}.Center()
	if c.X != 20 || c.Y != 40 {
		t.Errorf("Center = %v, want (20,40)", c)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary(nil); got != "No faces detected" {
		t.Errorf("Summary(nil) = %q", got)
	}

	faces := []Face{
		{ID: 1, BoundingBox: BoundingBox{0, 0, 100, 100}, Confidence: 0.91},
		{ID: 2, BoundingBox: BoundingBox{0, 0, 10, 10}, Confidence: 0.4},
	}
	got := Summary(faces)
	for _, want := range []string{"Detected 2 face(s)", "#1: area=10000px², confidence=0.91", "#2: area=100px²"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary missing %q in:\n%s", want, got)
		}
	}
}
