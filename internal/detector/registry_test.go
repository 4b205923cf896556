package detector

import (
	"reflect"
	"testing"
)

func testFaces() []Face {
	return []Face{
		{ID: 1, BoundingBox: BoundingBox{0, 0, 200, 200}, Confidence: 0.5},
		{ID: 2, BoundingBox: BoundingBox{100, 100, 200, 180}, Confidence: 0.95},
		{ID: 3, BoundingBox: BoundingBox{400, 400, 450, 450}, Confidence: 0.7},
	}
}

func TestRegistryFaceAt(t *testing.T) {
	r := NewRegistry(testFaces())

	tests := []struct {
		name   string
		x, y   int
		wantID int
		wantOK bool
	}{
		{"outside all", 300, 300, 0, false},
		{"only largest", 50, 50, 1, true},
		{"overlap picks larger", 150, 150, 1, true},
		{"isolated small", 425, 425, 3, true},
		{"edge inclusive", 450, 450, 3, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := r.FaceAt(tc.x, tc.y)
			if ok != tc.wantOK || id != tc.wantID {
				t.Errorf("FaceAt(%d,%d) = (%d,%v), want (%d,%v)", tc.x, tc.y, id, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(testFaces())

	if r.Len() != 3 {
		t.Errorf("Len = %d", r.Len())
	}
	if !r.Has(2) || r.Has(4) {
		t.Error("Has mismatch")
	}
	if f, ok := r.Face(3); !ok || f.Confidence != 0.7 {
		t.Errorf("Face(3) = %+v, %v", f, ok)
	}
	if got := r.IDs(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("IDs = %v", got)
	}
}

func TestRegistryTargets(t *testing.T) {
	r := NewRegistry(testFaces())

	got := r.Targets([]int{3, 1, 99})
	want := []BoundingBox{{0, 0, 200, 200}, {400, 400, 450, 450}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Targets = %+v, want %+v", got, want)
	}

	if got := r.Targets(nil); len(got) != 0 {
		t.Errorf("Targets(nil) = %+v", got)
	}
}

func TestRegistryIsolatedFromCaller(t *testing.T) {
	faces := testFaces()
	r := NewRegistry(faces)
	faces[0].BoundingBox = BoundingBox{}

	if f, _ := r.Face(1); f.BoundingBox.Empty() {
		t.Error("registry shares caller's slice")
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	if r.Len() != 0 || r.Has(1) {
		t.Error("nil registry should be empty")
	}
	if _, ok := r.FaceAt(0, 0); ok {
		t.Error("nil registry hit")
	}
}
