package detector

// Registry indexes the faces of one detection for lookup and hit-testing.
// A nil Registry behaves as an empty one.
type Registry struct {
	faces []Face
	byID  map[int]int
}

// NewRegistry wraps faces in area-descending order as returned by Detect
func NewRegistry(faces []Face) *Registry {
	r := &Registry{
		faces: make([]Face, len(faces)),
		byID:  make(map[int]int, len(faces)),
	}
	copy(r.faces, faces)
	for i, f := range r.faces {
		r.byID[f.ID] = i
	}
	return r
}

// Len returns the number of faces
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.faces)
}

// Faces returns a copy of the face list
func (r *Registry) Faces() []Face {
	if r == nil {
		return nil
	}
	out := make([]Face, len(r.faces))
	copy(out, r.faces)
	return out
}

// Has reports whether id belongs to this detection
func (r *Registry) Has(id int) bool {
	if r == nil {
		return false
	}
	_, ok := r.byID[id]
	return ok
}

// Face returns the face with the given id
func (r *Registry) Face(id int) (Face, bool) {
	if r == nil {
		return Face{}, false
	}
	i, ok := r.byID[id]
	if !ok {
		return Face{}, false
	}
	return r.faces[i], true
}

// IDs returns all face ids in list order
func (r *Registry) IDs() []int {
	if r == nil {
		return nil
	}
	ids := make([]int, len(r.faces))
	for i, f := range r.faces {
		ids[i] = f.ID
	}
	return ids
}

// FaceAt returns the first face in list order whose box contains (x, y).
// With overlapping boxes the larger face wins since the list is area-descending.
func (r *Registry) FaceAt(x, y int) (int, bool) {
	if r == nil {
		return 0, false
	}
	for _, f := range r.faces {
		if f.BoundingBox.Contains(x, y) {
			return f.ID, true
		}
	}
	return 0, false
}

// Targets returns the boxes of faces whose id is in ids, in list order.
// Unknown ids are ignored.
func (r *Registry) Targets(ids []int) []BoundingBox {
	if r == nil || len(ids) == 0 {
		return nil
	}
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	var boxes []BoundingBox
	for _, f := range r.faces {
		if want[f.ID] {
			boxes = append(boxes, f.BoundingBox)
		}
	}
	return boxes
}
