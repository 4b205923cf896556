// Package selection tracks which detected faces a caller wants masked.
package selection

import (
	"sort"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
)

// Tool decides what a click on a face does
type Tool int

const (
	ToolAdd Tool = iota
	ToolRemove
)

func (t Tool) String() string {
	if t == ToolRemove {
		return "remove"
	}
	return "add"
}

// ParseTool maps "add"/"pen" and "remove"/"eraser" to a Tool
func ParseTool(s string) (Tool, bool) {
	switch s {
	case "add", "pen", "":
		return ToolAdd, true
	case "remove", "eraser":
		return ToolRemove, true
	}
	return ToolAdd, false
}

// State is the selection for one canvas or one API call. It only references
// ids of its current registry. It is not safe for concurrent use.
type State struct {
	registry *detector.Registry
	selected map[int]struct{}
	hover    int
	hasHover bool
	tool     Tool
}

// New returns an empty selection over registry with tool ADD
func New(registry *detector.Registry) *State {
	return &State{
		registry: registry,
		selected: make(map[int]struct{}),
		tool:     ToolAdd,
	}
}

// Registry returns the faces this selection refers to
func (s *State) Registry() *detector.Registry {
	return s.registry
}

// Tool returns the active tool
func (s *State) Tool() Tool {
	return s.tool
}

// SetTool changes the active tool
func (s *State) SetTool(t Tool) {
	s.tool = t
}

// Click applies the active tool to id. Unknown ids are ignored.
func (s *State) Click(id int) {
	if !s.registry.Has(id) {
		return
	}
	switch s.tool {
	case ToolAdd:
		s.selected[id] = struct{}{}
	case ToolRemove:
		delete(s.selected, id)
	}
}

// ClickAt hit-tests (x, y) and clicks the face found there, if any
func (s *State) ClickAt(x, y int) (int, bool) {
	id, ok := s.registry.FaceAt(x, y)
	if ok {
		s.Click(id)
	}
	return id, ok
}

// Hover sets the hovered face. Unknown ids clear the hover.
func (s *State) Hover(id int) {
	if !s.registry.Has(id) {
		s.ClearHover()
		return
	}
	s.hover, s.hasHover = id, true
}

// HoverAt hovers whichever face contains (x, y), clearing hover over empty space
func (s *State) HoverAt(x, y int) {
	if id, ok := s.registry.FaceAt(x, y); ok {
		s.Hover(id)
		return
	}
	s.ClearHover()
}

// ClearHover removes the hover emphasis
func (s *State) ClearHover() {
	s.hover, s.hasHover = 0, false
}

// HoverID returns the hovered face, if any
func (s *State) HoverID() (int, bool) {
	return s.hover, s.hasHover
}

// SelectAll selects every face of the registry
func (s *State) SelectAll() {
	for _, id := range s.registry.IDs() {
		s.selected[id] = struct{}{}
	}
}

// DeselectAll empties the selection
func (s *State) DeselectAll() {
	clear(s.selected)
}

// Select adds ids as if clicked with ADD, regardless of the active tool
func (s *State) Select(ids ...int) {
	for _, id := range ids {
		if s.registry.Has(id) {
			s.selected[id] = struct{}{}
		}
	}
}

// Reset replaces the face list after a new detection. Selection and hover are
// cleared; the tool is kept.
func (s *State) Reset(registry *detector.Registry) {
	s.registry = registry
	clear(s.selected)
	s.ClearHover()
}

// IsSelected reports whether id is selected
func (s *State) IsSelected(id int) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected ids in ascending order
func (s *State) Selected() []int {
	ids := make([]int, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of selected faces
func (s *State) Len() int {
	return len(s.selected)
}

// Targets returns the boxes of selected faces in area-descending order
func (s *State) Targets() []detector.BoundingBox {
	return s.registry.Targets(s.Selected())
}
