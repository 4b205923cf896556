package ui

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/pipeline"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/selection"
)

// Action tells the window loop what to do after a key
type Action int

const (
	ActionNone Action = iota
	ActionRedraw
	ActionSave
	ActionQuit
)

const keyEsc = 27

// Source returns fresh encoded image bytes, e.g. a new camera frame
type Source func() ([]byte, error)

// Session is the selection workflow over one detection, independent of any
// window so it can be driven by key codes and pointer positions alone
type Session struct {
	pipeline *pipeline.Pipeline
	det      *pipeline.Detection
	state    *selection.State
	emoji    string
	source   Source

	result    gocv.Mat
	hasResult bool
	status    string
}

// NewSession starts with every face selected and the ADD tool. The session
// takes ownership of det. source may be nil, which disables re-detection.
func NewSession(p *pipeline.Pipeline, det *pipeline.Detection, emoji string, source Source) *Session {
	s := &Session{
		pipeline: p,
		det:      det,
		state:    selection.New(det.Registry),
		emoji:    emoji,
		source:   source,
	}
	s.state.SelectAll()
	s.status = fmt.Sprintf("%d face(s), all selected | tool: add", det.Registry.Len())
	return s
}

// State exposes the selection
func (s *Session) State() *selection.State {
	return s.state
}

// Status is a one-line description for the window overlay
func (s *Session) Status() string {
	return s.status
}

// HandleKey applies one key press
func (s *Session) HandleKey(ctx context.Context, key int) (Action, error) {
	switch {
	case key == 'q' || key == keyEsc:
		return ActionQuit, nil
	case key >= '1' && key <= '9':
		id := key - '0'
		if !s.state.Registry().Has(id) {
			s.status = fmt.Sprintf("no face #%d", id)
			return ActionRedraw, nil
		}
		s.state.Click(id)
		s.state.Hover(id)
		s.showPreview(fmt.Sprintf("#%d %s | selected %v", id, s.state.Tool(), s.state.Selected()))
	case key == 'p':
		s.state.SetTool(selection.ToolAdd)
		s.status = "tool: add"
	case key == 'x':
		s.state.SetTool(selection.ToolRemove)
		s.status = "tool: remove"
	case key == 'a':
		s.state.SelectAll()
		s.showPreview(fmt.Sprintf("selected %v", s.state.Selected()))
	case key == 'n':
		s.state.DeselectAll()
		s.showPreview("selection cleared")
	case key == 'h':
		s.cycleHover()
	case key == 'r':
		s.showPreview("preview")
	case key == 'd':
		return ActionRedraw, s.redetect()
	case key == 'b':
		return ActionRedraw, s.composite(ctx, compositor.ModeBlur)
	case key == 'e':
		return ActionRedraw, s.composite(ctx, compositor.ModeEmoji)
	case key == 'c':
		return ActionRedraw, s.composite(ctx, compositor.ModeStyle)
	case key == 's':
		return ActionSave, nil
	default:
		return ActionNone, nil
	}
	return ActionRedraw, nil
}

// Click applies the current tool to the face under (x, y)
func (s *Session) Click(x, y int) Action {
	id, ok := s.state.ClickAt(x, y)
	if !ok {
		return ActionNone
	}
	s.state.Hover(id)
	s.showPreview(fmt.Sprintf("#%d %s | selected %v", id, s.state.Tool(), s.state.Selected()))
	return ActionRedraw
}

// Move updates the hover emphasis for a pointer at (x, y). It only asks for a
// redraw when the hovered face changed and the preview is on screen.
func (s *Session) Move(x, y int) Action {
	prev, hadPrev := s.state.HoverID()
	s.state.HoverAt(x, y)
	cur, hasCur := s.state.HoverID()
	if cur == prev && hasCur == hadPrev {
		return ActionNone
	}
	if s.hasResult {
		return ActionNone
	}
	return ActionRedraw
}

// Frame returns what should be shown: the last result, or a preview of the
// current selection. The caller owns the returned Mat.
func (s *Session) Frame() gocv.Mat {
	if s.hasResult {
		return s.result.Clone()
	}
	return s.pipeline.Preview(s.det.Image, s.det.Faces, s.state)
}

// Save writes the last result, or the untouched image when nothing was applied
func (s *Session) Save(path string) error {
	img := s.det.Image
	if s.hasResult {
		img = s.result
	}
	if !gocv.IMWrite(path, img) {
		return fmt.Errorf("failed to write %s", path)
	}
	s.status = "saved " + path
	return nil
}

// Close releases the last result and the detection
func (s *Session) Close() {
	s.dropResult()
	s.det.Close()
}

func (s *Session) composite(ctx context.Context, mode compositor.Mode) error {
	targets := s.state.Targets()
	res, err := s.pipeline.Composite(ctx, s.det.Image, targets, mode, s.emoji)
	if err != nil {
		s.status = fmt.Sprintf("%s failed", mode)
		return err
	}

	s.dropResult()
	s.result, s.hasResult = res.Image, true

	s.status = fmt.Sprintf("%s applied to %d face(s)", mode, len(targets))
	if res.Fallback {
		s.status += " (stylization failed, original kept)"
	}
	log.Info(log.Fields{"mode": string(mode), "targets": len(targets), "fallback": res.Fallback}, "interactive composite")
	return nil
}

// redetect replaces the detection with one over fresh source bytes. Stale ids
// are dropped and every new face starts selected.
func (s *Session) redetect() error {
	if s.source == nil {
		s.status = "no source to re-detect from"
		return nil
	}

	data, err := s.source()
	if err != nil {
		s.status = "capture failed"
		return err
	}
	det, err := s.pipeline.Detect(data)
	if err != nil {
		s.status = "detection failed"
		return err
	}

	s.dropResult()
	s.det.Close()
	s.det = det
	s.state.Reset(det.Registry)
	s.state.SelectAll()

	s.status = fmt.Sprintf("re-detected %d face(s), all selected", det.Registry.Len())
	return nil
}

func (s *Session) cycleHover() {
	ids := s.state.Registry().IDs()
	if len(ids) == 0 {
		return
	}

	next := ids[0]
	if cur, ok := s.state.HoverID(); ok {
		for i, id := range ids {
			if id == cur {
				next = ids[(i+1)%len(ids)]
				break
			}
		}
	}
	s.state.Hover(next)
	s.showPreview(fmt.Sprintf("hover #%d", next))
}

func (s *Session) showPreview(status string) {
	s.dropResult()
	s.status = status
}

func (s *Session) dropResult() {
	if s.hasResult {
		s.result.Close()
		s.hasResult = false
	}
}
