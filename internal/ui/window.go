// Package ui shows detections in a desktop window and lets the user pick
// faces from the keyboard.
package ui

import (
	"context"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

// Help lists the key bindings
// OpenCV mouse event codes
const (
	mouseMove     = 0
	mouseLeftDown = 1
)

// Help = "1-9 toggle face | p add | x remove | a all | n none | h hover | d re-detect | b blur | e emoji | c style | r reset | s save | q quit | click toggles, hover highlights"

// Window manages the display
type Window struct {
	window *gocv.Window
	name   string
}

// NewWindow creates a new window
func NewWindow(name string) *Window {
	window := gocv.NewWindow(name)
	// Force window to appear on macOS
	window.ResizeWindow(1280, 720)
	window.MoveWindow(100, 100)
	return &Window{
		window: window,
		name:   name,
	}
}

// Show displays a frame with a status line
func (w *Window) Show(frame *gocv.Mat, status string) {
	gocv.PutText(frame, status, image.Pt(10, 30),
		gocv.FontHersheyPlain, 2, color.RGBA{R: 0, G: 255, B: 0, A: 255}, 2)

	w.window.IMShow(*frame)
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// pointerEvent is a mouse event queued by the window callback
type pointerEvent struct {
	event, x, y int
}

// Run drives session from key presses and mouse events until quit or ctx is done
func (w *Window) Run(ctx context.Context, session *Session, savePath string) error {
	// The callback fires inside WaitKey; events are applied after it returns
	var pending []pointerEvent
	w.window.SetMouseHandler(func(event, x, y, _ int, _ interface{}) {
		if event == mouseMove || event == mouseLeftDown {
			pending = append(pending, pointerEvent{event: event, x: x, y: y})
		}
	}, nil)

	redraw := true
	for {
		if ctx.Err() != nil {
			return nil
		}

		if redraw {
			frame := session.Frame()
			w.Show(&frame, session.Status())
			frame.Close()
			redraw = false
		}

		key := w.WaitKey(50)

		for _, ev := range pending {
			if applyPointer(session, ev) == ActionRedraw {
				redraw = true
			}
		}
		pending = pending[:0]

		if key < 0 {
			continue
		}

		action, err := session.HandleKey(ctx, key)
		if err != nil {
			log.Warn(log.Fields{"key": string(rune(key)), "error": err.Error()}, "action failed")
		}

		switch action {
		case ActionQuit:
			return nil
		case ActionSave:
			if err := session.Save(savePath); err != nil {
				log.Warn(log.Fields{"path": savePath, "error": err.Error()}, "save failed")
			} else {
				log.Info(log.Fields{"path": savePath}, "result saved")
			}
			redraw = true
		case ActionRedraw:
			redraw = true
		}
	}
}

func applyPointer(session *Session, ev pointerEvent) Action {
	if ev.event == mouseLeftDown {
		return session.Click(ev.x, ev.y)
	}
	return session.Move(ev.x, ev.y)
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
