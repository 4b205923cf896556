package server

import (
	"context"
	"fmt"
	"image"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/pipeline"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/selection"
)

// defaultMaskMode is used by /blur and /process when no mode is sent
const defaultMaskMode = compositor.ModeEmoji

// StylizationHeader is set to "fallback" when the original image was returned
// because stylization failed
const StylizationHeader = "X-Stylization"

func (s *Server) health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) detect(ctx *fiber.Ctx) error {
	data, err := imageField(ctx)
	if err != nil {
		return err
	}

	faces, err := s.service.Detect(data)
	if err != nil {
		return err
	}
	return ctx.JSON(newDetectResponse(faces))
}

func (s *Server) preview(ctx *fiber.Ctx) error {
	data, err := imageField(ctx)
	if err != nil {
		return err
	}

	var form PreviewForm
	if err := jsonField(ctx, "selected_ids", &form.SelectedIDs); err != nil {
		return err
	}
	if err := jsonField(ctx, "clicks", &form.Clicks); err != nil {
		return err
	}
	if v := ctx.FormValue("hover_id"); v != "" {
		if form.HoverID, err = strconv.Atoi(v); err != nil {
			return &Error{Code: fiber.StatusBadRequest, Err: fmt.Errorf("hover_id: %w", err)}
		}
	}
	form.Tool = ctx.FormValue("tool")

	if err := s.validate(form); err != nil {
		return err
	}

	tool, _ := selection.ParseTool(form.Tool)
	req := pipeline.PreviewRequest{
		SelectedIDs: form.SelectedIDs,
		HoverID:     form.HoverID,
		Tool:        tool,
	}
	for _, c := range form.Clicks {
		req.Clicks = append(req.Clicks, image.Pt(c[0], c[1]))
	}

	out, err := s.service.Preview(data, req)
	if err != nil {
		return err
	}
	return sendJPEG(ctx, out)
}

func (s *Server) blur(ctx *fiber.Ctx) error {
	data, err := imageField(ctx)
	if err != nil {
		return err
	}

	var form MaskForm
	if err := jsonField(ctx, "faces", &form.Faces); err != nil {
		return err
	}
	mode, emoji, err := s.maskOptions(ctx, &form)
	if err != nil {
		return err
	}

	boxes := make([]detector.BoundingBox, len(form.Faces))
	for i, f := range form.Faces {
		boxes[i] = f.box()
	}

	c, cancel := s.requestContext(ctx)
	defer cancel()

	out, err := s.service.Blur(c, data, boxes, mode, emoji)
	if err != nil {
		return err
	}
	return sendJPEG(ctx, out)
}

func (s *Server) process(ctx *fiber.Ctx) error {
	data, err := imageField(ctx)
	if err != nil {
		return err
	}

	var form MaskForm
	mode, emoji, err := s.maskOptions(ctx, &form)
	if err != nil {
		return err
	}

	c, cancel := s.requestContext(ctx)
	defer cancel()

	out, err := s.service.Process(c, data, mode, emoji)
	if err != nil {
		return err
	}
	return sendJPEG(ctx, out)
}

// maskOptions reads and validates mode and emoji into form
func (s *Server) maskOptions(ctx *fiber.Ctx, form *MaskForm) (compositor.Mode, string, error) {
	form.Mode = ctx.FormValue("mode", string(defaultMaskMode))
	form.Emoji = ctx.FormValue("emoji")

	if err := s.validate(form); err != nil {
		return "", "", err
	}

	mode, err := compositor.ParseMode(form.Mode)
	if err != nil {
		return "", "", err
	}
	return mode, form.Emoji, nil
}

func (s *Server) validate(v any) error {
	if err := s.validator.Struct(v); err != nil {
		return &Error{Code: fiber.StatusBadRequest, Err: err}
	}
	return nil
}

// requestContext bounds a request by the configured timeout
func (s *Server) requestContext(ctx *fiber.Ctx) (context.Context, context.CancelFunc) {
	base := ctx.UserContext()
	if s.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, s.timeout)
}

// imageField reads the uploaded "image" file
func imageField(ctx *fiber.Ctx) ([]byte, error) {
	header, err := ctx.FormFile("image")
	if err != nil {
		return nil, ErrMissingImage
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", header.Filename, err)
	}

	log.Debug(log.Fields{
		log.RequestIDKey: requestID(ctx),
		"file_name":      header.Filename,
		"file_size":      header.Size,
	}, "image received")
	return data, nil
}

// jsonField decodes a JSON-encoded form field; an absent field leaves v untouched
func jsonField(ctx *fiber.Ctx, name string, v any) error {
	raw := ctx.FormValue(name)
	if raw == "" {
		return nil
	}
	if err := jsoniter.UnmarshalFromString(raw, v); err != nil {
		return &Error{Code: fiber.StatusBadRequest, Err: fmt.Errorf("%s: %w: %v", name, ErrBadField, err)}
	}
	return nil
}

func sendJPEG(ctx *fiber.Ctx, out *pipeline.Output) error {
	ctx.Set(fiber.HeaderContentType, "image/jpeg")
	ctx.Set("X-Face-Count", strconv.Itoa(out.Faces))
	if out.Fallback {
		ctx.Set(StylizationHeader, "fallback")
	}
	return ctx.Send(out.JPEG)
}
