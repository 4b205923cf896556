package server

import (
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
)

// FaceResponse is one detected face
type FaceResponse struct {
	ID         int     `json:"id"`
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float32 `json:"confidence"`
	Area       int     `json:"area"`
}

// DetectResponse lists faces, largest first
type DetectResponse struct {
	Faces   []FaceResponse `json:"faces"`
	Summary string         `json:"summary"`
}

func newDetectResponse(faces []detector.Face) DetectResponse {
	resp := DetectResponse{
		Faces:   make([]FaceResponse, len(faces)),
		Summary: detector.Summary(faces),
	}
	for i, f := range faces {
		resp.Faces[i] = FaceResponse{
			ID:         f.ID,
			X1:         f.BoundingBox.X1,
			Y1:         f.BoundingBox.Y1,
			X2:         f.BoundingBox.X2,
			Y2:         f.BoundingBox.Y2,
			Confidence: f.Confidence,
			Area:       int(f.Area()),
		}
	}
	return resp
}

// BoxRequest is a face box sent back by the client
type BoxRequest struct {
	ID int `json:"id"`
	X1 int `json:"x1" validate:"gte=0"`
	Y1 int `json:"y1" validate:"gte=0"`
	X2 int `json:"x2" validate:"gtfield=X1"`
	Y2 int `json:"y2" validate:"gtfield=Y1"`
}

func (b BoxRequest) box() detector.BoundingBox {
	return detector.BoundingBox{X1: b.X1, Y1: b.Y1, X2: b.X2, Y2: b.Y2}
}

// PreviewForm holds the parsed /preview form fields
type PreviewForm struct {
	SelectedIDs []int    `validate:"dive,gt=0"`
	HoverID     int      `validate:"gte=0"`
	Clicks      [][2]int `validate:"max=256"`
	Tool        string   `validate:"omitempty,oneof=add remove pen eraser"`
}

// MaskForm holds the parsed /blur and /process form fields
type MaskForm struct {
	Faces []BoxRequest `validate:"dive"`
	Mode  string       `validate:"omitempty,oneof=blur emoji style cartoon"`
	Emoji string       `validate:"max=64"`
}
