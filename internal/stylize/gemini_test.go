package stylize

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func response(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestExtractImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    []byte
		wantErr bool
	}{
		{"nil response", nil, nil, true},
		{"no candidates", &genai.GenerateContentResponse{}, nil, true},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, nil, true},
		{"text only", response(genai.Text("I cannot edit images")), nil, true},
		{"non image blob", response(genai.Blob{MIMEType: "application/json", Data: []byte("{}")}), nil, true},
		{"empty image blob", response(genai.Blob{MIMEType: "image/png"}), nil, true},
		{"image after text", response(genai.Text("here you go"), genai.Blob{MIMEType: "image/png", Data: png}), png, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractImage(tc.resp)
			if tc.wantErr {
				if !errors.Is(err, ErrNoImage) {
					t.Fatalf("error = %v, want ErrNoImage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), Options{Model: "m"}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("error = %v, want ErrNoAPIKey", err)
	}
}
