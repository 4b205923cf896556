// Package stylize restyles whole images through a generative image service.
package stylize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
)

var (
	// ErrNoAPIKey is returned when the service is configured without credentials
	ErrNoAPIKey = errors.New("stylize: API key is required")
	// ErrNoImage is returned when a response carries no image part
	ErrNoImage = errors.New("stylize: response contains no image")
)

// Options configures a Gemini stylizer
type Options struct {
	APIKey      string
	Model       string
	Prompt      string        // defaults to CartoonizeFaces
	Timeout     time.Duration // per call, including the wait for the limiter
	MinInterval time.Duration // minimum spacing between calls, 0 disables pacing
}

// Gemini sends an image and a fixed instruction to a Gemini image model.
// It is safe for concurrent use.
type Gemini struct {
	client  *genai.Client
	model   string
	prompt  string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewGemini creates a client for the configured model
func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(opts.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	prompt := opts.Prompt
	if prompt == "" {
		prompt = CartoonizeFaces
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Gemini{
		client:  client,
		model:   opts.Model,
		prompt:  prompt,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Stylize returns the service's restyled version of an encoded image.
// format is the image subtype, e.g. "png".
func (g *Gemini) Stylize(ctx context.Context, data []byte, format string) ([]byte, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("stylize: waiting for rate limit: %w", err)
	}

	start := time.Now()
	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(g.prompt), genai.ImageData(format, data))
	if err != nil {
		return nil, fmt.Errorf("stylize: generate content with %s: %w", g.model, err)
	}

	out, err := extractImage(resp)
	if err != nil {
		return nil, err
	}

	log.Debug(log.Fields{
		"model":     g.model,
		"in_bytes":  len(data),
		"out_bytes": len(out),
		"elapsed":   time.Since(start).String(),
	}, "stylization completed")
	return out, nil
}

// Close releases the client
func (g *Gemini) Close() error {
	return g.client.Close()
}

// extractImage returns the first non-empty image blob across all candidates
func extractImage(resp *genai.GenerateContentResponse) ([]byte, error) {
	if resp == nil {
		return nil, ErrNoImage
	}

	var text []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Blob:
				if strings.HasPrefix(p.MIMEType, "image/") && len(p.Data) > 0 {
					return p.Data, nil
				}
			case genai.Text:
				text = append(text, string(p))
			}
		}
	}

	if len(text) > 0 {
		return nil, fmt.Errorf("%w (text reply: %.200s)", ErrNoImage, strings.Join(text, " "))
	}
	return nil, ErrNoImage
}
