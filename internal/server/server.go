// Package server exposes the face masking pipeline over HTTP.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/compositor"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/detector"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/pipeline"
)

// Service is the pipeline surface the handlers call
type Service interface {
	Detect(data []byte) ([]detector.Face, error)
	Preview(data []byte, req pipeline.PreviewRequest) (*pipeline.Output, error)
	Blur(ctx context.Context, data []byte, boxes []detector.BoundingBox, mode compositor.Mode, emoji string) (*pipeline.Output, error)
	Process(ctx context.Context, data []byte, mode compositor.Mode, emoji string) (*pipeline.Output, error)
}

// Options configures the HTTP server
type Options struct {
	BodyLimitMB    int
	RequestTimeout time.Duration // bounds /blur and /process, 0 disables
}

// Server owns the fiber app and routes
type Server struct {
	app       *fiber.App
	service   Service
	validator *validator.Validate
	timeout   time.Duration
}

// New builds the app and registers all routes
func New(service Service, opts Options) *Server {
	bodyLimit := opts.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 50
	}

	app := fiber.New(fiber.Config{
		AppName:               "SimpleFaceBlur",
		BodyLimit:             bodyLimit * 1024 * 1024,
		StrictRouting:         true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:       app,
		service:   service,
		validator: validator.New(),
		timeout:   opts.RequestTimeout,
	}

	app.Use(requestIDMiddleware())
	app.Use(accessLog())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Content-Type," + RequestIDHeader,
		ExposeHeaders: RequestIDHeader + "," + StylizationHeader + ",X-Face-Count",
	}))

	app.Get("/health", s.health)
	app.Post("/detect", s.detect)
	app.Post("/preview", s.preview)
	app.Post("/blur", s.blur)
	app.Post("/process", s.process)

	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on port until Shutdown
func (s *Server) Listen(port string) error {
	log.Info(log.Fields{"port": port}, "server listening")
	if err := s.app.Listen(fmt.Sprintf(":%s", port)); err != nil {
		return fmt.Errorf("listen on %s: %w", port, err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
