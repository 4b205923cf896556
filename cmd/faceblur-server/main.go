package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/config"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/log"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/pipeline"
	"github.com/CreateIntelligens/SimpleFaceBlur/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	srv := server.New(pipeline.NewService(p), server.Options{
		BodyLimitMB:    cfg.BodyLimitMB,
		RequestTimeout: cfg.StylizeTimeout + 30*time.Second,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(nil, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
