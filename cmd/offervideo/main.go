// Package main provides the entry point for offervideo: a one-shot batch
// run by default, or an HTTP server that triggers runs with -serve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/maauso/offervideo/internal/bootstrap"
	"github.com/maauso/offervideo/internal/config"
	"github.com/maauso/offervideo/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	serve bool
	feeds []string
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("offervideo", flag.ContinueOnError)
	serve := fs.Bool("serve", false, "start the HTTP server instead of running once")
	feeds := fs.String("feeds", "", "comma-separated feed file names inside FEEDS_DIR (default: all *.xml)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return options{serve: *serve, feeds: splitList(*feeds)}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting offervideo",
		slog.Bool("serve", opts.serve),
		slog.String("feeds_dir", cfg.FeedsDir),
		slog.String("images_dir", cfg.ImagesDir),
		slog.String("videos_dir", cfg.VideosDir),
		slog.Int("fps", cfg.FPS),
		slog.Int("target_seconds", cfg.TargetSeconds),
		slog.Int("total_seconds", cfg.TotalSeconds),
		slog.Int("workers", cfg.WorkerCount()),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() { _ = deps.Close() }()

	if opts.serve {
		return serve(ctx, cfg, deps, logger)
	}

	r, err := deps.RunService.Execute(ctx, opts.feeds)
	if r != nil {
		fmt.Println(renderRun(r))
	}
	return err
}

func serve(ctx context.Context, cfg *config.Config, deps *bootstrap.Dependencies, logger *slog.Logger) error {
	handlers := server.NewHandlers(deps.RunService, logger)
	router := server.NewRouter(handlers, logger, server.DefaultConfig())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	// Stop scheduling new offers and let in-flight encodes finish.
	deps.RunService.Shutdown()

	logger.Info("server stopped gracefully")
	return nil
}
