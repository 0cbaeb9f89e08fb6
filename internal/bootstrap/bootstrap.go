// Package bootstrap provides dependency initialization for offervideo.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maauso/offervideo/internal/budget"
	"github.com/maauso/offervideo/internal/compose"
	"github.com/maauso/offervideo/internal/config"
	"github.com/maauso/offervideo/internal/media"
	"github.com/maauso/offervideo/internal/pipeline"
	"github.com/maauso/offervideo/internal/run"
	"github.com/maauso/offervideo/internal/schedule"
	"github.com/maauso/offervideo/internal/storage"
)

// Dependencies holds all initialized dependencies for the CLI and the HTTP
// server.
type Dependencies struct {
	Orchestrator *pipeline.Orchestrator
	RunService   *run.Service

	closers []func() error
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	encoder := media.NewFFmpegEncoder(cfg.FFmpegPath)
	pool := schedule.NewPool(cfg.WorkerCount(), logger)

	orch := pipeline.NewOrchestrator(pipeline.Options{
		FeedsDir:   cfg.FeedsDir,
		ImagesDir:  cfg.ImagesDir,
		VideosDir:  cfg.VideosDir,
		FilterFile: cfg.FilterFile,
		Compose: compose.Options{
			Budget: budget.Params{
				FPS:           cfg.FPS,
				TargetSeconds: cfg.TargetSeconds,
				TotalSeconds:  cfg.TotalSeconds,
			},
			Format: cfg.VideoFormat,
			Codec:  cfg.VideoCodec,
			Seed:   cfg.Seed,
		},
		Publish:       cfg.S3Enabled(),
		PublishPrefix: cfg.S3Prefix,
	}, encoder, store, pool, logger)

	deps := &Dependencies{Orchestrator: orch}

	repo, err := initRepository(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}
	deps.RunService = run.NewService(repo, orch, logger)

	return deps, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
			slog.String("prefix", cfg.S3Prefix),
		)
		return s3Store, nil
	}

	logger.Info("local storage configured",
		slog.String("videos_dir", cfg.VideosDir),
	)
	return storage.NewLocalStorage(), nil
}

// initRepository selects the run ledger backend.
func initRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *Dependencies) (run.Repository, error) {
	if cfg.ReportDB == "" {
		return run.NewMemoryRepository(), nil
	}

	repo, err := run.NewSQLiteRepository(ctx, cfg.ReportDB)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	deps.closers = append(deps.closers, repo.Close)

	logger.Info("run ledger configured",
		slog.String("path", cfg.ReportDB),
	)
	return repo, nil
}
