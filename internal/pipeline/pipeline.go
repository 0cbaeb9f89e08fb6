// Package pipeline runs a full generation pass: index outputs and images,
// load the catalog, group offers, compose videos in parallel and optionally
// publish them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/maauso/offervideo/internal/catalog"
	"github.com/maauso/offervideo/internal/cohort"
	"github.com/maauso/offervideo/internal/compose"
	"github.com/maauso/offervideo/internal/index"
	"github.com/maauso/offervideo/internal/media"
	"github.com/maauso/offervideo/internal/schedule"
	"github.com/maauso/offervideo/internal/storage"
)

// Options configures an Orchestrator.
type Options struct {
	FeedsDir   string
	ImagesDir  string
	VideosDir  string
	FilterFile string

	// Compose is passed to the composer; its OutputDir is set to VideosDir.
	Compose compose.Options

	// Publish uploads every created video under PublishPrefix.
	Publish       bool
	PublishPrefix string
}

// Summary reports the counters of one run.
type Summary struct {
	Existing      int           `json:"existing"`
	Created       int           `json:"created"`
	Failed        int           `json:"failed"`
	MissingImage  int           `json:"missing_image"`
	Filtered      int           `json:"filtered"`
	Published     int           `json:"published"`
	PublishFailed int           `json:"publish_failed"`
	Tasks         int           `json:"tasks"`
	Duration      time.Duration `json:"duration"`
}

// Orchestrator wires the indexes, catalog, composer and worker pool.
type Orchestrator struct {
	opts    Options
	encoder media.Encoder
	storage storage.Storage
	pool    *schedule.Pool
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(opts Options, encoder media.Encoder, store storage.Storage, pool *schedule.Pool, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Compose.OutputDir = opts.VideosDir
	return &Orchestrator{
		opts:    opts,
		encoder: encoder,
		storage: store,
		pool:    pool,
		logger:  logger,
	}
}

// Run executes one pass over feeds, or over every feed in FeedsDir when
// feeds is empty. Directory and catalog errors abort the run before any task
// is scheduled; per-offer failures are only counted.
func (o *Orchestrator) Run(ctx context.Context, feeds []string) (Summary, error) {
	start := time.Now()
	var sum Summary

	videos, err := index.Build(o.opts.VideosDir)
	if errors.Is(err, index.ErrDirectoryMissing) {
		o.logger.Warn("video directory missing, treating as empty",
			slog.String("dir", o.opts.VideosDir),
		)
		videos = index.Empty(o.opts.VideosDir)
	} else if err != nil {
		return sum, fmt.Errorf("index videos: %w", err)
	}

	images, err := index.Build(o.opts.ImagesDir)
	if err != nil {
		return sum, fmt.Errorf("index images: %w", err)
	}

	o.logger.Info("indexes built",
		slog.Int("videos", videos.Len()),
		slog.Int("images", images.Len()),
	)

	offers, filtered, err := o.loadOffers(feeds)
	if err != nil {
		return sum, err
	}
	sum.Filtered = filtered

	groups := cohort.Build(offers, images, videos)
	sum.Existing = groups.Existing
	sum.MissingImage = groups.MissingImage

	tasks := schedule.Expand(groups.Cohorts)
	sum.Tasks = len(tasks)

	o.logger.Info("starting video generation",
		slog.Int("offers", len(offers)),
		slog.Int("cohorts", len(groups.Cohorts)),
		slog.Int("tasks", len(tasks)),
		slog.Int("workers", o.pool.Workers()),
	)

	composer := compose.NewComposer(images, o.encoder, o.storage, o.opts.Compose, o.logger)

	var published, publishFailed atomic.Int64
	outcomes := o.pool.Run(ctx, tasks, func(ctx context.Context, task compose.Task) error {
		res, err := composer.Compose(ctx, task)
		if err != nil {
			return err
		}
		if o.opts.Publish {
			if err := o.publish(ctx, res); err != nil {
				publishFailed.Add(1)
				o.logger.Warn("failed to publish video",
					slog.String("offer_id", res.OfferID),
					slog.String("error", err.Error()),
				)
			} else {
				published.Add(1)
			}
		}
		return nil
	})

	for _, out := range outcomes {
		if out.Err != nil {
			sum.Failed++
			o.logger.Error("video generation failed",
				slog.String("offer_id", out.Task.Target.ID),
				slog.String("error", out.Err.Error()),
			)
			continue
		}
		sum.Created++
	}
	sum.Published = int(published.Load())
	sum.PublishFailed = int(publishFailed.Load())
	sum.Duration = time.Since(start)

	o.logger.Info("run finished",
		slog.Int("existing", sum.Existing),
		slog.Int("created", sum.Created),
		slog.Int("failed", sum.Failed),
		slog.Int("missing_image", sum.MissingImage),
		slog.Int("filtered", sum.Filtered),
		slog.Int("published", sum.Published),
		slog.Duration("duration", sum.Duration),
	)

	return sum, nil
}

func (o *Orchestrator) loadOffers(feeds []string) ([]catalog.Offer, int, error) {
	names := feeds
	if len(names) == 0 {
		var err error
		names, err = catalog.ListFeeds(o.opts.FeedsDir)
		if err != nil {
			return nil, 0, err
		}
	}

	feed, err := catalog.LoadFeeds(o.opts.FeedsDir, names)
	if err != nil {
		return nil, 0, err
	}

	if o.opts.FilterFile == "" {
		return feed.Offers, 0, nil
	}

	spec, err := catalog.LoadFilterSpec(o.opts.FilterFile)
	if err != nil {
		return nil, 0, err
	}
	offers, removed := catalog.NewFilter(spec, feed.Categories).Apply(feed.Offers)
	o.logger.Info("catalog filtered",
		slog.Int("kept", len(offers)),
		slog.Int("removed", removed),
	)
	return offers, removed, nil
}

func (o *Orchestrator) publish(ctx context.Context, res compose.Result) error {
	f, err := os.Open(res.Path) // #nosec G304 - path is produced by the composer
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	defer func() { _ = f.Close() }()

	key := path.Join(o.opts.PublishPrefix, filepath.Base(res.Path))
	url, err := o.storage.Publish(ctx, key, f)
	if err != nil {
		return err
	}
	o.logger.Info("video published",
		slog.String("offer_id", res.OfferID),
		slog.String("url", url),
	)
	return nil
}
