// Package compose renders one offer video: the target image as prologue and
// epilogue around a middle built from companion images of the same cohort.
package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/maauso/offervideo/internal/budget"
	"github.com/maauso/offervideo/internal/catalog"
	"github.com/maauso/offervideo/internal/media"
	"github.com/maauso/offervideo/internal/storage"
)

// Sentinel errors for composition failures.
var (
	// ErrImageLoad is returned when the target image is missing or cannot
	// be decoded. Nothing is written to disk.
	ErrImageLoad = errors.New("target image load failed")

	// ErrEncoderOpen is returned when the encoder cannot be started.
	ErrEncoderOpen = errors.New("encoder open failed")

	// ErrEncode is returned when writing, finalizing or committing the
	// video fails. The temporary file has been removed.
	ErrEncode = errors.New("encode failed")
)

// Task is the unit of work: one target offer and the other members of its
// cohort.
type Task struct {
	Target     catalog.Offer
	Companions []catalog.Offer
}

// Images resolves an offer id to its image file.
type Images interface {
	Path(id string) (string, bool)
}

// Options configures the composer.
type Options struct {
	Budget    budget.Params
	Format    string
	Codec     string
	OutputDir string
	// Seed makes companion sampling reproducible. Zero means random.
	Seed uint64
}

// Result describes a written video.
type Result struct {
	OfferID string
	Path    string
	Frames  int
	// Dropped counts chosen companions whose image could not be loaded.
	Dropped int
}

// Composer renders videos. It is safe for concurrent use.
type Composer struct {
	images  Images
	encoder media.Encoder
	storage storage.Storage
	opts    Options
	logger  *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(images Images, encoder media.Encoder, store storage.Storage, opts Options, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{
		images:  images,
		encoder: encoder,
		storage: store,
		opts:    opts,
		logger:  logger,
	}
}

// OutputPath returns the final video path for an offer id.
func (c *Composer) OutputPath(id string) string {
	return filepath.Join(c.opts.OutputDir, id+"."+c.opts.Format)
}

// run is a stretch of identical frames.
type run struct {
	frame *image.RGBA
	count int
}

// Compose renders the video for task and commits it to its final path.
// The final path is either untouched or holds a complete video.
func (c *Composer) Compose(ctx context.Context, task Task) (Result, error) {
	id := task.Target.ID
	res := Result{OfferID: id}

	target, err := c.loadImage(id)
	if err != nil {
		return res, fmt.Errorf("%w: offer %s: %w", ErrImageLoad, id, err)
	}
	size := target.Bounds().Size()

	plan, err := budget.Allocate(c.opts.Budget, len(task.Companions), budget.NewRand(c.opts.Seed, id))
	if err != nil {
		return res, err
	}

	middle, dropped := c.middle(task, plan, target)
	res.Dropped = dropped

	runs := make([]run, 0, len(middle)+2)
	runs = append(runs, run{frame: target, count: plan.TargetFrames})
	runs = append(runs, middle...)
	runs = append(runs, run{frame: target, count: plan.TargetFrames})

	finalPath := c.OutputPath(id)
	tempPath, err := c.storage.TempPath(ctx, finalPath)
	if err != nil {
		return res, fmt.Errorf("%w: offer %s: %w", ErrEncoderOpen, id, err)
	}

	sink, err := c.encoder.Open(ctx, tempPath, media.EncodeOptions{
		Width:  size.X,
		Height: size.Y,
		FPS:    c.opts.Budget.FPS,
		Codec:  c.opts.Codec,
	})
	if err != nil {
		c.cleanup(ctx, tempPath)
		return res, fmt.Errorf("%w: offer %s: %w", ErrEncoderOpen, id, err)
	}

	frames, err := writeRuns(sink, runs)
	if err != nil {
		_ = sink.Abort()
		c.cleanup(ctx, tempPath)
		return res, fmt.Errorf("%w: offer %s after %d frames: %w", ErrEncode, id, frames, err)
	}

	if err := sink.Close(); err != nil {
		_ = sink.Abort()
		c.cleanup(ctx, tempPath)
		return res, fmt.Errorf("%w: offer %s: %w", ErrEncode, id, err)
	}

	if err := c.storage.Commit(ctx, tempPath, finalPath); err != nil {
		c.cleanup(ctx, tempPath)
		return res, fmt.Errorf("%w: offer %s: %w", ErrEncode, id, err)
	}

	res.Path = finalPath
	res.Frames = frames

	c.logger.Debug("video composed",
		slog.String("offer_id", id),
		slog.String("path", finalPath),
		slog.Int("frames", frames),
		slog.Int("companions", len(plan.Segments)-dropped),
	)

	return res, nil
}

// middle builds the frame runs between prologue and epilogue. Companions
// that fail to load are skipped; if none loads the target fills the middle.
func (c *Composer) middle(task Task, plan budget.Budget, target *image.RGBA) ([]run, int) {
	fillerFrames := plan.MiddleSeconds * c.opts.Budget.FPS

	if len(plan.Segments) == 0 {
		if plan.FillerFrames == 0 {
			return nil, 0
		}
		return []run{{frame: target, count: plan.FillerFrames}}, 0
	}

	size := target.Bounds().Size()
	runs := make([]run, 0, len(plan.Segments))
	dropped := 0
	for _, seg := range plan.Segments {
		companion := task.Companions[seg.Companion]
		img, err := c.loadImage(companion.ID)
		if err == nil {
			var resized *image.RGBA
			resized, err = media.Resize(img, size.X, size.Y)
			if err == nil {
				runs = append(runs, run{frame: resized, count: seg.Frames})
				continue
			}
		}

		dropped++
		c.logger.Warn("skipping companion image",
			slog.String("offer_id", task.Target.ID),
			slog.String("companion_id", companion.ID),
			slog.String("error", err.Error()),
		)
	}

	if len(runs) == 0 {
		return []run{{frame: target, count: fillerFrames}}, dropped
	}
	return runs, dropped
}

func (c *Composer) loadImage(id string) (*image.RGBA, error) {
	path, ok := c.images.Path(id)
	if !ok {
		return nil, fmt.Errorf("no image for %s", id)
	}
	img, err := media.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return media.ToRGBA(img), nil
}

func (c *Composer) cleanup(ctx context.Context, tempPath string) {
	if err := c.storage.CleanupTemp(ctx, []string{tempPath}); err != nil {
		c.logger.Warn("failed to remove temp file",
			slog.String("path", tempPath),
			slog.String("error", err.Error()),
		)
	}
}

func writeRuns(sink media.FrameSink, runs []run) (int, error) {
	written := 0
	for _, r := range runs {
		for i := 0; i < r.count; i++ {
			if err := sink.WriteFrame(r.frame); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}
