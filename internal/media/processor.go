// Package media provides image decoding and video encoding capabilities.
package media

import (
	"context"
	"image"
)

// EncodeOptions configures an encoder sink.
type EncodeOptions struct {
	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int
	// FPS is the output frame rate.
	FPS int
	// Codec is the ffmpeg video encoder name (e.g. "libx264").
	Codec string
}

// Encoder opens frame sinks that write a video file.
type Encoder interface {
	// Open starts an encoder writing to path. The container is chosen from
	// the path's extension.
	Open(ctx context.Context, path string, opts EncodeOptions) (FrameSink, error)
}

// FrameSink receives frames in presentation order.
type FrameSink interface {
	// WriteFrame appends one frame. The frame must match the sink's
	// dimensions.
	WriteFrame(frame *image.RGBA) error

	// Close flushes and finalizes the video file.
	Close() error

	// Abort stops the encoder without finalizing. The output file may be
	// left partial; the caller removes it.
	Abort() error
}
