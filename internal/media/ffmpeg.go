package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// Static errors for media operations.
var (
	// ErrFrameSize is returned when a frame does not match the sink's dimensions.
	ErrFrameSize = errors.New("frame size does not match encoder")
	// ErrSinkClosed is returned when writing to a closed or aborted sink.
	ErrSinkClosed = errors.New("encoder sink closed")
)

// FFmpegEncoder implements Encoder by piping raw RGBA frames into the ffmpeg CLI.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEncoder(ffmpegPath string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath}
}

// Compile-time check that FFmpegEncoder implements Encoder.
var _ Encoder = (*FFmpegEncoder)(nil)

// Open starts ffmpeg reading rawvideo from stdin and writing to path.
func (e *FFmpegEncoder) Open(ctx context.Context, path string, opts EncodeOptions) (FrameSink, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", opts.FPS)
	}

	args := encodeArgs(path, opts)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}
	sink := &ffmpegSink{
		cmd:    cmd,
		stdin:  stdin,
		args:   args,
		width:  opts.Width,
		height: opts.Height,
	}
	cmd.Stderr = &sink.stderr

	if err := cmd.Start(); err != nil {
		return nil, &FFmpegError{Args: args, Err: err}
	}
	return sink, nil
}

// encodeArgs builds the ffmpeg command line for a rawvideo stdin source.
func encodeArgs(path string, opts EncodeOptions) []string {
	codec := opts.Codec
	if codec == "" {
		codec = "libx264"
	}
	return []string{
		"-y",                 // Overwrite output file without asking
		"-loglevel", "error", // Keep stderr small; it is only read on failure
		"-f", "rawvideo", // Headerless frames on stdin
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-r", strconv.Itoa(opts.FPS),
		"-i", "pipe:0",
		// yuv420p needs even dimensions
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		"-an",
		path,
	}
}

// ffmpegSink streams frames to a running ffmpeg process.
type ffmpegSink struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	args   []string
	width  int
	height int
	done   bool
}

// WriteFrame writes the frame's pixels to ffmpeg's stdin.
func (s *ffmpegSink) WriteFrame(frame *image.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	b := frame.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", ErrFrameSize, b.Dx(), b.Dy(), s.width, s.height)
	}

	rowLen := 4 * s.width
	if frame.Stride == rowLen {
		start := frame.PixOffset(b.Min.X, b.Min.Y)
		return s.write(frame.Pix[start : start+rowLen*s.height])
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := frame.PixOffset(b.Min.X, y)
		if err := s.write(frame.Pix[start : start+rowLen]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ffmpegSink) write(p []byte) error {
	// stderr is still being copied while the process runs; it is only
	// reported after Wait.
	if _, err := s.stdin.Write(p); err != nil {
		return &FFmpegError{Args: s.args, Err: err}
	}
	return nil
}

// Close ends the input stream and waits for ffmpeg to finalize the file.
func (s *ffmpegSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ErrSinkClosed
	}
	s.done = true

	closeErr := s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return &FFmpegError{Args: s.args, Stderr: s.stderr.String(), Err: err}
	}
	if closeErr != nil {
		return fmt.Errorf("close ffmpeg stdin: %w", closeErr)
	}
	return nil
}

// Abort kills ffmpeg and reaps the process.
func (s *ffmpegSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return nil
	}
	s.done = true

	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
