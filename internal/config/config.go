// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrConfigurationInvalid is returned when the video timing settings cannot
	// produce a non-negative middle segment, or a field fails validation.
	ErrConfigurationInvalid = errors.New("config: invalid configuration")
)

// minWorkers is the lower bound for the render worker pool.
const minWorkers = 2

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" validate:"min=1,max=65535"`

	// Directory layout
	FeedsDir   string `env:"FEEDS_DIR, default=temp_feeds" json:"feeds_dir" validate:"required"`
	ImagesDir  string `env:"IMAGES_DIR, default=new_images" json:"images_dir" validate:"required"`
	VideosDir  string `env:"VIDEOS_DIR, default=videos" json:"videos_dir" validate:"required"`
	FilterFile string `env:"FILTER_FILE" json:"filter_file,omitempty"`

	// Video settings
	FPS           int    `env:"FPS, default=10" json:"fps" validate:"min=1,max=240"`
	TargetSeconds int    `env:"TARGET_SECONDS, default=3" json:"target_seconds" validate:"min=0"`
	TotalSeconds  int    `env:"TOTAL_SECONDS, default=15" json:"total_seconds" validate:"min=1"`
	VideoFormat   string `env:"VIDEO_FORMAT, default=mp4" json:"video_format" validate:"required,alphanum"`
	VideoCodec    string `env:"VIDEO_CODEC, default=libx264" json:"video_codec" validate:"required"`
	FFmpegPath    string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`

	// Processing settings
	Workers int    `env:"WORKERS, default=0" json:"workers" validate:"min=0"`
	Seed    uint64 `env:"SEED, default=0" json:"seed"`

	// Run ledger; an empty path keeps runs in memory.
	ReportDB string `env:"REPORT_DB" json:"report_db,omitempty"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Prefix           string `env:"S3_PREFIX, default=videos" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json TEXT JSON"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MiddleSeconds returns the duration left for companion images between the
// target prologue and epilogue.
func (c *Config) MiddleSeconds() int {
	return c.TotalSeconds - 2*c.TargetSeconds
}

// WorkerCount returns the size of the render pool. Zero selects one worker
// per CPU minus one; the result is never below two.
func (c *Config) WorkerCount() int {
	n := c.Workers
	if n == 0 {
		n = runtime.NumCPU() - 1
	}
	if n < minWorkers {
		n = minWorkers
	}
	return n
}

// Load reads configuration from an optional .env file and environment
// variables, then validates it.
func Load() (*Config, error) {
	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and the timing invariant
// TotalSeconds >= 2*TargetSeconds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigurationInvalid, err)
	}
	if c.MiddleSeconds() < 0 {
		return fmt.Errorf("%w: TOTAL_SECONDS=%d is less than twice TARGET_SECONDS=%d",
			ErrConfigurationInvalid, c.TotalSeconds, c.TargetSeconds)
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{FeedsDir: %s, ImagesDir: %s, VideosDir: %s, FPS: %d, TargetSeconds: %d, TotalSeconds: %d, VideoFormat: %s, VideoCodec: %s, Workers: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.FeedsDir,
		c.ImagesDir,
		c.VideosDir,
		c.FPS,
		c.TargetSeconds,
		c.TotalSeconds,
		c.VideoFormat,
		c.VideoCodec,
		c.WorkerCount(),
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
