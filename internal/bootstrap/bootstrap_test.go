package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/offervideo/internal/config"
	"github.com/maauso/offervideo/internal/run"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Port:          8080,
		FeedsDir:      filepath.Join(dir, "feeds"),
		ImagesDir:     filepath.Join(dir, "images"),
		VideosDir:     filepath.Join(dir, "videos"),
		FPS:           10,
		TargetSeconds: 3,
		TotalSeconds:  15,
		VideoFormat:   "mp4",
		VideoCodec:    "libx264",
		FFmpegPath:    "ffmpeg",
		S3Prefix:      "videos",
		LogFormat:     "text",
		LogLevel:      "info",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewDependencies_Memory(t *testing.T) {
	deps, err := NewDependencies(context.Background(), testConfig(t), discardLogger())
	require.NoError(t, err)
	defer func() { _ = deps.Close() }()

	assert.NotNil(t, deps.Orchestrator)
	assert.NotNil(t, deps.RunService)

	runs, err := deps.RunService.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestNewDependencies_SQLiteLedger(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReportDB = filepath.Join(t.TempDir(), "runs.db")

	deps, err := NewDependencies(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	// The image directory does not exist, so the run fails but is recorded.
	r, err := deps.RunService.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, run.StatusFailed, r.Status)
	require.NoError(t, deps.Close())

	repo, err := run.NewSQLiteRepository(context.Background(), cfg.ReportDB)
	require.NoError(t, err)
	defer func() { _ = repo.Close() }()

	stored, err := repo.FindByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, run.StatusFailed, stored.Status)
}

func TestNewDependencies_S3(t *testing.T) {
	cfg := testConfig(t)
	cfg.S3Bucket = "bucket"
	cfg.S3Region = "eu-west-1"
	cfg.S3Endpoint = "http://localhost:9000"
	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"

	deps, err := NewDependencies(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, deps.Orchestrator)
}
