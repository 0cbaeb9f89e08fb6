// Package storage manages video output files: private temporary paths, the
// atomic commit to the final location, and optional publication to S3.
// It defines the Storage interface (port) and implementations for local disk
// and S3.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for output file handling.
type Storage interface {
	// TempPath returns a fresh temporary path next to finalPath, creating
	// the parent directory if needed. The temporary name is hidden and
	// keeps finalPath's extension so encoders can infer the container.
	TempPath(ctx context.Context, finalPath string) (string, error)

	// Commit atomically moves a finished temporary file to finalPath.
	Commit(ctx context.Context, tempPath, finalPath string) error

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads data under key and returns its public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
