package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// tempMarker separates the offer stem from the random suffix in temporary names.
const tempMarker = ".partial-"

// LocalStorage implements the Storage interface using local disk.
// Temporary files live in the same directory as their final path so that
// Commit is a same-filesystem rename.
type LocalStorage struct{}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// TempPath returns ".<stem>.partial-<uuid><ext>" in finalPath's directory.
func (s *LocalStorage) TempPath(ctx context.Context, finalPath string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dir := filepath.Dir(finalPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	base := filepath.Base(finalPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, "."+stem+tempMarker+uuid.NewString()+ext), nil
}

// Commit renames tempPath to finalPath, replacing any existing file.
func (s *LocalStorage) Commit(ctx context.Context, tempPath, finalPath string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return fmt.Errorf("stat temp file: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("temp file %s is empty or not a regular file", tempPath)
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("commit %s: %w", finalPath, err)
	}
	return nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered. Cleanup runs even after the
// context is cancelled.
func (s *LocalStorage) CleanupTemp(_ context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}
