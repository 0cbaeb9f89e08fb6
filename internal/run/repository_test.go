package run

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/offervideo/internal/pipeline"
)

func repositories(t *testing.T) map[string]Repository {
	t.Helper()
	sqlite, err := NewSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemoryRepository(),
		"sqlite": sqlite,
	}
}

func TestRepository_SaveAndFind(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := NewWithID("run-1", []string{"a.xml", "b.xml"})
			require.NoError(t, r.Start())
			require.NoError(t, r.Complete(pipeline.Summary{
				Existing: 4, Created: 3, Failed: 1, MissingImage: 2, Filtered: 5,
				Published: 3, Tasks: 4, Duration: 1500 * time.Millisecond,
			}))
			require.NoError(t, repo.Save(ctx, r))

			got, err := repo.FindByID(ctx, "run-1")
			require.NoError(t, err)

			assert.Equal(t, "run-1", got.ID)
			assert.Equal(t, StatusCompleted, got.Status)
			assert.Equal(t, []string{"a.xml", "b.xml"}, got.Feeds)
			assert.Equal(t, r.Summary, got.Summary)
			assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, r.StartedAt.Equal(got.StartedAt))
			assert.True(t, r.CompletedAt.Equal(got.CompletedAt))
		})
	}
}

func TestRepository_SaveUpdates(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			r := NewWithID("run-1", nil)
			require.NoError(t, repo.Save(ctx, r))

			require.NoError(t, r.Fail("image directory missing"))
			require.NoError(t, repo.Save(ctx, r))

			got, err := repo.FindByID(ctx, "run-1")
			require.NoError(t, err)
			assert.Equal(t, StatusFailed, got.Status)
			assert.Equal(t, "image directory missing", got.Error)

			all, err := repo.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestRepository_NotFound(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.FindByID(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrRunNotFound)
		})
	}
}

func TestRepository_ListMostRecentFirst(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			for i, id := range []string{"run-a", "run-b", "run-c"} {
				r := NewWithID(id, nil)
				r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				require.NoError(t, repo.Save(ctx, r))
			}

			runs, err := repo.List(ctx)
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, "run-c", runs[0].ID)
			assert.Equal(t, "run-b", runs[1].ID)
			assert.Equal(t, "run-a", runs[2].ID)
		})
	}
}

func TestMemoryRepository_ReturnsClones(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	r := NewWithID("run-1", []string{"a.xml"})
	require.NoError(t, repo.Save(ctx, r))

	got, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	got.Feeds[0] = "mutated.xml"

	again, err := repo.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "a.xml", again.Feeds[0])
}

func TestSQLiteRepository_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, NewWithID("run-1", nil)))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.FindByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInQueue, got.Status)
}
