package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seconds(b Budget) []int {
	out := make([]int, len(b.Segments))
	for i, s := range b.Segments {
		out[i] = s.Seconds
	}
	return out
}

func TestAllocate_RemainderGoesToFirstCompanions(t *testing.T) {
	// 13 total - 2*3 target = 7 middle seconds over 3 companions.
	b, err := Allocate(Params{FPS: 10, TargetSeconds: 3, TotalSeconds: 13}, 3, NewRand(1, "x"))
	require.NoError(t, err)

	assert.Equal(t, 7, b.MiddleSeconds)
	assert.Equal(t, []int{3, 2, 2}, seconds(b))
	assert.Equal(t, 0, b.Segments[0].Companion)
	assert.Equal(t, 1, b.Segments[1].Companion)
	assert.Equal(t, 2, b.Segments[2].Companion)
	assert.Equal(t, 30, b.Segments[0].Frames)
	assert.Equal(t, 20, b.Segments[2].Frames)
}

func TestAllocate_ExampleScenario(t *testing.T) {
	b, err := Allocate(Params{FPS: 10, TargetSeconds: 3, TotalSeconds: 15}, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 30, b.TargetFrames)
	assert.Equal(t, []int{5, 4}, seconds(b))
	assert.Equal(t, 50, b.Segments[0].Frames)
	assert.Equal(t, 40, b.Segments[1].Frames)
	assert.Equal(t, 150, b.TotalFrames())
}

func TestAllocate_OversupplySamplesDistinctCompanions(t *testing.T) {
	p := Params{FPS: 5, TargetSeconds: 3, TotalSeconds: 10}

	for seed := uint64(1); seed <= 50; seed++ {
		b, err := Allocate(p, 10, NewRand(seed, "offer"))
		require.NoError(t, err)

		require.Len(t, b.Segments, 4)
		seen := map[int]bool{}
		for _, s := range b.Segments {
			assert.GreaterOrEqual(t, s.Companion, 0)
			assert.Less(t, s.Companion, 10)
			assert.False(t, seen[s.Companion], "companion %d sampled twice", s.Companion)
			seen[s.Companion] = true
			assert.Equal(t, 1, s.Seconds)
		}
		assert.Equal(t, 10*5, b.TotalFrames())
	}
}

func TestAllocate_OversupplyWithoutSource(t *testing.T) {
	b, err := Allocate(Params{FPS: 1, TargetSeconds: 1, TotalSeconds: 5}, 8, nil)
	require.NoError(t, err)
	assert.Len(t, b.Segments, 3)
}

func TestAllocate_NoCompanions(t *testing.T) {
	b, err := Allocate(Params{FPS: 10, TargetSeconds: 3, TotalSeconds: 15}, 0, nil)
	require.NoError(t, err)

	assert.Empty(t, b.Segments)
	assert.Equal(t, 90, b.FillerFrames)
	assert.Equal(t, 90, b.MiddleFrames())
	assert.Equal(t, 150, b.TotalFrames())
}

func TestAllocate_ZeroMiddle(t *testing.T) {
	p := Params{FPS: 10, TargetSeconds: 3, TotalSeconds: 6}

	for _, companions := range []int{0, 1, 5} {
		b, err := Allocate(p, companions, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, b.MiddleFrames())
		assert.Empty(t, b.Segments)
		assert.Equal(t, 60, b.TotalFrames())
	}
}

func TestAllocate_NegativeMiddle(t *testing.T) {
	_, err := Allocate(Params{FPS: 10, TargetSeconds: 3, TotalSeconds: 5}, 1, nil)
	assert.ErrorIs(t, err, ErrNegativeMiddle)
}

func TestAllocate_FrameTotalInvariant(t *testing.T) {
	for total := 2; total <= 20; total++ {
		for companions := 0; companions <= 12; companions++ {
			p := Params{FPS: 7, TargetSeconds: 1, TotalSeconds: total}
			b, err := Allocate(p, companions, NewRand(9, "k"))
			require.NoError(t, err)
			assert.Equal(t, total*7, b.TotalFrames(), "total=%d companions=%d", total, companions)
		}
	}
}

func TestNewRand_SeededIsReproducible(t *testing.T) {
	p := Params{FPS: 1, TargetSeconds: 1, TotalSeconds: 6}

	a, err := Allocate(p, 20, NewRand(7, "offer-1"))
	require.NoError(t, err)
	b, err := Allocate(p, 20, NewRand(7, "offer-1"))
	require.NoError(t, err)

	assert.Equal(t, a.Segments, b.Segments)
}
