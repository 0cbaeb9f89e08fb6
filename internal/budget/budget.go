// Package budget allocates a video's fixed duration across the target image
// and its companion images.
package budget

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrNegativeMiddle is returned when the total duration cannot fit the
// prologue and epilogue.
var ErrNegativeMiddle = errors.New("budget: total duration shorter than prologue and epilogue")

// Params are the timing settings of a video.
type Params struct {
	FPS           int
	TargetSeconds int
	TotalSeconds  int
}

// MiddleSeconds is the time between prologue and epilogue.
func (p Params) MiddleSeconds() int {
	return p.TotalSeconds - 2*p.TargetSeconds
}

// Segment is one companion's share of the middle of the video.
type Segment struct {
	// Companion indexes the task's companion list.
	Companion int
	Seconds   int
	Frames    int
}

// Budget is the frame plan for one video.
type Budget struct {
	// TargetFrames is written twice: as prologue and as epilogue.
	TargetFrames  int
	MiddleSeconds int
	// FillerFrames repeats the target image in the middle when there are
	// no companions.
	FillerFrames int
	Segments     []Segment
}

// MiddleFrames is the number of frames between prologue and epilogue.
func (b Budget) MiddleFrames() int {
	n := b.FillerFrames
	for _, s := range b.Segments {
		n += s.Frames
	}
	return n
}

// TotalFrames is the number of frames of the full plan.
func (b Budget) TotalFrames() int {
	return 2*b.TargetFrames + b.MiddleFrames()
}

// Allocate plans the frames of a video with companionCount companions.
//
// When there are more companions than middle seconds, exactly MiddleSeconds
// of them are sampled without replacement using rng; the rest sit this video
// out. Whole seconds are spread evenly and the first MiddleSeconds%k segments
// get one extra second.
func Allocate(p Params, companionCount int, rng *rand.Rand) (Budget, error) {
	middle := p.MiddleSeconds()
	if middle < 0 {
		return Budget{}, fmt.Errorf("%w: total=%ds target=%ds", ErrNegativeMiddle, p.TotalSeconds, p.TargetSeconds)
	}

	b := Budget{
		TargetFrames:  p.TargetSeconds * p.FPS,
		MiddleSeconds: middle,
	}

	if companionCount <= 0 {
		b.FillerFrames = middle * p.FPS
		return b, nil
	}

	chosen := choose(companionCount, middle, rng)
	k := len(chosen)
	if k == 0 {
		return b, nil
	}

	base, extra := middle/k, middle%k
	b.Segments = make([]Segment, k)
	for i, companion := range chosen {
		secs := base
		if i < extra {
			secs++
		}
		b.Segments[i] = Segment{Companion: companion, Seconds: secs, Frames: secs * p.FPS}
	}
	return b, nil
}

// choose returns min(n, limit) companion indexes: all of them in order when
// they fit, otherwise a uniform sample in sampling order.
func choose(n, limit int, rng *rand.Rand) []int {
	if n <= limit {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rng.Perm(n)[:limit]
}
