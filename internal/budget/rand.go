package budget

import (
	"hash/fnv"
	"math/rand/v2"
)

// NewRand returns the sampling source for one video. A zero seed yields a
// non-deterministic source; otherwise the stream depends only on seed and
// key, so results do not vary with worker scheduling.
func NewRand(seed uint64, key string) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}
