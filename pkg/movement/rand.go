package movement

import (
	"math/rand"
	"time"
)

// Rand is the randomness source for path generation.
// *rand.Rand satisfies it; tests pass a seeded one for reproducible paths.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a generator seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// uniform draws from [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// uniformInt draws from [lo, hi] inclusive.
func uniformInt(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

// uniformDuration draws from [lo, hi].
func uniformDuration(r Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.Float64()*float64(hi-lo))
}
