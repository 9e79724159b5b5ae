package types

import (
	"math/rand"
	"time"
)

// Rand is the random source behind every randomized choice the bot makes
// (delays, sort target, cart removals). *rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Perm(n int) []int
}

// NewRand returns a Rand seeded from the clock, or from seed when non-zero.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
