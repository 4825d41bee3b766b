package catalog

import (
	"math/rand/v2"
	"slices"
)

// Shuffler permutes n elements through swap. *rand.Rand implements it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultShuffler uses the process-wide generator, which is safe for
// concurrent use and seeded randomly.
func DefaultShuffler() Shuffler { return globalShuffler{} }

// SeededShuffler returns a deterministic shuffler for reproducible samples.
func SeededShuffler(seed uint64) Shuffler {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Sample returns items unchanged when limit <= 0 or len(items) <= limit.
// Otherwise it returns limit elements chosen uniformly without
// replacement, using a Fisher-Yates permutation of a copy.
func Sample[T any](items []T, limit int, s Shuffler) []T {
	if limit <= 0 || len(items) <= limit {
		return items
	}
	out := slices.Clone(items)
	s.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:limit]
}
