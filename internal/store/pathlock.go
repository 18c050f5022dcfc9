package store

import (
	"hash/fnv"
	"sync"
)

// stripeCount bounds the number of mutexes a PathLocker allocates; paths
// hash into one of these stripes, trading a small amount of unrelated-path
// contention for not needing an unbounded per-path mutex map.
const stripeCount = 256

// PathLocker guarantees invariant 7 ("at-most-one concurrent mutation per
// path") by striping a fixed number of mutexes across path hashes. Two
// different paths landing in the same stripe serialize unnecessarily, but
// two upserts of the *same* path always do — which is the only guarantee
// the spec requires.
type PathLocker struct {
	stripes [stripeCount]sync.Mutex
}

// NewPathLocker constructs a ready-to-use PathLocker.
func NewPathLocker() *PathLocker {
	return &PathLocker{}
}

// Lock acquires the stripe for path and returns an unlock function; callers
// should `defer locker.Lock(path)()`.
func (l *PathLocker) Lock(path string) func() {
	m := &l.stripes[stripeIndex(path)]
	m.Lock()
	return m.Unlock
}

func stripeIndex(path string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return h.Sum32() % stripeCount
}
