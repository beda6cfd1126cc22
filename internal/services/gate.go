package services

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyGate bounds the number of simultaneous remote generation calls
// across every generation task in the process. One gate instance is shared
// by all orchestrators; blocked acquires are served in FIFO order (the
// ordering the underlying weighted semaphore provides).
type ConcurrencyGate struct {
	sem  *semaphore.Weighted
	size int
}

// NewConcurrencyGate creates a gate admitting at most size concurrent
// holders. Sizes below one are clamped to one.
func NewConcurrencyGate(size int) *ConcurrencyGate {
	if size < 1 {
		size = 1
	}
	return &ConcurrencyGate{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (g *ConcurrencyGate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

// Release returns a slot to the gate. Callers must release exactly once per
// successful Acquire, on every exit path.
func (g *ConcurrencyGate) Release() {
	g.sem.Release(1)
}

// Size returns the configured slot count.
func (g *ConcurrencyGate) Size() int {
	return g.size
}
