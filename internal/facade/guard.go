package facade

import "sync/atomic"

// reentryGuard is a per-facade single-flag mutual exclusion region. It guards
// against logical reentrancy: a nested call triggered from inside delegated
// execution must fail immediately, never block or queue.
type reentryGuard struct {
	locked atomic.Bool
}

func (g *reentryGuard) acquire() error {
	if !g.locked.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

func (g *reentryGuard) release() {
	g.locked.Store(false)
}
