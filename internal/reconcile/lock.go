package reconcile

import (
	"context"
	"sync"
)

// serverLocks serializes syncs per server while letting different servers run
// concurrently. Waiting for a lock honours context cancellation.
type serverLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newServerLocks() *serverLocks {
	return &serverLocks{slots: make(map[string]chan struct{})}
}

func (l *serverLocks) lock(ctx context.Context, serverID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[serverID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[serverID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
