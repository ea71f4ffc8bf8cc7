package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vncsmyrnk/kioskvote/internal/core/domain"
)

// writerWeight is the full capacity of an election lock. A writer takes all
// of it, a reader takes one unit.
const writerWeight = 1 << 20

// electionLocks is a set of context-aware read/write locks keyed by election.
// semaphore.Weighted queues waiters in FIFO order, so a waiting writer keeps
// later readers out.
type electionLocks struct {
	mu      sync.Mutex
	locks   map[int64]*semaphore.Weighted
	timeout time.Duration
}

func newElectionLocks(timeout time.Duration) *electionLocks {
	return &electionLocks{
		locks:   make(map[int64]*semaphore.Weighted),
		timeout: timeout,
	}
}

func (l *electionLocks) get(electionID int64) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.locks[electionID]
	if !ok {
		sem = semaphore.NewWeighted(writerWeight)
		l.locks[electionID] = sem
	}
	return sem
}

func (l *electionLocks) acquire(ctx context.Context, electionID int64, weight int64) (func(), error) {
	sem := l.get(electionID)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := sem.Acquire(ctx, weight); err != nil {
		return nil, fmt.Errorf("%w: election %d is locked: %w", domain.ErrBusy, electionID, err)
	}
	return func() { sem.Release(weight) }, nil
}

func (l *electionLocks) Lock(ctx context.Context, electionID int64) (func(), error) {
	return l.acquire(ctx, electionID, writerWeight)
}

func (l *electionLocks) RLock(ctx context.Context, electionID int64) (func(), error) {
	return l.acquire(ctx, electionID, 1)
}
