package bidding

import (
	"context"
	"sync"
)

// auctionLocks hands out one exclusive lock per auction id. Entries are
// reference counted and removed once nobody holds or waits for them.
type auctionLocks struct {
	mu    sync.Mutex
	locks map[string]*auctionLock
}

type auctionLock struct {
	sem  chan struct{}
	refs int
}

func newAuctionLocks() *auctionLocks {
	return &auctionLocks{locks: make(map[string]*auctionLock)}
}

// lock blocks until the auction's lock is held or ctx is done
func (l *auctionLocks) lock(ctx context.Context, auctionID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[auctionID]
	if !ok {
		entry = &auctionLock{sem: make(chan struct{}, 1)}
		l.locks[auctionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			l.release(auctionID, entry)
		}, nil
	case <-ctx.Done():
		l.release(auctionID, entry)
		return nil, ctx.Err()
	}
}

func (l *auctionLocks) release(auctionID string, entry *auctionLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, auctionID)
	}
}

func (l *auctionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
