package service

import (
	"context"
	"sync"
)

// assetLocks serialises mutations per asset. Operations on different
// assets never wait on each other.
type assetLocks struct {
	mu    sync.Mutex
	locks map[string]*assetLock
}

type assetLock struct {
	ch   chan struct{}
	refs int
}

func newAssetLocks() *assetLocks {
	return &assetLocks{locks: make(map[string]*assetLock)}
}

// Lock blocks until the asset is free or ctx is done. The returned func
// releases the lock and is safe to call more than once.
func (l *assetLocks) Lock(ctx context.Context, assetID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[assetID]
	if !ok {
		lk = &assetLock{ch: make(chan struct{}, 1)}
		l.locks[assetID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(assetID, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(assetID, lk)
		})
	}, nil
}

func (l *assetLocks) release(assetID string, lk *assetLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, assetID)
	}
}
