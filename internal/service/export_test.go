package service

import (
	"context"
	"time"
)

// Test hooks for the service_test package.

func (tb *TokenBucket) SetClock(now func() time.Time) { tb.now = now }

func (tb *TokenBucket) EvictIdle() { tb.evictIdle() }

// AssetLocks exposes the per-asset lock to tests.
type AssetLocks struct{ l *assetLocks }

func NewAssetLocks() *AssetLocks { return &AssetLocks{l: newAssetLocks()} }

func (a *AssetLocks) Lock(ctx context.Context, assetID string) (func(), error) {
	return a.l.Lock(ctx, assetID)
}

func (a *AssetLocks) Held() int {
	a.l.mu.Lock()
	defer a.l.mu.Unlock()
	return len(a.l.locks)
}
