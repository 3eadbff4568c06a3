package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/perfaudit/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/perfaudit/internal/testutil"
)

func newStore(t *testing.T, clk *testutil.FixedClock) *ratelimit.TokenBucketStore {
	t.Helper()
	store := ratelimit.NewTokenBucketStore(time.Minute, clk)
	t.Cleanup(store.Stop)
	return store
}

func TestTokenBucketStore_AllowWithinBurst(t *testing.T) {
	store := newStore(t, &testutil.FixedClock{T: time.Unix(1000, 0)})
	ctx := context.Background()

	for i := range 3 {
		if !store.Allow(ctx, "client-a", 1, 3) {
			t.Errorf("request %d should be allowed within burst", i+1)
		}
	}
}

func TestTokenBucketStore_DeniedOverBurst(t *testing.T) {
	store := newStore(t, &testutil.FixedClock{T: time.Unix(1000, 0)})
	ctx := context.Background()

	for range 5 {
		store.Allow(ctx, "client-a", 1, 5)
	}

	if store.Allow(ctx, "client-a", 1, 5) {
		t.Error("request over burst should be denied")
	}
}

func TestTokenBucketStore_RefillsOverTime(t *testing.T) {
	clk := &testutil.FixedClock{T: time.Unix(1000, 0)}
	store := newStore(t, clk)
	ctx := context.Background()

	store.Allow(ctx, "client-a", 1, 1)
	if store.Allow(ctx, "client-a", 1, 1) {
		t.Fatal("second request in the same instant should be denied")
	}

	clk.T = clk.T.Add(time.Second)
	if !store.Allow(ctx, "client-a", 1, 1) {
		t.Error("bucket should refill after one second")
	}
}

func TestTokenBucketStore_KeysAreIndependent(t *testing.T) {
	store := newStore(t, &testutil.FixedClock{T: time.Unix(1000, 0)})
	ctx := context.Background()

	store.Allow(ctx, "client-a", 1, 1)
	if !store.Allow(ctx, "client-b", 1, 1) {
		t.Error("a different key must have its own bucket")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", store.Len())
	}
}

func TestTokenBucketStore_ParamsUpdate(t *testing.T) {
	clk := &testutil.FixedClock{T: time.Unix(1000, 0)}
	store := newStore(t, clk)
	ctx := context.Background()

	store.Allow(ctx, "client-a", 1, 1)
	if store.Allow(ctx, "client-a", 10, 20) {
		t.Fatal("expected denial while the bucket is empty")
	}
	if store.Len() != 1 {
		t.Fatalf("expected the bucket to be reused, got %d", store.Len())
	}

	// 300ms at the new rate of 10/s refills about three tokens; the old rate would refill none.
	clk.T = clk.T.Add(300 * time.Millisecond)
	for i := range 2 {
		if !store.Allow(ctx, "client-a", 10, 20) {
			t.Errorf("request %d should be allowed after rate increase", i+1)
		}
	}
}

func TestTokenBucketStore_Evict(t *testing.T) {
	clk := &testutil.FixedClock{T: time.Unix(1000, 0)}
	store := newStore(t, clk)
	ctx := context.Background()

	store.Allow(ctx, "stale", 1, 1)
	clk.T = clk.T.Add(2 * time.Minute)
	store.Allow(ctx, "fresh", 1, 1)

	store.Evict()

	if store.Len() != 1 {
		t.Errorf("expected 1 bucket after eviction, got %d", store.Len())
	}
}

func TestTokenBucketStore_Concurrency(t *testing.T) {
	store := newStore(t, &testutil.FixedClock{T: time.Unix(1000, 0)})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Allow(ctx, "shared", 1, 10) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("expected exactly 10 allowed, got %d", allowed)
	}
}

func TestTokenBucketStore_StopTwice(t *testing.T) {
	store := ratelimit.NewTokenBucketStore(time.Minute, &testutil.FixedClock{})
	store.Stop()
	store.Stop()
}
