package analysiscache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/yungbote/argo-backend/internal/logger"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return New(log)
}

func TestGetOrComputeCachesValue(t *testing.T) {
	c := testCache(t)
	var calls int32

	compute := func(_ context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return "result", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(context.Background(), "k", compute)
		if err != nil {
			t.Fatalf("GetOrCompute: %v", err)
		}
		if v != "result" {
			t.Fatalf("value = %v, want %q", v, "result")
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute ran %d times, want 1", got)
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestGetOrComputeSharesConcurrentComputation(t *testing.T) {
	c := testCache(t)
	var calls int32
	release := make(chan struct{})

	compute := func(_ context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]any, waiters)
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrCompute(context.Background(), "shared", compute)
		}(i)
	}
	close(release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if results[i] != 42 {
			t.Fatalf("waiter %d got %v, want 42", i, results[i])
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute ran %d times, want 1", got)
	}
}

func TestGetOrComputeErrorNotCached(t *testing.T) {
	c := testCache(t)
	var calls int32
	boom := errors.New("boom")

	compute := func(_ context.Context) (any, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return "second", nil
	}

	if _, err := c.GetOrCompute(context.Background(), "k", compute); !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() after failure = %d, want 0", c.Len())
	}

	v, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if v != "second" {
		t.Fatalf("retry value = %v, want %q", v, "second")
	}
}

func TestInvalidateForcesRecompute(t *testing.T) {
	c := testCache(t)
	var calls int32

	compute := func(_ context.Context) (any, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	if v, _ := c.GetOrCompute(context.Background(), "k", compute); v != int32(1) {
		t.Fatalf("first value = %v, want 1", v)
	}
	c.Invalidate("k")
	if v, _ := c.GetOrCompute(context.Background(), "k", compute); v != int32(2) {
		t.Fatalf("value after invalidate = %v, want 2", v)
	}
}

func TestInvalidateDuringComputeDiscardsResult(t *testing.T) {
	c := testCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		c.GetOrCompute(context.Background(), "k", func(_ context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	c.Invalidate("k")
	close(release)

	// The superseded result must not be stored; the next lookup recomputes.
	v, err := c.GetOrCompute(context.Background(), "k", func(_ context.Context) (any, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if v != "fresh" {
		t.Fatalf("value = %v, want %q", v, "fresh")
	}
}

func TestInvalidateAllDropsEverything(t *testing.T) {
	c := testCache(t)
	for _, k := range []string{"a", "b", "c"} {
		c.GetOrCompute(context.Background(), k, func(_ context.Context) (any, error) {
			return k, nil
		})
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Fatalf("Len() after InvalidateAll = %d, want 0", c.Len())
	}
}

func TestGetOrComputeSurvivesCallerCancellation(t *testing.T) {
	c := testCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := c.GetOrCompute(ctx, "k", func(computeCtx context.Context) (any, error) {
		if computeCtx.Err() != nil {
			return nil, computeCtx.Err()
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute with canceled caller: %v", err)
	}
	if v != "ok" {
		t.Fatalf("value = %v, want %q", v, "ok")
	}
}

func TestKey(t *testing.T) {
	if got := Key("contact-7", 80); got != "analysis:contact-7:80" {
		t.Fatalf("Key = %q", got)
	}
	if Key("a", 1) == Key("a", 2) {
		t.Fatalf("keys with different params collide")
	}
}
