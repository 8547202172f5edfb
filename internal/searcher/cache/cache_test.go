package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

func result(query string) *executor.SearchResult {
	return &executor.SearchResult{
		Query:     query,
		TotalHits: 1,
		Results:   []executor.Hit{{DocID: 1, Score: 0.5, Text: "the cat sat"}},
		TermStats: map[string]int{"cat": 1},
	}
}

func TestGetOrComputeCachesResult(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	c := New(NewLocalBackend(16), m)
	ctx := context.Background()
	calls := 0
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls++
		return result("cat"), nil
	}

	got, hit, err := c.GetOrCompute(ctx, 1, "cat", 10, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, result("cat"), got)

	got, hit, err = c.GetOrCompute(ctx, 1, "  cat ", 10, compute)
	require.NoError(t, err)
	assert.True(t, hit, "whitespace does not change the key")
	assert.Equal(t, result("cat"), got)
	assert.Equal(t, 1, calls)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGenerationChangesKey(t *testing.T) {
	c := New(NewLocalBackend(16), nil)
	ctx := context.Background()
	c.Set(ctx, 1, "cat", 10, result("cat"))

	_, ok := c.Get(ctx, 1, "cat", 10)
	assert.True(t, ok)
	_, ok = c.Get(ctx, 2, "cat", 10)
	assert.False(t, ok, "a write makes old entries unreachable")
	_, ok = c.Get(ctx, 1, "cat", 5)
	assert.False(t, ok, "limit is part of the key")

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(NewLocalBackend(16), nil)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), 1, "cat", 10, func(context.Context) (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	_, ok := c.Get(context.Background(), 1, "cat", 10)
	assert.False(t, ok)
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(NewLocalBackend(16), nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return result("cat"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), 1, "cat", 10, compute)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	_, ok := c.Get(context.Background(), 1, "cat", 10)
	assert.True(t, ok)
}

func TestGetOrComputeSurvivesFirstCallerCancelling(t *testing.T) {
	c := New(NewLocalBackend(16), nil)
	var calls atomic.Int32
	started := make(chan struct{})
	var startOnce sync.Once
	release := make(chan struct{})
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		select {
		case <-release:
			return result("cat"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, 1, "cat", 10, compute)
		firstErr <- err
	}()
	<-started

	type outcome struct {
		res *executor.SearchResult
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, _, err := c.GetOrCompute(context.Background(), 1, "cat", 10, compute)
		second <- outcome{res, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, result("cat"), got.res)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidate(t *testing.T) {
	backend := NewLocalBackend(16)
	c := New(backend, nil)
	ctx := context.Background()
	c.Set(ctx, 1, "cat", 10, result("cat"))
	c.Set(ctx, 1, "dog", 10, result("dog"))

	require.NoError(t, c.Invalidate(ctx))
	assert.Equal(t, 0, backend.Len())
}

func TestLocalBackendEvicts(t *testing.T) {
	backend := NewLocalBackend(2)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, backend.Set(ctx, keyPrefix+k, []byte(k)))
	}
	_, ok, err := backend.Get(ctx, keyPrefix+"a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, backend.Len())
}
