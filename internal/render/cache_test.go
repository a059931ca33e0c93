package render

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

func TestCache_LoadStoresAndHits(t *testing.T) {
	mod := time.Unix(1700000000, 42)
	k := Key{Path: "/root/a.txt", ModTime: mod.UnixNano()}
	c := NewCache()

	calls := 0
	resolve := func() (*snippet.Resolved, *snippet.Error) {
		calls++
		return &snippet.Resolved{Content: "a", ModifiedAt: mod}, nil
	}

	res, hit, serr := c.Load(k, resolve)
	require.Nil(t, serr)
	require.False(t, hit)
	require.Equal(t, "a", res.Content)

	res, hit, serr = c.Load(k, resolve)
	require.Nil(t, serr)
	require.True(t, hit)
	require.Equal(t, "a", res.Content)

	require.Equal(t, 1, calls)
	require.Equal(t, CacheStats{Hits: 1, Misses: 1, Entries: 1}, c.Stats())
}

func TestCache_DistinctKeysPerRangeAndVersion(t *testing.T) {
	c := NewCache()
	base := Key{Path: "/p", ModTime: 1}
	c.Put(base, &snippet.Resolved{Content: "whole"})
	c.Put(Key{Path: "/p", Start: 1, End: 2, ModTime: 1}, &snippet.Resolved{Content: "range"})
	c.Put(Key{Path: "/p", ModTime: 2}, &snippet.Resolved{Content: "newer"})
	c.Put(base, &snippet.Resolved{Content: "ignored"})

	require.Equal(t, 3, c.Len())
	got, ok := c.Get(base)
	require.True(t, ok)
	require.Equal(t, "whole", got.Content)
}

func TestCache_FailuresAreNotCached(t *testing.T) {
	c := NewCache()
	k := Key{Path: "/missing", ModTime: 5}
	calls := 0
	resolve := func() (*snippet.Resolved, *snippet.Error) {
		calls++
		return nil, &snippet.Error{Kind: snippet.KindNotFound}
	}

	for i := 0; i < 2; i++ {
		res, _, serr := c.Load(k, resolve)
		require.Nil(t, res)
		require.NotNil(t, serr)
		require.Equal(t, snippet.KindNotFound, serr.Kind)
	}
	require.Equal(t, 2, calls)
	require.Zero(t, c.Len())
}

func TestCache_ChangedBetweenStatAndReadIsNotStored(t *testing.T) {
	c := NewCache()
	k := Key{Path: "/racy", ModTime: 10}
	res, _, serr := c.Load(k, func() (*snippet.Resolved, *snippet.Error) {
		return &snippet.Resolved{Content: "fresh", ModifiedAt: time.Unix(0, 11)}, nil
	})
	require.Nil(t, serr)
	require.Equal(t, "fresh", res.Content)
	require.Zero(t, c.Len())
}

func TestCache_ConcurrentMissesShareOneResolve(t *testing.T) {
	c := NewCache()
	mod := time.Unix(0, 99)
	k := Key{Path: "/shared", ModTime: mod.UnixNano()}

	var calls atomic.Int64
	release := make(chan struct{})
	resolve := func() (*snippet.Resolved, *snippet.Error) {
		calls.Add(1)
		<-release
		return &snippet.Resolved{Content: "x", ModifiedAt: mod}, nil
	}

	const workers = 16
	var wg sync.WaitGroup
	results := make([]*snippet.Resolved, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = c.Load(k, resolve)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		require.Equal(t, "x", r.Content)
	}
	stats := c.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, workers-1, stats.Hits)
}
