package render

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// Key identifies one resolved region of one version of a file. ModTime is in
// Unix nanoseconds, so a changed file never matches an older entry.
type Key struct {
	Path    string
	Start   int
	End     int
	ModTime int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s\x00%d\x00%d\x00%d", k.Path, k.Start, k.End, k.ModTime)
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Cache is the build-scoped snippet cache shared by every document of one build.
// It is safe for concurrent use. Create one per build and drop it afterwards.
type Cache struct {
	entries sync.Map // Key -> *snippet.Resolved
	flight  singleflight.Group
	hits    atomic.Int64
	misses  atomic.Int64
	size    atomic.Int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached snippet for k.
func (c *Cache) Get(k Key) (*snippet.Resolved, bool) {
	v, ok := c.entries.Load(k)
	if !ok {
		return nil, false
	}
	return v.(*snippet.Resolved), true
}

// Put stores res under k. A second insert for the same key keeps the first value,
// which is identical because the key includes the modification time.
func (c *Cache) Put(k Key, res *snippet.Resolved) {
	if _, loaded := c.entries.LoadOrStore(k, res); !loaded {
		c.size.Add(1)
	}
}

// Load returns the cached snippet for k or calls resolve to produce it.
// Concurrent callers missing on the same key share a single resolve call.
// The result is stored only when its ModifiedAt matches k.ModTime; a file that
// changed between stat and read is returned but not cached. Failures are never
// cached. hit reports whether this caller avoided calling resolve.
func (c *Cache) Load(k Key, resolve func() (*snippet.Resolved, *snippet.Error)) (res *snippet.Resolved, hit bool, serr *snippet.Error) {
	if v, ok := c.Get(k); ok {
		c.hits.Add(1)
		return v, true, nil
	}

	called := false
	v, err, _ := c.flight.Do(k.String(), func() (any, error) {
		if v, ok := c.Get(k); ok {
			return v, nil
		}
		called = true
		c.misses.Add(1)
		res, serr := resolve()
		if serr != nil {
			return nil, serr
		}
		if res.ModifiedAt.UnixNano() == k.ModTime {
			c.Put(k, res)
		}
		return res, nil
	})
	if !called {
		c.hits.Add(1)
	}
	if err != nil {
		var se *snippet.Error
		if errors.As(err, &se) {
			return nil, !called, se
		}
		return nil, !called, &snippet.Error{Kind: snippet.KindReadFailure, Err: err}
	}
	return v.(*snippet.Resolved), !called, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Stats returns hit, miss and entry counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.size.Load()}
}
