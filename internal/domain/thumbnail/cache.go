package thumbnail

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var errEmptyRef = errors.New("empty thumbnail reference")

// Cache maps thumbnail refs to decoded images. Keys are compared exactly:
// no case folding, trailing-slash or query normalization.
//
// There is no eviction; memory grows with the number of distinct refs
// until DisposeAll.
type Cache struct {
	fetcher   Fetcher
	dedupe    bool
	maxPixels int64
	group     singleflight.Group
	metrics   *cacheMetrics

	mu         sync.Mutex
	entries    map[string]*Image
	generation uint64

	hits     atomic.Int64
	misses   atomic.Int64
	failures atomic.Int64
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithDeduplication controls whether concurrent misses for the same ref
// share one fetch (default true). With false every miss fetches on its own.
func WithDeduplication(enabled bool) CacheOption {
	return func(c *Cache) {
		c.dedupe = enabled
	}
}

// WithMaxPixels sets the largest image, in pixels, the cache will decode.
// Non-positive values keep DefaultMaxPixels.
func WithMaxPixels(n int64) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// NewCache creates an empty cache that fetches through fetcher.
func NewCache(fetcher Fetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher:   fetcher,
		dedupe:    true,
		maxPixels: DefaultMaxPixels,
		metrics:   newCacheMetrics(),
		entries:   make(map[string]*Image),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve returns the decoded image for ref, fetching and decoding it on a
// miss. Failures are returned as *FetchError and leave ref uncached.
//
// If ctx ends first the caller gets a TransferFailure immediately. A fetch
// shared with other callers keeps running for them.
func (c *Cache) Resolve(ctx context.Context, ref string) (*Image, error) {
	if ref == "" {
		return nil, &FetchError{Kind: TransferFailure, Ref: ref, Err: errEmptyRef}
	}

	img, gen, ok := c.lookup(ref)
	if ok {
		c.hits.Add(1)
		c.metrics.recordHit(ctx)
		return img, nil
	}
	c.misses.Add(1)
	c.metrics.recordMiss(ctx)

	if !c.dedupe {
		return c.fetch(ctx, ref, gen)
	}

	// Keyed by generation so a fetch started before DisposeAll is not
	// joined by callers arriving after it.
	key := strconv.FormatUint(gen, 10) + "\x00" + ref
	ch := c.group.DoChan(key, func() (any, error) {
		// A fetch for ref may have completed between lookup and DoChan
		if img, _, ok := c.lookup(ref); ok {
			return img, nil
		}
		return c.fetch(context.WithoutCancel(ctx), ref, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Image), nil
	case <-ctx.Done():
		return nil, &FetchError{Kind: TransferFailure, Ref: ref, Err: ctx.Err()}
	}
}

func (c *Cache) lookup(ref string) (*Image, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.entries[ref]
	return img, c.generation, ok
}

// fetch downloads and decodes ref and stores the result if the cache has
// not been disposed since gen.
func (c *Cache) fetch(ctx context.Context, ref string, gen uint64) (*Image, error) {
	data, err := c.fetcher.Get(ctx, ref)
	if err != nil {
		return nil, c.fail(ctx, &FetchError{Kind: TransferFailure, Ref: ref, Err: err})
	}

	img, err := DecodeLimited(ref, data, c.maxPixels)
	if err != nil {
		return nil, c.fail(ctx, &FetchError{Kind: DecodeFailure, Ref: ref, Err: err})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		log.Debug().Str("ref", ref).Msg("Discarding thumbnail fetched before cache disposal")
		return img, nil
	}
	// A concurrent non-deduplicated fetch may have stored first; keep one owner
	if existing, ok := c.entries[ref]; ok {
		return existing, nil
	}
	c.entries[ref] = img

	log.Debug().
		Str("ref", ref).
		Str("format", img.Format).
		Int("width", img.Width).
		Int("height", img.Height).
		Int("size", img.Size).
		Msg("Cached thumbnail")

	return img, nil
}

func (c *Cache) fail(ctx context.Context, err *FetchError) error {
	c.failures.Add(1)
	c.metrics.recordFailure(ctx, err.Kind)
	log.Warn().Err(err.Err).Str("ref", err.Ref).Str("kind", err.Kind.String()).Msg("Failed to load thumbnail")
	return err
}

// Contains reports whether ref is cached.
func (c *Cache) Contains(ref string) bool {
	_, _, ok := c.lookup(ref)
	return ok
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// DisposeAll releases every cached image. Fetches still in flight finish
// but their results are not stored. The cache stays usable afterwards.
func (c *Cache) DisposeAll() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*Image)
	c.generation++
	c.mu.Unlock()

	log.Info().Int("released", n).Msg("Thumbnail cache disposed")
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries  int   `json:"entries"`
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Failures int64 `json:"failures"`
}

// Stats returns cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Entries:  c.Len(),
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Failures: c.failures.Load(),
	}
}
