package thumbnail

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the default number of parallel resolutions.
const DefaultConcurrency = 8

// Result is the outcome of resolving one ref during a prefetch.
type Result struct {
	Index int // Position of Ref in the input slice
	Ref   string
	Image *Image
	Err   error
}

// Prefetcher resolves many refs through a Cache with bounded parallelism.
type Prefetcher struct {
	cache       *Cache
	concurrency int
}

// NewPrefetcher creates a prefetcher. Non-positive concurrency uses DefaultConcurrency.
func NewPrefetcher(cache *Cache, concurrency int) *Prefetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Prefetcher{cache: cache, concurrency: concurrency}
}

// Prefetch resolves every ref and delivers one Result per input position on
// the returned channel, in completion order. The channel is closed once all
// results have been delivered. It is buffered to len(refs), so a consumer
// that stops reading never blocks the workers.
func (p *Prefetcher) Prefetch(ctx context.Context, refs []string) <-chan Result {
	out := make(chan Result, len(refs))

	go func() {
		defer close(out)

		var g errgroup.Group
		g.SetLimit(p.concurrency)

		for i, ref := range refs {
			if err := ctx.Err(); err != nil {
				out <- Result{Index: i, Ref: ref, Err: &FetchError{Kind: TransferFailure, Ref: ref, Err: err}}
				continue
			}
			g.Go(func() error {
				img, err := p.cache.Resolve(ctx, ref)
				out <- Result{Index: i, Ref: ref, Image: img, Err: err}
				return nil
			})
		}

		_ = g.Wait()
	}()

	return out
}

// Summary counts the outcomes of a prefetch.
type Summary struct {
	Resolved int
	Failed   int
	Took     time.Duration
}

// Run prefetches refs, calls onResult (if non-nil) for each result and
// returns a summary once every ref has been handled.
func (p *Prefetcher) Run(ctx context.Context, refs []string, onResult func(Result)) Summary {
	start := time.Now()
	var sum Summary

	for res := range p.Prefetch(ctx, refs) {
		if res.Err != nil {
			sum.Failed++
		} else {
			sum.Resolved++
		}
		if onResult != nil {
			onResult(res)
		}
	}
	sum.Took = time.Since(start)

	log.Info().
		Int("refs", len(refs)).
		Int("resolved", sum.Resolved).
		Int("failed", sum.Failed).
		Int("concurrency", p.concurrency).
		Dur("took", sum.Took).
		Msg("Thumbnail prefetch complete")

	return sum
}
