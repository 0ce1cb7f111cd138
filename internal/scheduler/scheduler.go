// Package scheduler periodically reloads the catalog and warms the
// thumbnail cache.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
)

// Reloader reloads the catalog from its configured sources.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// Warmer resolves thumbnails ahead of time.
type Warmer interface {
	Run(ctx context.Context, refs []string, onResult func(thumbnail.Result)) thumbnail.Summary
}

// RefreshFunc is called after every successful refresh.
type RefreshFunc func(c *catalog.Catalog, sum thumbnail.Summary)

// Status describes the most recent refresh.
type Status struct {
	Schedule  string    `json:"schedule"`
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"lastRun"`
	LastError string    `json:"lastError,omitempty"`
	NextRun   time.Time `json:"nextRun"`
}

// Refresher runs catalog refreshes on a cron schedule.
type Refresher struct {
	schedule  string
	reloader  Reloader
	warmer    Warmer
	onRefresh RefreshFunc
	onResult  func(thumbnail.Result)
	cron      *cron.Cron

	mu      sync.Mutex
	entry   cron.EntryID
	runs    int
	lastRun time.Time
	lastErr error
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithThumbnailHook is called for every thumbnail resolved during a refresh.
func WithThumbnailHook(fn func(thumbnail.Result)) Option {
	return func(r *Refresher) {
		r.onResult = fn
	}
}

// New creates a refresher. schedule is a cron spec with a seconds field
// (or a descriptor such as "@hourly"); empty disables scheduled runs.
// warmer and onRefresh may be nil.
func New(schedule string, reloader Reloader, warmer Warmer, onRefresh RefreshFunc, opts ...Option) *Refresher {
	logger := log.With().Str("component", "cron").Logger()
	r := &Refresher{
		schedule:  schedule,
		reloader:  reloader,
		warmer:    warmer,
		onRefresh: onRefresh,
		// Prevent overlapping runs
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&logger))),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules refreshes and returns immediately. Jobs run with ctx.
func (r *Refresher) Start(ctx context.Context) error {
	if r.schedule == "" {
		log.Info().Msg("Catalog refresh schedule not set, scheduled refresh disabled")
		return nil
	}

	id, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			log.Warn().Err(err).Msg("Scheduled catalog refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}

	r.mu.Lock()
	r.entry = id
	r.mu.Unlock()

	r.cron.Start()
	log.Info().Str("schedule", r.schedule).Msg("Catalog refresh scheduler started")
	return nil
}

// Stop stops scheduling and waits for a running refresh to finish or ctx
// to end.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for catalog refresh to finish")
	}
}

// RunOnce reloads the catalog, warms its thumbnails and calls the refresh
// callback. The callback only runs after a successful reload.
func (r *Refresher) RunOnce(ctx context.Context) (*catalog.Catalog, error) {
	start := time.Now()
	log.Info().Msg("Starting catalog refresh")

	c, err := r.reloader.Reload(ctx)
	r.finish(err)
	if err != nil {
		return nil, fmt.Errorf("catalog refresh failed: %w", err)
	}

	var sum thumbnail.Summary
	if r.warmer != nil {
		sum = r.warmer.Run(ctx, c.ThumbnailRefs(), r.onResult)
	}

	if r.onRefresh != nil {
		r.onRefresh(c, sum)
	}

	counts := c.Counts()
	log.Info().
		Int("channels", counts.Channels).
		Int("videos", counts.Videos).
		Int("thumbnails", sum.Resolved).
		Int("thumbnailFailures", sum.Failed).
		Dur("took", time.Since(start)).
		Msg("Catalog refresh complete")

	return c, nil
}

func (r *Refresher) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.lastRun = time.Now()
	r.lastErr = err
}

// Status returns the refresh state.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		Schedule: r.schedule,
		Runs:     r.runs,
		LastRun:  r.lastRun,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}
	if r.entry != 0 {
		s.NextRun = r.cron.Entry(r.entry).Next
	}
	return s
}
