package selection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultQueueSize is the default event buffer size.
const DefaultQueueSize = 64

// Dispatcher decouples clients raising selections from the handlers that
// act on them. Publishers only see Publish; one Run loop owns the handler.
type Dispatcher struct {
	handler Handler
	events  chan Event

	mu     sync.RWMutex
	closed bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*dispatcherConfig)

type dispatcherConfig struct {
	queueSize int
}

// WithQueueSize sets the event buffer size.
func WithQueueSize(n int) DispatcherOption {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// NewDispatcher creates a dispatcher delivering events to handler.
func NewDispatcher(handler Handler, opts ...DispatcherOption) *Dispatcher {
	cfg := dispatcherConfig{queueSize: DefaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Dispatcher{
		handler: handler,
		events:  make(chan Event, cfg.queueSize),
	}
}

// Publish enqueues ev without blocking. Missing IDs and timestamps are
// filled in.
func (d *Dispatcher) Publish(ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.events <- ev:
		return nil
	default:
		log.Warn().Str("kind", string(ev.Kind)).Str("origin", ev.Origin).Msg("Selection queue full, dropping event")
		return ErrQueueFull
	}
}

// Run delivers events to the handler until ctx is done or the dispatcher is
// closed and drained. Handler errors are logged and do not stop the loop.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Debug().Int("queueSize", cap(d.events)).Msg("Selection dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-d.events:
			if !ok {
				log.Debug().Msg("Selection dispatcher drained")
				return nil
			}
			d.dispatch(ctx, ev)
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	var err error
	switch ev.Kind {
	case KindChannel:
		err = d.handler.HandleChannel(ctx, ev)
	case KindVideo:
		err = d.handler.HandleVideo(ctx, ev)
	default:
		err = fmt.Errorf("unknown selection kind %q", ev.Kind)
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("id", ev.ID).
			Str("kind", string(ev.Kind)).
			Str("channel", ev.ChannelID).
			Int("video", ev.VideoID).
			Str("origin", ev.Origin).
			Msg("Selection handler failed")
	}
}

// Close stops accepting events. Events already queued are still delivered
// by Run. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.events)
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.events)
}
