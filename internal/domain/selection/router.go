package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// repeatWindow is how long an identical selection from the same client is
// treated as a repeat and not recorded again.
const repeatWindow = 3 * time.Second

// PlaybackHandler receives selected videos.
type PlaybackHandler interface {
	HandleVideo(ctx context.Context, ev Event) error
}

// PlaybackLogger is the default PlaybackHandler. Playback itself happens
// outside this service; the request is only logged.
type PlaybackLogger struct{}

// HandleVideo implements PlaybackHandler.
func (PlaybackLogger) HandleVideo(_ context.Context, ev Event) error {
	log.Info().
		Int("id", ev.Video.ID).
		Str("title", ev.Video.Title).
		Str("src", ev.Video.Src).
		Str("type", ev.Video.Type).
		Str("channel", ev.ChannelID).
		Str("origin", ev.Origin).
		Msg("Playback requested")
	return nil
}

// Router records every selection in history and forwards channel selections
// to a channel function and video selections to a PlaybackHandler.
type Router struct {
	channel  func(ctx context.Context, ev Event) error
	playback PlaybackHandler
	history  HistoryStore

	last map[string]time.Time // origin/kind/target → last recorded
}

// NewRouter creates a Router. channel and history may be nil; a nil
// playback uses PlaybackLogger.
func NewRouter(channel func(ctx context.Context, ev Event) error, playback PlaybackHandler, history HistoryStore) *Router {
	if playback == nil {
		playback = PlaybackLogger{}
	}
	return &Router{
		channel:  channel,
		playback: playback,
		history:  history,
		last:     make(map[string]time.Time),
	}
}

// HandleChannel implements Handler.
func (r *Router) HandleChannel(ctx context.Context, ev Event) error {
	r.record(ev)
	if r.channel == nil {
		return nil
	}
	return r.channel(ctx, ev)
}

// HandleVideo implements Handler.
func (r *Router) HandleVideo(ctx context.Context, ev Event) error {
	r.record(ev)
	return r.playback.HandleVideo(ctx, ev)
}

// record is only called from the dispatcher's Run loop, so last needs no lock.
func (r *Router) record(ev Event) {
	if r.history == nil {
		return
	}

	key := fmt.Sprintf("%s/%s/%s/%d", ev.Origin, ev.Kind, ev.ChannelID, ev.VideoID)
	if prev, ok := r.last[key]; ok && ev.At.Sub(prev) < repeatWindow {
		log.Debug().Str("id", ev.ID).Str("kind", string(ev.Kind)).Msg("Skipping repeated selection")
		return
	}
	r.last[key] = ev.At
	for k, at := range r.last {
		if ev.At.Sub(at) >= repeatWindow {
			delete(r.last, k)
		}
	}

	if err := r.history.Record(entryFromEvent(ev)); err != nil {
		log.Warn().Err(err).Str("id", ev.ID).Msg("Failed to record selection")
	}
}
