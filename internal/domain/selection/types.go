// Package selection routes channel and video selections raised by clients
// to the handlers that act on them.
package selection

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
)

var (
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("selection dispatcher closed")
	// ErrQueueFull is returned by Publish when the event queue is saturated.
	ErrQueueFull = errors.New("selection queue full")
)

// Kind identifies what was selected.
type Kind string

const (
	KindChannel Kind = "channel"
	KindVideo   Kind = "video"
)

// Event is a selection raised by a client. The selected value is carried
// as it was in the catalog when the selection was made.
type Event struct {
	ID        string
	Kind      Kind
	ChannelID string
	VideoID   int
	Channel   catalog.Channel     // Set for KindChannel
	Video     catalog.VideoRecord // Set for KindVideo
	Origin    string              // Client that raised the selection
	At        time.Time
}

// ChannelSelected creates a channel selection event.
func ChannelSelected(ch catalog.Channel, origin string) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      KindChannel,
		ChannelID: ch.ID,
		Channel:   ch,
		Origin:    origin,
		At:        time.Now(),
	}
}

// VideoSelected creates a video selection event. channelID may be empty
// when the video was picked from a cross-channel list.
func VideoSelected(v catalog.VideoRecord, channelID, origin string) Event {
	return Event{
		ID:        uuid.New().String(),
		Kind:      KindVideo,
		ChannelID: channelID,
		VideoID:   v.ID,
		Video:     v,
		Origin:    origin,
		At:        time.Now(),
	}
}

// Title returns the display name of the selected item.
func (e Event) Title() string {
	if e.Kind == KindChannel {
		return e.Channel.Name
	}
	return e.Video.Title
}

// Handler acts on selections drained by a Dispatcher.
type Handler interface {
	HandleChannel(ctx context.Context, ev Event) error
	HandleVideo(ctx context.Context, ev Event) error
}

// HandlerFuncs builds a Handler from functions. A nil function ignores
// that kind of event.
type HandlerFuncs struct {
	Channel func(ctx context.Context, ev Event) error
	Video   func(ctx context.Context, ev Event) error
}

// HandleChannel implements Handler.
func (h HandlerFuncs) HandleChannel(ctx context.Context, ev Event) error {
	if h.Channel == nil {
		return nil
	}
	return h.Channel(ctx, ev)
}

// HandleVideo implements Handler.
func (h HandlerFuncs) HandleVideo(ctx context.Context, ev Event) error {
	if h.Video == nil {
		return nil
	}
	return h.Video(ctx, ev)
}
