package selection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
)

type fakePlayback struct {
	got []catalog.VideoRecord
}

func (f *fakePlayback) HandleVideo(_ context.Context, ev Event) error {
	f.got = append(f.got, ev.Video)
	return nil
}

func TestRouterForwardsAndRecords(t *testing.T) {
	history := NewMemoryHistory(10)
	playback := &fakePlayback{}
	var channels []string

	r := NewRouter(func(_ context.Context, ev Event) error {
		channels = append(channels, ev.ChannelID)
		return nil
	}, playback, history)

	ctx := context.Background()
	if err := r.HandleChannel(ctx, ChannelSelected(catalog.Channel{ID: "news", Name: "News"}, "a")); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleVideo(ctx, VideoSelected(catalog.VideoRecord{ID: 1, Title: "Pilot"}, "news", "a")); err != nil {
		t.Fatal(err)
	}

	if len(channels) != 1 || channels[0] != "news" {
		t.Errorf("channel calls = %v", channels)
	}
	if len(playback.got) != 1 || playback.got[0].Title != "Pilot" {
		t.Errorf("playback got %+v", playback.got)
	}

	recent, _ := history.Recent(0)
	if len(recent) != 2 {
		t.Fatalf("history has %d entries, want 2", len(recent))
	}
	if recent[0].Kind != KindVideo || recent[0].Title != "Pilot" {
		t.Errorf("newest entry = %+v", recent[0])
	}
	if recent[1].Kind != KindChannel || recent[1].Title != "News" {
		t.Errorf("oldest entry = %+v", recent[1])
	}
}

func TestRouterSkipsRepeatedSelection(t *testing.T) {
	history := NewMemoryHistory(10)
	r := NewRouter(nil, nil, history)

	ev := VideoSelected(catalog.VideoRecord{ID: 5}, "", "a")
	_ = r.HandleVideo(context.Background(), ev)

	again := ev
	again.At = ev.At.Add(time.Second)
	_ = r.HandleVideo(context.Background(), again)

	later := ev
	later.At = ev.At.Add(repeatWindow + time.Second)
	_ = r.HandleVideo(context.Background(), later)

	other := VideoSelected(catalog.VideoRecord{ID: 5}, "", "b")
	_ = r.HandleVideo(context.Background(), other)

	recent, _ := history.Recent(0)
	if len(recent) != 3 {
		t.Errorf("history has %d entries, want 3", len(recent))
	}
}

func TestRouterChannelErrorReturned(t *testing.T) {
	want := errors.New("client gone")
	r := NewRouter(func(context.Context, Event) error { return want }, nil, nil)

	if err := r.HandleChannel(context.Background(), Event{Kind: KindChannel}); !errors.Is(err, want) {
		t.Errorf("HandleChannel = %v, want %v", err, want)
	}
	if err := r.HandleVideo(context.Background(), Event{Kind: KindVideo}); err != nil {
		t.Errorf("default playback returned %v", err)
	}
}

func TestMemoryHistoryTrims(t *testing.T) {
	h := NewMemoryHistory(2)
	for i := 1; i <= 3; i++ {
		_ = h.Record(HistoryEntry{VideoID: i})
	}

	recent, _ := h.Recent(10)
	if len(recent) != 2 || recent[0].VideoID != 3 || recent[1].VideoID != 2 {
		t.Errorf("recent = %+v, want videos 3,2", recent)
	}
	one, _ := h.Recent(1)
	if len(one) != 1 || one[0].VideoID != 3 {
		t.Errorf("Recent(1) = %+v", one)
	}
}
