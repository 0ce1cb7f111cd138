package selection

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/edumarques81/stellar-videohub/internal/infra/store"
)

func TestHistoryAdapterRoundTrip(t *testing.T) {
	db := store.NewDB(filepath.Join(t.TempDir(), "history.db"))
	if err := db.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	h := NewHistoryAdapter(store.NewDAO(db))
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	if err := h.Record(HistoryEntry{ID: "1", Kind: KindChannel, ChannelID: "news", Title: "News", SelectedAt: at}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := h.Record(HistoryEntry{ID: "2", Kind: KindVideo, VideoID: 9, Title: "Pilot", Origin: "tv", SelectedAt: at.Add(time.Minute)}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	recent, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(recent))
	}
	if recent[0].ID != "2" || recent[0].Kind != KindVideo || recent[0].VideoID != 9 || recent[0].Origin != "tv" {
		t.Errorf("newest = %+v", recent[0])
	}
	if !recent[1].SelectedAt.Equal(at) {
		t.Errorf("SelectedAt = %v, want %v", recent[1].SelectedAt, at)
	}
}
