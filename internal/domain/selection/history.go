package selection

import (
	"sync"
	"time"

	"github.com/edumarques81/stellar-videohub/internal/infra/store"
)

// DefaultHistoryLimit is the number of entries returned when no limit is given.
const DefaultHistoryLimit = 50

// HistoryEntry is one recorded selection.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	ChannelID  string    `json:"channelId,omitempty"`
	VideoID    int       `json:"videoId,omitempty"`
	Title      string    `json:"title"`
	Origin     string    `json:"origin,omitempty"`
	SelectedAt time.Time `json:"selectedAt"`
}

func entryFromEvent(ev Event) HistoryEntry {
	return HistoryEntry{
		ID:         ev.ID,
		Kind:       ev.Kind,
		ChannelID:  ev.ChannelID,
		VideoID:    ev.VideoID,
		Title:      ev.Title(),
		Origin:     ev.Origin,
		SelectedAt: ev.At,
	}
}

// HistoryStore persists selections.
type HistoryStore interface {
	Record(entry HistoryEntry) error
	// Recent returns up to limit entries, newest first.
	Recent(limit int) ([]HistoryEntry, error)
}

// HistoryAdapter adapts store.DAO to the HistoryStore interface.
type HistoryAdapter struct {
	dao *store.DAO
}

// NewHistoryAdapter creates a new adapter for store.DAO.
func NewHistoryAdapter(dao *store.DAO) *HistoryAdapter {
	return &HistoryAdapter{dao: dao}
}

// Record implements HistoryStore.
func (a *HistoryAdapter) Record(entry HistoryEntry) error {
	return a.dao.InsertSelection(&store.Selection{
		ID:         entry.ID,
		Kind:       string(entry.Kind),
		ChannelID:  entry.ChannelID,
		VideoID:    entry.VideoID,
		Title:      entry.Title,
		Origin:     entry.Origin,
		SelectedAt: entry.SelectedAt,
	})
}

// Recent implements HistoryStore.
func (a *HistoryAdapter) Recent(limit int) ([]HistoryEntry, error) {
	stored, err := a.dao.RecentSelections(limit)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(stored))
	for _, s := range stored {
		entries = append(entries, HistoryEntry{
			ID:         s.ID,
			Kind:       Kind(s.Kind),
			ChannelID:  s.ChannelID,
			VideoID:    s.VideoID,
			Title:      s.Title,
			Origin:     s.Origin,
			SelectedAt: s.SelectedAt,
		})
	}
	return entries, nil
}

// MemoryHistory keeps the most recent selections in memory. It is used when
// no database is available.
type MemoryHistory struct {
	mu         sync.RWMutex
	entries    []HistoryEntry
	maxEntries int
}

// NewMemoryHistory creates an in-memory history holding at most maxEntries.
func NewMemoryHistory(maxEntries int) *MemoryHistory {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryHistory{entries: []HistoryEntry{}, maxEntries: maxEntries}
}

// Record implements HistoryStore.
func (h *MemoryHistory) Record(entry HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, entry)
	if len(h.entries) > h.maxEntries {
		h.entries = h.entries[len(h.entries)-h.maxEntries:]
	}
	return nil
}

// Recent implements HistoryStore.
func (h *MemoryHistory) Recent(limit int) ([]HistoryEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > len(h.entries) {
		limit = len(h.entries)
	}

	result := make([]HistoryEntry, 0, limit)
	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, h.entries[i])
	}
	return result, nil
}
