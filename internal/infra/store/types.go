package store

import (
	"errors"
	"time"
)

// ErrNotOpen is returned when the database has not been opened.
var ErrNotOpen = errors.New("database not open")

// DefaultSnapshotRetention is how many catalog snapshots are kept.
const DefaultSnapshotRetention = 5

// CatalogSnapshot is a stored catalog document.
type CatalogSnapshot struct {
	ID           int64     `json:"id"`
	Source       string    `json:"source"`       // URL, path or asset name it was loaded from
	Raw          []byte    `json:"-"`            // Original JSON text
	Version      string    `json:"version"`      // metadata.version
	LastUpdated  string    `json:"lastUpdated"`  // metadata.lastUpdated
	ChannelCount int       `json:"channelCount"` // Actual, not declared
	VideoCount   int       `json:"videoCount"`   // Actual, not declared
	LoadedAt     time.Time `json:"loadedAt"`
}

// Selection is one recorded channel or video selection.
type Selection struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // 'channel', 'video'
	ChannelID  string    `json:"channelId,omitempty"`
	VideoID    int       `json:"videoId,omitempty"`
	Title      string    `json:"title"`
	Origin     string    `json:"origin,omitempty"` // Client that raised it
	SelectedAt time.Time `json:"selectedAt"`
}

// Stats holds store statistics.
type Stats struct {
	SnapshotCount  int       `json:"snapshotCount"`
	SelectionCount int       `json:"selectionCount"`
	SchemaVersion  string    `json:"schemaVersion"`
	LastSnapshot   time.Time `json:"lastSnapshot"`
}
