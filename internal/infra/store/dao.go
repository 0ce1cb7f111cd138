package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DAO provides data access operations for the store.
type DAO struct {
	db        *DB
	retention int
}

// NewDAO creates a new DAO instance.
func NewDAO(db *DB) *DAO {
	return &DAO{db: db, retention: DefaultSnapshotRetention}
}

// --- Catalog snapshots ---

// InsertSnapshot stores a catalog snapshot and prunes old ones.
func (dao *DAO) InsertSnapshot(snap *CatalogSnapshot) error {
	dao.db.mu.Lock()
	defer dao.db.mu.Unlock()

	db := dao.db.db
	if db == nil {
		return ErrNotOpen
	}

	loadedAt := snap.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}

	res, err := db.Exec(`
		INSERT INTO catalog_snapshots (source, raw, version, last_updated, channel_count, video_count, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.Source, snap.Raw, snap.Version, snap.LastUpdated, snap.ChannelCount, snap.VideoCount,
		loadedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = id
	}

	// Keep only the newest snapshots
	if _, err := db.Exec(`
		DELETE FROM catalog_snapshots
		WHERE id NOT IN (SELECT id FROM catalog_snapshots ORDER BY id DESC LIMIT ?)
	`, dao.retention); err != nil {
		log.Warn().Err(err).Msg("Failed to prune catalog snapshots")
	}

	if err := dao.db.setMeta("last_snapshot", loadedAt.Format(time.RFC3339)); err != nil {
		log.Warn().Err(err).Msg("Failed to update last_snapshot")
	}

	log.Debug().
		Int64("id", snap.ID).
		Str("source", snap.Source).
		Int("size", len(snap.Raw)).
		Msg("Saved catalog snapshot")

	return nil
}

// LatestSnapshot returns the newest snapshot, or nil if there is none.
func (dao *DAO) LatestSnapshot() (*CatalogSnapshot, error) {
	dao.db.mu.RLock()
	defer dao.db.mu.RUnlock()

	db := dao.db.db
	if db == nil {
		return nil, ErrNotOpen
	}

	var (
		snap        CatalogSnapshot
		version     sql.NullString
		lastUpdated sql.NullString
		loadedAt    string
	)
	err := db.QueryRow(`
		SELECT id, source, raw, version, last_updated, channel_count, video_count, loaded_at
		FROM catalog_snapshots
		ORDER BY id DESC
		LIMIT 1
	`).Scan(&snap.ID, &snap.Source, &snap.Raw, &version, &lastUpdated, &snap.ChannelCount, &snap.VideoCount, &loadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	snap.Version = version.String
	snap.LastUpdated = lastUpdated.String
	snap.LoadedAt, _ = time.Parse(timeLayout, loadedAt)
	return &snap, nil
}

// --- Selection history ---

// InsertSelection records a selection.
func (dao *DAO) InsertSelection(sel *Selection) error {
	dao.db.mu.Lock()
	defer dao.db.mu.Unlock()

	db := dao.db.db
	if db == nil {
		return ErrNotOpen
	}

	selectedAt := sel.SelectedAt
	if selectedAt.IsZero() {
		selectedAt = time.Now()
	}

	_, err := db.Exec(`
		INSERT OR REPLACE INTO selection_history (id, kind, channel_id, video_id, title, origin, selected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sel.ID, sel.Kind, sel.ChannelID, sel.VideoID, sel.Title, sel.Origin, selectedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert selection: %w", err)
	}
	return nil
}

// RecentSelections returns up to limit selections, newest first.
func (dao *DAO) RecentSelections(limit int) ([]Selection, error) {
	dao.db.mu.RLock()
	defer dao.db.mu.RUnlock()

	db := dao.db.db
	if db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, kind, channel_id, video_id, title, origin, selected_at
		FROM selection_history
		ORDER BY selected_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	selections := []Selection{}
	for rows.Next() {
		var (
			sel        Selection
			channelID  sql.NullString
			videoID    sql.NullInt64
			title      sql.NullString
			origin     sql.NullString
			selectedAt string
		)
		if err := rows.Scan(&sel.ID, &sel.Kind, &channelID, &videoID, &title, &origin, &selectedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		sel.ChannelID = channelID.String
		sel.VideoID = int(videoID.Int64)
		sel.Title = title.String
		sel.Origin = origin.String
		sel.SelectedAt, _ = time.Parse(timeLayout, selectedAt)
		selections = append(selections, sel)
	}
	return selections, rows.Err()
}

// ClearSelections removes all selection history.
func (dao *DAO) ClearSelections() error {
	dao.db.mu.Lock()
	defer dao.db.mu.Unlock()

	db := dao.db.db
	if db == nil {
		return ErrNotOpen
	}
	if _, err := db.Exec("DELETE FROM selection_history"); err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	log.Info().Msg("Selection history cleared")
	return nil
}
