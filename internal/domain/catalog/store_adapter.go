package catalog

import (
	"github.com/edumarques81/stellar-videohub/internal/infra/store"
)

// StoreAdapter adapts store.DAO to the SnapshotStore interface.
type StoreAdapter struct {
	dao *store.DAO
}

// NewStoreAdapter creates a new adapter for store.DAO.
func NewStoreAdapter(dao *store.DAO) *StoreAdapter {
	return &StoreAdapter{dao: dao}
}

// SaveSnapshot persists snap as the newest catalog snapshot.
func (a *StoreAdapter) SaveSnapshot(snap *Snapshot) error {
	return a.dao.InsertSnapshot(&store.CatalogSnapshot{
		Source:       snap.Source,
		Raw:          snap.Raw,
		Version:      snap.Version,
		LastUpdated:  snap.LastUpdated,
		ChannelCount: snap.ChannelCount,
		VideoCount:   snap.VideoCount,
		LoadedAt:     snap.LoadedAt,
	})
}

// LatestSnapshot returns the newest stored snapshot.
func (a *StoreAdapter) LatestSnapshot() (*Snapshot, error) {
	stored, err := a.dao.LatestSnapshot()
	if err != nil || stored == nil {
		return nil, err
	}
	return &Snapshot{
		Source:       stored.Source,
		Raw:          stored.Raw,
		Version:      stored.Version,
		LastUpdated:  stored.LastUpdated,
		ChannelCount: stored.ChannelCount,
		VideoCount:   stored.VideoCount,
		LoadedAt:     stored.LoadedAt,
	}, nil
}
