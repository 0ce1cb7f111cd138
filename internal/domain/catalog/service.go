package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Snapshot is a persisted copy of a successfully loaded catalog.
type Snapshot struct {
	Source       string
	Raw          []byte
	Version      string
	LastUpdated  string
	ChannelCount int
	VideoCount   int
	LoadedAt     time.Time
}

// SnapshotStore persists the last good catalog so it can be used as a
// fallback when every configured source fails.
type SnapshotStore interface {
	SaveSnapshot(snap *Snapshot) error
	// LatestSnapshot returns nil, nil when nothing has been saved yet.
	LatestSnapshot() (*Snapshot, error)
}

// Service holds the most recently loaded catalog and answers queries on it.
type Service struct {
	loader    *Loader
	snapshots SnapshotStore
	sources   []Source

	mu       sync.RWMutex
	current  *Catalog
	source   string
	loadedAt time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithSnapshotStore enables snapshot persistence and fallback.
func WithSnapshotStore(store SnapshotStore) ServiceOption {
	return func(s *Service) {
		s.snapshots = store
	}
}

// WithSources sets the sources Reload tries, in order of preference.
func WithSources(sources ...Source) ServiceOption {
	return func(s *Service) {
		s.sources = sources
	}
}

// NewService creates a catalog service.
func NewService(loader *Loader, opts ...ServiceOption) *Service {
	s := &Service{loader: loader}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load loads src and, on success, replaces the current catalog.
// On failure the previous catalog stays in place.
func (s *Service) Load(ctx context.Context, src Source) (*Catalog, error) {
	raw, err := s.loader.read(ctx, src)
	if err != nil {
		log.Error().Err(err).Str("source", describe(src)).Msg("Failed to load catalog")
		return nil, err
	}
	c, err := s.loader.parse(src, raw)
	if err != nil {
		log.Error().Err(err).Str("source", src.Describe()).Msg("Failed to parse catalog")
		return nil, err
	}

	s.replace(c, src.Describe())
	s.saveSnapshot(src, raw, c)
	return c, nil
}

// Reload tries each configured source in order and keeps the first success.
// If all of them fail and no catalog is loaded yet, the latest snapshot is
// used instead. The last source error is returned when nothing could be loaded.
func (s *Service) Reload(ctx context.Context) (*Catalog, error) {
	if len(s.sources) == 0 {
		return nil, ErrNoSource
	}

	var lastErr error
	for _, src := range s.sources {
		c, err := s.Load(ctx, src)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	if s.Current() != nil {
		return nil, lastErr
	}

	c, err := s.loadSnapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot fallback failed")
		return nil, lastErr
	}
	if c == nil {
		return nil, lastErr
	}
	return c, nil
}

func (s *Service) replace(c *Catalog, source string) {
	s.mu.Lock()
	s.current = c
	s.source = source
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

func (s *Service) saveSnapshot(src Source, raw []byte, c *Catalog) {
	if s.snapshots == nil {
		return
	}
	counts := c.Counts()
	snap := &Snapshot{
		Source:       src.Describe(),
		Raw:          raw,
		Version:      c.Metadata.Version,
		LastUpdated:  c.Metadata.LastUpdated,
		ChannelCount: counts.Channels,
		VideoCount:   counts.Videos,
		LoadedAt:     time.Now(),
	}
	if err := s.snapshots.SaveSnapshot(snap); err != nil {
		log.Warn().Err(err).Str("source", snap.Source).Msg("Failed to save catalog snapshot")
	}
}

func (s *Service) loadSnapshot() (*Catalog, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	snap, err := s.snapshots.LatestSnapshot()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}

	src := LocalAsset{Name: "snapshot of " + snap.Source, Data: snap.Raw}
	c, err := s.loader.parse(src, snap.Raw)
	if err != nil {
		return nil, err
	}

	log.Warn().
		Str("source", snap.Source).
		Time("savedAt", snap.LoadedAt).
		Msg("Using catalog snapshot fallback")

	s.replace(c, src.Describe())
	return c, nil
}

// Current returns the loaded catalog, or nil before the first success.
// The catalog is shared and must not be modified.
func (s *Service) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Status describes the currently loaded catalog.
type Status struct {
	Loaded   bool      `json:"loaded"`
	Source   string    `json:"source,omitempty"`
	LoadedAt time.Time `json:"loadedAt,omitempty"`
	Version  string    `json:"version,omitempty"`
	Counts   Counts    `json:"counts"`
}

// Status returns information about the current catalog.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return Status{}
	}
	return Status{
		Loaded:   true,
		Source:   s.source,
		LoadedAt: s.loadedAt,
		Version:  s.current.Metadata.Version,
		Counts:   s.current.Counts(),
	}
}

// Channels returns copies of the current channels (empty before the first
// load).
func (s *Service) Channels() []Channel {
	c := s.Current()
	if c == nil {
		return []Channel{}
	}
	channels := make([]Channel, 0, len(c.Channels))
	for _, ch := range c.Channels {
		channels = append(channels, ch.clone())
	}
	return channels
}

// AllVideos returns every video of the current catalog.
func (s *Service) AllVideos() []VideoRecord {
	return s.Current().AllVideos()
}

// VideosByCategory returns the current catalog's videos with an exactly
// matching category.
func (s *Service) VideosByCategory(category string) []VideoRecord {
	return s.Current().VideosByCategory(category)
}

// VideosByChannel returns the videos of a channel, or an empty slice.
func (s *Service) VideosByChannel(channelID string) []VideoRecord {
	return s.Current().VideosByChannel(channelID)
}

// FindVideos combines the channel and category filters. Empty arguments do
// not filter; both use exact matching.
func (s *Service) FindVideos(channelID, category string) []VideoRecord {
	c := s.Current()
	switch {
	case channelID == "" && category == "":
		return c.AllVideos()
	case channelID == "":
		return c.VideosByCategory(category)
	case category == "":
		return c.VideosByChannel(channelID)
	}

	videos := []VideoRecord{}
	for _, v := range c.VideosByChannel(channelID) {
		if v.Category == category {
			videos = append(videos, v)
		}
	}
	return videos
}

// ChannelByID looks up a channel in the current catalog.
func (s *Service) ChannelByID(channelID string) (Channel, bool) {
	return s.Current().ChannelByID(channelID)
}

// HasThumbnailRef reports whether ref belongs to the current catalog.
func (s *Service) HasThumbnailRef(ref string) bool {
	return s.Current().HasThumbnailRef(ref)
}

// VideoByID looks up a video in the current catalog.
func (s *Service) VideoByID(id int) (VideoRecord, bool) {
	return s.Current().VideoByID(id)
}

func describe(src Source) string {
	if src == nil {
		return "<nil>"
	}
	return src.Describe()
}

// IsLoadError reports whether err is a catalog LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}
