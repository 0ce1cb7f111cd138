package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumarques81/stellar-videohub/internal/infra/store"
)

// memorySnapshots is an in-memory SnapshotStore.
type memorySnapshots struct {
	mu      sync.Mutex
	saved   []*Snapshot
	loadErr error
}

func (m *memorySnapshots) SaveSnapshot(snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snap)
	return nil
}

func (m *memorySnapshots) LatestSnapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.saved) == 0 {
		return nil, nil
	}
	return m.saved[len(m.saved)-1], nil
}

func asset(name, raw string) LocalAsset {
	return LocalAsset{Name: name, Data: []byte(raw)}
}

func TestService_EmptyBeforeLoad(t *testing.T) {
	svc := NewService(NewLoader(nil))

	assert.Nil(t, svc.Current())
	assert.False(t, svc.Status().Loaded)
	assert.NotNil(t, svc.Channels())
	assert.Empty(t, svc.Channels())
	assert.Empty(t, svc.AllVideos())
	assert.Empty(t, svc.FindVideos("", ""))
	_, ok := svc.ChannelByID("news")
	assert.False(t, ok)
}

func TestService_LoadFailureKeepsPrevious(t *testing.T) {
	svc := NewService(NewLoader(nil))

	c, err := svc.Load(context.Background(), asset("good", sampleCatalog))
	require.NoError(t, err)
	require.Same(t, c, svc.Current())

	_, err = svc.Load(context.Background(), asset("bad", `{"channels": [`))
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Same(t, c, svc.Current())

	_, err = svc.Load(context.Background(), LocalFile{Path: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, ErrTransferFailure)
	assert.Same(t, c, svc.Current())

	status := svc.Status()
	assert.True(t, status.Loaded)
	assert.Equal(t, "asset good", status.Source)
	assert.Equal(t, "2.1", status.Version)
	assert.Equal(t, Counts{Channels: 3, Videos: 4}, status.Counts)
	assert.False(t, status.LoadedAt.IsZero())
}

func TestService_ChannelsReturnsCopy(t *testing.T) {
	svc := NewService(NewLoader(nil))
	_, err := svc.Load(context.Background(), asset("a", sampleCatalog))
	require.NoError(t, err)

	channels := svc.Channels()
	channels[0].Name = "changed"
	assert.Equal(t, "News", svc.Channels()[0].Name)
}

func TestService_FindVideos(t *testing.T) {
	svc := NewService(NewLoader(nil))
	_, err := svc.Load(context.Background(), asset("a", sampleCatalog))
	require.NoError(t, err)

	ids := func(videos []VideoRecord) []int {
		out := []int{}
		for _, v := range videos {
			out = append(out, v.ID)
		}
		return out
	}

	assert.Equal(t, []int{1, 2, 3, 4}, ids(svc.FindVideos("", "")))
	assert.Equal(t, []int{3, 4}, ids(svc.FindVideos("music", "")))
	assert.Equal(t, []int{2}, ids(svc.FindVideos("", "clips")))
	assert.Equal(t, []int{4}, ids(svc.FindVideos("music", "Clips")))
	assert.Equal(t, []int{}, ids(svc.FindVideos("news", "music")))
	assert.Equal(t, []int{}, ids(svc.FindVideos("nope", "")))
}

func TestService_ReloadNoSource(t *testing.T) {
	_, err := NewService(NewLoader(nil)).Reload(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestService_ReloadFirstSuccessWins(t *testing.T) {
	svc := NewService(NewLoader(nil), WithSources(
		LocalFile{Path: filepath.Join(t.TempDir(), "missing.json")},
		asset("broken", `not json`),
		asset("good", sampleCatalog),
		asset("later", `{"channels": []}`),
	))

	c, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, c.Counts().Channels)
	assert.Equal(t, "asset good", svc.Status().Source)
}

func TestService_ReloadAllFailReturnsLastError(t *testing.T) {
	svc := NewService(NewLoader(nil), WithSources(
		LocalFile{Path: filepath.Join(t.TempDir(), "missing.json")},
		asset("broken", `not json`),
	))

	_, err := svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Nil(t, svc.Current())
}

func TestService_SnapshotSavedAndUsedAsFallback(t *testing.T) {
	snaps := &memorySnapshots{}

	first := NewService(NewLoader(nil), WithSnapshotStore(snaps))
	_, err := first.Load(context.Background(), asset("good", sampleCatalog))
	require.NoError(t, err)

	require.Len(t, snaps.saved, 1)
	assert.Equal(t, "asset good", snaps.saved[0].Source)
	assert.Equal(t, "2.1", snaps.saved[0].Version)
	assert.Equal(t, 4, snaps.saved[0].VideoCount)

	// A failed load does not write a snapshot
	_, err = first.Load(context.Background(), asset("bad", `{`))
	require.Error(t, err)
	assert.Len(t, snaps.saved, 1)

	second := NewService(NewLoader(nil),
		WithSnapshotStore(snaps),
		WithSources(asset("bad", `{`)),
	)
	c, err := second.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, c.Counts().Videos)
	assert.Equal(t, "asset snapshot of asset good", second.Status().Source)
}

func TestService_SnapshotNotUsedWhenCatalogLoaded(t *testing.T) {
	snaps := &memorySnapshots{}
	svc := NewService(NewLoader(nil), WithSnapshotStore(snaps), WithSources(asset("bad", `{`)))

	_, err := svc.Load(context.Background(), asset("current", `{"channels": [{"id": "only"}]}`))
	require.NoError(t, err)
	snaps.saved = append(snaps.saved, &Snapshot{Source: "older", Raw: []byte(sampleCatalog)})

	_, err = svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Equal(t, 1, svc.Current().Counts().Channels)
}

func TestService_SnapshotErrorKeepsSourceError(t *testing.T) {
	snaps := &memorySnapshots{loadErr: errors.New("disk gone")}
	svc := NewService(NewLoader(nil), WithSnapshotStore(snaps), WithSources(asset("bad", `{`)))

	_, err := svc.Reload(context.Background())
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Nil(t, svc.Current())
}

func TestService_SnapshotFallbackWithSQLite(t *testing.T) {
	db := store.NewDB(filepath.Join(t.TempDir(), "videohub.db"))
	require.NoError(t, db.Open())
	defer db.Close()

	adapter := NewStoreAdapter(store.NewDAO(db))

	_, err := NewService(NewLoader(nil), WithSnapshotStore(adapter)).
		Load(context.Background(), asset("good", sampleCatalog))
	require.NoError(t, err)

	snap, err := adapter.LatestSnapshot()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "2026-10-01", snap.LastUpdated)
	assert.Equal(t, 3, snap.ChannelCount)

	svc := NewService(NewLoader(nil),
		WithSnapshotStore(adapter),
		WithSources(LocalFile{Path: filepath.Join(t.TempDir(), "missing.json")}),
	)
	c, err := svc.Reload(context.Background())
	require.NoError(t, err)
	v, ok := c.VideoByID(3)
	require.True(t, ok)
	assert.Equal(t, "Song", v.Title)
}

func TestCatalogView(t *testing.T) {
	c := mustParse(t, sampleCatalog)
	view := c.View()

	require.Len(t, view.Channels, 3)
	assert.Equal(t, Counts{Channels: 3, Videos: 4}, view.Counts)
	assert.Equal(t, 99, view.Metadata.TotalVideos)

	news := view.Channels[0]
	assert.Equal(t, 2, news.VideoCount)
	assert.Equal(t, "Morning Brief", news.CurrentShow)
	require.Len(t, news.Content, 2)
	assert.Equal(t, "Episode", news.Content[0].CategoryLabel)
	assert.Equal(t, "1:05", news.Content[0].DurationText)
	assert.Equal(t, "Clip", news.Content[1].CategoryLabel)
	assert.Equal(t, "2:05", news.Content[1].DurationText)

	teaser := view.Channels[1].Content[1]
	assert.Equal(t, "Clip", teaser.CategoryLabel)
	assert.Equal(t, "", teaser.DurationText)

	assert.NotNil(t, view.Channels[2].Content)
	assert.Empty(t, view.Channels[2].Content)

	var nilCatalog *Catalog
	assert.NotNil(t, nilCatalog.View().Channels)
	assert.Empty(t, nilCatalog.View().Channels)
}

func TestSummaries(t *testing.T) {
	c := mustParse(t, sampleCatalog)
	sums := Summaries(c.Channels)

	require.Len(t, sums, 3)
	assert.Equal(t, "news", sums[0].ID)
	assert.Equal(t, 2, sums[1].VideoCount)
	assert.Equal(t, 0, sums[2].VideoCount)
}

func TestService_QueriesDoNotAliasCatalog(t *testing.T) {
	svc := NewService(NewLoader(nil))
	_, err := svc.Load(context.Background(), asset("a", sampleCatalog))
	require.NoError(t, err)

	channels := svc.Channels()
	channels[0].Content[0].Title = "changed"

	ch, ok := svc.ChannelByID("news")
	require.True(t, ok)
	ch.Content[0].Title = "changed too"

	svc.VideosByChannel("news")[0].Title = "and again"
	svc.AllVideos()[0].Title = "once more"

	v, ok := svc.VideoByID(1)
	require.True(t, ok)
	assert.Equal(t, "Pilot", v.Title)
	assert.Equal(t, "Pilot", svc.Current().Channels[0].Content[0].Title)
}

func TestHasThumbnailRef(t *testing.T) {
	svc := NewService(NewLoader(nil))
	assert.False(t, svc.HasThumbnailRef("https://cdn.example.com/1.jpg"), "nothing loaded yet")

	_, err := svc.Load(context.Background(), asset("a", sampleCatalog))
	require.NoError(t, err)

	assert.True(t, svc.HasThumbnailRef("https://cdn.example.com/1.jpg"))
	assert.True(t, svc.HasThumbnailRef("https://cdn.example.com/2.jpg"))
	assert.True(t, svc.HasThumbnailRef("https://cdn.example.com/news.png"), "channel thumbnails count")
	assert.False(t, svc.HasThumbnailRef(""))
	assert.False(t, svc.HasThumbnailRef("https://cdn.example.com/1.JPG"))
	assert.False(t, svc.HasThumbnailRef("/etc/passwd"))
}
