package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Source identifies where catalog JSON comes from.
type Source interface {
	// Describe returns a human-readable location for logs and errors.
	Describe() string
}

// LocalAsset is catalog text that is already in memory (a bundled resource).
type LocalAsset struct {
	Name string
	Data []byte
}

func (a LocalAsset) Describe() string {
	if a.Name == "" {
		return "asset"
	}
	return "asset " + a.Name
}

// LocalFile is a catalog JSON file on disk.
type LocalFile struct {
	Path string
}

func (f LocalFile) Describe() string { return f.Path }

// RemoteURL is a catalog served over HTTP(S).
type RemoteURL struct {
	URL string
}

func (u RemoteURL) Describe() string { return u.URL }

// Fetcher retrieves the bytes at a URL.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Loader turns a Source into a Catalog.
type Loader struct {
	fetcher Fetcher
}

// NewLoader creates a loader. fetcher may be nil if only local sources are used.
func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load obtains the raw catalog text from src and deserializes it.
// Failures are returned as *LoadError.
func (l *Loader) Load(ctx context.Context, src Source) (*Catalog, error) {
	raw, err := l.read(ctx, src)
	if err != nil {
		return nil, err
	}
	return l.parse(src, raw)
}

// read obtains the raw bytes for src.
func (l *Loader) read(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, transferError("<nil>", ErrNoSource)
	}
	if err := ctx.Err(); err != nil {
		return nil, transferError(src.Describe(), err)
	}

	switch s := src.(type) {
	case LocalAsset:
		return s.Data, nil
	case *LocalAsset:
		return s.Data, nil
	case LocalFile:
		return readFile(s)
	case *LocalFile:
		return readFile(*s)
	case RemoteURL:
		return l.fetch(ctx, s)
	case *RemoteURL:
		return l.fetch(ctx, *s)
	default:
		return nil, transferError(src.Describe(), fmt.Errorf("unsupported source type %T", src))
	}
}

func readFile(f LocalFile) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, transferError(f.Describe(), err)
	}
	return data, nil
}

func (l *Loader) fetch(ctx context.Context, u RemoteURL) ([]byte, error) {
	if l.fetcher == nil {
		return nil, transferError(u.Describe(), fmt.Errorf("no fetcher configured"))
	}

	log.Debug().Str("url", u.URL).Msg("Fetching catalog")

	data, err := l.fetcher.Get(ctx, u.URL)
	if err != nil {
		return nil, transferError(u.Describe(), err)
	}
	return data, nil
}

// document mirrors the wire format; Channels is a pointer so a missing key
// can be told apart from an empty list.
type document struct {
	Channels *[]Channel `json:"channels"`
	Metadata Metadata   `json:"metadata"`
}

// Parse deserializes catalog JSON. It is exposed for callers that already
// hold the text (e.g. a persisted snapshot).
func Parse(raw []byte) (*Catalog, error) {
	return NewLoader(nil).parse(LocalAsset{Name: "inline"}, raw)
}

func (l *Loader) parse(src Source, raw []byte) (*Catalog, error) {
	where := src.Describe()

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, parseError(where, "malformed JSON", err)
	}
	if doc.Channels == nil {
		return nil, parseError(where, `missing required field "channels"`, nil)
	}

	channels := *doc.Channels
	seen := make(map[string]struct{}, len(channels))
	videoIDs := make(map[int]string)
	for i := range channels {
		ch := &channels[i]
		if ch.ID == "" {
			return nil, parseError(where, fmt.Sprintf(`channel at index %d is missing required field "id"`, i), nil)
		}
		if _, dup := seen[ch.ID]; dup {
			return nil, parseError(where, fmt.Sprintf("duplicate channel id %q", ch.ID), nil)
		}
		seen[ch.ID] = struct{}{}

		if ch.Content == nil {
			ch.Content = []VideoRecord{}
		}
		for _, v := range ch.Content {
			if owner, dup := videoIDs[v.ID]; dup {
				log.Warn().
					Int("videoID", v.ID).
					Str("channel", ch.ID).
					Str("firstChannel", owner).
					Str("source", where).
					Msg("Duplicate video id in catalog")
				continue
			}
			videoIDs[v.ID] = ch.ID
		}
	}

	c := newCatalog(channels, doc.Metadata)
	counts := c.Counts()

	log.Info().
		Str("source", where).
		Str("version", doc.Metadata.Version).
		Int("channels", counts.Channels).
		Int("videos", counts.Videos).
		Msg("Loaded catalog")

	if counts.Videos != doc.Metadata.TotalVideos || counts.Channels != doc.Metadata.TotalChannels {
		log.Debug().
			Int("declaredChannels", doc.Metadata.TotalChannels).
			Int("declaredVideos", doc.Metadata.TotalVideos).
			Int("channels", counts.Channels).
			Int("videos", counts.Videos).
			Msg("Catalog metadata totals differ from actual content")
	}

	return c, nil
}
