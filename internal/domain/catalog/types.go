// Package catalog loads the channel/video catalog and serves derived views of it.
package catalog

// VideoRecord is a single playable item owned by exactly one channel.
type VideoRecord struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Src       string  `json:"src"`       // Locates the playable media
	Type      string  `json:"type"`      // Media type, e.g. "mp4", "hls"
	Thumbnail string  `json:"thumbnail"` // thumbnailRef (URL or local path)
	Duration  float64 `json:"duration"`  // Seconds, 0 = unknown
	Category  string  `json:"category"`

	// Optional descriptive fields
	Show      string `json:"show,omitempty"`
	Episode   int    `json:"episode,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Part      string `json:"part,omitempty"`
	Song      string `json:"song,omitempty"`
	Director  string `json:"director,omitempty"`
	Film      string `json:"film,omitempty"`
	IsTrailer bool   `json:"isTrailer,omitempty"`
}

// CategoryLabel returns the display label for the video's category.
func (v VideoRecord) CategoryLabel() string {
	return CategoryLabel(v.Category)
}

// DurationText returns the formatted duration ("" when unknown).
func (v VideoRecord) DurationText() string {
	return FormatDuration(v.Duration)
}

// Channel groups an ordered list of videos.
type Channel struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CurrentShow string        `json:"currentShow"`
	Thumbnail   string        `json:"thumbnail"`
	Content     []VideoRecord `json:"content"`
}

// Metadata carries the catalog's self-declared information.
// TotalChannels and TotalVideos are not authoritative; see Catalog.Counts.
type Metadata struct {
	Version       string `json:"version"`
	LastUpdated   string `json:"lastUpdated"`
	TotalChannels int    `json:"totalChannels"`
	TotalVideos   int    `json:"totalVideos"`
}

// Counts holds the actual number of channels and videos in a catalog.
type Counts struct {
	Channels int `json:"channels"`
	Videos   int `json:"videos"`
}

// Catalog is the full deserialized collection. It is read-only once built:
// a *Catalog is shared by every reader of the Service that loaded it, so
// callers must not modify Channels or any channel's Content. Use the query
// methods, which return copies, when a mutable slice is needed.
type Catalog struct {
	Channels []Channel `json:"channels"`
	Metadata Metadata  `json:"metadata"`

	channelIndex map[string]int
	videoIndex   map[int]videoPos
	thumbRefs    map[string]struct{}
}

type videoPos struct {
	channel int
	video   int
}

func newCatalog(channels []Channel, meta Metadata) *Catalog {
	c := &Catalog{
		Channels:     channels,
		Metadata:     meta,
		channelIndex: make(map[string]int, len(channels)),
		videoIndex:   make(map[int]videoPos),
		thumbRefs:    make(map[string]struct{}),
	}
	for ci, ch := range channels {
		c.channelIndex[ch.ID] = ci
		if ch.Thumbnail != "" {
			c.thumbRefs[ch.Thumbnail] = struct{}{}
		}
		for vi, v := range ch.Content {
			if v.Thumbnail != "" {
				c.thumbRefs[v.Thumbnail] = struct{}{}
			}
			// First occurrence wins for duplicate video IDs
			if _, exists := c.videoIndex[v.ID]; !exists {
				c.videoIndex[v.ID] = videoPos{channel: ci, video: vi}
			}
		}
	}
	return c
}

// Counts recomputes channel and video totals from the actual content.
func (c *Catalog) Counts() Counts {
	if c == nil {
		return Counts{}
	}
	n := 0
	for _, ch := range c.Channels {
		n += len(ch.Content)
	}
	return Counts{Channels: len(c.Channels), Videos: n}
}

// AllVideos flattens every channel's content, preserving channel order
// and then intra-channel order.
func (c *Catalog) AllVideos() []VideoRecord {
	if c == nil {
		return []VideoRecord{}
	}
	all := make([]VideoRecord, 0, c.Counts().Videos)
	for _, ch := range c.Channels {
		all = append(all, ch.Content...)
	}
	return all
}

// VideosByCategory returns videos whose category equals category exactly
// (case-sensitive).
func (c *Catalog) VideosByCategory(category string) []VideoRecord {
	result := []VideoRecord{}
	if c == nil {
		return result
	}
	for _, ch := range c.Channels {
		for _, v := range ch.Content {
			if v.Category == category {
				result = append(result, v)
			}
		}
	}
	return result
}

// VideosByChannel returns a copy of the channel's content, or an empty
// slice if the channel does not exist.
func (c *Catalog) VideosByChannel(channelID string) []VideoRecord {
	ch, ok := c.ChannelByID(channelID)
	if !ok {
		return []VideoRecord{}
	}
	return ch.Content
}

// ChannelByID looks up a channel by its ID. The returned Content is a copy.
func (c *Catalog) ChannelByID(channelID string) (Channel, bool) {
	if c == nil {
		return Channel{}, false
	}
	i, ok := c.channelIndex[channelID]
	if !ok {
		return Channel{}, false
	}
	return c.Channels[i].clone(), true
}

// clone copies ch with its own Content slice.
func (ch Channel) clone() Channel {
	ch.Content = append([]VideoRecord{}, ch.Content...)
	return ch
}

// VideoByID looks up a video by its ID.
func (c *Catalog) VideoByID(id int) (VideoRecord, bool) {
	if c == nil {
		return VideoRecord{}, false
	}
	pos, ok := c.videoIndex[id]
	if !ok {
		return VideoRecord{}, false
	}
	return c.Channels[pos.channel].Content[pos.video], true
}

// ThumbnailRefs returns the distinct, non-empty video thumbnail refs in
// catalog order.
func (c *Catalog) ThumbnailRefs() []string {
	refs := []string{}
	if c == nil {
		return refs
	}
	seen := make(map[string]struct{})
	for _, ch := range c.Channels {
		for _, v := range ch.Content {
			if v.Thumbnail == "" {
				continue
			}
			if _, ok := seen[v.Thumbnail]; ok {
				continue
			}
			seen[v.Thumbnail] = struct{}{}
			refs = append(refs, v.Thumbnail)
		}
	}
	return refs
}

// HasThumbnailRef reports whether ref is the thumbnail of a channel or video
// in the catalog. Matching is exact.
func (c *Catalog) HasThumbnailRef(ref string) bool {
	if c == nil || ref == "" {
		return false
	}
	_, ok := c.thumbRefs[ref]
	return ok
}
