package catalog

// VideoView is a VideoRecord with its display fields resolved.
type VideoView struct {
	VideoRecord
	CategoryLabel string `json:"categoryLabel"`
	DurationText  string `json:"durationText"`
}

// ChannelSummary describes a channel without its content.
type ChannelSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CurrentShow string `json:"currentShow"`
	Thumbnail   string `json:"thumbnail"`
	VideoCount  int    `json:"videoCount"`
}

// ChannelView is a channel with display-ready content.
type ChannelView struct {
	ChannelSummary
	Content []VideoView `json:"content"`
}

// CatalogView is the client-facing form of a Catalog.
type CatalogView struct {
	Channels []ChannelView `json:"channels"`
	Metadata Metadata      `json:"metadata"`
	Counts   Counts        `json:"counts"`
}

// ViewVideos converts records to views, preserving order.
func ViewVideos(videos []VideoRecord) []VideoView {
	views := make([]VideoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, VideoView{
			VideoRecord:   v,
			CategoryLabel: v.CategoryLabel(),
			DurationText:  v.DurationText(),
		})
	}
	return views
}

// Summarize returns the channel's summary.
func (ch Channel) Summarize() ChannelSummary {
	return ChannelSummary{
		ID:          ch.ID,
		Name:        ch.Name,
		Description: ch.Description,
		CurrentShow: ch.CurrentShow,
		Thumbnail:   ch.Thumbnail,
		VideoCount:  len(ch.Content),
	}
}

// Summaries returns a summary per channel in catalog order.
func Summaries(channels []Channel) []ChannelSummary {
	out := make([]ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.Summarize())
	}
	return out
}

// View returns the client-facing form of c. A nil catalog yields an empty view.
func (c *Catalog) View() CatalogView {
	view := CatalogView{Channels: []ChannelView{}}
	if c == nil {
		return view
	}
	for _, ch := range c.Channels {
		view.Channels = append(view.Channels, ChannelView{
			ChannelSummary: ch.Summarize(),
			Content:        ViewVideos(ch.Content),
		})
	}
	view.Metadata = c.Metadata
	view.Counts = c.Counts()
	return view
}
