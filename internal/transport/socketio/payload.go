package socketio

import (
	"errors"
	"math"
	"strconv"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/selection"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
)

// videosPayload is sent with pushVideos.
type videosPayload struct {
	ChannelID string                  `json:"channelId,omitempty"`
	Category  string                  `json:"category,omitempty"`
	Channel   *catalog.ChannelSummary `json:"channel,omitempty"`
	Videos    []catalog.VideoView     `json:"videos"`
}

// thumbnailsPayload is sent with pushThumbnailsReady.
type thumbnailsPayload struct {
	Ready  []string `json:"ready"`
	Failed []string `json:"failed"`
}

// historyPayload is sent with pushHistory.
type historyPayload struct {
	Entries []selection.HistoryEntry `json:"entries"`
}

// errorPayload is sent with pushError.
type errorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Ref     string `json:"ref,omitempty"`
}

func newErrorPayload(event string, err error) errorPayload {
	p := errorPayload{Event: event, Message: err.Error()}

	var le *catalog.LoadError
	var fe *thumbnail.FetchError
	switch {
	case errors.As(err, &le):
		p.Kind = le.Kind.String()
		p.Ref = le.Source
	case errors.As(err, &fe):
		p.Kind = fe.Kind.String()
		p.Ref = fe.Ref
	}
	return p
}

// payloadMap returns the first argument as an object, or nil.
func payloadMap(args []any) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	m, _ := args[0].(map[string]interface{})
	return m
}

func getIntFromMap(m map[string]interface{}, key string, defaultVal int) int {
	if m == nil {
		return defaultVal
	}
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		// JSON numbers arrive as float64; only whole values are ids
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int(v)
		}
	case int64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getStringFromMap(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
