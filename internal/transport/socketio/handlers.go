package socketio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/selection"
)

var (
	errChannelNotFound = errors.New("channel not found")
	errVideoNotFound   = errors.New("video not found")
	errNoPublisher     = errors.New("selection handling unavailable")
)

// registerCatalogHandlers registers the catalog query events.
func (s *Server) registerCatalogHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	client.On("getCatalog", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getCatalog")
		s.pushCatalog(client)
	})

	client.On("getChannels", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("getChannels")
		s.pushChannels(client)
	})

	client.On("getVideos", func(args ...any) {
		m := payloadMap(args)
		channelID := getStringFromMap(m, "channelId")
		category := getStringFromMap(m, "category")
		log.Debug().Str("id", clientID).Str("channel", channelID).Str("category", category).Msg("getVideos")

		payload := videosPayload{
			ChannelID: channelID,
			Category:  category,
			Videos:    catalog.ViewVideos(s.catalog.FindVideos(channelID, category)),
		}
		if channelID != "" {
			if ch, ok := s.catalog.ChannelByID(channelID); ok {
				summary := ch.Summarize()
				payload.Channel = &summary
			}
		}
		client.Emit("pushVideos", payload)
	})

	client.On("reloadCatalog", func(args ...any) {
		log.Debug().Str("id", clientID).Msg("reloadCatalog")
		go s.reloadCatalog(client)
	})

	client.On("getHistory", func(args ...any) {
		limit := getIntFromMap(payloadMap(args), "limit", selection.DefaultHistoryLimit)
		log.Debug().Str("id", clientID).Int("limit", limit).Msg("getHistory")
		s.pushHistory(client, limit)
	})
}

// registerSelectionHandlers turns client selections into dispatcher events.
func (s *Server) registerSelectionHandlers(client *socket.Socket) {
	clientID := string(client.Id())

	client.On("selectChannel", func(args ...any) {
		id := getStringFromMap(payloadMap(args), "id")
		log.Debug().Str("id", clientID).Str("channel", id).Msg("selectChannel")

		ch, ok := s.catalog.ChannelByID(id)
		if !ok {
			s.pushError(client, "selectChannel", fmt.Errorf("%w: %q", errChannelNotFound, id))
			return
		}
		s.publish(client, "selectChannel", selection.ChannelSelected(ch, clientID))
	})

	client.On("selectVideo", func(args ...any) {
		m := payloadMap(args)
		id := getIntFromMap(m, "id", -1)
		channelID := getStringFromMap(m, "channelId")
		log.Debug().Str("id", clientID).Int("video", id).Str("channel", channelID).Msg("selectVideo")

		v, ok := s.catalog.VideoByID(id)
		if !ok {
			s.pushError(client, "selectVideo", fmt.Errorf("%w: %d", errVideoNotFound, id))
			return
		}
		s.publish(client, "selectVideo", selection.VideoSelected(v, channelID, clientID))
	})
}

func (s *Server) publish(client *socket.Socket, event string, ev selection.Event) {
	if s.publisher == nil {
		s.pushError(client, event, errNoPublisher)
		return
	}
	if err := s.publisher.Publish(ev); err != nil {
		s.pushError(client, event, err)
	}
}

func (s *Server) reloadCatalog(client *socket.Socket) {
	var err error
	if s.refresher != nil {
		// The refresher's callback broadcasts the result
		_, err = s.refresher.RunOnce(s.ctx)
	} else if _, err = s.catalog.Reload(s.ctx); err == nil {
		s.NotifyCatalogChanged()
	}

	if err != nil {
		s.pushError(client, "reloadCatalog", err)
	}
}

func (s *Server) pushHistory(client *socket.Socket, limit int) {
	entries := []selection.HistoryEntry{}
	if s.history != nil {
		recent, err := s.history.Recent(limit)
		if err != nil {
			s.pushError(client, "getHistory", err)
			return
		}
		entries = recent
	}
	client.Emit("pushHistory", historyPayload{Entries: entries})
}
