// Package socketio provides the Socket.io server for client communication.
package socketio

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zishang520/socket.io/servers/socket/v3"
	"github.com/zishang520/socket.io/v3/pkg/types"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/selection"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
)

// DefaultDebounceWindow batches catalog and thumbnail broadcasts.
const DefaultDebounceWindow = 250 * time.Millisecond

// Publisher accepts selection events.
type Publisher interface {
	Publish(ev selection.Event) error
}

// Refresher runs a full catalog refresh (reload, thumbnail warm-up, notify).
type Refresher interface {
	RunOnce(ctx context.Context) (*catalog.Catalog, error)
}

// Server handles Socket.io connections and events.
type Server struct {
	io        *socket.Server
	catalog   *catalog.Service
	publisher Publisher
	history   selection.HistoryStore
	refresher Refresher
	limiter   *ConnectionLimiter
	debouncer *BroadcastDebouncer
	window    time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.RWMutex
	clients map[string]*socket.Socket

	thumbMu    sync.Mutex
	readyRefs  []string
	failedRefs []string
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables getHistory.
func WithHistory(h selection.HistoryStore) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithRefresher makes reloadCatalog run a full refresh instead of a plain
// catalog reload.
func WithRefresher(r Refresher) Option {
	return func(s *Server) {
		s.refresher = r
	}
}

// WithConnectionLimit caps concurrent non-localhost clients. The oldest
// external client is disconnected when the limit is exceeded.
func WithConnectionLimit(maxExternal int) Option {
	return func(s *Server) {
		if maxExternal > 0 {
			s.limiter = NewConnectionLimiter(maxExternal)
		}
	}
}

// WithDebounceWindow sets the broadcast batching window.
func WithDebounceWindow(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewServer creates a new Socket.io server.
func NewServer(catalogService *catalog.Service, publisher Publisher, opts ...Option) (*Server, error) {
	if catalogService == nil {
		return nil, fmt.Errorf("catalog service is required")
	}

	// Configure Socket.io server options
	sopts := socket.DefaultServerOptions()
	sopts.SetPingTimeout(20 * time.Second)
	sopts.SetPingInterval(25 * time.Second)
	sopts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		io:        socket.NewServer(nil, sopts),
		catalog:   catalogService,
		publisher: publisher,
		window:    DefaultDebounceWindow,
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[string]*socket.Socket),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = NewBroadcastDebouncer(s.window, s.BroadcastCatalog, s.broadcastThumbnails)

	s.setupHandlers()

	return s, nil
}

// setupHandlers registers the connection lifecycle and all client events.
func (s *Server) setupHandlers() {
	s.io.On("connection", func(clients ...any) {
		client := clients[0].(*socket.Socket)
		clientID := string(client.Id())
		remoteIP := clientIP(client)

		log.Info().Str("id", clientID).Str("ip", remoteIP).Msg("Client connected")

		s.mu.Lock()
		s.clients[clientID] = client
		s.mu.Unlock()

		if s.limiter != nil {
			if _, evicted := s.limiter.TryAdd(clientID, remoteIP); evicted != "" {
				s.evict(evicted)
			}
		}

		// Send initial state after small delay
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.pushChannels(client)
		}()

		client.On("disconnect", func(args ...any) {
			reason := ""
			if len(args) > 0 {
				if r, ok := args[0].(string); ok {
					reason = r
				}
			}
			log.Info().Str("id", clientID).Str("reason", reason).Msg("Client disconnected")

			s.mu.Lock()
			delete(s.clients, clientID)
			s.mu.Unlock()

			if s.limiter != nil {
				s.limiter.Remove(clientID)
			}
		})

		s.registerCatalogHandlers(client)
		s.registerSelectionHandlers(client)
	})
}

func (s *Server) evict(clientID string) {
	s.mu.RLock()
	old := s.clients[clientID]
	s.mu.RUnlock()
	if old == nil {
		return
	}

	log.Warn().Str("id", clientID).Msg("Connection limit reached, disconnecting oldest external client")
	old.Emit("pushError", errorPayload{Event: "connection", Message: "replaced by a newer client"})
	old.Disconnect(true)
}

// clientIP returns the client's address without port or IPv4-mapped prefix.
func clientIP(client *socket.Socket) string {
	addr := client.Handshake().Address
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.TrimPrefix(addr, "::ffff:")
}

func (s *Server) client(clientID string) (*socket.Socket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	return c, ok
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// pushError reports a failed request to one client.
func (s *Server) pushError(client *socket.Socket, event string, err error) {
	log.Warn().Err(err).Str("id", string(client.Id())).Str("event", event).Msg("Request failed")
	client.Emit("pushError", newErrorPayload(event, err))
}

// pushChannels sends channel summaries to a client.
func (s *Server) pushChannels(client *socket.Socket) {
	client.Emit("pushChannels", catalog.Summaries(s.catalog.Channels()))
}

// pushCatalog sends the full catalog view to a client.
func (s *Server) pushCatalog(client *socket.Socket) {
	client.Emit("pushCatalog", s.catalog.Current().View())
}

// SendChannelVideos delivers a channel selection's videos to the client that
// made it. It is the channel handler of the selection router.
func (s *Server) SendChannelVideos(_ context.Context, ev selection.Event) error {
	client, ok := s.client(ev.Origin)
	if !ok {
		return fmt.Errorf("client %s is no longer connected", ev.Origin)
	}

	summary := ev.Channel.Summarize()
	client.Emit("pushVideos", videosPayload{
		ChannelID: ev.ChannelID,
		Channel:   &summary,
		Videos:    catalog.ViewVideos(s.catalog.VideosByChannel(ev.ChannelID)),
	})
	return nil
}

// BroadcastCatalog sends the catalog and channel list to all clients.
func (s *Server) BroadcastCatalog() {
	s.io.Emit("pushCatalog", s.catalog.Current().View())
	s.io.Emit("pushChannels", catalog.Summaries(s.catalog.Channels()))

	log.Debug().Int("clients", s.ClientCount()).Msg("Broadcast catalog")
}

// NotifyCatalogChanged schedules a debounced catalog broadcast.
func (s *Server) NotifyCatalogChanged() {
	s.debouncer.Trigger(ChangeCatalog)
}

// ThumbnailResolved records a prefetch result and schedules a debounced
// pushThumbnailsReady broadcast.
func (s *Server) ThumbnailResolved(res thumbnail.Result) {
	s.thumbMu.Lock()
	if res.Err != nil {
		s.failedRefs = append(s.failedRefs, res.Ref)
	} else {
		s.readyRefs = append(s.readyRefs, res.Ref)
	}
	s.thumbMu.Unlock()

	s.debouncer.Trigger(ChangeThumbnails)
}

func (s *Server) takeThumbnails() thumbnailsPayload {
	s.thumbMu.Lock()
	defer s.thumbMu.Unlock()

	p := thumbnailsPayload{Ready: s.readyRefs, Failed: s.failedRefs}
	if p.Ready == nil {
		p.Ready = []string{}
	}
	if p.Failed == nil {
		p.Failed = []string{}
	}
	s.readyRefs = nil
	s.failedRefs = nil
	return p
}

func (s *Server) broadcastThumbnails() {
	p := s.takeThumbnails()
	if len(p.Ready) == 0 && len(p.Failed) == 0 {
		return
	}
	s.io.Emit("pushThumbnailsReady", p)

	log.Debug().Int("ready", len(p.Ready)).Int("failed", len(p.Failed)).Msg("Broadcast thumbnails")
}

// ServeHTTP implements http.Handler for the Socket.io server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.io.ServeHandler(nil).ServeHTTP(w, r)
}

// Close stops pending broadcasts and closes the Socket.io server.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.debouncer.Stop()
		s.io.Close(nil)
	})
	return nil
}
