// Package main is the entry point for the video hub backend.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videohub/internal/config"
	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/selection"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
	"github.com/edumarques81/stellar-videohub/internal/infra/fetch"
	"github.com/edumarques81/stellar-videohub/internal/infra/store"
	"github.com/edumarques81/stellar-videohub/internal/scheduler"
	"github.com/edumarques81/stellar-videohub/internal/transport/rest"
	"github.com/edumarques81/stellar-videohub/internal/transport/socketio"
	"github.com/edumarques81/stellar-videohub/internal/version"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Config file (default $VIDEOHUB_CONFIG or config.yaml)")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	catalogURL := flag.String("catalog-url", "", "Remote catalog URL (overrides config)")
	catalogFile := flag.String("catalog-file", "", "Local catalog file (overrides config)")
	staticDir := flag.String("static", "", "Directory to serve static files from (optional)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyFlags(cfg, *port, *catalogURL, *catalogFile, *staticDir, *debug)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Log.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Video Catalog Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("port", cfg.Server.Port).
		Str("catalog_url", cfg.Catalog.URL).
		Str("catalog_file", cfg.Catalog.File).
		Bool("prefer_local", cfg.Catalog.PreferLocal).
		Int("thumbnail_concurrency", cfg.Thumbnails.Concurrency).
		Bool("dedupe", cfg.Thumbnails.Dedupe).
		Str("refresh", cfg.Refresh.Schedule).
		Str("store", cfg.Store.Path).
		Msg("Configuration")

	if !cfg.HasCatalogSource() {
		log.Warn().Msg("No catalog URL or file configured - only a stored snapshot can be served")
	}

	// Open the store. Without it the hub still runs, minus snapshots and
	// persistent history.
	var (
		history   selection.HistoryStore
		snapshots catalog.SnapshotStore
	)
	db := store.NewDB(cfg.Store.Path)
	if err := db.Open(); err != nil {
		log.Error().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open store, using in-memory history")
		db = nil
		history = selection.NewMemoryHistory(0)
	} else {
		defer db.Close()
		dao := store.NewDAO(db)
		history = selection.NewHistoryAdapter(dao)
		snapshots = catalog.NewStoreAdapter(dao)
	}

	// Fetching and catalog
	fetcher := fetch.NewClient(
		fetch.WithTimeout(cfg.Thumbnails.Timeout),
		fetch.WithMaxBytes(cfg.Thumbnails.MaxBytes),
		fetch.WithRateLimit(cfg.Thumbnails.RateLimit),
	)
	serviceOpts := []catalog.ServiceOption{catalog.WithSources(buildSources(cfg.Catalog)...)}
	if snapshots != nil {
		serviceOpts = append(serviceOpts, catalog.WithSnapshotStore(snapshots))
	}
	catalogService := catalog.NewService(catalog.NewLoader(fetcher), serviceOpts...)

	// Thumbnails
	thumbnails := thumbnail.NewCache(fetcher,
		thumbnail.WithDeduplication(cfg.Thumbnails.Dedupe),
		thumbnail.WithMaxPixels(cfg.Thumbnails.MaxPixels),
	)
	prefetcher := thumbnail.NewPrefetcher(thumbnails, cfg.Thumbnails.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The socket server is created after the components that report to it
	var socketServer *socketio.Server

	router := selection.NewRouter(func(ctx context.Context, ev selection.Event) error {
		return socketServer.SendChannelVideos(ctx, ev)
	}, nil, history)
	dispatcher := selection.NewDispatcher(router)

	refresher := scheduler.New(cfg.Refresh.Schedule, catalogService, prefetcher,
		func(c *catalog.Catalog, sum thumbnail.Summary) {
			socketServer.NotifyCatalogChanged()
		},
		scheduler.WithThumbnailHook(func(res thumbnail.Result) {
			socketServer.ThumbnailResolved(res)
		}),
	)

	socketServer, err = socketio.NewServer(catalogService, dispatcher,
		socketio.WithHistory(history),
		socketio.WithRefresher(refresher),
		socketio.WithConnectionLimit(cfg.Server.MaxClients),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		if err := dispatcher.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Selection dispatcher stopped")
		}
	}()

	// Setup HTTP server
	mux := http.NewServeMux()

	// Socket.io endpoint
	mux.Handle("/socket.io/", socketServer)

	restOpts := []rest.Option{
		rest.WithHistory(history),
		rest.WithHealthDetail("refresh", func() any { return refresher.Status() }),
		rest.WithHealthDetail("clients", func() any { return socketServer.ClientCount() }),
	}
	if db != nil {
		restOpts = append(restOpts, rest.WithHealthDetail("store", func() any {
			stats, err := db.GetStats()
			if err != nil {
				return map[string]string{"error": err.Error()}
			}
			return stats
		}))
	}
	rest.NewHandler(catalogService, thumbnails, restOpts...).Register(mux)

	// Serve static files if directory specified (SPA mode)
	if cfg.Server.StaticDir != "" {
		log.Info().Str("dir", cfg.Server.StaticDir).Msg("Serving static files")
		mux.Handle("/", spaHandler(cfg.Server.StaticDir))
	}

	// Initial load and prefetch
	go func() {
		if _, err := refresher.RunOnce(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial catalog load failed")
		}
	}()

	if err := refresher.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start catalog refresh")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      rest.CORS(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		refresher.Stop(shutdownCtx)
		dispatcher.Close()
		cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	<-dispatcherDone
	thumbnails.DisposeAll()

	log.Info().Msg("Server stopped")
}

// applyFlags overrides cfg with any command line values that were set.
func applyFlags(cfg *config.Config, port, catalogURL, catalogFile, staticDir string, debug bool) {
	if port != "" {
		cfg.Server.Port = port
	}
	if catalogURL != "" {
		cfg.Catalog.URL = catalogURL
	}
	if catalogFile != "" {
		cfg.Catalog.File = catalogFile
	}
	if staticDir != "" {
		cfg.Server.StaticDir = staticDir
	}
	if debug {
		cfg.Log.Debug = true
	}
}

// buildSources returns the configured catalog sources in the order Reload
// should try them.
func buildSources(cc config.CatalogConfig) []catalog.Source {
	var local, remote []catalog.Source
	if cc.File != "" {
		local = append(local, catalog.LocalFile{Path: cc.File})
	}
	if cc.URL != "" {
		remote = append(remote, catalog.RemoteURL{URL: cc.URL})
	}
	if cc.PreferLocal {
		return append(local, remote...)
	}
	return append(remote, local...)
}

// spaHandler serves files from dir and falls back to index.html for paths
// that do not exist, so client-side routes resolve.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if r.URL.Path == "/" {
			path = index
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, index)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
