// Package rest exposes the catalog and thumbnails over plain HTTP.
package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videohub/internal/domain/catalog"
	"github.com/edumarques81/stellar-videohub/internal/domain/selection"
	"github.com/edumarques81/stellar-videohub/internal/domain/thumbnail"
	"github.com/edumarques81/stellar-videohub/internal/version"
)

// Handler serves the REST API.
type Handler struct {
	catalog    *catalog.Service
	thumbnails *thumbnail.Cache
	history    selection.HistoryStore
	extras     map[string]func() any
}

// Option configures a Handler.
type Option func(*Handler)

// WithHistory enables /api/v1/history.
func WithHistory(h selection.HistoryStore) Option {
	return func(hd *Handler) {
		hd.history = h
	}
}

// WithHealthDetail adds a named section to the /health response.
func WithHealthDetail(name string, fn func() any) Option {
	return func(hd *Handler) {
		hd.extras[name] = fn
	}
}

// NewHandler creates the API handler.
func NewHandler(catalogService *catalog.Service, thumbnails *thumbnail.Cache, opts ...Option) *Handler {
	h := &Handler{
		catalog:    catalogService,
		thumbnails: thumbnails,
		extras:     make(map[string]func() any),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/api/v1/version", h.version)
	mux.HandleFunc("/api/v1/catalog", h.getCatalog)
	mux.HandleFunc("/api/v1/channels", h.getChannels)
	mux.HandleFunc("/api/v1/videos", h.getVideos)
	mux.HandleFunc("/api/v1/thumbnail", h.getThumbnail)
	mux.HandleFunc("/api/v1/history", h.getHistory)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	st := h.catalog.Status()
	body := map[string]any{
		"status":  "ok",
		"catalog": st,
	}
	if h.thumbnails != nil {
		body["thumbnails"] = h.thumbnails.Stats()
	}
	for name, fn := range h.extras {
		body[name] = fn()
	}

	if !st.Loaded {
		body["status"] = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.GetInfo())
}

func (h *Handler) getCatalog(w http.ResponseWriter, r *http.Request) {
	c := h.catalog.Current()
	if c == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

func (h *Handler) getChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Summaries(h.catalog.Channels()))
}

func (h *Handler) getVideos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	videos := h.catalog.FindVideos(q.Get("channel"), q.Get("category"))
	writeJSON(w, http.StatusOK, catalog.ViewVideos(videos))
}

func (h *Handler) getThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.thumbnails == nil {
		writeError(w, http.StatusServiceUnavailable, "thumbnails unavailable")
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref parameter required")
		return
	}
	// Only refs named by the loaded catalog are resolved
	if !h.catalog.HasThumbnailRef(ref) {
		writeError(w, http.StatusNotFound, "unknown thumbnail ref")
		return
	}
	size := thumbnail.ParseSize(strings.ToLower(r.URL.Query().Get("size")))

	img, err := h.thumbnails.Resolve(r.Context(), ref)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, thumbnail.ErrDecodeFailure) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := img.EncodeJPEG(&buf, size); err != nil {
		log.Error().Err(err).Str("ref", ref).Msg("Failed to encode thumbnail")
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(buf.Bytes())
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	entries := []selection.HistoryEntry{}
	if h.history != nil {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		recent, err := h.history.Recent(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		entries = recent
	}
	writeJSON(w, http.StatusOK, entries)
}
