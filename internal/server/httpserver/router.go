// Package httpserver exposes the bot over HTTP: the chat websocket, health,
// metrics and the device ingestion endpoints used by the camera app.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Uploads hands out presigned upload URLs. *blob.S3Store implements it.
type Uploads interface {
	PresignPut(ctx context.Context, userID string) (key, url string, err error)
	Ref(key string) string
}

// Images records uploaded images. records.Store implements it.
type Images interface {
	AppendImage(ctx context.Context, userID, ref, timestamp string) error
}

type Deps struct {
	Chat     http.Handler
	Uploads  Uploads
	Images   Images
	Gatherer prometheus.Gatherer
	// Ready reports whether the record store is attached.
	Ready  func() bool
	Logger logging.Logger
}

type ImageRequest struct {
	Ref       string `json:"ref,omitempty"`
	Key       string `json:"key,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

type UploadResponse struct {
	Key string `json:"key"`
	Ref string `json:"ref"`
	URL string `json:"url"`
}

// now is a test seam.
var now = time.Now

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter wires the routes. Routes whose dependency is nil are omitted.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	h := &handlers{deps: d, logger: d.Logger.With("module", "http")}

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if d.Chat != nil {
		r.Handle("/api/conversations", d.Chat).Methods(http.MethodGet)
	}

	devices := r.PathPrefix("/api/devices/{uuid:[A-Za-z0-9]+}").Subrouter()
	if d.Uploads != nil {
		devices.HandleFunc("/uploads", h.presignUpload).Methods(http.MethodPost)
	}
	if d.Images != nil {
		devices.HandleFunc("/images", h.recordImage).Methods(http.MethodPost)
	}

	// preflight requests for any path; corsMiddleware answers them
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	return r
}

type handlers struct {
	deps   Deps
	logger logging.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil && !h.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) presignUpload(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["uuid"]

	key, url, err := h.deps.Uploads.PresignPut(r.Context(), userID)
	if err != nil {
		h.logger.Error(r.Context(), "presign failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "could not create upload url")
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Key: key, Ref: h.deps.Uploads.Ref(key), URL: url})
}

func (h *handlers) recordImage(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["uuid"]

	var req ImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	ref := req.Ref
	if ref == "" && req.Key != "" && h.deps.Uploads != nil {
		ref = h.deps.Uploads.Ref(req.Key)
	}
	if ref == "" {
		writeError(w, http.StatusBadRequest, "ref or key is required")
		return
	}

	ts := req.Timestamp
	if ts == "" {
		ts = now().UTC().Format(time.RFC3339)
	}

	if err := h.deps.Images.AppendImage(r.Context(), userID, ref, ts); err != nil {
		h.logger.Error(r.Context(), "append image failed", "user_id", userID, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrSubscriptionUnavailable) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "could not record image")
		return
	}

	h.logger.Info(r.Context(), "image recorded", "user_id", userID, "ref", ref)
	writeJSON(w, http.StatusCreated, map[string]string{"ref": ref, "timestamp": ts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
