package notification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// Streamer serves websocket subscriptions.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, topics ...string) error
}

// Handler exposes notification HTTP endpoints.
type Handler struct {
	service Service
	stream  Streamer
}

func NewHandler(service Service, stream Streamer) *Handler {
	return &Handler{service: service, stream: stream}
}

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.list)                 // GET   /api/v1/notifications?unread=true
		r.Get("/unread-count", h.unread)   // GET   /api/v1/notifications/unread-count
		r.Get("/stream", h.streamEvents)   // GET   /api/v1/notifications/stream (websocket)
		r.Post("/read-all", h.markAllRead) // POST  /api/v1/notifications/read-all
		r.Patch("/{id}/read", h.markRead)  // PATCH /api/v1/notifications/{id}/read
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"
	list, err := h.service.ListMine(r.Context(), id.UserID, unreadOnly, httpx.PageFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, list)
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	n, err := h.service.UnreadCount(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]int{"unread": n})
}

func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	if err := h.stream.Serve(w, r, UserTopic(id.UserID)); err != nil {
		logger.FromContext(r.Context()).Debug("notification stream closed", zap.Error(err))
	}
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	n, err := h.service.MarkAllRead(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	if err := h.service.MarkRead(r.Context(), id.UserID, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
