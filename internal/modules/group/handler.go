package group

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

// Handler exposes group buying HTTP endpoints.
type Handler struct {
	service Service
	stream  Streamer
}

func NewHandler(service Service, stream Streamer) *Handler {
	return &Handler{service: service, stream: stream}
}

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/groups", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", h.create)                                  // POST /api/v1/groups
		r.Get("/", h.listMine)                                 // GET /api/v1/groups
		r.Get("/nearby", h.nearby)                             // GET /api/v1/groups/nearby?product_id=&state=&city=&lat=&lng=
		r.Get("/invites", h.listInvites)                       // GET /api/v1/groups/invites
		r.Post("/invites/{inviteID}/respond", h.respondInvite) // POST /api/v1/groups/invites/{inviteID}/respond

		r.Get("/{id}", h.get)                              // GET /api/v1/groups/{id}
		r.Post("/{id}/join", h.join)                       // POST /api/v1/groups/{id}/join
		r.Post("/{id}/leave", h.leave)                     // POST /api/v1/groups/{id}/leave
		r.Post("/{id}/cancel", h.cancel)                   // POST /api/v1/groups/{id}/cancel
		r.Delete("/{id}/members/{userID}", h.removeMember) // DELETE /api/v1/groups/{id}/members/{userID}
		r.Post("/{id}/invites", h.invite)                  // POST /api/v1/groups/{id}/invites

		r.Get("/{id}/messages", h.listMessages) // GET /api/v1/groups/{id}/messages
		r.Post("/{id}/messages", h.postMessage) // POST /api/v1/groups/{id}/messages
		r.Get("/{id}/stream", h.streamMessages) // GET /api/v1/groups/{id}/stream (websocket)

		r.Get("/{id}/orders", h.listOrders)  // GET /api/v1/groups/{id}/orders
		r.Post("/{id}/orders", h.placeOrder) // POST /api/v1/groups/{id}/orders
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.Create(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, g)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	groups, err := h.service.ListMine(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, groups)
}

func (h *Handler) nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groups, err := h.service.FindNearby(r.Context(), NearbyQuery{
		ProductID: q.Get("product_id"),
		State:     q.Get("state"),
		City:      q.Get("city"),
		Latitude:  httpx.OptionalFloat(r, "lat"),
		Longitude: httpx.OptionalFloat(r, "lng"),
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, groups)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.Join(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.Leave(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.Cancel(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	g, err := h.service.RemoveMember(r.Context(), id, chi.URLParam(r, "id"), chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, g)
}

func (h *Handler) invite(w http.ResponseWriter, r *http.Request) {
	var req InviteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	inv, err := h.service.Invite(r.Context(), id.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, inv)
}

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	invites, err := h.service.ListMyInvites(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, invites)
}

func (h *Handler) respondInvite(w http.ResponseWriter, r *http.Request) {
	var req RespondRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	inv, err := h.service.RespondInvite(r.Context(), id.UserID, chi.URLParam(r, "inviteID"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, inv)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	messages, err := h.service.ListMessages(r.Context(), id, chi.URLParam(r, "id"), httpx.PageFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, messages)
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	m, err := h.service.PostMessage(r.Context(), id.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, m)
}

func (h *Handler) streamMessages(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	gid, err := h.service.Discussion(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.stream.Serve(w, r, Topic(gid)); err != nil {
		logger.FromContext(r.Context()).Debug("group stream closed",
			zap.String("group_id", gid.String()), zap.Error(err))
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	orders, err := h.service.ListOrders(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	o, err := h.service.PlaceOrder(r.Context(), id.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, o)
}
