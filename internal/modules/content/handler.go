package content

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Handler exposes site content HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/content", func(r chi.Router) {
		r.Get("/", h.list)     // GET /api/v1/content?section=
		r.Get("/{key}", h.get) // GET /api/v1/content/{key}
	})

	r.Group(func(r chi.Router) {
		r.Use(authn, authz.Require(authz.RoleAdmin))
		r.Put("/api/v1/admin/content/{id}", h.update) // PUT /api/v1/admin/content/{id}
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context(), r.URL.Query().Get("section"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.GetByKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	e, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, e)
}
