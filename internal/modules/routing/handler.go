package routing

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Handler exposes delivery route HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/routes", func(r chi.Router) {
		r.Use(authn, authz.Require(authz.RoleVendor))
		r.Post("/", h.createRoute)              // POST /api/v1/routes
		r.Get("/", h.listRoutes)                // GET /api/v1/routes?date=YYYY-MM-DD
		r.Get("/{id}", h.getRoute)              // GET /api/v1/routes/{id}
		r.Patch("/{id}/status", h.updateStatus) // PATCH /api/v1/routes/{id}/status
		r.Post("/{id}/optimize", h.optimize)    // POST /api/v1/routes/{id}/optimize

		// Stops
		r.Post("/{id}/stops", h.addStop)                        // POST /api/v1/routes/{id}/stops
		r.Delete("/{id}/stops/{stopID}", h.removeStop)          // DELETE /api/v1/routes/{id}/stops/{stopID}
		r.Post("/{id}/stops/{stopID}/arrival", h.recordArrival) // POST /api/v1/routes/{id}/stops/{stopID}/arrival
	})
}

func (h *Handler) createRoute(w http.ResponseWriter, r *http.Request) {
	var req CreateRouteRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	rt, err := h.service.CreateRoute(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, rt)
}

func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	routes, err := h.service.ListRoutes(r.Context(), id.UserID, r.URL.Query().Get("date"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, routes)
}

func (h *Handler) getRoute(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	rt, err := h.service.GetRoute(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rt)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	rt, err := h.service.UpdateStatus(r.Context(), id.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rt)
}

func (h *Handler) optimize(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	rt, err := h.service.Optimize(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rt)
}

func (h *Handler) addStop(w http.ResponseWriter, r *http.Request) {
	var req AddStopRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	stop, err := h.service.AddStop(r.Context(), id.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, stop)
}

func (h *Handler) removeStop(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	if err := h.service.RemoveStop(r.Context(), id.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "stopID")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordArrival(w http.ResponseWriter, r *http.Request) {
	var req ArrivalRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	rt, err := h.service.RecordArrival(r.Context(), id.UserID, chi.URLParam(r, "id"), chi.URLParam(r, "stopID"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, rt)
}
