package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Handler exposes cart HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", h.get)                               // GET    /api/v1/cart
		r.Delete("/", h.clear)                          // DELETE /api/v1/cart
		r.Post("/items", h.addItem)                     // POST   /api/v1/cart/items
		r.Patch("/items/{productID}", h.updateQuantity) // PATCH  /api/v1/cart/items/{productID}
		r.Delete("/items/{productID}", h.remove)        // DELETE /api/v1/cart/items/{productID}
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	c, err := h.service.Get(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	if err := h.service.Clear(r.Context(), id.UserID); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	c, err := h.service.AddItem(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	c, err := h.service.UpdateQuantity(r.Context(), id.UserID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	c, err := h.service.Remove(r.Context(), id.UserID, chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, c)
}
