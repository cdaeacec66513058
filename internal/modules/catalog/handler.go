package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

type imageRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.browse)
		r.Get("/{id}", h.getProduct)
		r.Get("/{id}/delivery-options", h.deliveryOptions)

		r.Group(func(r chi.Router) {
			r.Use(authn, authz.Require(authz.RoleVendor))
			r.Get("/mine", h.listMine)
			r.Post("/", h.createProduct)
			r.Post("/uploads", h.presignImage)
			r.Patch("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
		})
	})
}

func (h *Handler) browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httpx.PageFrom(r)
	f := Filter{
		Search:   q.Get("q"),
		State:    q.Get("state"),
		City:     q.Get("city"),
		Category: q.Get("category"),
		Sort:     Sort(strings.ToLower(q.Get("sort"))),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if raw := q.Get("vendor_id"); raw != "" {
		id, err := httpx.ParseID(raw, "vendor id")
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		f.VendorID = &id
	}
	products, err := h.service.Browse(r.Context(), f)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) deliveryOptions(w http.ResponseWriter, r *http.Request) {
	to := delivery.Destination{Address: r.URL.Query().Get("address")}
	if p, ok := geo.PointOf(httpx.OptionalFloat(r, "lat"), httpx.OptionalFloat(r, "lng")); ok {
		to.Location = &p
	}
	choices, err := h.service.DeliveryOptions(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, choices)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	products, err := h.service.ListMine(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, products)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	p, err := h.service.CreateProduct(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, p)
}

func (h *Handler) presignImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	up, err := h.service.PresignImage(r.Context(), id.UserID, req.ContentType)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, up)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	p, err := h.service.UpdateProduct(r.Context(), id, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	if err := h.service.DeleteProduct(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
