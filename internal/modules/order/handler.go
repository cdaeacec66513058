package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// maxUploadBytes bounds bulk order CSV uploads.
const maxUploadBytes = 5 << 20

// Handler exposes order HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(authn)
		r.Post("/", h.checkout)                // POST  /api/v1/orders
		r.Get("/", h.listMine)                 // GET   /api/v1/orders
		r.Post("/bulk/preview", h.previewBulk) // POST  /api/v1/orders/bulk/preview (multipart)
		r.Post("/bulk", h.placeBulk)           // POST  /api/v1/orders/bulk
		r.Get("/{id}", h.getOrder)             // GET   /api/v1/orders/{id}

		r.Group(func(r chi.Router) {
			r.Use(authz.Require(authz.RoleVendor))
			r.Get("/vendor", h.listForVendor)       // GET   /api/v1/orders/vendor?status=
			r.Patch("/{id}/status", h.updateStatus) // PATCH /api/v1/orders/{id}/status
		})

		r.With(authz.Require(authz.RoleSupport)).Get("/monitor", h.monitor) // GET /api/v1/orders/monitor?date=&view=day|week&status=
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	o, err := h.service.Checkout(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, o)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	orders, err := h.service.ListMine(r.Context(), id.UserID, httpx.PageFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	o, err := h.service.Get(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) listForVendor(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	orders, err := h.service.ListForVendor(r.Context(), id.UserID, r.URL.Query().Get("status"), httpx.PageFrom(r))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, orders)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	o, err := h.service.UpdateStatus(r.Context(), id, chi.URLParam(r, "id"), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, o)
}

func (h *Handler) monitor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	m, err := h.service.Monitor(r.Context(), MonitorQuery{
		Date:   q.Get("date"),
		View:   View(q.Get("view")),
		Status: q.Get("status"),
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, m)
}

func (h *Handler) previewBulk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Error(w, r, apperr.Invalid("upload must be a multipart form under 5MB"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, r, apperr.Invalid("file is required"))
		return
	}
	defer file.Close()

	expected, err := strconv.Atoi(r.FormValue("expected_recipients"))
	if err != nil {
		httpx.Error(w, r, apperr.Invalid("expected_recipients must be a number"))
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	p, err := h.service.PreviewBulk(r.Context(), id.UserID, header.Filename, file, expected)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) placeBulk(w http.ResponseWriter, r *http.Request) {
	var req PlaceBulkRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	res, err := h.service.PlaceBulk(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, res)
}
