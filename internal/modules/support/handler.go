package support

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// Handler exposes support staff HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/support", func(r chi.Router) {
		r.Use(authn, authz.Require(authz.RoleSupport))
		r.Get("/profile", h.profile)       // GET /api/v1/support/profile
		r.Get("/bank-details", h.getBank)  // GET /api/v1/support/bank-details
		r.Put("/bank-details", h.saveBank) // PUT /api/v1/support/bank-details
		r.Get("/stats", h.myStats)         // GET /api/v1/support/stats?month=YYYY-MM
	})

	r.Group(func(r chi.Router) {
		r.Use(authn, authz.Require(authz.RoleAdmin))
		r.Get("/api/v1/admin/support/assignments", h.listAssignments)        // GET    ?support_id=
		r.Post("/api/v1/admin/support/assignments", h.assign)                // POST
		r.Delete("/api/v1/admin/support/assignments/{vendorID}", h.unassign) // DELETE
		r.Get("/api/v1/admin/support/overview", h.overview)                  // GET    ?month=YYYY-MM
		r.Get("/api/v1/admin/support/commissions.csv", h.export)             // GET    ?month=YYYY-MM
		r.Get("/api/v1/admin/support/{id}/stats", h.stats)                   // GET    ?month=YYYY-MM
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	p, err := h.service.Profile(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, p)
}

func (h *Handler) getBank(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	b, err := h.service.GetBankDetails(r.Context(), id.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, b)
}

func (h *Handler) saveBank(w http.ResponseWriter, r *http.Request) {
	var req BankDetailsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	b, err := h.service.SaveBankDetails(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, b)
}

func (h *Handler) myStats(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	st, err := h.service.MonthlyStats(r.Context(), id.UserID, r.URL.Query().Get("month"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	supportID, err := httpx.ParseID(chi.URLParam(r, "id"), "support id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	st, err := h.service.MonthlyStats(r.Context(), supportID, r.URL.Query().Get("month"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, st)
}

func (h *Handler) listAssignments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListAssignments(r.Context(), r.URL.Query().Get("support_id"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, out)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	a, err := h.service.Assign(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, a)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unassign(r.Context(), chi.URLParam(r, "vendorID")); err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.service.Overview(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, ov)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.service.ExportCommissions(r.Context(), r.URL.Query().Get("month"), &buf)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
