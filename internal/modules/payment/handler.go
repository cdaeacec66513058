package payment

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

// maxWebhookBytes bounds a provider delivery.
const maxWebhookBytes = 1 << 20

// SignatureHeader carries the webhook HMAC.
const SignatureHeader = "x-paystack-signature"

// Handler exposes payment HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r chi.Router, authn func(http.Handler) http.Handler) {
	r.Route("/api/v1/payments", func(r chi.Router) {
		// Provider-signed, no session.
		r.Post("/webhook", h.webhook) // POST /api/v1/payments/webhook

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/initialize", h.initialize)    // POST /api/v1/payments/initialize
			r.Get("/verify/{reference}", h.verify) // GET  /api/v1/payments/verify/{reference}
		})
	})
}

func (h *Handler) initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	id, _ := authz.IdentityFrom(r.Context())
	c, err := h.service.Initialize(r.Context(), id.UserID, req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusCreated, c)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	id, _ := authz.IdentityFrom(r.Context())
	tx, err := h.service.Verify(r.Context(), id, chi.URLParam(r, "reference"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, tx)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httpx.Error(w, r, apperr.Invalid("webhook body too large"))
		return
	}
	if err := h.service.HandleWebhook(r.Context(), r.Header.Get(SignatureHeader), body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
