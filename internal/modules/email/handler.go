// Package email relays transactional mail composed by the web client.
package email

import (
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/foodrient/foodrient-backend/internal/platform/config"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
	"github.com/foodrient/foodrient-backend/internal/platform/mailer"
	"github.com/foodrient/foodrient-backend/internal/platform/metrics"
)

const maxBodyBytes = 1 << 20

// Request is the relay payload. To may hold several comma separated
// addresses.
type Request struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Handler relays mail from an allow-listed sender.
type Handler struct {
	sender  mailer.Sender
	allowed []string
	limiter *rate.Limiter
	metrics metrics.Recorder
}

// NewHandler limits the relay to cfg.RatePerMinute messages with bursts of
// the same size. A non-positive rate disables the limit.
func NewHandler(sender mailer.Sender, cfg config.EmailConfig, m metrics.Recorder) *Handler {
	limit := rate.Inf
	burst := 0
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
		burst = cfg.RatePerMinute
	}
	if m == nil {
		m = metrics.Nop
	}
	return &Handler{sender: sender, allowed: cfg.AllowedSenders, limiter: rate.NewLimiter(limit, burst), metrics: m}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/api/v1/email/send", h.send) // POST /api/v1/email/send
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		io.WriteString(w, "Method Not Allowed")
		return
	}
	if !h.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		httpx.Respond(w, http.StatusTooManyRequests, map[string]string{"error": "Too many requests"})
		return
	}

	var req Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil ||
		strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.HTML) == "" {
		httpx.Respond(w, http.StatusBadRequest, map[string]string{"error": "Missing required fields"})
		return
	}
	// Senders must match an allow-listed address exactly.
	if !slices.Contains(h.allowed, req.From) {
		httpx.Respond(w, http.StatusForbidden, map[string]string{"error": "Unauthorized sender email"})
		return
	}

	msg := mailer.Message{From: req.From, To: recipients(req.To), Subject: req.Subject, HTML: req.HTML}
	if err := h.sender.Send(r.Context(), msg); err != nil {
		logger.FromContext(r.Context()).Error("relay email", zap.Strings("to", msg.To), zap.Error(err))
		h.metrics.EmailSent(false)
		httpx.Respond(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send email"})
		return
	}
	h.metrics.EmailSent(true)
	httpx.Respond(w, http.StatusOK, map[string]string{"message": "Email sent successfully"})
}

func recipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
