package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/config"
)

// Gateway is the provider interface the payment service depends on.
type Gateway interface {
	// Initialize opens a hosted checkout and returns where to send the customer.
	Initialize(ctx context.Context, req InitRequest) (*InitResponse, error)
	// Verify queries the provider for the current status of a transaction.
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

// InitRequest is a checkout in provider terms.
type InitRequest struct {
	Email       string            `json:"email"`
	AmountKobo  int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Subaccount  string            `json:"subaccount,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type InitResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type VerifyResponse struct {
	Reference       string `json:"reference"`
	Status          string `json:"status"`
	Amount          int64  `json:"amount"`
	GatewayResponse string `json:"gateway_response"`
}

// ── Paystack ─────────────────────────────────────────────────────────────────
// API docs: https://paystack.com/docs/api/

// Paystack talks to the Paystack REST API. It also creates vendor payout
// subaccounts.
type Paystack struct {
	secret  string
	baseURL string
	client  *http.Client
}

func NewPaystack(cfg config.PaystackConfig) *Paystack {
	return &Paystack{
		secret:  cfg.SecretKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope is the shape of every Paystack response.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (p *Paystack) Initialize(ctx context.Context, req InitRequest) (*InitResponse, error) {
	var out InitResponse
	if err := p.call(ctx, http.MethodPost, "/transaction/initialize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Paystack) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := p.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubaccount registers a vendor's bank account for split payouts.
// percentageCharge is the share of every split payment the platform keeps.
func (p *Paystack) CreateSubaccount(ctx context.Context, businessName, bankCode, accountNumber, email string, percentageCharge decimal.Decimal) (string, error) {
	pct, _ := percentageCharge.Float64()
	body := map[string]any{
		"business_name":         businessName,
		"settlement_bank":       bankCode,
		"account_number":        accountNumber,
		"percentage_charge":     pct,
		"primary_contact_email": email,
	}
	var out struct {
		SubaccountCode string `json:"subaccount_code"`
	}
	if err := p.call(ctx, http.MethodPost, "/subaccount", body, &out); err != nil {
		return "", err
	}
	if out.SubaccountCode == "" {
		return "", fmt.Errorf("paystack: subaccount response without a code")
	}
	return out.SubaccountCode, nil
}

func (p *Paystack) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("paystack: encode %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.secret)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		return fmt.Errorf("paystack: %s %s: status %d: %w", method, path, resp.StatusCode, err)
	}
	if resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("paystack: %s %s: status %d: %s", method, path, resp.StatusCode, env.Message)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("paystack: decode %s: %w", path, err)
	}
	return nil
}

// ValidSignature checks the x-paystack-signature header, the hex HMAC-SHA512
// of the raw body keyed with the secret key.
func ValidSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}
