package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/config"
)

func newPaystack(t *testing.T, h http.HandlerFunc) *Paystack {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewPaystack(config.PaystackConfig{SecretKey: "sk_test_123", BaseURL: srv.URL})
}

func TestPaystack_Initialize(t *testing.T) {
	var got map[string]any
	p := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"status":true,"message":"Authorization URL created",
			"data":{"authorization_url":"https://checkout.paystack.com/abc","access_code":"abc","reference":"FDR-1"}}`)
	})

	resp, err := p.Initialize(t.Context(), InitRequest{
		Email: "ada@example.com", AmountKobo: Kobo(decimal.RequireFromString("45000.50")),
		Currency: Currency, Reference: "FDR-1", Subaccount: "ACCT_x1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc", resp.AuthorizationURL)
	assert.Equal(t, "abc", resp.AccessCode)

	assert.EqualValues(t, 4500050, got["amount"])
	assert.Equal(t, "ACCT_x1", got["subaccount"])
	assert.Equal(t, "NGN", got["currency"])
	assert.NotContains(t, got, "callback_url")
}

func TestPaystack_VerifyEscapesReference(t *testing.T) {
	p := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/FDR-2", r.URL.Path)
		io.WriteString(w, `{"status":true,"message":"ok","data":{"reference":"FDR-2","status":"abandoned","amount":100}}`)
	})

	resp, err := p.Verify(t.Context(), "FDR-2")
	require.NoError(t, err)
	assert.Equal(t, "abandoned", resp.Status)
	assert.Equal(t, StatusAbandoned, StatusOf(resp.Status))
}

func TestPaystack_ProviderErrorCarriesMessage(t *testing.T) {
	p := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"status":false,"message":"Invalid key"}`)
	})

	_, err := p.Verify(t.Context(), "FDR-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid key")
	assert.Contains(t, err.Error(), "400")
}

func TestPaystack_CreateSubaccount(t *testing.T) {
	var got map[string]any
	p := newPaystack(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subaccount", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"status":true,"message":"Subaccount created","data":{"subaccount_code":"ACCT_9z"}}`)
	})

	code, err := p.CreateSubaccount(t.Context(), "Ikeja Grains", "058", "0123456789", "shop@example.com", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "ACCT_9z", code)
	assert.EqualValues(t, 5, got["percentage_charge"])
	assert.Equal(t, "058", got["settlement_bank"])
}

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("sk_test_123"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, ValidSignature("sk_test_123", body, sig))
	assert.False(t, ValidSignature("sk_test_other", body, sig))
	assert.False(t, ValidSignature("sk_test_123", []byte(`{"event":"charge.failed"}`), sig))
	assert.False(t, ValidSignature("sk_test_123", body, "not-hex"))
	assert.False(t, ValidSignature("", body, sig))
}

func TestKobo(t *testing.T) {
	assert.EqualValues(t, 13500000, Kobo(decimal.NewFromInt(135000)))
	assert.EqualValues(t, 1999, Kobo(decimal.RequireFromString("19.985")))
}
