package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuer_RoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	userID := uuid.New()

	token, exp, err := iss.Issue(userID, RoleVendor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, userID, id.UserID)
	assert.Equal(t, RoleVendor, id.Role)
}

func TestIssuer_RejectsForeignAndExpiredTokens(t *testing.T) {
	token, _, err := NewIssuer("other", time.Hour).Issue(uuid.New(), RoleCustomer)
	require.NoError(t, err)

	_, err = NewIssuer("secret", time.Hour).Parse(token)
	assert.Error(t, err)

	expired := NewIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err = expired.Issue(uuid.New(), RoleCustomer)
	require.NoError(t, err)
	_, err = expired.Parse(token)
	assert.Error(t, err)
}

func TestIdentity_Is(t *testing.T) {
	assert.True(t, Identity{Role: RoleAdmin}.Is(RoleVendor))
	assert.True(t, Identity{Role: RoleSupport}.Is(RoleVendor, RoleSupport))
	assert.False(t, Identity{Role: RoleCustomer}.Is(RoleVendor))
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, found := IdentityFrom(r.Context())
		require.True(t, found)
		w.Header().Set("X-User", id.UserID.String())
		w.WriteHeader(http.StatusNoContent)
	})
	vendorOnly := iss.Authenticate(Require(RoleVendor)(ok))

	userID := uuid.New()
	vendorToken, _, _ := iss.Issue(userID, RoleVendor)
	customerToken, _, _ := iss.Issue(uuid.New(), RoleCustomer)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + customerToken, http.StatusForbidden},
		{"vendor", "Bearer " + vendorToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			vendorOnly.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("query token only for websocket upgrades", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?access_token="+vendorToken, nil)
		rec := httptest.NewRecorder()
		vendorOnly.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		req.Header.Set("Upgrade", "websocket")
		rec = httptest.NewRecorder()
		vendorOnly.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, userID.String(), rec.Header().Get("X-User"))
	})
}
