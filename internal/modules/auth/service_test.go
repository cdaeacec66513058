package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/mailer"
)

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *mockUsers) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	return m.Called(ctx, id, password).Error(0)
}

type memTokens struct {
	saved map[string]uuid.UUID
	ttl   time.Duration
}

func (m *memTokens) Save(_ context.Context, token string, id uuid.UUID, ttl time.Duration) error {
	m.saved[token] = id
	m.ttl = ttl
	return nil
}

func (m *memTokens) Consume(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := m.saved[token]
	if !ok {
		return uuid.Nil, apperr.Invalid("reset link is invalid or has expired")
	}
	delete(m.saved, token)
	return id, nil
}

type outbox struct{ sent []mailer.Message }

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.sent = append(o.sent, msg)
	return nil
}

func newTestService(t *testing.T) (*service, *mockUsers, *memTokens, *outbox) {
	t.Helper()
	tpl, err := mailer.NewTemplates("https://foodrient.com")
	require.NoError(t, err)
	users := &mockUsers{}
	tokens := &memTokens{saved: map[string]uuid.UUID{}}
	box := &outbox{}
	svc := NewService(users, authz.NewIssuer("secret", time.Hour), tokens, box, tpl).(*service)
	return svc, users, tokens, box
}

func TestLogin(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	u := &user.User{ID: uuid.New(), Email: "a@b.com", Role: authz.RoleVendor}
	users.On("Authenticate", mock.Anything, "a@b.com", "password1").Return(u, nil)
	users.On("Authenticate", mock.Anything, "a@b.com", "bad").Return(nil, apperr.Unauthorized("invalid credentials"))

	sess, err := svc.Login(t.Context(), LoginRequest{Email: "a@b.com", Password: "password1"})
	require.NoError(t, err)
	id, err := svc.issuer.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
	assert.Equal(t, authz.RoleVendor, id.Role)

	_, err = svc.Login(t.Context(), LoginRequest{Email: "a@b.com", Password: "bad"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, users, tokens, box := newTestService(t)
	u := &user.User{ID: uuid.New(), Email: "a@b.com"}
	users.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	users.On("GetByEmail", mock.Anything, "ghost@b.com").Return(nil, apperr.NotFound("user not found"))
	users.On("SetPassword", mock.Anything, u.ID, "new-password").Return(nil)

	require.NoError(t, svc.RequestPasswordReset(t.Context(), "ghost@b.com"))
	assert.Empty(t, box.sent)

	require.NoError(t, svc.RequestPasswordReset(t.Context(), "a@b.com"))
	require.Len(t, box.sent, 1)
	require.Len(t, tokens.saved, 1)
	assert.Equal(t, 30*time.Minute, tokens.ttl)

	var token string
	for k := range tokens.saved {
		token = k
	}
	assert.Contains(t, box.sent[0].HTML, "/auth/reset?token="+token)

	require.NoError(t, svc.ResetPassword(t.Context(), ResetPasswordRequest{Token: token, NewPassword: "new-password"}))
	users.AssertCalled(t, "SetPassword", mock.Anything, u.ID, "new-password")

	err := svc.ResetPassword(t.Context(), ResetPasswordRequest{Token: token, NewPassword: "new-password"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestHandler_ForgotAlwaysAccepted(t *testing.T) {
	svc, users, _, _ := newTestService(t)
	users.On("GetByEmail", mock.Anything, "ghost@b.com").Return(nil, apperr.NotFound("user not found"))

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/password/forgot", strings.NewReader(`{"email":"ghost@b.com"}`)))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
