package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type published struct {
	topic, typ string
	data       any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(topic, typ string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{topic, typ, data})
}

func TestNotify_StoresAndPublishes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pub := &recorder{}
	svc := NewService(NewPostgresRepository(db), pub)
	user := uuid.New()
	created := time.Now()

	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(sqlmock.AnyArg(), user, "Order confirmed", "Your payment was received", TypeOrderUpdate, []byte(`{"order_id":"o1"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	n, err := svc.Notify(t.Context(), user, TypeOrderUpdate, "Order confirmed", "Your payment was received", map[string]string{"order_id": "o1"})
	require.NoError(t, err)
	assert.Equal(t, created, n.CreatedAt)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "user:"+user.String(), pub.events[0].topic)
	assert.Equal(t, EventNotification, pub.events[0].typ)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRead_OtherUsersNotification(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc := NewService(NewPostgresRepository(db), &recorder{})

	mock.ExpectExec("UPDATE notifications SET read = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	err = svc.MarkRead(t.Context(), uuid.New(), uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	err = svc.MarkRead(t.Context(), uuid.New(), "abc")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

type stubService struct {
	Service
	unreadOnly bool
	page       httpx.Page
}

func (s *stubService) ListMine(_ context.Context, _ uuid.UUID, unreadOnly bool, page httpx.Page) ([]*Notification, error) {
	s.unreadOnly, s.page = unreadOnly, page
	return []*Notification{{Title: "hi"}}, nil
}

func TestHandler_List(t *testing.T) {
	svc := &stubService{}
	r := chi.NewRouter()
	authn := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), authz.Identity{UserID: uuid.New(), Role: authz.RoleCustomer})))
		})
	}
	NewHandler(svc, nil).RegisterRoutes(r, authn)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.unreadOnly)
	assert.Equal(t, 5, svc.page.Limit)

	var got []Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "hi", got[0].Title)
}
