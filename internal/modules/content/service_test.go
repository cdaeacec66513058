package content

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

type memRepo struct{ entries []*Entry }

func (m *memRepo) List(_ context.Context, section string) ([]*Entry, error) {
	out := []*Entry{}
	for _, e := range m.entries {
		if section == "" || e.Section == section {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) GetByKey(_ context.Context, key string) (*Entry, error) {
	for _, e := range m.entries {
		if e.Key == key {
			return e, nil
		}
	}
	return nil, apperr.NotFound("content not found")
}

func (m *memRepo) Update(_ context.Context, id uuid.UUID, value json.RawMessage) (*Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			e.Value = value
			return e, nil
		}
	}
	return nil, apperr.NotFound("content not found")
}

func seeded() *memRepo {
	return &memRepo{entries: []*Entry{
		{ID: uuid.New(), Key: "hero", Section: "home", Value: json.RawMessage(`{"title":"Buy Together, Save Together"}`)},
		{ID: uuid.New(), Key: "how_it_works", Section: "home", Value: json.RawMessage(`{"steps":[]}`)},
		{ID: uuid.New(), Key: "faq", Section: "faq", Value: json.RawMessage(`{"items":[]}`)},
	}}
}

func TestService(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)
	ctx := t.Context()

	home, err := svc.List(ctx, " home ")
	require.NoError(t, err)
	assert.Len(t, home, 2)

	hero, err := svc.GetByKey(ctx, "hero")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Buy Together, Save Together"}`, string(hero.Value))

	_, err = svc.GetByKey(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.GetByKey(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	e, err := svc.Update(ctx, hero.ID.String(), UpdateRequest{Value: json.RawMessage(`{"title":"Eat well for less"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Eat well for less"}`, string(e.Value))

	_, err = svc.Update(ctx, hero.ID.String(), UpdateRequest{Value: json.RawMessage(`{"title":`)})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = svc.Update(ctx, "hero", UpdateRequest{Value: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestHandler_PublicReads(t *testing.T) {
	r := chi.NewRouter()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
	}
	NewHandler(NewService(seeded())).RegisterRoutes(r, deny)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/content/faq", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"section":"faq"`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/admin/content/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostgres_UpdateMissingEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("UPDATE site_content").
		WillReturnRows(sqlmock.NewRows([]string{"id", "key", "section", "value", "created_at", "updated_at"}))

	_, err = NewPostgresRepository(db).Update(t.Context(), uuid.New(), json.RawMessage(`{}`))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
