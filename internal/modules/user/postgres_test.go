package user

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

var userCols = []string{"id", "email", "password_hash", "full_name", "phone", "address", "state", "city",
	"latitude", "longitude", "avatar_url", "role", "created_at", "updated_at"}

func TestPostgres_GetByEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(id.String(), "ada@example.com", "hash", "Ada", "", "", "Lagos", "Ikeja", 6.6, 3.3, "", "vendor", now, now))

	u, err := repo.GetByEmail(t.Context(), "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, authz.RoleVendor, u.Role)
	require.NotNil(t, u.Latitude)
	assert.Equal(t, 6.6, *u.Latitude)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))
	_, err = repo.GetByEmail(t.Context(), "ghost@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})

	err = repo.Create(t.Context(), &User{ID: uuid.New(), Email: "a@b.com", Role: authz.RoleCustomer})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "an account with this email already exists", apperr.MessageOf(err))
}

func TestPostgres_ListFiltersByRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs(authz.RoleSupport, 10, 20).
		WillReturnRows(sqlmock.NewRows(userCols))

	users, err := repo.List(t.Context(), authz.RoleSupport, httpx.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SetRoleMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE users SET role").WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.SetRole(t.Context(), uuid.New(), authz.RoleAdmin)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
