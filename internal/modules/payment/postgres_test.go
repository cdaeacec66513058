package payment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

var txCols = []string{"id", "reference", "order_id", "group_order_id", "user_id", "vendor_id", "amount",
	"currency", "subaccount_code", "status", "provider_status", "authorization_url", "raw_webhook",
	"created_at", "updated_at"}

func TestPostgres_GetByReferenceScansNullableColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	id, groupOrderID := uuid.New(), uuid.New()
	now := time.Now()
	mock.ExpectQuery("FROM payment_transactions WHERE reference").WithArgs("FDR-1").
		WillReturnRows(sqlmock.NewRows(txCols).AddRow(id.String(), "FDR-1", nil, groupOrderID.String(),
			uuid.NewString(), uuid.NewString(), "90000.50", "NGN", "", "success", "success", "https://x",
			[]byte(`{"event":"charge.success"}`), now, now))

	tx, err := repo.GetByReference(t.Context(), "FDR-1")
	require.NoError(t, err)
	assert.Nil(t, tx.OrderID)
	assert.Equal(t, groupOrderID, *tx.GroupOrderID)
	assert.Equal(t, StatusSuccess, tx.Status)
	assert.True(t, decimal.RequireFromString("90000.5").Equal(tx.Amount))
	assert.JSONEq(t, `{"event":"charge.success"}`, string(tx.RawWebhook))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetByReferenceMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery("FROM payment_transactions").WillReturnRows(sqlmock.NewRows(txCols))

	_, err = repo.GetByReference(t.Context(), "FDR-0")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgres_CreateDuplicateReference(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("INSERT INTO payment_transactions").WillReturnError(&pq.Error{Code: "23505"})

	err = repo.Create(t.Context(), &Transaction{ID: uuid.New(), Reference: "FDR-1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestPostgres_UpdateStatusKeepsWebhookWhenAbsent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("UPDATE payment_transactions").
		WithArgs(StatusAbandoned, "abandoned", nil, sqlmock.AnyArg(), "FDR-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payment_transactions").
		WithArgs(StatusSuccess, "success", []byte(`{"a":1}`), sqlmock.AnyArg(), "FDR-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payment_transactions").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateStatus(t.Context(), "FDR-1", StatusAbandoned, "abandoned", nil))
	require.NoError(t, repo.UpdateStatus(t.Context(), "FDR-1", StatusSuccess, "success", json.RawMessage(`{"a":1}`)))
	assert.ErrorIs(t, repo.UpdateStatus(t.Context(), "FDR-2", StatusFailed, "failed", nil), apperr.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
