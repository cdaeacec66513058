package catalog

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
)

var productCols = []string{"id", "vendor_id", "name", "description", "category", "price", "retail_price",
	"unit", "image_url", "is_perishable", "total_slots", "available_slots",
	"purchase_window_end", "state", "city", "created_at", "updated_at",
	"business_name", "logo_url", "is_verified", "address", "latitude", "longitude"}

func TestPostgres_BrowseBuildsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	vendorID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(
		`WHERE p.purchase_window_end >= $1 AND (p.name ILIKE $2 OR p.description ILIKE $2) AND LOWER(p.state) = LOWER($3) AND p.vendor_id = $4 ORDER BY p.price ASC, p.created_at DESC LIMIT $5 OFFSET $6`)).
		WithArgs(now, `%50\%%`, "lagos", vendorID, 20, 40).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(
			uuid.NewString(), vendorID.String(), "Rice", "", "grains", "45000.00", "52000.00",
			"bag", "", false, 20, 7, now.Add(time.Hour), "Lagos", "Ikeja", now, now,
			"Ada Foods", "", true, "1 Market Rd", 6.6, 3.35))

	list, err := repo.Browse(t.Context(), Filter{
		Search: "50%", State: "lagos", VendorID: &vendorID, Sort: SortPriceLow, Limit: 20, Offset: 40,
	}, now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "45000", list[0].Price.String())
	require.NotNil(t, list[0].RetailPrice)
	assert.Equal(t, "52000", list[0].RetailPrice.String())
	assert.NotNil(t, list[0].Vendor.Location())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ReserveSlots(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)
	id := uuid.New()

	mock.ExpectExec("UPDATE products").WithArgs(id, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ReserveSlots(t.Context(), id, 3))

	mock.ExpectExec("UPDATE products").WithArgs(id, 30).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.ReserveSlots(t.Context(), id, 30)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "not enough slots available", apperr.MessageOf(err))
}

func TestPostgres_DeleteWithOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectExec("DELETE FROM products").WillReturnError(&pq.Error{Code: "23503"})
	err = repo.Delete(t.Context(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrConflict)

	mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Delete(t.Context(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgres_GetByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1")).WillReturnRows(sqlmock.NewRows(productCols))
	_, err = repo.GetByID(t.Context(), uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "product not found", apperr.MessageOf(err))
}
