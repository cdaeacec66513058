package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
)

type memStore map[uuid.UUID][]Item

func (m memStore) Load(_ context.Context, id uuid.UUID) (*Cart, error) {
	items := append([]Item{}, m[id]...)
	return &Cart{Items: items}, nil
}

func (m memStore) Save(_ context.Context, id uuid.UUID, c *Cart) error {
	m[id] = append([]Item{}, c.Items...)
	return nil
}

func (m memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(m, id)
	return nil
}

type productMap map[uuid.UUID]*catalog.Product

func (p productMap) GetByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if found, ok := p[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("product not found")
}

func setup(t *testing.T) (Service, memStore, *catalog.Product, *catalog.Product) {
	t.Helper()
	now := time.Now()
	rice := &catalog.Product{ID: uuid.New(), Name: "Rice", Price: decimal.NewFromInt(45000), AvailableSlots: 5, PurchaseWindowEnd: now.Add(time.Hour)}
	beans := &catalog.Product{ID: uuid.New(), Name: "Beans", Price: decimal.RequireFromString("1250.50"), AvailableSlots: 100, PurchaseWindowEnd: now.Add(time.Hour)}
	store := memStore{}
	return NewService(store, productMap{rice.ID: rice, beans.ID: beans}), store, rice, beans
}

func TestAddItem_MergesAndTotals(t *testing.T) {
	svc, _, rice, beans := setup(t)
	user := uuid.New()

	_, err := svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(t.Context(), user, AddItemRequest{ProductID: beans.ID.String(), Quantity: 2})
	require.NoError(t, err)
	c, err := svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 1})
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 5, c.TotalItems)
	assert.Equal(t, "137501", c.TotalAmount.String())
}

func TestAddItem_Limits(t *testing.T) {
	svc, store, rice, _ := setup(t)
	user := uuid.New()

	_, err := svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 6})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, store[user])

	_, err = svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	rice.PurchaseWindowEnd = time.Now().Add(-time.Minute)
	_, err = svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.AddItem(t.Context(), user, AddItemRequest{ProductID: uuid.NewString(), Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	svc, _, rice, beans := setup(t)
	user := uuid.New()
	_, err := svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(t.Context(), user, AddItemRequest{ProductID: beans.ID.String(), Quantity: 1})
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(t.Context(), user, beans.ID.String(), 4)
	require.NoError(t, err)
	assert.Equal(t, 5, c.TotalItems)

	c, err = svc.UpdateQuantity(t.Context(), user, beans.ID.String(), 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, rice.ID, c.Items[0].ProductID)

	c, err = svc.Remove(t.Context(), user, rice.ID.String())
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.TotalAmount.IsZero())

	_, err = svc.Remove(t.Context(), user, rice.ID.String())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClear(t *testing.T) {
	svc, store, rice, _ := setup(t)
	user := uuid.New()
	_, err := svc.AddItem(t.Context(), user, AddItemRequest{ProductID: rice.ID.String(), Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Clear(t.Context(), user))
	assert.NotContains(t, store, user)

	c, err := svc.Get(t.Context(), user)
	require.NoError(t, err)
	assert.Equal(t, 0, c.TotalItems)
	assert.NotNil(t, c.Items)
}
