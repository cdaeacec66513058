package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/storage"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Create(ctx context.Context, p *Product) error { return m.Called(ctx, p).Error(0) }

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*Product)
	return p, args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, p *Product) error { return m.Called(ctx, p).Error(0) }

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error { return m.Called(ctx, id).Error(0) }

func (m *mockRepo) Browse(ctx context.Context, f Filter, now time.Time) ([]*Product, error) {
	args := m.Called(ctx, f, now)
	list, _ := args.Get(0).([]*Product)
	return list, args.Error(1)
}

func (m *mockRepo) ListByVendor(ctx context.Context, id uuid.UUID) ([]*Product, error) {
	args := m.Called(ctx, id)
	list, _ := args.Get(0).([]*Product)
	return list, args.Error(1)
}

func (m *mockRepo) ReserveSlots(ctx context.Context, id uuid.UUID, qty int) error {
	return m.Called(ctx, id, qty).Error(0)
}

func (m *mockRepo) ReleaseSlots(ctx context.Context, id uuid.UUID, qty int) error {
	return m.Called(ctx, id, qty).Error(0)
}

type vendorsByUser map[uuid.UUID]*vendor.Vendor

func (v vendorsByUser) GetByUserID(_ context.Context, id uuid.UUID) (*vendor.Vendor, error) {
	if found, ok := v[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("vendor profile not found")
}

type nopPresigner struct{}

func (nopPresigner) PresignUpload(_ context.Context, key, _ string) (*storage.Upload, error) {
	return &storage.Upload{Key: key}, nil
}

func (nopPresigner) PublicURL(key string) string { return key }

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, vendors vendorsByUser) *service {
	svc := NewService(repo, vendors, nopPresigner{}).(*service)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestCreateProduct(t *testing.T) {
	verifiedUser, pendingUser := uuid.New(), uuid.New()
	verified := &vendor.Vendor{ID: uuid.New(), IsVerified: true, State: "Lagos", City: "Ikeja"}
	vendors := vendorsByUser{
		verifiedUser: verified,
		pendingUser:  {ID: uuid.New()},
	}
	repo := &mockRepo{}
	svc := newTestService(repo, vendors)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	req := CreateProductRequest{
		Name: "Rice 50kg", Category: "grains", Unit: "bag",
		Price: decimal.NewFromInt(45000), TotalSlots: 20,
		PurchaseWindowEnd: fixedNow.Add(72 * time.Hour),
	}

	p, err := svc.CreateProduct(t.Context(), verifiedUser, req)
	require.NoError(t, err)
	assert.Equal(t, verified.ID, p.VendorID)
	assert.Equal(t, 20, p.AvailableSlots)
	assert.Equal(t, "Lagos", p.State)

	_, err = svc.CreateProduct(t.Context(), pendingUser, req)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	past := req
	past.PurchaseWindowEnd = fixedNow.Add(-time.Hour)
	_, err = svc.CreateProduct(t.Context(), verifiedUser, past)
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	cheaperRetail := req
	retail := decimal.NewFromInt(40000)
	cheaperRetail.RetailPrice = &retail
	_, err = svc.CreateProduct(t.Context(), verifiedUser, cheaperRetail)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestUpdateProduct_Slots(t *testing.T) {
	owner := uuid.New()
	v := &vendor.Vendor{ID: uuid.New(), IsVerified: true}
	repo := &mockRepo{}
	svc := newTestService(repo, vendorsByUser{owner: v})

	pid := uuid.New()
	product := func() *Product {
		return &Product{ID: pid, VendorID: v.ID, Price: decimal.NewFromInt(100), TotalSlots: 10, AvailableSlots: 4}
	}
	repo.On("GetByID", mock.Anything, pid).Return(product(), nil).Once()
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	total := 15
	p, err := svc.UpdateProduct(t.Context(), authz.Identity{UserID: owner, Role: authz.RoleVendor}, pid.String(), UpdateProductRequest{TotalSlots: &total})
	require.NoError(t, err)
	assert.Equal(t, 15, p.TotalSlots)
	assert.Equal(t, 9, p.AvailableSlots)

	repo.On("GetByID", mock.Anything, pid).Return(product(), nil).Once()
	total = 5
	_, err = svc.UpdateProduct(t.Context(), authz.Identity{UserID: owner, Role: authz.RoleVendor}, pid.String(), UpdateProductRequest{TotalSlots: &total})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDeleteProduct_Ownership(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()
	v := &vendor.Vendor{ID: uuid.New()}
	repo := &mockRepo{}
	svc := newTestService(repo, vendorsByUser{owner: v, stranger: {ID: uuid.New()}})

	pid := uuid.New()
	repo.On("GetByID", mock.Anything, pid).Return(&Product{ID: pid, VendorID: v.ID}, nil)
	repo.On("Delete", mock.Anything, pid).Return(nil)

	err := svc.DeleteProduct(t.Context(), authz.Identity{UserID: stranger, Role: authz.RoleVendor}, pid.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	require.NoError(t, svc.DeleteProduct(t.Context(), authz.Identity{UserID: uuid.New(), Role: authz.RoleAdmin}, pid.String()))
	require.NoError(t, svc.DeleteProduct(t.Context(), authz.Identity{UserID: owner, Role: authz.RoleVendor}, pid.String()))
	repo.AssertNumberOfCalls(t, "Delete", 2)
}

func TestBrowse_Defaults(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, nil)
	repo.On("Browse", mock.Anything, Filter{Search: "rice", Sort: SortLatest, Limit: 50}, fixedNow).Return([]*Product{}, nil)

	_, err := svc.Browse(t.Context(), Filter{Search: "  rice "})
	require.NoError(t, err)
	repo.AssertExpectations(t)

	_, err = svc.Browse(t.Context(), Filter{Sort: "random"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestPresignImage_RejectsDocuments(t *testing.T) {
	owner := uuid.New()
	v := &vendor.Vendor{ID: uuid.New()}
	svc := newTestService(&mockRepo{}, vendorsByUser{owner: v})

	up, err := svc.PresignImage(t.Context(), owner, "image/png")
	require.NoError(t, err)
	assert.Contains(t, up.Key, "products/"+v.ID.String()+"/")

	_, err = svc.PresignImage(t.Context(), owner, "application/pdf")
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestHandler_DeliveryOptions(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, nil)
	pid := uuid.New()
	lat, lng := 6.6018, 3.3515
	repo.On("GetByID", mock.Anything, pid).Return(&Product{
		ID: pid, IsPerishable: true,
		Vendor: &VendorSummary{Address: "Ikeja market", Latitude: &lat, Longitude: &lng},
	}, nil)

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, func(next http.Handler) http.Handler { return next })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/products/"+pid.String()+"/delivery-options?lat=6.5095&lng=3.3711&address=Yaba", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var choices []delivery.Choice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &choices))
	require.Len(t, choices, 3)
	assert.Equal(t, "Ikeja market", choices[0].Address)
	assert.True(t, choices[1].Available)
	assert.Equal(t, 11, choices[1].DistanceKm)
	assert.False(t, choices[2].Available)
}

func TestPurchasable(t *testing.T) {
	p := &Product{Name: "Rice", AvailableSlots: 1, PurchaseWindowEnd: fixedNow}
	assert.NoError(t, p.Purchasable(fixedNow))
	assert.ErrorIs(t, p.Purchasable(fixedNow.Add(time.Second)), apperr.ErrConflict)
	p.AvailableSlots = 0
	assert.ErrorIs(t, p.Purchasable(fixedNow), apperr.ErrConflict)
}
