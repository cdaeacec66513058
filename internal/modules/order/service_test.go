package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/foodrient/foodrient-backend/internal/modules/cart"
	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/modules/notification"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// ── fakes ────────────────────────────────────────────────────────────────────

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Place(ctx context.Context, orders ...*Order) error {
	return m.Called(ctx, orders).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*Order)
	return o, args.Error(1)
}

func (m *mockRepo) ListByUser(ctx context.Context, userID uuid.UUID, page httpx.Page) ([]*Order, error) {
	args := m.Called(ctx, userID, page)
	o, _ := args.Get(0).([]*Order)
	return o, args.Error(1)
}

func (m *mockRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, status Status, page httpx.Page) ([]*Order, error) {
	args := m.Called(ctx, vendorID, status, page)
	o, _ := args.Get(0).([]*Order)
	return o, args.Error(1)
}

func (m *mockRepo) ListCreatedBetween(ctx context.Context, from, to time.Time, status Status) ([]*Order, error) {
	args := m.Called(ctx, from, to, status)
	o, _ := args.Get(0).([]*Order)
	return o, args.Error(1)
}

func (m *mockRepo) Transition(ctx context.Context, o *Order, to Status) error {
	return m.Called(ctx, o, to).Error(0)
}

func (m *mockRepo) Settle(ctx context.Context, id uuid.UUID, outcome PaymentStatus) (*Order, bool, error) {
	args := m.Called(ctx, id, outcome)
	o, _ := args.Get(0).(*Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *mockRepo) SetPaymentReference(ctx context.Context, id uuid.UUID, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

type productMap map[uuid.UUID]*catalog.Product

func (p productMap) GetByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if found, ok := p[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("product not found")
}

type vendorsByUser map[uuid.UUID]*vendor.Vendor

func (v vendorsByUser) GetByUserID(_ context.Context, id uuid.UUID) (*vendor.Vendor, error) {
	if found, ok := v[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("vendor not found")
}

type fakeCarts struct {
	items   map[uuid.UUID][]cart.Item
	cleared []uuid.UUID
}

func (f *fakeCarts) Get(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	return &cart.Cart{Items: f.items[id]}, nil
}

func (f *fakeCarts) Clear(_ context.Context, id uuid.UUID) error {
	f.cleared = append(f.cleared, id)
	delete(f.items, id)
	return nil
}

type memberSet map[[2]uuid.UUID]bool

func (m memberSet) IsMember(_ context.Context, groupID, userID uuid.UUID) (bool, error) {
	return m[[2]uuid.UUID{groupID, userID}], nil
}

type sent struct {
	userID uuid.UUID
	title  string
}

type recordingNotifier struct {
	sent []sent
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, _ notification.Type, title, _ string, _ any) (*notification.Notification, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, sent{userID: userID, title: title})
	return &notification.Notification{UserID: userID, Title: title}, nil
}

type counter struct{ orders, payments map[string]int }

func newCounter() *counter { return &counter{orders: map[string]int{}, payments: map[string]int{}} }

func (c *counter) OrderCreated(kind string)      { c.orders[kind]++ }
func (c *counter) PaymentSettled(outcome string) { c.payments[outcome]++ }
func (c *counter) EmailSent(bool)                {}

type fixture struct {
	svc      *service
	repo     *mockRepo
	carts    *fakeCarts
	notes    *recordingNotifier
	metrics  *counter
	members  memberSet
	rice     *catalog.Product
	beans    *catalog.Product
	vendorID uuid.UUID
	ownerID  uuid.UUID
}

func ptr(f float64) *float64 { return &f }

func setup(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	f := &fixture{
		repo:     &mockRepo{},
		carts:    &fakeCarts{items: map[uuid.UUID][]cart.Item{}},
		notes:    &recordingNotifier{},
		metrics:  newCounter(),
		members:  memberSet{},
		vendorID: uuid.New(),
		ownerID:  uuid.New(),
	}
	ikeja := &catalog.VendorSummary{BusinessName: "Ikeja Grains", Address: "12 Allen Ave, Ikeja", Latitude: ptr(6.6018), Longitude: ptr(3.3515)}
	f.rice = &catalog.Product{ID: uuid.New(), VendorID: f.vendorID, Name: "Rice 50kg", Price: decimal.NewFromInt(45000),
		TotalSlots: 20, AvailableSlots: 10, PurchaseWindowEnd: now.Add(48 * time.Hour), Vendor: ikeja}
	f.beans = &catalog.Product{ID: uuid.New(), VendorID: f.vendorID, Name: "Beans", Price: decimal.RequireFromString("1250.50"),
		IsPerishable: true, TotalSlots: 100, AvailableSlots: 100, PurchaseWindowEnd: now.Add(48 * time.Hour), Vendor: ikeja}

	svc := NewService(Deps{
		Repo:     f.repo,
		Products: productMap{f.rice.ID: f.rice, f.beans.ID: f.beans},
		Vendors:  vendorsByUser{f.ownerID: {ID: f.vendorID, UserID: f.ownerID}},
		Carts:    f.carts,
		Members:  f.members,
		Notifier: f.notes,
		Metrics:  f.metrics,
	}).(*service)
	svc.now = func() time.Time { return now }
	f.svc = svc
	return f
}

// ── checkout ─────────────────────────────────────────────────────────────────

func TestCheckout_DeliveryTotals(t *testing.T) {
	f := setup(t)
	var placed []*Order
	f.repo.On("Place", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { placed = args.Get(1).([]*Order) }).
		Return(nil)

	user := uuid.New()
	o, err := f.svc.Checkout(t.Context(), user, CheckoutRequest{
		ProductID:        f.rice.ID.String(),
		Quantity:         2,
		DeliveryOption:   "delivery",
		Address:          " 3 Herbert Macaulay Way, Yaba ",
		Latitude:         ptr(6.5095),
		Longitude:        ptr(3.3711),
		PaymentReference: "ref-1",
	})
	require.NoError(t, err)

	require.Len(t, placed, 1)
	assert.Same(t, o, placed[0])
	assert.Equal(t, user, o.UserID)
	assert.Equal(t, f.vendorID, o.VendorID)
	assert.Equal(t, "90000", o.Subtotal.String())
	assert.Equal(t, "1320", o.DeliveryCost.String())
	assert.Equal(t, "91320", o.TotalAmount.String())
	assert.Equal(t, 11, o.DeliveryDetails.DistanceKm)
	assert.Equal(t, "3 Herbert Macaulay Way, Yaba", o.DeliveryDetails.Address)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Equal(t, "ref-1", o.PaymentReference)
	assert.Equal(t, 1, f.metrics.orders["single"])
}

func TestCheckout_PickupCostsNothing(t *testing.T) {
	f := setup(t)
	f.repo.On("Place", mock.Anything, mock.Anything).Return(nil)

	o, err := f.svc.Checkout(t.Context(), uuid.New(), CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 1, DeliveryOption: "Pickup"})
	require.NoError(t, err)
	assert.True(t, o.DeliveryCost.IsZero())
	assert.Equal(t, "45000", o.TotalAmount.String())
	assert.Equal(t, "12 Allen Ave, Ikeja", o.DeliveryDetails.Address)
}

func TestCheckout_Rejections(t *testing.T) {
	f := setup(t)
	user := uuid.New()

	cases := []struct {
		name string
		req  CheckoutRequest
		kind error
	}{
		{"unknown option", CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 1, DeliveryOption: "drone"}, apperr.ErrInvalid},
		{"stockpile perishable", CheckoutRequest{ProductID: f.beans.ID.String(), Quantity: 1, DeliveryOption: "stockpiling"}, apperr.ErrInvalid},
		{"delivery without location", CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 1, DeliveryOption: "delivery", Address: "Yaba"}, apperr.ErrInvalid},
		{"too many slots", CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 11, DeliveryOption: "pickup"}, apperr.ErrConflict},
		{"unknown product", CheckoutRequest{ProductID: uuid.NewString(), Quantity: 1, DeliveryOption: "pickup"}, apperr.ErrNotFound},
		{"not a group member", CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 1, DeliveryOption: "pickup", GroupID: uuid.NewString()}, apperr.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Checkout(t.Context(), user, tc.req)
			assert.ErrorIs(t, err, tc.kind)
		})
	}
	f.repo.AssertNotCalled(t, "Place", mock.Anything, mock.Anything)
}

func TestCheckout_GroupMember(t *testing.T) {
	f := setup(t)
	user, group := uuid.New(), uuid.New()
	f.members[[2]uuid.UUID{group, user}] = true
	f.repo.On("Place", mock.Anything, mock.Anything).Return(nil)

	o, err := f.svc.Checkout(t.Context(), user, CheckoutRequest{ProductID: f.rice.ID.String(), Quantity: 1, DeliveryOption: "pickup", GroupID: group.String()})
	require.NoError(t, err)
	require.NotNil(t, o.GroupID)
	assert.Equal(t, group, *o.GroupID)
	assert.Equal(t, 1, f.metrics.orders["group"])
}

// ── payment ──────────────────────────────────────────────────────────────────

func TestSettlePayment_NotifiesOnChange(t *testing.T) {
	f := setup(t)
	customer, vendorUser := uuid.New(), uuid.New()
	o := &Order{ID: uuid.New(), UserID: customer, VendorUserID: vendorUser, Quantity: 2, ProductName: "Rice 50kg",
		Status: StatusConfirmed, PaymentStatus: PaymentSuccess}
	f.repo.On("Settle", mock.Anything, o.ID, PaymentSuccess).Return(o, true, nil).Once()

	got, err := f.svc.SettlePayment(t.Context(), o.ID, true)
	require.NoError(t, err)
	assert.Same(t, o, got)
	require.Len(t, f.notes.sent, 2)
	assert.Equal(t, customer, f.notes.sent[0].userID)
	assert.Equal(t, "Payment confirmed", f.notes.sent[0].title)
	assert.Equal(t, vendorUser, f.notes.sent[1].userID)
	assert.Equal(t, 1, f.metrics.payments["success"])

	// A repeated webhook leaves everything as is.
	f.repo.On("Settle", mock.Anything, o.ID, PaymentSuccess).Return(o, false, nil).Once()
	_, err = f.svc.SettlePayment(t.Context(), o.ID, true)
	require.NoError(t, err)
	assert.Len(t, f.notes.sent, 2)
	assert.Equal(t, 1, f.metrics.payments["success"])
}

func TestSettlePayment_FailedNotifiesCustomerOnly(t *testing.T) {
	f := setup(t)
	o := &Order{ID: uuid.New(), UserID: uuid.New(), VendorUserID: uuid.New(), ProductName: "Rice 50kg",
		Status: StatusCancelled, PaymentStatus: PaymentFailed}
	f.repo.On("Settle", mock.Anything, o.ID, PaymentFailed).Return(o, true, nil)

	_, err := f.svc.SettlePayment(t.Context(), o.ID, false)
	require.NoError(t, err)
	require.Len(t, f.notes.sent, 1)
	assert.Equal(t, "Payment failed", f.notes.sent[0].title)
	assert.Equal(t, 1, f.metrics.payments["failed"])
}

func TestSettlePayment_NotificationFailureIsLogged(t *testing.T) {
	f := setup(t)
	f.notes.err = errors.New("hub down")
	o := &Order{ID: uuid.New(), UserID: uuid.New(), ProductName: "Rice 50kg", PaymentStatus: PaymentFailed}
	f.repo.On("Settle", mock.Anything, o.ID, PaymentFailed).Return(o, true, nil)

	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.WithContext(t.Context(), zap.New(core))

	_, err := f.svc.SettlePayment(ctx, o.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("order notification failed").Len())
}

// ── status ───────────────────────────────────────────────────────────────────

func TestUpdateStatus(t *testing.T) {
	f := setup(t)
	vendorUser := uuid.New()
	o := &Order{ID: uuid.New(), UserID: uuid.New(), VendorUserID: vendorUser, ProductName: "Rice 50kg", Status: StatusConfirmed}
	f.repo.On("GetByID", mock.Anything, o.ID).Return(o, nil)

	stranger := authz.Identity{UserID: uuid.New(), Role: authz.RoleVendor}
	_, err := f.svc.UpdateStatus(t.Context(), stranger, o.ID.String(), UpdateStatusRequest{Status: "processing"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	owner := authz.Identity{UserID: vendorUser, Role: authz.RoleVendor}
	_, err = f.svc.UpdateStatus(t.Context(), owner, o.ID.String(), UpdateStatusRequest{Status: "completed"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = f.svc.UpdateStatus(t.Context(), owner, o.ID.String(), UpdateStatusRequest{Status: "shipped"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	f.repo.On("Transition", mock.Anything, o, StatusProcessing).Return(nil)
	_, err = f.svc.UpdateStatus(t.Context(), owner, o.ID.String(), UpdateStatusRequest{Status: "processing"})
	require.NoError(t, err)
	require.Len(t, f.notes.sent, 1)
	assert.Equal(t, o.UserID, f.notes.sent[0].userID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusProcessing, StatusCompleted))
	assert.True(t, CanTransition(StatusOutForDelivery, StatusCompleted))
	assert.False(t, CanTransition(StatusProcessing, StatusCancelled))
	assert.False(t, CanTransition(StatusCompleted, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
}

func TestGet_Visibility(t *testing.T) {
	f := setup(t)
	customer, vendorUser := uuid.New(), uuid.New()
	o := &Order{ID: uuid.New(), UserID: customer, VendorUserID: vendorUser}
	f.repo.On("GetByID", mock.Anything, o.ID).Return(o, nil)

	for _, id := range []authz.Identity{
		{UserID: customer, Role: authz.RoleCustomer},
		{UserID: vendorUser, Role: authz.RoleVendor},
		{UserID: uuid.New(), Role: authz.RoleSupport},
		{UserID: uuid.New(), Role: authz.RoleAdmin},
	} {
		_, err := f.svc.Get(t.Context(), id, o.ID.String())
		assert.NoError(t, err, id.Role)
	}
	_, err := f.svc.Get(t.Context(), authz.Identity{UserID: uuid.New(), Role: authz.RoleCustomer}, o.ID.String())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListForVendor(t *testing.T) {
	f := setup(t)
	page := httpx.Page{Limit: 50}
	f.repo.On("ListByVendor", mock.Anything, f.vendorID, StatusConfirmed, page).Return([]*Order{{ID: uuid.New()}}, nil)

	orders, err := f.svc.ListForVendor(t.Context(), f.ownerID, "confirmed", page)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = f.svc.ListForVendor(t.Context(), f.ownerID, "lost", page)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

// ── monitor ──────────────────────────────────────────────────────────────────

func TestMonitor_WeekSpansSundayToSaturday(t *testing.T) {
	f := setup(t)
	sunday := time.Date(2026, 10, 11, 0, 0, 0, 0, time.UTC)
	nextSunday := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	f.repo.On("ListCreatedBetween", mock.Anything, sunday, nextSunday, Status("")).Return([]*Order{
		{Status: StatusPending}, {Status: StatusPending}, {Status: StatusCompleted},
	}, nil)

	m, err := f.svc.Monitor(t.Context(), MonitorQuery{Date: "2026-10-14", View: ViewWeek, Status: "all"})
	require.NoError(t, err)
	assert.Equal(t, sunday, m.From)
	assert.Equal(t, nextSunday, m.To)
	assert.Equal(t, 2, m.Counts[StatusPending])
	assert.Equal(t, 1, m.Counts[StatusCompleted])
}

func TestMonitor_DefaultsToToday(t *testing.T) {
	f := setup(t)
	day := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	f.repo.On("ListCreatedBetween", mock.Anything, day, day.AddDate(0, 0, 1), StatusPending).Return([]*Order{}, nil)

	m, err := f.svc.Monitor(t.Context(), MonitorQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, ViewDay, m.View)

	_, err = f.svc.Monitor(t.Context(), MonitorQuery{View: "month"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = f.svc.Monitor(t.Context(), MonitorQuery{Date: "14/10/2026"})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

// ── bulk ─────────────────────────────────────────────────────────────────────

func TestParseRecipients(t *testing.T) {
	csv := "\ufeffName,Address,Phone,City,Latitude,Longitude\n" +
		"Ada Obi,3 Herbert Macaulay Way,0801,Yaba,6.5095,3.3711\n" +
		"Tunde Bakare, 9 Awolowo Rd,,Ikoyi,,\n"
	got, err := ParseRecipients(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada Obi", got[0].Name)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, 6.5095, *got[0].Latitude, 1e-9)
	assert.Equal(t, "9 Awolowo Rd, Ikoyi", got[1].FullAddress())
	assert.Nil(t, got[1].Latitude)
}

func TestParseRecipients_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"missing header": "name,phone\nAda,0801\n",
		"missing name":   "name,address\nAda,Yaba\n,Ikoyi\n",
		"bad latitude":   "name,address,latitude\nAda,Yaba,north\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecipients(strings.NewReader(body))
			assert.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}

	_, err := ParseRecipients(strings.NewReader("name,address\nAda,Yaba\n,Ikoyi\n"))
	assert.EqualError(t, err, "row 3 is missing name or address")
}

func (f *fixture) fillCart(user uuid.UUID) {
	f.carts.items[user] = []cart.Item{
		{ProductID: f.rice.ID, Name: f.rice.Name, Price: f.rice.Price, Quantity: 2},
		{ProductID: f.beans.ID, Name: f.beans.Name, Price: f.beans.Price, Quantity: 1},
	}
}

func TestPreviewBulk(t *testing.T) {
	f := setup(t)
	user := uuid.New()
	f.fillCart(user)
	body := "name,address\nAda,Yaba\nTunde,Ikoyi\nChi,Lekki\n"

	p, err := f.svc.PreviewBulk(t.Context(), user, "recipients.CSV", strings.NewReader(body), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalSets)
	assert.Equal(t, "273751.5", p.TotalAmount.String())

	_, err = f.svc.PreviewBulk(t.Context(), user, "recipients.xlsx", strings.NewReader(body), 3)
	assert.EqualError(t, err, "please upload a CSV file")

	_, err = f.svc.PreviewBulk(t.Context(), user, "recipients.csv", strings.NewReader(body), 2)
	assert.EqualError(t, err, "CSV contains 3 recipients but you specified 2")

	_, err = f.svc.PreviewBulk(t.Context(), uuid.New(), "recipients.csv", strings.NewReader(body), 3)
	assert.EqualError(t, err, "your cart is empty")
}

func TestPlaceBulk_SharesBatchAndClearsCart(t *testing.T) {
	f := setup(t)
	user := uuid.New()
	f.fillCart(user)
	var placed []*Order
	f.repo.On("Place", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { placed = args.Get(1).([]*Order) }).
		Return(nil)

	res, err := f.svc.PlaceBulk(t.Context(), user, PlaceBulkRequest{
		Recipients: []Recipient{
			{Name: "Ada", Address: "3 Herbert Macaulay Way", City: "Yaba", Latitude: ptr(6.5095), Longitude: ptr(3.3711)},
			{Name: "Tunde", Address: "9 Awolowo Rd", City: "Ikoyi"},
		},
		PaymentReference: "bulk-ref",
	})
	require.NoError(t, err)

	require.Len(t, placed, 4)
	for _, o := range placed {
		require.NotNil(t, o.BulkBatchID)
		assert.Equal(t, res.BatchID, *o.BulkBatchID)
		assert.Equal(t, "bulk-ref", o.PaymentReference)
		assert.Equal(t, "delivery", string(o.DeliveryOption))
	}
	// Ada has coordinates and is priced; Tunde's delivery is recorded unpriced.
	assert.Equal(t, "1320", placed[0].DeliveryCost.String())
	assert.Equal(t, "9 Awolowo Rd, Ikoyi", placed[2].DeliveryDetails.Address)
	assert.True(t, placed[2].DeliveryCost.IsZero())
	assert.Equal(t, "185141", res.TotalAmount.String())
	assert.Equal(t, []uuid.UUID{user}, f.carts.cleared)
	assert.Equal(t, 4, f.metrics.orders["bulk"])
}

func TestPlaceBulk_SlotsCoverEveryRecipient(t *testing.T) {
	f := setup(t)
	user := uuid.New()
	f.fillCart(user)
	recipients := make([]Recipient, 6)
	for i := range recipients {
		recipients[i] = Recipient{Name: "R", Address: "Somewhere"}
	}

	// 6 recipients x 2 bags of rice exceeds the 10 slots left.
	_, err := f.svc.PlaceBulk(t.Context(), user, PlaceBulkRequest{Recipients: recipients})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Empty(t, f.carts.cleared)
}
