package order

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/cart"
	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/modules/delivery"
	"github.com/foodrient/foodrient-backend/internal/modules/notification"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
	"github.com/foodrient/foodrient-backend/internal/platform/metrics"
)

// Service defines the order management business logic.
type Service interface {
	// Checkout quotes delivery, reserves slots and persists a pending order.
	Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*Order, error)

	// SettlePayment applies a provider outcome. Repeating an outcome is a no-op.
	SettlePayment(ctx context.Context, orderID uuid.UUID, success bool) (*Order, error)
	AttachPayment(ctx context.Context, orderID uuid.UUID, reference string) error

	// Find loads an order without visibility checks, for other modules.
	Find(ctx context.Context, id uuid.UUID) (*Order, error)
	Get(ctx context.Context, actor authz.Identity, id string) (*Order, error)
	ListMine(ctx context.Context, userID uuid.UUID, page httpx.Page) ([]*Order, error)
	ListForVendor(ctx context.Context, userID uuid.UUID, status string, page httpx.Page) ([]*Order, error)
	UpdateStatus(ctx context.Context, actor authz.Identity, id string, req UpdateStatusRequest) (*Order, error)

	// Monitor lists orders created on a day or in the Sunday to Saturday week around it.
	Monitor(ctx context.Context, q MonitorQuery) (*Monitor, error)

	PreviewBulk(ctx context.Context, userID uuid.UUID, filename string, csv io.Reader, expected int) (*BulkPreview, error)
	// PlaceBulk creates one delivery order per recipient per cart item and clears the cart.
	PlaceBulk(ctx context.Context, userID uuid.UUID, req PlaceBulkRequest) (*BulkResult, error)
}

// Products loads catalog entries.
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// Vendors looks up the shop owned by a vendor account.
type Vendors interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*vendor.Vendor, error)
}

// Carts reads and clears the caller's cart for bulk orders.
type Carts interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Members checks group membership for group checkouts.
type Members interface {
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
}

// Deps wires the order service.
type Deps struct {
	Repo     Repository
	Products Products
	Vendors  Vendors
	Carts    Carts
	Members  Members
	Notifier notification.Notifier
	Metrics  metrics.Recorder
}

type service struct {
	repo     Repository
	products Products
	vendors  Vendors
	carts    Carts
	members  Members
	notifier notification.Notifier
	metrics  metrics.Recorder
	now      func() time.Time
}

func NewService(d Deps) Service {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop
	}
	return &service{
		repo:     d.Repo,
		products: d.Products,
		vendors:  d.Vendors,
		carts:    d.Carts,
		members:  d.Members,
		notifier: d.Notifier,
		metrics:  d.Metrics,
		now:      time.Now,
	}
}

func (s *service) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*Order, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be at least 1")
	}
	opt, err := delivery.ParseOption(req.DeliveryOption)
	if err != nil {
		return nil, err
	}
	pid, err := httpx.ParseID(req.ProductID, "product id")
	if err != nil {
		return nil, err
	}
	p, err := s.purchasable(ctx, pid, req.Quantity)
	if err != nil {
		return nil, err
	}

	dest := delivery.Destination{Address: req.Address}
	if pt, ok := geo.PointOf(req.Latitude, req.Longitude); ok {
		dest.Location = &pt
	}
	details, err := delivery.Quote(opt, catalog.Origin(p), dest)
	if err != nil {
		return nil, err
	}

	o := newOrder(userID, p, req.Quantity, *details)
	o.PaymentReference = strings.TrimSpace(req.PaymentReference)
	kind := "single"
	if req.GroupID != "" {
		gid, err := httpx.ParseID(req.GroupID, "group id")
		if err != nil {
			return nil, err
		}
		ok, err := s.members.IsMember(ctx, gid, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("you are not a member of this group")
		}
		o.GroupID = &gid
		kind = "group"
	}

	if err := s.repo.Place(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.OrderCreated(kind)
	return o, nil
}

func (s *service) SettlePayment(ctx context.Context, orderID uuid.UUID, success bool) (*Order, error) {
	outcome := PaymentFailed
	if success {
		outcome = PaymentSuccess
	}
	o, changed, err := s.repo.Settle(ctx, orderID, outcome)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}
	s.metrics.PaymentSettled(string(outcome))

	meta := map[string]string{"order_id": o.ID.String(), "status": string(o.Status), "payment_status": string(o.PaymentStatus)}
	if success {
		s.notify(ctx, o.UserID, "Payment confirmed",
			fmt.Sprintf("Your order of %d x %s is confirmed.", o.Quantity, o.ProductName), meta)
		s.notify(ctx, o.VendorUserID, "New paid order",
			fmt.Sprintf("%s paid for %d x %s.", displayName(o), o.Quantity, o.ProductName), meta)
	} else {
		s.notify(ctx, o.UserID, "Payment failed",
			fmt.Sprintf("Payment for %s failed and the order was cancelled.", o.ProductName), meta)
	}
	return o, nil
}

func (s *service) AttachPayment(ctx context.Context, orderID uuid.UUID, reference string) error {
	return s.repo.SetPaymentReference(ctx, orderID, reference)
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Get(ctx context.Context, actor authz.Identity, id string) (*Order, error) {
	oid, err := httpx.ParseID(id, "order id")
	if err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.UserID != actor.UserID && o.VendorUserID != actor.UserID && !actor.Is(authz.RoleSupport) {
		return nil, apperr.NotFound("order not found")
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, page httpx.Page) ([]*Order, error) {
	return s.repo.ListByUser(ctx, userID, page)
}

func (s *service) ListForVendor(ctx context.Context, userID uuid.UUID, status string, page httpx.Page) ([]*Order, error) {
	st, err := optionalStatus(status)
	if err != nil {
		return nil, err
	}
	v, err := s.vendors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByVendor(ctx, v.ID, st, page)
}

func (s *service) UpdateStatus(ctx context.Context, actor authz.Identity, id string, req UpdateStatusRequest) (*Order, error) {
	to, ok := ParseStatus(req.Status)
	if !ok {
		return nil, apperr.Invalid("unknown order status %q", req.Status)
	}
	oid, err := httpx.ParseID(id, "order id")
	if err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if actor.Role != authz.RoleAdmin && o.VendorUserID != actor.UserID {
		return nil, apperr.Forbidden("only the vendor can update this order")
	}
	if !CanTransition(o.Status, to) {
		return nil, apperr.Invalid("cannot move order from %s to %s", o.Status, to)
	}
	if err := s.repo.Transition(ctx, o, to); err != nil {
		return nil, err
	}

	s.notify(ctx, o.UserID, "Order update",
		fmt.Sprintf("Your order of %s is now %s.", o.ProductName, humanize(to)),
		map[string]string{"order_id": o.ID.String(), "status": string(to)})
	return o, nil
}

func (s *service) Monitor(ctx context.Context, q MonitorQuery) (*Monitor, error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	if q.Date != "" {
		d, err := time.Parse(time.DateOnly, q.Date)
		if err != nil {
			return nil, apperr.Invalid("date must be YYYY-MM-DD")
		}
		day = d
	}
	st, err := optionalStatus(q.Status)
	if err != nil {
		return nil, err
	}

	m := &Monitor{View: q.View, Counts: map[Status]int{}}
	switch q.View {
	case "", ViewDay:
		m.View, m.From, m.To = ViewDay, day, day.AddDate(0, 0, 1)
	case ViewWeek:
		m.From = day.AddDate(0, 0, -int(day.Weekday()))
		m.To = m.From.AddDate(0, 0, 7)
	default:
		return nil, apperr.Invalid("view must be day or week")
	}

	m.Orders, err = s.repo.ListCreatedBetween(ctx, m.From, m.To, st)
	if err != nil {
		return nil, err
	}
	for _, o := range m.Orders {
		m.Counts[o.Status]++
	}
	return m, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// purchasable loads a product and checks it can sell qty slots right now.
func (s *service) purchasable(ctx context.Context, id uuid.UUID, qty int) (*catalog.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Purchasable(s.now()); err != nil {
		return nil, err
	}
	if qty > p.AvailableSlots {
		return nil, apperr.Conflict("only %d slots of %s are left", p.AvailableSlots, p.Name)
	}
	return p, nil
}

func newOrder(userID uuid.UUID, p *catalog.Product, qty int, d delivery.Details) *Order {
	subtotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	o := &Order{
		ID:              uuid.New(),
		UserID:          userID,
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Quantity:        qty,
		UnitPrice:       p.Price,
		Subtotal:        subtotal,
		DeliveryCost:    d.Cost,
		TotalAmount:     subtotal.Add(d.Cost),
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		DeliveryOption:  d.Option,
		DeliveryDetails: d,
		ProductName:     p.Name,
	}
	if p.Vendor != nil {
		o.VendorName = p.Vendor.BusinessName
	}
	return o
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, title, message string, meta map[string]string) {
	if userID == uuid.Nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, notification.TypeOrderUpdate, title, message, meta); err != nil {
		logger.FromContext(ctx).Warn("order notification failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func optionalStatus(raw string) (Status, error) {
	if raw == "" || raw == "all" {
		return "", nil
	}
	st, ok := ParseStatus(raw)
	if !ok {
		return "", apperr.Invalid("unknown order status %q", raw)
	}
	return st, nil
}

func humanize(st Status) string { return strings.ReplaceAll(string(st), "_", " ") }

func displayName(o *Order) string {
	if o.CustomerName != "" {
		return o.CustomerName
	}
	return "A customer"
}
