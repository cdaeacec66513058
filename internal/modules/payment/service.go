package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/group"
	"github.com/foodrient/foodrient-backend/internal/modules/order"
	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
)

// Service defines payment business logic.
type Service interface {
	Initialize(ctx context.Context, userID uuid.UUID, req InitializeRequest) (*Checkout, error)
	// Verify asks the provider for the outcome and settles the order it paid for.
	Verify(ctx context.Context, actor authz.Identity, reference string) (*Transaction, error)
	// HandleWebhook authenticates and applies a provider event. Events for
	// unknown references are acknowledged and ignored.
	HandleWebhook(ctx context.Context, signature string, body []byte) error
}

// Orders settles regular orders.
type Orders interface {
	Find(ctx context.Context, id uuid.UUID) (*order.Order, error)
	AttachPayment(ctx context.Context, id uuid.UUID, reference string) error
	SettlePayment(ctx context.Context, id uuid.UUID, success bool) (*order.Order, error)
}

// GroupOrders settles group orders.
type GroupOrders interface {
	FindOrder(ctx context.Context, id uuid.UUID) (*group.Order, error)
	AttachOrderPayment(ctx context.Context, id uuid.UUID, reference string) error
	SettleOrder(ctx context.Context, id uuid.UUID, success bool) (*group.Order, error)
}

type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Banks finds the payout subaccount of a vendor.
type Banks interface {
	GetBankDetails(ctx context.Context, vendorID uuid.UUID) (*vendor.BankDetails, error)
}

type Deps struct {
	Repo        Repository
	Gateway     Gateway
	Orders      Orders
	GroupOrders GroupOrders
	Users       Users
	Banks       Banks
	// SecretKey signs webhook deliveries.
	SecretKey string
	// CallbackURL is where the provider returns the customer after checkout.
	CallbackURL string
}

type service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) Service {
	return &service{Deps: d, now: time.Now}
}

// payable is the part of an order a checkout needs.
type payable struct {
	orderID      *uuid.UUID
	groupOrderID *uuid.UUID
	userID       uuid.UUID
	vendorID     uuid.UUID
	amount       decimal.Decimal
	status       string
}

func (s *service) Initialize(ctx context.Context, userID uuid.UUID, req InitializeRequest) (*Checkout, error) {
	p, err := s.payable(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.userID != userID {
		return nil, apperr.NotFound("order not found")
	}
	if p.status != string(order.PaymentPending) {
		return nil, apperr.Conflict("order payment is already %s", p.status)
	}
	if !p.amount.IsPositive() {
		return nil, apperr.Invalid("order has nothing to pay")
	}

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	subaccount, err := s.subaccount(ctx, p.vendorID)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:             uuid.New(),
		Reference:      newReference(),
		OrderID:        p.orderID,
		GroupOrderID:   p.groupOrderID,
		UserID:         userID,
		VendorID:       p.vendorID,
		Amount:         p.amount,
		Currency:       Currency,
		SubaccountCode: subaccount,
		Status:         StatusPending,
	}
	// Persisted before the provider call so no checkout goes unrecorded.
	if err := s.Repo.Create(ctx, tx); err != nil {
		return nil, err
	}

	meta := map[string]string{"transaction_id": tx.ID.String()}
	if p.orderID != nil {
		meta["order_id"] = p.orderID.String()
	} else {
		meta["group_order_id"] = p.groupOrderID.String()
	}
	resp, err := s.Gateway.Initialize(ctx, InitRequest{
		Email:       u.Email,
		AmountKobo:  Kobo(p.amount),
		Currency:    Currency,
		Reference:   tx.Reference,
		CallbackURL: s.CallbackURL,
		Subaccount:  subaccount,
		Metadata:    meta,
	})
	if err != nil {
		if uerr := s.Repo.UpdateStatus(ctx, tx.Reference, StatusFailed, "initialize_error", nil); uerr != nil {
			logger.FromContext(ctx).Warn("mark payment failed", zap.String("reference", tx.Reference), zap.Error(uerr))
		}
		return nil, apperr.Unavailable(err, "payment provider unavailable")
	}
	if err := s.Repo.SetAuthorization(ctx, tx.Reference, resp.AuthorizationURL); err != nil {
		return nil, err
	}
	if err := s.attach(ctx, p, tx.Reference); err != nil {
		return nil, err
	}

	return &Checkout{
		Reference:        tx.Reference,
		AuthorizationURL: resp.AuthorizationURL,
		AccessCode:       resp.AccessCode,
		Amount:           p.amount,
		Currency:         Currency,
	}, nil
}

func (s *service) Verify(ctx context.Context, actor authz.Identity, reference string) (*Transaction, error) {
	tx, err := s.Repo.GetByReference(ctx, strings.TrimSpace(reference))
	if err != nil {
		return nil, err
	}
	if tx.UserID != actor.UserID && !actor.Is(authz.RoleSupport) {
		return nil, apperr.NotFound("payment not found")
	}
	if tx.Status.Final() {
		return tx, nil
	}

	resp, err := s.Gateway.Verify(ctx, tx.Reference)
	if err != nil {
		return nil, apperr.Unavailable(err, "payment provider unavailable")
	}
	if err := s.apply(ctx, tx, resp.Status, nil); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *service) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if !ValidSignature(s.SecretKey, body, signature) {
		return apperr.Unauthorized("invalid webhook signature")
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return apperr.Invalid("malformed webhook payload")
	}

	log := logger.FromContext(ctx).With(zap.String("event", ev.Event), zap.String("reference", ev.Data.Reference))
	var providerStatus string
	switch ev.Event {
	case EventChargeSuccess:
		providerStatus = "success"
	case EventChargeFailed:
		providerStatus = "failed"
	default:
		log.Debug("webhook event ignored")
		return nil
	}

	tx, err := s.Repo.GetByReference(ctx, ev.Data.Reference)
	if errors.Is(err, apperr.ErrNotFound) {
		log.Info("webhook for unknown reference")
		return nil
	}
	if err != nil {
		return err
	}
	if tx.Status.Final() {
		return nil
	}

	err = s.apply(ctx, tx, providerStatus, json.RawMessage(body))
	if errors.Is(err, apperr.ErrConflict) {
		// Redelivery cannot resolve a contradicting outcome.
		log.Warn("webhook outcome conflicts with order", zap.Error(err))
		return nil
	}
	return err
}

// apply settles the order for a final outcome and then records the provider
// status. A transaction is only marked final once its order is settled, so a
// failed settlement is retried by the next webhook delivery or verification.
// A conflicting outcome is still recorded since retrying cannot resolve it.
func (s *service) apply(ctx context.Context, tx *Transaction, providerStatus string, raw json.RawMessage) error {
	status := StatusOf(providerStatus)
	var settleErr error
	if status.Final() {
		settleErr = s.settle(ctx, tx, status == StatusSuccess)
		if settleErr != nil && !errors.Is(settleErr, apperr.ErrConflict) {
			return settleErr
		}
	}
	if err := s.Repo.UpdateStatus(ctx, tx.Reference, status, providerStatus, raw); err != nil {
		return err
	}
	tx.Status, tx.ProviderStatus = status, providerStatus
	tx.UpdatedAt = s.now().UTC()
	return settleErr
}

func (s *service) settle(ctx context.Context, tx *Transaction, success bool) error {
	if tx.OrderID != nil {
		_, err := s.Orders.SettlePayment(ctx, *tx.OrderID, success)
		return err
	}
	_, err := s.GroupOrders.SettleOrder(ctx, *tx.GroupOrderID, success)
	return err
}

func (s *service) payable(ctx context.Context, req InitializeRequest) (*payable, error) {
	switch {
	case (req.OrderID == "") == (req.GroupOrderID == ""):
		return nil, apperr.Invalid("provide either order_id or group_order_id")
	case req.OrderID != "":
		id, err := uuid.Parse(req.OrderID)
		if err != nil {
			return nil, apperr.Invalid("order_id must be a UUID")
		}
		o, err := s.Orders.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		return &payable{orderID: &o.ID, userID: o.UserID, vendorID: o.VendorID,
			amount: o.TotalAmount, status: string(o.PaymentStatus)}, nil
	default:
		id, err := uuid.Parse(req.GroupOrderID)
		if err != nil {
			return nil, apperr.Invalid("group_order_id must be a UUID")
		}
		o, err := s.GroupOrders.FindOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		return &payable{groupOrderID: &o.ID, userID: o.UserID, vendorID: o.VendorID,
			amount: o.TotalAmount, status: o.PaymentStatus}, nil
	}
}

// subaccount returns the vendor's payout code, or "" when the vendor has no
// bank details yet and the platform collects the whole amount.
func (s *service) subaccount(ctx context.Context, vendorID uuid.UUID) (string, error) {
	bd, err := s.Banks.GetBankDetails(ctx, vendorID)
	if errors.Is(err, apperr.ErrNotFound) {
		logger.FromContext(ctx).Info("vendor has no payout account", zap.Stringer("vendor_id", vendorID))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return bd.SubaccountCode, nil
}

func (s *service) attach(ctx context.Context, p *payable, reference string) error {
	if p.orderID != nil {
		return s.Orders.AttachPayment(ctx, *p.orderID, reference)
	}
	return s.GroupOrders.AttachOrderPayment(ctx, *p.groupOrderID, reference)
}

// newReference returns a provider reference unique across retries.
func newReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FDR-" + strings.ToUpper(id[:20])
}
