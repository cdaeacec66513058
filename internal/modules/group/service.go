package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/modules/notification"
	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/geo"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
	"github.com/foodrient/foodrient-backend/internal/platform/mailer"
	"github.com/foodrient/foodrient-backend/internal/platform/metrics"
	"github.com/foodrient/foodrient-backend/internal/platform/realtime"
)

// Service defines group buying business logic.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Group, error)
	// FindNearby lists open public groups for a product reachable from the caller.
	FindNearby(ctx context.Context, q NearbyQuery) ([]*Group, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	// Get includes the member list. Private groups are visible to members and invitees.
	Get(ctx context.Context, actor authz.Identity, id string) (*Group, error)

	Join(ctx context.Context, userID uuid.UUID, id string) (*Group, error)
	Leave(ctx context.Context, userID uuid.UUID, id string) (*Group, error)
	RemoveMember(ctx context.Context, actor authz.Identity, id, memberID string) (*Group, error)
	Cancel(ctx context.Context, actor authz.Identity, id string) (*Group, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)

	Invite(ctx context.Context, userID uuid.UUID, id string, req InviteRequest) (*Invite, error)
	ListMyInvites(ctx context.Context, userID uuid.UUID) ([]*Invite, error)
	RespondInvite(ctx context.Context, userID uuid.UUID, inviteID string, req RespondRequest) (*Invite, error)

	PostMessage(ctx context.Context, userID uuid.UUID, id string, req MessageRequest) (*Message, error)
	ListMessages(ctx context.Context, actor authz.Identity, id string, page httpx.Page) ([]*Message, error)
	// Discussion checks the caller may follow a group's discussion and returns its id.
	Discussion(ctx context.Context, actor authz.Identity, id string) (uuid.UUID, error)

	PlaceOrder(ctx context.Context, userID uuid.UUID, id string, req OrderRequest) (*Order, error)
	ListOrders(ctx context.Context, actor authz.Identity, id string) ([]*Order, error)
	FindOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	SettleOrder(ctx context.Context, id uuid.UUID, success bool) (*Order, error)
	AttachOrderPayment(ctx context.Context, id uuid.UUID, reference string) error
}

// Products loads catalog entries.
type Products interface {
	GetByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// Users resolves invitees and inviters.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// Deps wires the group service.
type Deps struct {
	Repo      Repository
	Products  Products
	Users     Users
	Notifier  notification.Notifier
	Mail      mailer.Sender
	Templates *mailer.Templates
	Publisher realtime.Publisher
	Metrics   metrics.Recorder
}

type service struct {
	repo      Repository
	products  Products
	users     Users
	notifier  notification.Notifier
	mail      mailer.Sender
	templates *mailer.Templates
	pub       realtime.Publisher
	metrics   metrics.Recorder
	now       func() time.Time
}

func NewService(d Deps) Service {
	if d.Metrics == nil {
		d.Metrics = metrics.Nop
	}
	return &service{
		repo:      d.Repo,
		products:  d.Products,
		users:     d.Users,
		notifier:  d.Notifier,
		mail:      d.Mail,
		templates: d.Templates,
		pub:       d.Publisher,
		metrics:   d.Metrics,
		now:       time.Now,
	}
}

// ── groups ───────────────────────────────────────────────────────────────────

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateRequest) (*Group, error) {
	if req.TargetSize < 2 {
		return nil, apperr.Invalid("target size must be at least 2")
	}
	if strings.TrimSpace(req.State) == "" {
		return nil, apperr.Invalid("location state is required")
	}
	if req.ShareDate != nil && !req.ShareDate.After(s.now()) {
		return nil, apperr.Invalid("share date must be in the future")
	}
	pid, err := httpx.ParseID(req.ProductID, "product id")
	if err != nil {
		return nil, err
	}
	p, err := s.products.GetByID(ctx, pid)
	if err != nil {
		return nil, err
	}
	if err := p.Purchasable(s.now()); err != nil {
		return nil, err
	}

	g := &Group{
		ID:            uuid.New(),
		ProductID:     p.ID,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		TargetSize:    req.TargetSize,
		CurrentSize:   1,
		Status:        StatusForming,
		IsPrivate:     req.IsPrivate,
		State:         strings.TrimSpace(req.State),
		City:          strings.TrimSpace(req.City),
		MaxDistanceKm: req.MaxDistanceKm,
		ShareDate:     req.ShareDate,
		CreatedBy:     userID,
		Product:       summarize(p),
	}
	if g.MaxDistanceKm <= 0 {
		g.MaxDistanceKm = DefaultMaxDistanceKm
	}
	if _, ok := geo.PointOf(req.Latitude, req.Longitude); ok {
		g.Latitude, g.Longitude = req.Latitude, req.Longitude
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *service) FindNearby(ctx context.Context, q NearbyQuery) ([]*Group, error) {
	if strings.TrimSpace(q.State) == "" {
		return nil, apperr.Invalid("state is required")
	}
	pid, err := httpx.ParseID(q.ProductID, "product id")
	if err != nil {
		return nil, err
	}
	candidates, err := s.repo.ListOpen(ctx, pid, strings.TrimSpace(q.State), s.now())
	if err != nil {
		return nil, err
	}
	var at *geo.Point
	if pt, ok := geo.PointOf(q.Latitude, q.Longitude); ok {
		at = &pt
	}
	return Nearby(candidates, q.City, at), nil
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID) ([]*Group, error) {
	return s.repo.ListByMember(ctx, userID)
}

func (s *service) Get(ctx context.Context, actor authz.Identity, id string) (*Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Members, err = s.repo.ListMembers(ctx, g.ID); err != nil {
		return nil, err
	}
	if g.IsPrivate && !actor.Is(authz.RoleSupport) && !hasMember(g.Members, actor.UserID) {
		if _, err := s.repo.PendingInvite(ctx, g.ID, actor.UserID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return nil, apperr.NotFound("group not found")
			}
			return nil, err
		}
	}
	return g, nil
}

func (s *service) Join(ctx context.Context, userID uuid.UUID, id string) (*Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusForming {
		return nil, apperr.Conflict("group is no longer accepting members")
	}
	var inv *Invite
	if g.IsPrivate {
		inv, err = s.repo.PendingInvite(ctx, g.ID, userID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Forbidden("this group is private; you need an invite to join")
		}
		if err != nil {
			return nil, err
		}
	}
	return s.join(ctx, userID, g, inv)
}

// join adds the user, resolves the invite that let them in and tells the
// other members.
func (s *service) join(ctx context.Context, userID uuid.UUID, g *Group, inv *Invite) (*Group, error) {
	updated, err := s.repo.AddMember(ctx, g.ID, userID)
	if err != nil {
		return nil, err
	}
	if inv != nil {
		if err := s.repo.ResolveInvite(ctx, inv.ID, InviteAccepted); err != nil {
			logger.FromContext(ctx).Warn("resolve invite after join",
				zap.String("invite_id", inv.ID.String()), zap.Error(err))
		}
	}
	if updated.Status == StatusComplete {
		s.broadcast(ctx, updated, uuid.Nil, mailer.GroupCompleted, "Group complete",
			fmt.Sprintf("%s reached its target of %d members.", updated.Name, updated.TargetSize))
	} else {
		s.broadcast(ctx, updated, userID, mailer.GroupJoined, "New group member",
			fmt.Sprintf("%s now has %d of %d members.", updated.Name, updated.CurrentSize, updated.TargetSize))
	}
	return updated, nil
}

func (s *service) Leave(ctx context.Context, userID uuid.UUID, id string) (*Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.CreatedBy == userID {
		return nil, apperr.Invalid("the group creator cannot leave; cancel the group instead")
	}
	if g.Status != StatusForming {
		return nil, apperr.Conflict("you cannot leave a %s group", g.Status)
	}
	updated, err := s.repo.RemoveMember(ctx, g.ID, userID)
	if err != nil {
		return nil, err
	}
	s.broadcast(ctx, updated, userID, mailer.GroupLeft, "Member left",
		fmt.Sprintf("%s now has %d of %d members.", updated.Name, updated.CurrentSize, updated.TargetSize))
	return updated, nil
}

func (s *service) RemoveMember(ctx context.Context, actor authz.Identity, id, memberID string) (*Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.CreatedBy != actor.UserID && actor.Role != authz.RoleAdmin {
		return nil, apperr.Forbidden("only the group creator can remove members")
	}
	mid, err := httpx.ParseID(memberID, "member id")
	if err != nil {
		return nil, err
	}
	if mid == g.CreatedBy {
		return nil, apperr.Invalid("the group creator cannot be removed")
	}
	if g.Status != StatusForming {
		return nil, apperr.Conflict("members cannot be removed from a %s group", g.Status)
	}
	updated, err := s.repo.RemoveMember(ctx, g.ID, mid)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, mid, notification.TypeGroupUpdate, "Removed from group",
		fmt.Sprintf("You were removed from %s.", g.Name), map[string]string{"group_id": g.ID.String()})
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, actor authz.Identity, id string) (*Group, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.CreatedBy != actor.UserID && actor.Role != authz.RoleAdmin {
		return nil, apperr.Forbidden("only the group creator can cancel the group")
	}
	if g.Status == StatusCancelled {
		return nil, apperr.Conflict("group is already cancelled")
	}
	if err := s.repo.SetStatus(ctx, g.ID, g.Status, StatusCancelled); err != nil {
		return nil, err
	}
	g.Status = StatusCancelled
	s.broadcast(ctx, g, actor.UserID, mailer.GroupCancelled, "Group cancelled",
		fmt.Sprintf("%s has been cancelled.", g.Name))
	return g, nil
}

func (s *service) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	return s.repo.IsMember(ctx, groupID, userID)
}

// ── invites ──────────────────────────────────────────────────────────────────

func (s *service) Invite(ctx context.Context, userID uuid.UUID, id string, req InviteRequest) (*Invite, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, g.ID, userID, "only group members can invite others"); err != nil {
		return nil, err
	}
	if g.Status != StatusForming {
		return nil, apperr.Conflict("group is no longer accepting members")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	invitee, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("no user found with email %s", email)
	}
	if err != nil {
		return nil, err
	}
	if invitee.ID == userID {
		return nil, apperr.Invalid("you cannot invite yourself")
	}
	member, err := s.repo.IsMember(ctx, g.ID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperr.Conflict("user is already a member of this group")
	}
	inviter, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	inv := &Invite{
		ID:          uuid.New(),
		GroupID:     g.ID,
		GroupName:   g.Name,
		InviterID:   userID,
		InviterName: inviter.FullName,
		InviteeID:   invitee.ID,
		Status:      InvitePending,
	}
	if err := s.repo.CreateInvite(ctx, inv); err != nil {
		return nil, err
	}

	s.notify(ctx, invitee.ID, notification.TypeGroupInvite, "Group invitation",
		fmt.Sprintf("%s invited you to join %s.", inviter.FullName, g.Name),
		map[string]string{"group_id": g.ID.String(), "invite_id": inv.ID.String()})
	msg, err := s.templates.GroupInvite(invitee.Email, g.Name, inviter.FullName)
	s.sendBestEffort(ctx, "group invite", msg, err)
	return inv, nil
}

func (s *service) ListMyInvites(ctx context.Context, userID uuid.UUID) ([]*Invite, error) {
	return s.repo.ListPendingInvites(ctx, userID)
}

func (s *service) RespondInvite(ctx context.Context, userID uuid.UUID, inviteID string, req RespondRequest) (*Invite, error) {
	iid, err := httpx.ParseID(inviteID, "invite id")
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.GetInvite(ctx, iid)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != userID {
		return nil, apperr.NotFound("invite not found")
	}
	if inv.Status != InvitePending {
		return nil, apperr.Conflict("invite already %s", inv.Status)
	}

	now := s.now().UTC()
	if !req.Accept {
		if err := s.repo.ResolveInvite(ctx, inv.ID, InviteDeclined); err != nil {
			return nil, err
		}
		inv.Status, inv.RespondedAt = InviteDeclined, &now
		return inv, nil
	}

	g, err := s.repo.GetByID(ctx, inv.GroupID)
	if err != nil {
		return nil, err
	}
	if g.Status != StatusForming {
		return nil, apperr.Conflict("group is no longer accepting members")
	}
	if _, err := s.join(ctx, userID, g, inv); err != nil {
		return nil, err
	}
	inv.Status, inv.RespondedAt = InviteAccepted, &now
	return inv, nil
}

// ── discussion ───────────────────────────────────────────────────────────────

func (s *service) PostMessage(ctx context.Context, userID uuid.UUID, id string, req MessageRequest) (*Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperr.Invalid("message cannot be empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, apperr.Invalid("message cannot be longer than %d characters", MaxMessageLength)
	}
	gid, err := httpx.ParseID(id, "group id")
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, gid, userID, "only group members can post messages"); err != nil {
		return nil, err
	}

	m := &Message{ID: uuid.New(), GroupID: gid, UserID: userID, Body: body}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	s.pub.Publish(Topic(gid), EventMessage, m)
	return m, nil
}

func (s *service) ListMessages(ctx context.Context, actor authz.Identity, id string, page httpx.Page) ([]*Message, error) {
	gid, err := s.Discussion(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, gid, page)
}

func (s *service) Discussion(ctx context.Context, actor authz.Identity, id string) (uuid.UUID, error) {
	gid, err := httpx.ParseID(id, "group id")
	if err != nil {
		return uuid.Nil, err
	}
	if actor.Is(authz.RoleSupport) {
		return gid, nil
	}
	if err := s.requireMember(ctx, gid, actor.UserID, "only group members can read the discussion"); err != nil {
		return uuid.Nil, err
	}
	return gid, nil
}

// ── group orders ─────────────────────────────────────────────────────────────

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, id string, req OrderRequest) (*Order, error) {
	if req.Quantity <= 0 {
		return nil, apperr.Invalid("quantity must be at least 1")
	}
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, g.ID, userID, "only group members can order"); err != nil {
		return nil, err
	}
	if g.Status == StatusCancelled {
		return nil, apperr.Conflict("group has been cancelled")
	}
	p, err := s.products.GetByID(ctx, g.ProductID)
	if err != nil {
		return nil, err
	}
	if err := p.Purchasable(s.now()); err != nil {
		return nil, err
	}
	if req.Quantity > p.AvailableSlots {
		return nil, apperr.Conflict("only %d slots of %s are left", p.AvailableSlots, p.Name)
	}

	o := &Order{
		ID:               uuid.New(),
		GroupID:          g.ID,
		UserID:           userID,
		Quantity:         req.Quantity,
		UnitPrice:        p.Price,
		TotalAmount:      p.Price.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:           "pending",
		PaymentStatus:    "pending",
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		ProductID:        p.ID,
		VendorID:         p.VendorID,
		VendorUserID:     g.Product.VendorUserID,
		GroupName:        g.Name,
	}
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	s.metrics.OrderCreated("group")
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, actor authz.Identity, id string) ([]*Order, error) {
	g, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Product.VendorUserID != actor.UserID && !actor.Is(authz.RoleSupport) {
		if err := s.requireMember(ctx, g.ID, actor.UserID, "only group members can view group orders"); err != nil {
			return nil, err
		}
	}
	return s.repo.ListOrders(ctx, g.ID)
}

func (s *service) FindOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *service) SettleOrder(ctx context.Context, id uuid.UUID, success bool) (*Order, error) {
	o, changed, err := s.repo.SettleOrder(ctx, id, success)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}
	s.metrics.PaymentSettled(o.PaymentStatus)

	meta := map[string]string{"group_order_id": o.ID.String(), "group_id": o.GroupID.String(), "payment_status": o.PaymentStatus}
	if success {
		s.notify(ctx, o.UserID, notification.TypeOrderUpdate, "Payment confirmed",
			fmt.Sprintf("Your order of %d in %s is confirmed.", o.Quantity, o.GroupName), meta)
		s.notify(ctx, o.VendorUserID, notification.TypeOrderUpdate, "New paid group order",
			fmt.Sprintf("A member of %s paid for %d units.", o.GroupName, o.Quantity), meta)
	} else {
		s.notify(ctx, o.UserID, notification.TypeOrderUpdate, "Payment failed",
			fmt.Sprintf("Payment for your order in %s failed and the order was cancelled.", o.GroupName), meta)
	}
	return o, nil
}

func (s *service) AttachOrderPayment(ctx context.Context, id uuid.UUID, reference string) error {
	return s.repo.SetOrderReference(ctx, id, reference)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (s *service) load(ctx context.Context, id string) (*Group, error) {
	gid, err := httpx.ParseID(id, "group id")
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, gid)
}

func (s *service) requireMember(ctx context.Context, groupID, userID uuid.UUID, denied string) error {
	ok, err := s.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("%s", denied)
	}
	return nil
}

// broadcast notifies and emails every member except skip.
func (s *service) broadcast(ctx context.Context, g *Group, skip uuid.UUID, kind mailer.GroupUpdateKind, title, message string) {
	members, err := s.repo.ListMembers(ctx, g.ID)
	if err != nil {
		logger.FromContext(ctx).Warn("list group members for update",
			zap.String("group_id", g.ID.String()), zap.Error(err))
		return
	}
	meta := map[string]string{"group_id": g.ID.String(), "status": string(g.Status), "event": string(kind)}
	for _, m := range members {
		if m.UserID == skip {
			continue
		}
		s.notify(ctx, m.UserID, notification.TypeGroupUpdate, title, message, meta)
		if m.Email == "" {
			continue
		}
		msg, err := s.templates.GroupUpdate(m.Email, g.Name, kind, "")
		s.sendBestEffort(ctx, "group update", msg, err)
	}
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, typ notification.Type, title, message string, meta map[string]string) {
	if userID == uuid.Nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, userID, typ, title, message, meta); err != nil {
		logger.FromContext(ctx).Warn("group notification failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}

func (s *service) sendBestEffort(ctx context.Context, what string, msg mailer.Message, renderErr error) {
	log := logger.FromContext(ctx)
	if renderErr != nil {
		log.Warn("render email", zap.String("email", what), zap.Error(renderErr))
		return
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.Warn("send email", zap.String("email", what), zap.Strings("to", msg.To), zap.Error(err))
	}
}

func summarize(p *catalog.Product) *ProductSummary {
	ps := &ProductSummary{Name: p.Name, Price: p.Price, Unit: p.Unit, ImageURL: p.ImageURL, VendorID: p.VendorID}
	if p.Vendor != nil {
		ps.VendorName = p.Vendor.BusinessName
	}
	return ps
}

func hasMember(members []Member, userID uuid.UUID) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
