package group

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const groupSelect = `
	SELECT g.id, g.product_id, g.name, g.description, g.target_size, g.current_size, g.status,
	       g.is_private, g.location_state, g.location_city, g.latitude, g.longitude,
	       g.max_distance_km, g.share_date, g.created_by, g.created_at, g.updated_at,
	       p.name, p.price, p.unit, p.image_url, p.vendor_id, v.business_name, v.user_id
	FROM product_groups g
	JOIN products p ON p.id = g.product_id
	JOIN vendors v ON v.id = p.vendor_id`

const inviteSelect = `
	SELECT i.id, i.group_id, g.name, i.inviter_id, u.full_name, i.invitee_id, i.status,
	       i.created_at, i.responded_at
	FROM group_invites i
	JOIN product_groups g ON g.id = i.group_id
	JOIN users u ON u.id = i.inviter_id`

const orderSelect = `
	SELECT o.id, o.group_id, o.user_id, o.quantity, o.unit_price, o.total_amount, o.status,
	       o.payment_status, o.payment_reference, o.created_at, o.updated_at,
	       g.product_id, p.vendor_id, v.user_id, g.name
	FROM group_orders o
	JOIN product_groups g ON g.id = o.group_id
	JOIN products p ON p.id = g.product_id
	JOIN vendors v ON v.id = p.vendor_id`

// ── groups ───────────────────────────────────────────────────────────────────

func (r *postgresRepo) Create(ctx context.Context, g *Group) error {
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_groups
			  (id, product_id, name, description, target_size, current_size, status, is_private,
			   location_state, location_city, latitude, longitude, max_distance_km, share_date,
			   created_by, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
			g.ID, g.ProductID, g.Name, g.Description, g.TargetSize, g.CurrentSize, g.Status, g.IsPrivate,
			g.State, g.City, g.Latitude, g.Longitude, g.MaxDistanceKm, g.ShareDate,
			g.CreatedBy, g.CreatedAt, g.UpdatedAt)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			g.ID, g.CreatedBy, now)
		return err
	})
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	g, err := scanGroup(r.db.QueryRowContext(ctx, groupSelect+` WHERE g.id = $1`, id))
	return g, database.MapError(err, "group")
}

func (r *postgresRepo) ListOpen(ctx context.Context, productID uuid.UUID, state string, now time.Time) ([]*Group, error) {
	return r.listGroups(ctx, groupSelect+`
		WHERE g.product_id = $1
		  AND g.status = 'forming'
		  AND NOT g.is_private
		  AND LOWER(g.location_state) = LOWER($2)
		  AND (g.share_date IS NULL OR g.share_date >= $3)`, productID, state, now)
}

func (r *postgresRepo) ListByMember(ctx context.Context, userID uuid.UUID) ([]*Group, error) {
	return r.listGroups(ctx, groupSelect+`
		JOIN group_members m ON m.group_id = g.id
		WHERE m.user_id = $1
		ORDER BY g.created_at DESC`, userID)
}

func (r *postgresRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE product_groups SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict("group is no longer %s", from)
	}
	return nil
}

// ── members ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) ListMembers(ctx context.Context, groupID uuid.UUID) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.user_id, m.status, u.full_name, u.email, m.joined_at
		FROM group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.joined_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Status, &m.FullName, &m.Email, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *postgresRepo) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2 AND status = 'active'
		)`, groupID, userID).Scan(&ok)
	return ok, err
}

func (r *postgresRepo) AddMember(ctx context.Context, groupID, userID uuid.UUID) (*Group, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			status       Status
			size, target int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, current_size, target_size FROM product_groups WHERE id = $1 FOR UPDATE`,
			groupID).Scan(&status, &size, &target)
		if err != nil {
			return database.MapError(err, "group")
		}
		if status != StatusForming {
			return apperr.Conflict("group is no longer accepting members")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, groupID, userID); err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Conflict("you are already a member of this group")
			}
			return err
		}
		size++
		if size >= target {
			status = StatusComplete
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE product_groups SET current_size=$1, status=$2, updated_at=NOW() WHERE id=$3`,
			size, status, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, groupID)
}

func (r *postgresRepo) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (*Group, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
		if err := expectOne(res, err, "membership"); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE product_groups
			SET current_size = GREATEST(current_size - 1, 0), updated_at = NOW()
			WHERE id = $1`, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, groupID)
}

// ── invites ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) CreateInvite(ctx context.Context, inv *Invite) error {
	inv.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO group_invites (id, group_id, inviter_id, invitee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		inv.ID, inv.GroupID, inv.InviterID, inv.InviteeID, inv.Status, inv.CreatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("user already has a pending invite to this group")
	}
	return err
}

func (r *postgresRepo) GetInvite(ctx context.Context, id uuid.UUID) (*Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx, inviteSelect+` WHERE i.id = $1`, id))
	return inv, database.MapError(err, "invite")
}

func (r *postgresRepo) ListPendingInvites(ctx context.Context, inviteeID uuid.UUID) ([]*Invite, error) {
	rows, err := r.db.QueryContext(ctx, inviteSelect+`
		WHERE i.invitee_id = $1 AND i.status = 'pending'
		ORDER BY i.created_at DESC`, inviteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := []*Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *postgresRepo) PendingInvite(ctx context.Context, groupID, inviteeID uuid.UUID) (*Invite, error) {
	inv, err := scanInvite(r.db.QueryRowContext(ctx, inviteSelect+`
		WHERE i.group_id = $1 AND i.invitee_id = $2 AND i.status = 'pending'`, groupID, inviteeID))
	return inv, database.MapError(err, "pending invite")
}

func (r *postgresRepo) ResolveInvite(ctx context.Context, id uuid.UUID, status InviteStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE group_invites SET status = $1, responded_at = NOW()
		WHERE id = $2 AND status = 'pending'`, status, id)
	return expectOne(res, err, "pending invite")
}

// ── messages ─────────────────────────────────────────────────────────────────

func (r *postgresRepo) CreateMessage(ctx context.Context, m *Message) error {
	return r.db.QueryRowContext(ctx, `
		WITH ins AS (
		  INSERT INTO group_messages (id, group_id, user_id, body)
		  VALUES ($1, $2, $3, $4)
		  RETURNING user_id, created_at
		)
		SELECT ins.created_at, u.full_name FROM ins JOIN users u ON u.id = ins.user_id`,
		m.ID, m.GroupID, m.UserID, m.Body).Scan(&m.CreatedAt, &m.Author)
}

func (r *postgresRepo) ListMessages(ctx context.Context, groupID uuid.UUID, page httpx.Page) ([]*Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.group_id, m.user_id, u.full_name, m.body, m.created_at
		FROM group_messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.group_id = $1
		ORDER BY m.created_at ASC
		LIMIT $2 OFFSET $3`, groupID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Author, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ── group orders ─────────────────────────────────────────────────────────────

func (r *postgresRepo) CreateOrder(ctx context.Context, o *Order) error {
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := catalog.Reserve(ctx, tx, o.ProductID, o.Quantity); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO group_orders
			  (id, group_id, user_id, quantity, unit_price, total_amount, status, payment_status,
			   payment_reference, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			o.ID, o.GroupID, o.UserID, o.Quantity, o.UnitPrice, o.TotalAmount, o.Status,
			o.PaymentStatus, o.PaymentReference, o.CreatedAt, o.UpdatedAt)
		return err
	})
}

func (r *postgresRepo) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	return o, database.MapError(err, "group order")
}

func (r *postgresRepo) ListOrders(ctx context.Context, groupID uuid.UUID) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, orderSelect+` WHERE o.group_id = $1 ORDER BY o.created_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *postgresRepo) SettleOrder(ctx context.Context, id uuid.UUID, success bool) (*Order, bool, error) {
	outcome, status := "failed", "cancelled"
	if success {
		outcome, status = "success", "confirmed"
	}
	var (
		o       *Order
		changed bool
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		o, err = scanOrder(tx.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id))
		if err != nil {
			return database.MapError(err, "group order")
		}
		if o.PaymentStatus == outcome {
			return nil
		}
		if o.PaymentStatus != "pending" {
			return apperr.Conflict("group order payment already %s", o.PaymentStatus)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE group_orders SET payment_status=$1, status=$2, updated_at=NOW() WHERE id=$3`,
			outcome, status, id); err != nil {
			return err
		}
		if !success {
			if err := catalog.Release(ctx, tx, o.ProductID, o.Quantity); err != nil {
				return err
			}
		}
		o.PaymentStatus, o.Status = outcome, status
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return o, changed, nil
}

func (r *postgresRepo) SetOrderReference(ctx context.Context, id uuid.UUID, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE group_orders SET payment_reference=$1, updated_at=NOW() WHERE id=$2`, ref, id)
	return expectOne(res, err, "group order")
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) listGroups(ctx context.Context, query string, args ...interface{}) ([]*Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []*Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row scanner) (*Group, error) {
	g := &Group{Product: &ProductSummary{}}
	var lat, lng sql.NullFloat64
	var share sql.NullTime
	err := row.Scan(&g.ID, &g.ProductID, &g.Name, &g.Description, &g.TargetSize, &g.CurrentSize, &g.Status,
		&g.IsPrivate, &g.State, &g.City, &lat, &lng,
		&g.MaxDistanceKm, &share, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt,
		&g.Product.Name, &g.Product.Price, &g.Product.Unit, &g.Product.ImageURL, &g.Product.VendorID,
		&g.Product.VendorName, &g.Product.VendorUserID)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		g.Latitude, g.Longitude = &lat.Float64, &lng.Float64
	}
	if share.Valid {
		g.ShareDate = &share.Time
	}
	return g, nil
}

func scanInvite(row scanner) (*Invite, error) {
	inv := &Invite{}
	var responded sql.NullTime
	err := row.Scan(&inv.ID, &inv.GroupID, &inv.GroupName, &inv.InviterID, &inv.InviterName, &inv.InviteeID,
		&inv.Status, &inv.CreatedAt, &responded)
	if err != nil {
		return nil, err
	}
	if responded.Valid {
		inv.RespondedAt = &responded.Time
	}
	return inv, nil
}

func scanOrder(row scanner) (*Order, error) {
	o := &Order{}
	err := row.Scan(&o.ID, &o.GroupID, &o.UserID, &o.Quantity, &o.UnitPrice, &o.TotalAmount, &o.Status,
		&o.PaymentStatus, &o.PaymentReference, &o.CreatedAt, &o.UpdatedAt,
		&o.ProductID, &o.VendorID, &o.VendorUserID, &o.GroupName)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func expectOne(res sql.Result, err error, what string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.MapError(sql.ErrNoRows, what)
	}
	return nil
}
