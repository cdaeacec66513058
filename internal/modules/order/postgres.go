package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const orderSelect = `
	SELECT o.id, o.user_id, o.product_id, o.vendor_id, o.quantity, o.unit_price, o.subtotal,
	       o.delivery_cost, o.total_amount, o.status, o.payment_status, o.payment_reference,
	       o.delivery_option, o.delivery_details, o.group_id, o.bulk_batch_id,
	       o.created_at, o.updated_at,
	       p.name, v.business_name, v.user_id, u.full_name, u.email
	FROM orders o
	JOIN products p ON p.id = o.product_id
	JOIN vendors v ON v.id = o.vendor_id
	JOIN users u ON u.id = o.user_id`

// Place inserts the orders and takes their slots inside a single transaction.
func (r *postgresRepo) Place(ctx context.Context, orders ...*Order) error {
	now := time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, o := range orders {
			if err := catalog.Reserve(ctx, tx, o.ProductID, o.Quantity); err != nil {
				return err
			}
			details, err := json.Marshal(o.DeliveryDetails)
			if err != nil {
				return fmt.Errorf("encode delivery details: %w", err)
			}
			o.CreatedAt, o.UpdatedAt = now, now
			_, err = tx.ExecContext(ctx, `
				INSERT INTO orders
				  (id, user_id, product_id, vendor_id, quantity, unit_price, subtotal, delivery_cost,
				   total_amount, status, payment_status, payment_reference, delivery_option,
				   delivery_details, group_id, bulk_batch_id, created_at, updated_at)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
				o.ID, o.UserID, o.ProductID, o.VendorID, o.Quantity, o.UnitPrice, o.Subtotal,
				o.DeliveryCost, o.TotalAmount, o.Status, o.PaymentStatus, o.PaymentReference,
				o.DeliveryOption, details, nullUUID(o.GroupID), nullUUID(o.BulkBatchID),
				o.CreatedAt, o.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
		}
		return nil
	})
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1`, id))
	return o, database.MapError(err, "order")
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID uuid.UUID, page httpx.Page) ([]*Order, error) {
	return r.list(ctx, orderSelect+`
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3`, userID, page.Limit, page.Offset)
}

func (r *postgresRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, status Status, page httpx.Page) ([]*Order, error) {
	query := orderSelect + ` WHERE o.vendor_id = $1`
	args := []interface{}{vendorID}
	n := 2
	if status != "" {
		query += fmt.Sprintf(` AND o.status = $%d`, n)
		args = append(args, status)
		n++
	}
	query += fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, n, n+1)
	args = append(args, page.Limit, page.Offset)
	return r.list(ctx, query, args...)
}

func (r *postgresRepo) ListCreatedBetween(ctx context.Context, from, to time.Time, status Status) ([]*Order, error) {
	query := orderSelect + ` WHERE o.created_at >= $1 AND o.created_at < $2`
	args := []interface{}{from, to}
	if status != "" {
		query += ` AND o.status = $3`
		args = append(args, status)
	}
	return r.list(ctx, query+` ORDER BY o.created_at ASC`, args...)
}

func (r *postgresRepo) Transition(ctx context.Context, o *Order, to Status) error {
	now := time.Now().UTC()
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
			to, now, o.ID, o.Status)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.Conflict("order status changed, reload and try again")
		}
		if to == StatusCancelled {
			return catalog.Release(ctx, tx, o.ProductID, o.Quantity)
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.Status, o.UpdatedAt = to, now
	return nil
}

func (r *postgresRepo) Settle(ctx context.Context, id uuid.UUID, outcome PaymentStatus) (*Order, bool, error) {
	var (
		o       *Order
		changed bool
	)
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		o, err = scanOrder(tx.QueryRowContext(ctx, orderSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id))
		if err != nil {
			return database.MapError(err, "order")
		}
		if o.PaymentStatus == outcome {
			return nil
		}
		if o.PaymentStatus != PaymentPending {
			return apperr.Conflict("order payment already %s", o.PaymentStatus)
		}

		// A failed payment cancels any order still in progress, including one
		// a vendor confirmed before the outcome arrived.
		status := o.Status
		switch {
		case outcome == PaymentFailed && o.Status != StatusCompleted:
			status = StatusCancelled
		case outcome == PaymentSuccess && o.Status == StatusPending:
			status = StatusConfirmed
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET payment_status=$1, status=$2, updated_at=$3 WHERE id=$4`,
			outcome, status, now, id); err != nil {
			return err
		}
		if status == StatusCancelled && o.Status != StatusCancelled {
			if err := catalog.Release(ctx, tx, o.ProductID, o.Quantity); err != nil {
				return err
			}
		}
		o.PaymentStatus, o.Status, o.UpdatedAt = outcome, status, now
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return o, changed, nil
}

func (r *postgresRepo) SetPaymentReference(ctx context.Context, id uuid.UUID, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET payment_reference=$1, updated_at=NOW() WHERE id=$2`, ref, id)
	return expectOne(res, err, "order")
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) list(ctx context.Context, query string, args ...interface{}) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row scanner) (*Order, error) {
	o := &Order{}
	var details []byte
	var groupID, batchID uuid.NullUUID
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.VendorID, &o.Quantity, &o.UnitPrice, &o.Subtotal,
		&o.DeliveryCost, &o.TotalAmount, &o.Status, &o.PaymentStatus, &o.PaymentReference,
		&o.DeliveryOption, &details, &groupID, &batchID,
		&o.CreatedAt, &o.UpdatedAt,
		&o.ProductName, &o.VendorName, &o.VendorUserID, &o.CustomerName, &o.CustomerEmail)
	if err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &o.DeliveryDetails); err != nil {
			return nil, fmt.Errorf("decode delivery details: %w", err)
		}
	}
	if groupID.Valid {
		o.GroupID = &groupID.UUID
	}
	if batchID.Valid {
		o.BulkBatchID = &batchID.UUID
	}
	return o, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
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
