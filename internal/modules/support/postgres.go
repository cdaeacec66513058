package support

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

// ── affiliates ───────────────────────────────────────────────────────────────

func (r *postgresRepo) CreateAffiliate(ctx context.Context, a *Affiliate) error {
	a.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO support_affiliates (support_id, code, created_at) VALUES ($1, $2, $3)`,
		a.SupportID, a.Code, a.CreatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("affiliate code %s is taken", a.Code)
	}
	return err
}

func (r *postgresRepo) GetAffiliate(ctx context.Context, supportID uuid.UUID) (*Affiliate, error) {
	var a Affiliate
	err := r.db.QueryRowContext(ctx, `
		SELECT support_id, code, created_at FROM support_affiliates WHERE support_id = $1`, supportID).
		Scan(&a.SupportID, &a.Code, &a.CreatedAt)
	if err != nil {
		return nil, database.MapError(err, "affiliate code")
	}
	return &a, nil
}

// ── assignments ──────────────────────────────────────────────────────────────

const assignmentSelect = `
	SELECT a.id, a.support_id, u.full_name, a.vendor_id, v.business_name, a.created_at
	FROM support_assignments a
	JOIN users u ON u.id = a.support_id
	JOIN vendors v ON v.id = a.vendor_id`

func (r *postgresRepo) Assign(ctx context.Context, supportID, vendorID uuid.UUID) (*Assignment, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO support_assignments (id, support_id, vendor_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (vendor_id) DO UPDATE SET support_id = EXCLUDED.support_id, created_at = EXCLUDED.created_at
		RETURNING id`,
		uuid.New(), supportID, vendorID, time.Now().UTC()).Scan(&id)
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.NotFound("vendor not found")
	}
	if err != nil {
		return nil, err
	}
	a, err := scanAssignment(r.db.QueryRowContext(ctx, assignmentSelect+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, database.MapError(err, "assignment")
	}
	return a, nil
}

func (r *postgresRepo) Unassign(ctx context.Context, vendorID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM support_assignments WHERE vendor_id = $1`, vendorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("vendor has no support assignment")
	}
	return nil
}

func (r *postgresRepo) ListAssignments(ctx context.Context, supportID *uuid.UUID) ([]Assignment, error) {
	rows, err := r.db.QueryContext(ctx, assignmentSelect+`
		WHERE ($1::uuid IS NULL OR a.support_id = $1::uuid)
		ORDER BY u.full_name, v.business_name`, supportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ── bank details ─────────────────────────────────────────────────────────────

func (r *postgresRepo) SaveBankDetails(ctx context.Context, b *BankDetails) error {
	now := time.Now().UTC()
	return r.db.QueryRowContext(ctx, `
		INSERT INTO support_bank_details (support_id, account_name, bank_name, account_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (support_id) DO UPDATE
		SET account_name = EXCLUDED.account_name, bank_name = EXCLUDED.bank_name,
		    account_number = EXCLUDED.account_number, updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at`,
		b.SupportID, b.AccountName, b.BankName, b.AccountNumber, now).Scan(&b.CreatedAt, &b.UpdatedAt)
}

func (r *postgresRepo) GetBankDetails(ctx context.Context, supportID uuid.UUID) (*BankDetails, error) {
	var b BankDetails
	err := r.db.QueryRowContext(ctx, `
		SELECT support_id, account_name, bank_name, account_number, created_at, updated_at
		FROM support_bank_details WHERE support_id = $1`, supportID).
		Scan(&b.SupportID, &b.AccountName, &b.BankName, &b.AccountNumber, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err, "bank details")
	}
	return &b, nil
}

// ── reporting ────────────────────────────────────────────────────────────────

func (r *postgresRepo) ListAgents(ctx context.Context) ([]Agent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.full_name, u.email, COALESCE(a.code, ''),
		       b.account_name, b.bank_name, b.account_number
		FROM users u
		LEFT JOIN support_affiliates a ON a.support_id = u.id
		LEFT JOIN support_bank_details b ON b.support_id = u.id
		WHERE u.role = 'support'
		ORDER BY u.full_name, u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Agent{}
	for rows.Next() {
		var ag Agent
		var accName, bankName, accNumber sql.NullString
		if err := rows.Scan(&ag.ID, &ag.FullName, &ag.Email, &ag.Code, &accName, &bankName, &accNumber); err != nil {
			return nil, err
		}
		if accNumber.Valid {
			ag.BankDetails = &BankDetails{SupportID: ag.ID, AccountName: accName.String,
				BankName: bankName.String, AccountNumber: accNumber.String}
		}
		out = append(out, ag)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Sales(ctx context.Context, supportID *uuid.UUID, from, to time.Time) ([]VendorSales, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH paid AS (
			SELECT vendor_id, total_amount, created_at
			FROM orders
			WHERE payment_status = 'success'
			UNION ALL
			SELECT p.vendor_id, go.total_amount, go.created_at
			FROM group_orders go
			JOIN product_groups g ON g.id = go.group_id
			JOIN products p ON p.id = g.product_id
			WHERE go.payment_status = 'success'
		)
		SELECT a.support_id, a.vendor_id, v.business_name,
		       COUNT(paid.vendor_id), COALESCE(SUM(paid.total_amount), 0)
		FROM support_assignments a
		JOIN vendors v ON v.id = a.vendor_id
		LEFT JOIN paid ON paid.vendor_id = a.vendor_id AND paid.created_at >= $1 AND paid.created_at < $2
		WHERE ($3::uuid IS NULL OR a.support_id = $3::uuid)
		GROUP BY a.support_id, a.vendor_id, v.business_name
		ORDER BY v.business_name`, from, to, supportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []VendorSales{}
	for rows.Next() {
		var s VendorSales
		if err := rows.Scan(&s.SupportID, &s.VendorID, &s.BusinessName, &s.Orders, &s.Sales); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface{ Scan(dest ...any) error }

func scanAssignment(s scanner) (*Assignment, error) {
	var a Assignment
	if err := s.Scan(&a.ID, &a.SupportID, &a.SupportName, &a.VendorID, &a.BusinessName, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
