package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectSQL = `
	SELECT id, reference, order_id, group_order_id, user_id, vendor_id, amount, currency,
	       subaccount_code, status, provider_status, authorization_url, raw_webhook,
	       created_at, updated_at
	FROM payment_transactions`

func (r *postgresRepo) Create(ctx context.Context, tx *Transaction) error {
	now := time.Now().UTC()
	tx.CreatedAt, tx.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_transactions
		  (id, reference, order_id, group_order_id, user_id, vendor_id, amount, currency,
		   subaccount_code, status, provider_status, authorization_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		tx.ID, tx.Reference, tx.OrderID, tx.GroupOrderID, tx.UserID, tx.VendorID, tx.Amount, tx.Currency,
		tx.SubaccountCode, tx.Status, tx.ProviderStatus, tx.AuthorizationURL, tx.CreatedAt, tx.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return apperr.Conflict("payment reference %s already exists", tx.Reference)
	}
	return err
}

func (r *postgresRepo) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, selectSQL+` WHERE reference = $1`, reference))
	if err != nil {
		return nil, database.MapError(err, "payment")
	}
	return tx, nil
}

func (r *postgresRepo) SetAuthorization(ctx context.Context, reference, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions SET authorization_url = $1, updated_at = $2 WHERE reference = $3`,
		url, time.Now().UTC(), reference)
	return expectOne(res, err)
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, reference string, status Status, providerStatus string, raw json.RawMessage) error {
	var webhook any
	if raw != nil {
		webhook = []byte(raw)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_transactions
		SET status = $1, provider_status = $2, raw_webhook = COALESCE($3::jsonb, raw_webhook), updated_at = $4
		WHERE reference = $5`,
		status, providerStatus, webhook, time.Now().UTC(), reference)
	return expectOne(res, err)
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanTransaction(s scanner) (*Transaction, error) {
	var (
		tx  Transaction
		raw []byte
	)
	err := s.Scan(&tx.ID, &tx.Reference, &tx.OrderID, &tx.GroupOrderID, &tx.UserID, &tx.VendorID,
		&tx.Amount, &tx.Currency, &tx.SubaccountCode, &tx.Status, &tx.ProviderStatus,
		&tx.AuthorizationURL, &raw, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		tx.RawWebhook = json.RawMessage(raw)
	}
	return &tx, nil
}
