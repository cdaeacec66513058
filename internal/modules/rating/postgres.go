package rating

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, rt *Rating) error {
	rt.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vendor_ratings
		  (id, vendor_id, user_id, order_id, rating, delivery_rating, quality_rating,
		   communication_rating, comment, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rt.ID, rt.VendorID, rt.UserID, rt.OrderID, rt.Rating, rt.Delivery, rt.Quality,
		rt.Communication, rt.Comment, rt.CreatedAt)
	switch {
	case database.IsUniqueViolation(err):
		return apperr.Conflict("order has already been rated")
	case database.IsForeignKeyViolation(err):
		return apperr.NotFound("order not found")
	}
	return err
}

func (r *postgresRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID, page httpx.Page) ([]*Rating, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT vr.id, vr.vendor_id, vr.user_id, vr.order_id, vr.rating, vr.delivery_rating,
		       vr.quality_rating, vr.communication_rating, vr.comment, u.full_name, vr.created_at
		FROM vendor_ratings vr
		JOIN users u ON u.id = vr.user_id
		WHERE vr.vendor_id = $1
		ORDER BY vr.created_at DESC
		LIMIT $2 OFFSET $3`, vendorID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Rating{}
	for rows.Next() {
		var rt Rating
		if err := rows.Scan(&rt.ID, &rt.VendorID, &rt.UserID, &rt.OrderID, &rt.Rating, &rt.Delivery,
			&rt.Quality, &rt.Communication, &rt.Comment, &rt.Reviewer, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rt)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Tally(ctx context.Context, vendorID uuid.UUID) (Tally, error) {
	var t Tally
	d := &t.Distribution
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(rating), 0), COALESCE(SUM(delivery_rating), 0),
		       COALESCE(SUM(quality_rating), 0), COALESCE(SUM(communication_rating), 0),
		       COUNT(*) FILTER (WHERE rating = 1), COUNT(*) FILTER (WHERE rating = 2),
		       COUNT(*) FILTER (WHERE rating = 3), COUNT(*) FILTER (WHERE rating = 4),
		       COUNT(*) FILTER (WHERE rating = 5)
		FROM vendor_ratings
		WHERE vendor_id = $1`, vendorID).
		Scan(&t.Count, &t.Rating, &t.Delivery, &t.Quality, &t.Communication, &d[0], &d[1], &d[2], &d[3], &d[4])
	return t, err
}
