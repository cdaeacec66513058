package notification

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, n *Notification) error {
	meta := []byte(n.Metadata)
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}
	return r.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, metadata)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		n.ID, n.UserID, n.Title, n.Message, n.Type, meta,
	).Scan(&n.CreatedAt)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, page httpx.Page) ([]*Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, metadata, read, created_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Notification{}
	for rows.Next() {
		n := &Notification{}
		var meta []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &meta, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Metadata = meta
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *postgresRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.MapError(sql.ErrNoRows, "notification")
	}
	return nil
}

func (r *postgresRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *postgresRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&n)
	return n, err
}
