package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, phone, address, state, city,
	latitude, longitude, avatar_url, role, created_at, updated_at`

// Insert writes u using tx. Vendor registration calls it inside its own transaction.
func Insert(ctx context.Context, tx database.Tx, u *User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, full_name, phone, address, state, city,
		                   latitude, longitude, avatar_url, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Address, u.State, u.City,
		u.Latitude, u.Longitude, u.AvatarURL, u.Role, u.CreatedAt, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return database.MapError(err, "an account with this email")
	}
	return err
}

func (r *postgresRepository) Create(ctx context.Context, u *User) error {
	return Insert(ctx, r.db, u)
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, database.MapError(err, "user")
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email)))
	return u, database.MapError(err, "user")
}

func (r *postgresRepository) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET full_name=$1, phone=$2, address=$3, state=$4, city=$5,
		    latitude=$6, longitude=$7, avatar_url=$8, updated_at=$9
		WHERE id=$10`,
		u.FullName, u.Phone, u.Address, u.State, u.City,
		u.Latitude, u.Longitude, u.AvatarURL, u.UpdatedAt, u.ID)
	return expectOne(res, err)
}

func (r *postgresRepository) List(ctx context.Context, role authz.Role, page httpx.Page) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	args = append(args, page.Limit, page.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *postgresRepository) SetRole(ctx context.Context, id uuid.UUID, role authz.Role) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role=$1, updated_at=NOW() WHERE id=$2`, role, id)
	return expectOne(res, err)
}

func (r *postgresRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`, hash, id)
	return expectOne(res, err)
}

// ── helpers ──────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	u := &User{}
	var lat, lng sql.NullFloat64
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Address,
		&u.State, &u.City, &lat, &lng, &u.AvatarURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		u.Latitude, u.Longitude = &lat.Float64, &lng.Float64
	}
	return u, nil
}

func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return database.MapError(sql.ErrNoRows, "user")
	}
	return nil
}
