package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodrient/foodrient-backend/internal/platform/apperr"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const productSelect = `
	SELECT p.id, p.vendor_id, p.name, p.description, p.category, p.price, p.retail_price,
	       p.unit, p.image_url, p.is_perishable, p.total_slots, p.available_slots,
	       p.purchase_window_end, p.state, p.city, p.created_at, p.updated_at,
	       v.business_name, v.logo_url, v.is_verified, v.address, v.latitude, v.longitude
	FROM products p
	JOIN vendors v ON v.id = p.vendor_id`

var sortClauses = map[Sort]string{
	SortLatest:     `p.created_at DESC`,
	SortPriceLow:   `p.price ASC, p.created_at DESC`,
	SortPriceHigh:  `p.price DESC, p.created_at DESC`,
	SortSlots:      `p.available_slots DESC, p.created_at DESC`,
	SortEndingSoon: `p.purchase_window_end ASC`,
}

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, vendor_id, name, description, category, price, retail_price, unit, image_url,
		   is_perishable, total_slots, available_slots, purchase_window_end, state, city,
		   created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.VendorID, p.Name, p.Description, p.Category, p.Price, nullDecimal(p.RetailPrice),
		p.Unit, p.ImageURL, p.IsPerishable, p.TotalSlots, p.AvailableSlots, p.PurchaseWindowEnd,
		p.State, p.City, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id))
	return p, database.MapError(err, "product")
}

func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name=$1, description=$2, category=$3, price=$4, retail_price=$5, unit=$6,
		    image_url=$7, is_perishable=$8, total_slots=$9, available_slots=$10,
		    purchase_window_end=$11, updated_at=$12
		WHERE id=$13`,
		p.Name, p.Description, p.Category, p.Price, nullDecimal(p.RetailPrice), p.Unit,
		p.ImageURL, p.IsPerishable, p.TotalSlots, p.AvailableSlots,
		p.PurchaseWindowEnd, p.UpdatedAt, p.ID)
	return expectOne(res, err, "product")
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=$1`, id)
	if database.IsForeignKeyViolation(err) {
		return apperr.Conflict("product has orders and cannot be deleted; close its purchase window instead")
	}
	return expectOne(res, err, "product")
}

func (r *postgresRepo) Browse(ctx context.Context, f Filter, now time.Time) ([]*Product, error) {
	query := productSelect + ` WHERE p.purchase_window_end >= $1`
	args := []interface{}{now}
	n := 2
	if f.Search != "" {
		query += fmt.Sprintf(` AND (p.name ILIKE $%d OR p.description ILIKE $%d)`, n, n)
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n++
	}
	if f.State != "" {
		query += fmt.Sprintf(` AND LOWER(p.state) = LOWER($%d)`, n)
		args = append(args, f.State)
		n++
	}
	if f.City != "" {
		query += fmt.Sprintf(` AND LOWER(p.city) = LOWER($%d)`, n)
		args = append(args, f.City)
		n++
	}
	if f.Category != "" {
		query += fmt.Sprintf(` AND p.category = $%d`, n)
		args = append(args, f.Category)
		n++
	}
	if f.VendorID != nil {
		query += fmt.Sprintf(` AND p.vendor_id = $%d`, n)
		args = append(args, *f.VendorID)
		n++
	}
	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses[SortLatest]
	}
	query += fmt.Sprintf(` ORDER BY %s LIMIT $%d OFFSET $%d`, order, n, n+1)
	args = append(args, f.Limit, f.Offset)

	return r.list(ctx, query, args...)
}

func (r *postgresRepo) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*Product, error) {
	return r.list(ctx, productSelect+` WHERE p.vendor_id = $1 ORDER BY p.created_at DESC`, vendorID)
}

func (r *postgresRepo) ReserveSlots(ctx context.Context, id uuid.UUID, qty int) error {
	return Reserve(ctx, r.db, id, qty)
}

func (r *postgresRepo) ReleaseSlots(ctx context.Context, id uuid.UUID, qty int) error {
	return Release(ctx, r.db, id, qty)
}

// Reserve takes qty slots from a product inside tx. Order checkout calls it in
// the same transaction that inserts the order.
func Reserve(ctx context.Context, tx database.Tx, id uuid.UUID, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET available_slots = available_slots - $2, updated_at = NOW()
		WHERE id = $1 AND available_slots >= $2`, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict("not enough slots available")
	}
	return nil
}

// Release returns qty slots, never exceeding the product's total.
func Release(ctx context.Context, tx database.Tx, id uuid.UUID, qty int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET available_slots = LEAST(total_slots, available_slots + $2), updated_at = NOW()
		WHERE id = $1`, id, qty)
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (r *postgresRepo) list(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row scanner) (*Product, error) {
	p := &Product{Vendor: &VendorSummary{}}
	var retail decimal.NullDecimal
	var lat, lng sql.NullFloat64
	err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Category, &p.Price, &retail,
		&p.Unit, &p.ImageURL, &p.IsPerishable, &p.TotalSlots, &p.AvailableSlots,
		&p.PurchaseWindowEnd, &p.State, &p.City, &p.CreatedAt, &p.UpdatedAt,
		&p.Vendor.BusinessName, &p.Vendor.LogoURL, &p.Vendor.IsVerified, &p.Vendor.Address, &lat, &lng)
	if err != nil {
		return nil, err
	}
	if retail.Valid {
		p.RetailPrice = &retail.Decimal
	}
	if lat.Valid && lng.Valid {
		p.Vendor.Latitude, p.Vendor.Longitude = &lat.Float64, &lng.Float64
	}
	return p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(strings.TrimSpace(s)) }

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
