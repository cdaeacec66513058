package routing

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

const routeSelect = `
	SELECT id, vendor_id, name, route_date, status, total_distance_km, estimated_duration_minutes,
	       created_at, updated_at
	FROM delivery_routes`

// ── routes ───────────────────────────────────────────────────────────────────

func (r *postgresRepo) CreateRoute(ctx context.Context, rt *Route) error {
	now := time.Now().UTC()
	rt.CreatedAt, rt.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_routes (id, vendor_id, name, route_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rt.ID, rt.VendorID, rt.Name, rt.Date, rt.Status, rt.CreatedAt, rt.UpdatedAt)
	return err
}

func (r *postgresRepo) GetRoute(ctx context.Context, id uuid.UUID) (*Route, error) {
	rt, err := scanRoute(r.db.QueryRowContext(ctx, routeSelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, database.MapError(err, "route")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, route_id, stop_number, order_id, address, latitude, longitude,
		       estimated_arrival, actual_arrival, notes, created_at
		FROM route_stops
		WHERE route_id = $1
		ORDER BY stop_number ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rt.Stops = []*Stop{}
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		rt.Stops = append(rt.Stops, s)
	}
	return rt, rows.Err()
}

func (r *postgresRepo) ListRoutes(ctx context.Context, vendorID uuid.UUID, date *time.Time) ([]*Route, error) {
	rows, err := r.db.QueryContext(ctx, routeSelect+`
		WHERE vendor_id = $1 AND ($2::date IS NULL OR route_date = $2::date)
		ORDER BY route_date DESC, created_at DESC`, vendorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routes := []*Route{}
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

func (r *postgresRepo) SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE delivery_routes SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict("route is no longer %s", from)
	}
	return nil
}

// ── stops ────────────────────────────────────────────────────────────────────

func (r *postgresRepo) AddStop(ctx context.Context, date time.Time, s *Stop) error {
	s.CreatedAt = time.Now().UTC()
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		// Serialise stop numbering per route.
		if _, err := tx.ExecContext(ctx,
			`SELECT id FROM delivery_routes WHERE id = $1 FOR UPDATE`, s.RouteID); err != nil {
			return err
		}
		var taken bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
			  SELECT 1 FROM route_stops s
			  JOIN delivery_routes r ON r.id = s.route_id
			  WHERE s.order_id = $1 AND r.route_date = $2
			)`, s.OrderID, date).Scan(&taken)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Conflict("order is already on a route for %s", date.Format(time.DateOnly))
		}
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(stop_number), 0) + 1 FROM route_stops WHERE route_id = $1`,
			s.RouteID).Scan(&s.StopNumber)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO route_stops
			  (id, route_id, stop_number, order_id, address, latitude, longitude, notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			s.ID, s.RouteID, s.StopNumber, s.OrderID, s.Address, s.Latitude, s.Longitude, s.Notes, s.CreatedAt)
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("order is already on this route")
		}
		return err
	})
}

func (r *postgresRepo) RemoveStop(ctx context.Context, routeID, stopID uuid.UUID) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var number int
		err := tx.QueryRowContext(ctx,
			`DELETE FROM route_stops WHERE id = $1 AND route_id = $2 RETURNING stop_number`,
			stopID, routeID).Scan(&number)
		if err != nil {
			return database.MapError(err, "stop")
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE route_stops SET stop_number = stop_number - 1 WHERE route_id = $1 AND stop_number > $2`,
			routeID, number)
		return err
	})
}

func (r *postgresRepo) SavePlan(ctx context.Context, rt *Route) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, s := range rt.Stops {
			if _, err := tx.ExecContext(ctx,
				`UPDATE route_stops SET stop_number=$1, estimated_arrival=$2 WHERE id=$3 AND route_id=$4`,
				s.StopNumber, s.EstimatedArrival, s.ID, rt.ID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE delivery_routes
			SET total_distance_km=$1, estimated_duration_minutes=$2, updated_at=NOW()
			WHERE id=$3`, rt.TotalDistanceKm, rt.EstimatedDurationMinutes, rt.ID)
		return err
	})
}

func (r *postgresRepo) RecordArrival(ctx context.Context, routeID, stopID uuid.UUID, at time.Time, notes string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE route_stops
		SET actual_arrival = $1, notes = CASE WHEN $2 = '' THEN notes ELSE $2 END
		WHERE id = $3 AND route_id = $4`, at, notes, stopID, routeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("stop not found")
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRoute(row scanner) (*Route, error) {
	rt := &Route{}
	err := row.Scan(&rt.ID, &rt.VendorID, &rt.Name, &rt.Date, &rt.Status, &rt.TotalDistanceKm,
		&rt.EstimatedDurationMinutes, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func scanStop(row scanner) (*Stop, error) {
	s := &Stop{}
	var eta, actual sql.NullTime
	err := row.Scan(&s.ID, &s.RouteID, &s.StopNumber, &s.OrderID, &s.Address, &s.Latitude, &s.Longitude,
		&eta, &actual, &s.Notes, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if eta.Valid {
		s.EstimatedArrival = &eta.Time
	}
	if actual.Valid {
		s.ActualArrival = &actual.Time
	}
	return s, nil
}
