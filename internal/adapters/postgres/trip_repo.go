package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// TripRepo implements ports.TripRepository. Seats are stored as one jsonb
// document so a seat map is always written whole under the version check.
type TripRepo struct {
	db *DB
}

func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

const tripColumns = `
	t.id, t.vehicle_id, COALESCE(t.driver_id::text, ''), t.route_from, t.route_to,
	t.departure_date, t.departure_time, t.status, t.seats, t.fare, t.total_revenue,
	t.booked_seats_count, t.version, t.created_at, t.updated_at,
	v.id, v.name, v.type, v.total_seats, v.registration_number, v.route_from, v.route_to,
	v.is_active, v.created_at`

const tripFrom = ` FROM trips t JOIN vehicles v ON v.id = t.vehicle_id`

func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	seats, err := json.Marshal(trip.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO trips (vehicle_id, driver_id, route_from, route_to, departure_date, departure_time,
		                   status, seats, fare, total_revenue, booked_seats_count, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		RETURNING id, version, created_at, updated_at
	`, trip.VehicleID, nilIfEmpty(trip.DriverID), trip.Route.From, trip.Route.To, trip.DepartureDate,
		trip.DepartureTime, trip.Status, seats, trip.Fare, trip.TotalRevenue, trip.BookedSeatsCount,
	).Scan(&trip.ID, &trip.Version, &trip.CreatedAt, &trip.UpdatedAt)
	return translate("trip", trip.ID, err)
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+tripColumns+tripFrom+` WHERE t.id = $1`, id)
	t, err := scanTrip(row)
	if err != nil {
		return nil, translate("trip", id, err)
	}
	return t, nil
}

func (r *TripRepo) List(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != nil {
		add("t.departure_date = $%d::date", f.Date.Format(domain.DateLayout))
	}
	if f.From != "" {
		add("t.route_from = $%d", f.From)
	}
	if f.To != "" {
		add("t.route_to = $%d", f.To)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("t.status = ANY($%d)", statuses)
	}

	q := `SELECT ` + tripColumns + tripFrom
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY t.departure_date, t.departure_time, t.id`

	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

func (r *TripRepo) Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	return updateTrip(ctx, r.db.Pool, trip, expectedVersion)
}

// updateTrip writes the mutable trip fields when the stored version still
// equals expected. Zero rows means either a lost race or a missing trip.
func updateTrip(ctx context.Context, q querier, trip *domain.Trip, expected int64) error {
	seats, err := json.Marshal(trip.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	err = q.QueryRow(ctx, `
		UPDATE trips
		SET status = $3, seats = $4, total_revenue = $5, booked_seats_count = $6,
		    driver_id = $7, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`, trip.ID, expected, trip.Status, seats, trip.TotalRevenue, trip.BookedSeatsCount, nilIfEmpty(trip.DriverID),
	).Scan(&trip.Version, &trip.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists); err != nil {
			return translate("trip", trip.ID, err)
		}
		if !exists {
			return domain.NotFoundError{Resource: "trip", ID: trip.ID}
		}
		return domain.ErrVersionConflict
	}
	return translate("trip", trip.ID, err)
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var (
		t     domain.Trip
		v     domain.Vehicle
		seats []byte
	)
	if err := row.Scan(
		&t.ID, &t.VehicleID, &t.DriverID, &t.Route.From, &t.Route.To,
		&t.DepartureDate, &t.DepartureTime, &t.Status, &seats, &t.Fare, &t.TotalRevenue,
		&t.BookedSeatsCount, &t.Version, &t.CreatedAt, &t.UpdatedAt,
		&v.ID, &v.Name, &v.Type, &v.TotalSeats, &v.RegistrationNumber, &v.Route.From, &v.Route.To,
		&v.IsActive, &v.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &t.Seats); err != nil {
		return nil, fmt.Errorf("decode seats of trip %s: %w", t.ID, err)
	}
	t.Vehicle = &v
	return &t, nil
}
