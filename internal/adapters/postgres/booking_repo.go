package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	db *DB
}

func NewBookingRepo(db *DB) *BookingRepo {
	return &BookingRepo{db: db}
}

const bookingColumns = `
	id, trip_id, customer_name, customer_email, customer_phone, seat_numbers, status,
	pickup_location, payment_amount, payment_method, payment_status, transaction_id,
	rejection_reason, admin_notes, created_at, updated_at`

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO bookings (trip_id, customer_name, customer_email, customer_phone, seat_numbers, status,
		                      pickup_location, payment_amount, payment_method, payment_status, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`, b.TripID, b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.SeatNumbers, b.Status,
		b.PickupLocation, b.Payment.Amount, b.Payment.Method, b.Payment.Status, b.Payment.TransactionID,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	err = translate("booking", b.ID, err)
	if domain.IsNotFound(err) {
		// foreign key on trip_id
		return domain.NotFoundError{Resource: "trip", ID: b.TripID, Err: err}
	}
	return err
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.Pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, translate("booking", id, err)
	}
	return b, nil
}

func (r *BookingRepo) List(ctx context.Context, f ports.BookingFilter) ([]domain.Booking, error) {
	where, args := bookingWhere(f)
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *BookingRepo) Count(ctx context.Context, f ports.BookingFilter) (int, error) {
	where, args := bookingWhere(f)
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&n)
	return n, err
}

// Accept commits the trip write and the Pending -> Accepted move in one
// transaction. Either both land or neither does.
func (r *BookingRepo) Accept(ctx context.Context, b *domain.Booking, trip *domain.Trip, expectedTripVersion int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := transition(ctx, tx, b, domain.BookingAccepted); err != nil {
		return err
	}
	if err := updateTrip(ctx, tx, trip, expectedTripVersion); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *BookingRepo) Reject(ctx context.Context, b *domain.Booking) error {
	return transition(ctx, r.db.Pool, b, domain.BookingRejected)
}

func (r *BookingRepo) Cancel(ctx context.Context, b *domain.Booking) error {
	return transition(ctx, r.db.Pool, b, domain.BookingCancelled)
}

// transition moves a Pending booking to status and refreshes b from the row.
func transition(ctx context.Context, q querier, b *domain.Booking, to domain.BookingStatus) error {
	row := q.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2, rejection_reason = $3, admin_notes = $4, updated_at = now()
		WHERE id = $1 AND status = 'Pending'
		RETURNING `+bookingColumns,
		b.ID, to, b.RejectionReason, b.AdminNotes)
	updated, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var cur domain.BookingStatus
		if err := q.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, b.ID).Scan(&cur); err != nil {
			return translate("booking", b.ID, err)
		}
		return domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("booking is %s, not Pending", cur),
		}
	}
	if err != nil {
		return translate("booking", b.ID, err)
	}
	*b = *updated
	return nil
}

func bookingWhere(f ports.BookingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.TripID != "" {
		add("trip_id = $%d", f.TripID)
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at < $%d", *f.CreatedTo)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.ID, &b.TripID, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.SeatNumbers, &b.Status,
		&b.PickupLocation, &b.Payment.Amount, &b.Payment.Method, &b.Payment.Status, &b.Payment.TransactionID,
		&b.RejectionReason, &b.AdminNotes, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}
