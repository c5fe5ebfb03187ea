package ports

import (
	"context"
	"time"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// TripFilter narrows trip listings. Zero fields do not filter.
type TripFilter struct {
	Date     *time.Time
	From     string
	To       string
	Statuses []domain.TripStatus
}

// TripRepository persists trips. Update is a compare-and-write on Version:
// it returns domain.ErrVersionConflict when the stored version differs from
// expectedVersion and increments the version on success.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	List(ctx context.Context, filter TripFilter) ([]domain.Trip, error)
	Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error
}

// BookingFilter narrows booking listings. Zero fields do not filter.
type BookingFilter struct {
	Status      domain.BookingStatus
	TripID      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// BookingRepository persists bookings. The transition methods only apply to
// a booking that is still Pending and return a ConflictError otherwise.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int, error)

	// Accept writes trip (compare-and-write against expectedTripVersion) and
	// moves the booking to Accepted in one atomic step.
	Accept(ctx context.Context, booking *domain.Booking, trip *domain.Trip, expectedTripVersion int64) error
	Reject(ctx context.Context, booking *domain.Booking) error
	Cancel(ctx context.Context, booking *domain.Booking) error
}

// VehicleRepository persists vehicles.
type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Vehicle, error)
	Count(ctx context.Context) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// DriverRepository persists drivers.
type DriverRepository interface {
	Create(ctx context.Context, d *domain.Driver) error
	GetByID(ctx context.Context, id string) (*domain.Driver, error)
	List(ctx context.Context, available *bool) ([]domain.Driver, error)
	Update(ctx context.Context, d *domain.Driver) error
	Delete(ctx context.Context, id string) error
}
