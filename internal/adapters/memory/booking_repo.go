package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	s *Store
}

func NewBookingRepo(s *Store) *BookingRepo {
	return &BookingRepo{s: s}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.trips[b.TripID]; !ok {
		return domain.NotFoundError{Resource: "trip", ID: b.TripID}
	}
	if b.ID == "" {
		b.ID = newID()
	}
	now := r.s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	r.s.bookings[b.ID] = copyBooking(*b)
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "booking", ID: id}
	}
	out := copyBooking(b)
	return &out, nil
}

func (r *BookingRepo) List(ctx context.Context, f ports.BookingFilter) ([]domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Booking
	for _, b := range r.s.bookings {
		if matchBooking(b, f) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *BookingRepo) Count(ctx context.Context, f ports.BookingFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, b := range r.s.bookings {
		if matchBooking(b, f) {
			n++
		}
	}
	return n, nil
}

func (r *BookingRepo) Accept(ctx context.Context, b *domain.Booking, trip *domain.Trip, expectedTripVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, err := r.pendingLocked(b.ID)
	if err != nil {
		return err
	}
	if err := r.s.putTripLocked(trip, expectedTripVersion); err != nil {
		return err
	}
	cur.Status = domain.BookingAccepted
	cur.AdminNotes = b.AdminNotes
	cur.UpdatedAt = r.s.now()
	r.s.bookings[b.ID] = cur
	*b = copyBooking(cur)
	return nil
}

func (r *BookingRepo) Reject(ctx context.Context, b *domain.Booking) error {
	return r.transition(b, domain.BookingRejected)
}

func (r *BookingRepo) Cancel(ctx context.Context, b *domain.Booking) error {
	return r.transition(b, domain.BookingCancelled)
}

func (r *BookingRepo) transition(b *domain.Booking, to domain.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, err := r.pendingLocked(b.ID)
	if err != nil {
		return err
	}
	cur.Status = to
	cur.RejectionReason = b.RejectionReason
	cur.AdminNotes = b.AdminNotes
	cur.UpdatedAt = r.s.now()
	r.s.bookings[b.ID] = cur
	*b = copyBooking(cur)
	return nil
}

func (r *BookingRepo) pendingLocked(id string) (domain.Booking, error) {
	cur, ok := r.s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	if cur.Status != domain.BookingPending {
		return domain.Booking{}, domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("booking is %s, not Pending", cur.Status),
		}
	}
	return copyBooking(cur), nil
}

func matchBooking(b domain.Booking, f ports.BookingFilter) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.TripID != "" && b.TripID != f.TripID {
		return false
	}
	if f.CreatedFrom != nil && b.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !b.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	return true
}
