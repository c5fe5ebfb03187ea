// Package memory is an in-process store used for local runs and tests. It
// honours the same compare-and-write contract as the postgres adapter.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// Store holds every aggregate behind one mutex. Values are copied on the way
// in and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	trips    map[string]domain.Trip
	bookings map[string]domain.Booking
	vehicles map[string]domain.Vehicle
	drivers  map[string]domain.Driver

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		trips:    make(map[string]domain.Trip),
		bookings: make(map[string]domain.Booking),
		vehicles: make(map[string]domain.Vehicle),
		drivers:  make(map[string]domain.Driver),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func newID() string { return uuid.NewString() }

func copyBooking(b domain.Booking) domain.Booking {
	b.SeatNumbers = append([]int(nil), b.SeatNumbers...)
	b.UnavailableSeats = nil
	return b
}

// tripLocked returns a copy of the trip with its vehicle attached. Callers
// hold s.mu.
func (s *Store) tripLocked(id string) (domain.Trip, bool) {
	t, ok := s.trips[id]
	if !ok {
		return domain.Trip{}, false
	}
	out := t.Clone()
	if v, ok := s.vehicles[t.VehicleID]; ok {
		out.Vehicle = &v
	}
	return out, true
}

// putTripLocked performs the version check and stores a copy of trip.
func (s *Store) putTripLocked(trip *domain.Trip, expected int64) error {
	cur, ok := s.trips[trip.ID]
	if !ok {
		return domain.NotFoundError{Resource: "trip", ID: trip.ID}
	}
	if cur.Version != expected {
		return domain.ErrVersionConflict
	}
	trip.Version = expected + 1
	trip.UpdatedAt = s.now()
	stored := trip.Clone()
	stored.Vehicle = nil
	s.trips[trip.ID] = stored
	return nil
}
