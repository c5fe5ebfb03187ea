package memory

import (
	"context"
	"sort"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// TripRepo implements ports.TripRepository.
type TripRepo struct {
	s *Store
}

func NewTripRepo(s *Store) *TripRepo {
	return &TripRepo{s: s}
}

func (r *TripRepo) Create(ctx context.Context, trip *domain.Trip) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if trip.ID == "" {
		trip.ID = newID()
	}
	now := r.s.now()
	trip.CreatedAt, trip.UpdatedAt = now, now
	trip.Version = 1

	stored := trip.Clone()
	stored.Vehicle = nil
	r.s.trips[trip.ID] = stored
	return nil
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tripLocked(id)
	if !ok {
		return nil, domain.NotFoundError{Resource: "trip", ID: id}
	}
	return &t, nil
}

func (r *TripRepo) List(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Trip
	for id := range r.s.trips {
		t, _ := r.s.tripLocked(id)
		if !matchTrip(t, f) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureDate.Equal(out[j].DepartureDate) {
			return out[i].DepartureDate.Before(out[j].DepartureDate)
		}
		if out[i].DepartureTime != out[j].DepartureTime {
			return out[i].DepartureTime < out[j].DepartureTime
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *TripRepo) Update(ctx context.Context, trip *domain.Trip, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.putTripLocked(trip, expectedVersion)
}

func matchTrip(t domain.Trip, f ports.TripFilter) bool {
	if f.Date != nil && t.DateKey() != f.Date.Format(domain.DateLayout) {
		return false
	}
	if f.From != "" && t.Route.From != f.From {
		return false
	}
	if f.To != "" && t.Route.To != f.To {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
