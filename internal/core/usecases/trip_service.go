package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

// OfflineAdmin is recorded as bookedBy for manual seat marks without a name.
const OfflineAdmin = "Offline-Admin"

// tripCacheTTL is short; every trip write also invalidates the key.
const tripCacheTTL = 30

// CreateTripInput describes a new departure.
type CreateTripInput struct {
	VehicleID     string
	DriverID      string
	DepartureDate string // YYYY-MM-DD
	DepartureTime string // HH:MM
	Fare          float64
}

// TripService handles trip creation, reads and admin overrides.
type TripService struct {
	trips       ports.TripRepository
	vehicles    ports.VehicleRepository
	drivers     ports.DriverRepository
	broadcaster ports.Broadcaster
	cache       ports.CacheService

	attempts int
}

// NewTripService creates a new TripService. broadcaster and cache may be nil.
func NewTripService(
	trips ports.TripRepository,
	vehicles ports.VehicleRepository,
	drivers ports.DriverRepository,
	broadcaster ports.Broadcaster,
	cache ports.CacheService,
) *TripService {
	return &TripService{
		trips:       trips,
		vehicles:    vehicles,
		drivers:     drivers,
		broadcaster: broadcaster,
		cache:       cache,
		attempts:    DefaultCommitAttempts,
	}
}

// SetCommitAttempts overrides how often a conflicting trip write is retried.
func (s *TripService) SetCommitAttempts(n int) {
	if n > 0 {
		s.attempts = n
	}
}

// CreateTrip schedules a departure on an active vehicle with one free seat
// per unit of vehicle capacity.
func (s *TripService) CreateTrip(ctx context.Context, in CreateTripInput) (*domain.Trip, error) {
	if in.VehicleID == "" {
		return nil, domain.ValidationError{Field: "vehicle_id", Msg: "is required"}
	}
	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(in.DepartureDate))
	if err != nil {
		return nil, domain.ValidationError{Field: "departure_date", Msg: "must be YYYY-MM-DD", Err: err}
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(in.DepartureTime)); err != nil {
		return nil, domain.ValidationError{Field: "departure_time", Msg: "must be HH:MM", Err: err}
	}
	if in.Fare <= 0 {
		return nil, domain.ValidationError{Field: "fare", Msg: "must be positive"}
	}

	vehicle, err := s.vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, err
	}
	if !vehicle.IsActive {
		return nil, domain.ConflictError{Resource: "vehicle", Msg: "vehicle is deactivated"}
	}
	if in.DriverID != "" {
		if _, err := s.drivers.GetByID(ctx, in.DriverID); err != nil {
			return nil, err
		}
	}

	seats, err := domain.InitializeSeats(vehicle.TotalSeats)
	if err != nil {
		return nil, err
	}
	trip := &domain.Trip{
		VehicleID:     vehicle.ID,
		DriverID:      in.DriverID,
		Route:         vehicle.Route,
		DepartureDate: date,
		DepartureTime: strings.TrimSpace(in.DepartureTime),
		Status:        domain.TripScheduled,
		Seats:         seats,
		Fare:          in.Fare,
	}
	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	trip.Vehicle = vehicle

	publish(ctx, s.broadcaster, domain.Event{Topic: domain.TopicTripUpdated, TripID: trip.ID, Payload: trip.Public()})
	return trip, nil
}

// GetTrip returns a trip with its vehicle.
func (s *TripService) GetTrip(ctx context.Context, id string) (*domain.Trip, error) {
	key := tripCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var t domain.Trip
			if err := json.Unmarshal(data, &t); err == nil {
				metrics.CacheHits.WithLabelValues("trip").Inc()
				return &t, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("trip").Inc()
	}

	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(t); err == nil && s.cache.Set(ctx, key, data, tripCacheTTL) == nil {
			// A commit between the read and the Set has already run its
			// invalidation, so the entry must be dropped here.
			if cur, err := s.trips.GetByID(ctx, id); err != nil || cur.Version != t.Version {
				_ = s.cache.Delete(ctx, key)
			}
		}
	}
	return t, nil
}

// ListAvailableTrips returns Scheduled or Boarding trips with at least one
// free seat, ordered by departure.
func (s *TripService) ListAvailableTrips(ctx context.Context, date *time.Time, from, to string) ([]domain.Trip, error) {
	all, err := s.trips.List(ctx, ports.TripFilter{
		Date:     date,
		From:     from,
		To:       to,
		Statuses: []domain.TripStatus{domain.TripScheduled, domain.TripBoarding},
	})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	out := make([]domain.Trip, 0, len(all))
	for _, t := range all {
		if t.FreeSeats() > 0 {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListTrips returns every trip matching the optional status and date.
func (s *TripService) ListTrips(ctx context.Context, status domain.TripStatus, date *time.Time) ([]domain.Trip, error) {
	f := ports.TripFilter{Date: date}
	if status != "" {
		if !status.Valid() {
			return nil, domain.ValidationError{Field: "status", Msg: "unknown trip status"}
		}
		f.Statuses = []domain.TripStatus{status}
	}
	trips, err := s.trips.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// SetSeatStatus marks or clears one seat for an offline customer. It never
// touches bookings or revenue.
func (s *TripService) SetSeatStatus(ctx context.Context, tripID string, seat int, isBooked bool, bookedBy string) (t *domain.Trip, err error) {
	ctx, span := startSpan(ctx, "TripService.SetSeatStatus")
	defer func() { endSpan(span, err) }()

	if bookedBy = strings.TrimSpace(bookedBy); bookedBy == "" {
		bookedBy = OfflineAdmin
	}

	var before, after domain.Trip
	err = withTripCommit(ctx, s.attempts, "seat", func() error {
		cur, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		var next domain.Trip
		if isBooked {
			next, err = cur.ReserveSeats([]int{seat}, bookedBy, domain.BookingManual, "")
		} else {
			next, err = cur.ReleaseSeat(seat)
		}
		if err != nil {
			countSeatConflict("manual", err)
			return err
		}
		if err := s.trips.Update(ctx, &next, cur.Version); err != nil {
			return err
		}
		before, after = *cur, next
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateTrip(ctx, s.cache, tripID)
	publishTripChange(ctx, s.broadcaster, before, after, []int{seat}, isBooked)
	return &after, nil
}

// SetTripStatus applies any of the known statuses regardless of the current one.
func (s *TripService) SetTripStatus(ctx context.Context, tripID string, status domain.TripStatus) (t *domain.Trip, err error) {
	ctx, span := startSpan(ctx, "TripService.SetTripStatus")
	defer func() { endSpan(span, err) }()

	var before, after domain.Trip
	err = withTripCommit(ctx, s.attempts, "status", func() error {
		cur, err := s.trips.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		next, err := cur.WithStatus(status)
		if err != nil {
			return err
		}
		if err := s.trips.Update(ctx, &next, cur.Version); err != nil {
			return err
		}
		before, after = *cur, next
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateTrip(ctx, s.cache, tripID)
	publishTripChange(ctx, s.broadcaster, before, after, nil, false)
	return &after, nil
}
