package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

// dashboardCacheTTL bounds how stale the admin dashboard may be. Writes do
// not invalidate it.
const dashboardCacheTTL = 5

// DashboardService computes operational statistics. It only reads.
type DashboardService struct {
	trips    ports.TripRepository
	bookings ports.BookingRepository
	cache    ports.CacheService
	loc      *time.Location
}

// NewDashboardService creates a new DashboardService. "Today" is the calendar
// day in loc; nil means UTC. cache may be nil.
func NewDashboardService(trips ports.TripRepository, bookings ports.BookingRepository, cache ports.CacheService, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &DashboardService{trips: trips, bookings: bookings, cache: cache, loc: loc}
}

// Stats returns the figures for the day containing asOf.
func (s *DashboardService) Stats(ctx context.Context, asOf time.Time) (*domain.DashboardStats, error) {
	local := asOf.In(s.loc)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	key := "dashboard:" + day.Format(domain.DateLayout)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var stats domain.DashboardStats
			if err := json.Unmarshal(data, &stats); err == nil {
				metrics.CacheHits.WithLabelValues("dashboard").Inc()
				return &stats, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("dashboard").Inc()
	}

	trips, err := s.trips.List(ctx, ports.TripFilter{Date: &day})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	pending, err := s.bookings.Count(ctx, ports.BookingFilter{Status: domain.BookingPending})
	if err != nil {
		return nil, fmt.Errorf("count pending bookings: %w", err)
	}
	today, err := s.bookings.Count(ctx, ports.BookingFilter{CreatedFrom: &start, CreatedTo: &end})
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	stats := domain.ComputeDashboard(day.Format(domain.DateLayout), trips, pending, today)
	if s.cache != nil {
		if data, err := json.Marshal(stats); err == nil {
			_ = s.cache.Set(ctx, key, data, dashboardCacheTTL)
		}
	}
	return &stats, nil
}
