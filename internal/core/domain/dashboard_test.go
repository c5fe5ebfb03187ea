package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

func TestComputeDashboard(t *testing.T) {
	ertiga := &domain.Vehicle{Type: domain.VehicleErtiga}
	winger := &domain.Vehicle{Type: domain.VehicleWinger}

	a := newTrip(t, 7)
	a.Vehicle = ertiga
	a, err := a.ReserveSeats([]int{1, 2}, "A", domain.BookingOnline, "a")
	require.NoError(t, err)
	a = a.AddRevenue(600)

	b := newTrip(t, 12)
	b.Vehicle = winger
	b, err = b.ReserveSeats([]int{1}, "B", domain.BookingManual, "")
	require.NoError(t, err)
	b = b.AddRevenue(250)

	stats := domain.ComputeDashboard("2026-10-17", []domain.Trip{a, b}, 4, 2)

	assert.Equal(t, 850.0, stats.TotalRevenue)
	// 3 of 19 seats
	assert.Equal(t, 15.79, stats.OccupancyRate)
	assert.Equal(t, 4, stats.PendingBookingsCount)
	assert.Equal(t, 2, stats.TodayBookingsCount)
	assert.Equal(t, 600.0, stats.RevenueByVehicleType[domain.VehicleErtiga])
	assert.Equal(t, 250.0, stats.RevenueByVehicleType[domain.VehicleWinger])
	assert.Equal(t, 2, stats.TotalTrips)
	assert.Equal(t, 2, stats.TripsByStatus[string(domain.TripScheduled)])
}

func TestComputeDashboard_NoTrips(t *testing.T) {
	stats := domain.ComputeDashboard("2026-10-17", nil, 0, 0)
	assert.Equal(t, 0.0, stats.OccupancyRate)
	assert.Equal(t, 0.0, stats.TotalRevenue)
	assert.Empty(t, stats.RevenueByVehicleType)
}

func TestComputeDashboard_MissingVehicle(t *testing.T) {
	tr := newTrip(t, 2).AddRevenue(100)
	stats := domain.ComputeDashboard("2026-10-17", []domain.Trip{tr}, 0, 0)
	assert.Equal(t, 100.0, stats.RevenueByVehicleType[domain.UnknownVehicleType])
}
