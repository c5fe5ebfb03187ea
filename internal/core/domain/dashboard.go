package domain

import "math"

// UnknownVehicleType labels revenue from trips whose vehicle could not be loaded.
const UnknownVehicleType = "Unknown"

// ComputeDashboard aggregates one day's trips. It performs no I/O; counts
// that need the booking store are passed in.
func ComputeDashboard(date string, trips []Trip, pendingBookings, todayBookings int) DashboardStats {
	stats := DashboardStats{
		Date:                 date,
		PendingBookingsCount: pendingBookings,
		TodayBookingsCount:   todayBookings,
		RevenueByVehicleType: make(map[string]float64),
		TripsByStatus:        make(map[string]int),
		TotalTrips:           len(trips),
	}

	var booked, total int
	for _, t := range trips {
		stats.TotalRevenue += t.TotalRevenue
		booked += t.BookedSeatsCount
		total += t.TotalSeats()

		vt := UnknownVehicleType
		if t.Vehicle != nil && t.Vehicle.Type != "" {
			vt = t.Vehicle.Type
		}
		stats.RevenueByVehicleType[vt] += t.TotalRevenue
		stats.TripsByStatus[string(t.Status)]++
	}

	if total > 0 {
		stats.OccupancyRate = round2(float64(booked) / float64(total) * 100)
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
