package http

import (
	"context"
	"time"

	"github.com/samirrijal/seatpass/internal/core/usecases"
)

// Pinger is a dependency that can report its own connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Bookings  *usecases.BookingService
	Trips     *usecases.TripService
	Dashboard *usecases.DashboardService
	Vehicles  *usecases.VehicleService
	Drivers   *usecases.DriverService

	// Hub fans broadcast events out to websocket clients.
	Hub *Hub

	// DB is nil when running on the in-memory store.
	DB    Pinger
	Bus   interface{ Ping() error }
	Cache Pinger

	// JWTSecret guards /v1/admin. Empty disables the check.
	JWTSecret string

	// Now is the clock used for "today"; nil means time.Now.
	Now func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
