package http

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

// ListBookingsHandler returns bookings newest first, filtered by status,
// trip and creation date, paginated.
func ListBookingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := ports.BookingFilter{
			Status: domain.BookingStatus(c.Query("status")),
			TripID: c.Query("trip_id"),
		}
		from, err := parseDate(c, "created_from")
		if err != nil {
			return errFromDomain(c, err)
		}
		to, err := parseDate(c, "created_to")
		if err != nil {
			return errFromDomain(c, err)
		}
		filter.CreatedFrom = from
		if to != nil {
			// inclusive of the whole day
			end := to.AddDate(0, 0, 1)
			filter.CreatedTo = &end
		}

		list, err := deps.Bookings.ListBookings(c.UserContext(), filter)
		if err != nil {
			return errFromDomain(c, err)
		}
		return paginate(c, list)
	}
}

type decisionRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason"`
	Reason          string `json:"reason"`
	AdminNotes      string `json:"admin_notes"`
}

func (r decisionRequest) reason() string {
	if r.RejectionReason != "" {
		return r.RejectionReason
	}
	return r.Reason
}

// parseDecision accepts an empty body.
func parseDecision(c *fiber.Ctx) (decisionRequest, error) {
	var req decisionRequest
	if len(c.Body()) == 0 {
		return req, nil
	}
	err := c.BodyParser(&req)
	return req, err
}

// AcceptBookingHandler reserves the booking's seats and confirms it.
func AcceptBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseDecision(c)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}
		b, trip, err := deps.Bookings.AcceptBooking(c.UserContext(), c.Params("id"), req.AdminNotes)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"booking": b, "trip": trip})
	}
}

// RejectBookingHandler closes a Pending booking without touching seats.
func RejectBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseDecision(c)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}
		b, err := deps.Bookings.RejectBooking(c.UserContext(), c.Params("id"), req.reason(), req.AdminNotes)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}

// UpdateBookingStatusHandler is the older single decision endpoint. It is
// kept for existing admin clients and marked deprecated.
func UpdateBookingStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := parseDecision(c)
		if err != nil {
			return errBadRequest(c, "invalid request body")
		}
		b, err := deps.Bookings.UpdateBookingStatus(c.UserContext(), c.Params("id"),
			domain.BookingStatus(req.Status), req.reason(), req.AdminNotes)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}

type createTripRequest struct {
	VehicleID     string  `json:"vehicle_id"`
	DriverID      string  `json:"driver_id"`
	DepartureDate string  `json:"departure_date"`
	DepartureTime string  `json:"departure_time"`
	Fare          float64 `json:"fare"`
}

// CreateTripHandler schedules a departure.
func CreateTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTripRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		trip, err := deps.Trips.CreateTrip(c.UserContext(), usecases.CreateTripInput{
			VehicleID:     req.VehicleID,
			DriverID:      req.DriverID,
			DepartureDate: req.DepartureDate,
			DepartureTime: req.DepartureTime,
			Fare:          req.Fare,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/trips/" + trip.ID)
		return c.Status(fiber.StatusCreated).JSON(trip)
	}
}

// ListTripsHandler returns every trip regardless of status, paginated.
func ListTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date, err := parseDate(c, "date")
		if err != nil {
			return errFromDomain(c, err)
		}
		trips, err := deps.Trips.ListTrips(c.UserContext(), domain.TripStatus(c.Query("status")), date)
		if err != nil {
			return errFromDomain(c, err)
		}
		return paginate(c, trips)
	}
}

// SetTripStatusHandler overrides a trip's lifecycle status.
func SetTripStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		trip, err := deps.Trips.SetTripStatus(c.UserContext(), c.Params("id"), domain.TripStatus(req.Status))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(trip)
	}
}

// SetSeatStatusHandler marks one seat booked (offline sale) or free.
func SetSeatStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seat, err := strconv.Atoi(c.Params("seat"))
		if err != nil {
			return errBadRequest(c, "seat must be a number")
		}
		var req struct {
			IsBooked *bool  `json:"is_booked"`
			BookedBy string `json:"booked_by"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.IsBooked == nil {
			return errBadRequest(c, "is_booked is required")
		}
		trip, err := deps.Trips.SetSeatStatus(c.UserContext(), c.Params("id"), seat, *req.IsBooked, req.BookedBy)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(trip)
	}
}

// DashboardStatsHandler returns the operational summary for ?date, or today.
func DashboardStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		asOf := deps.now()
		date, err := parseDate(c, "date")
		if err != nil {
			return errFromDomain(c, err)
		}
		if date != nil {
			// noon UTC falls on the same calendar day in every zone up to ±12h
			asOf = date.Add(12 * time.Hour)
		}
		stats, err := deps.Dashboard.Stats(c.UserContext(), asOf)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(stats)
	}
}

type vehicleRequest struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	TotalSeats         int    `json:"total_seats"`
	RegistrationNumber string `json:"registration_number"`
}

// CreateVehicleHandler registers a vehicle on the deployment's route.
func CreateVehicleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req vehicleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		v, err := deps.Vehicles.CreateVehicle(c.UserContext(), usecases.CreateVehicleInput(req))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(v)
	}
}

// ListVehiclesHandler returns active vehicles.
func ListVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := deps.Vehicles.ListVehicles(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(list)
	}
}

// DeactivateVehicleHandler soft-deletes a vehicle.
func DeactivateVehicleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Vehicles.DeactivateVehicle(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SeedVehiclesHandler inserts the sample fleet when no vehicle exists.
func SeedVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		n, err := deps.Vehicles.SeedSampleVehicles(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"created": n})
	}
}

type driverRequest struct {
	Name              string   `json:"name"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	LicenseNumber     string   `json:"license_number"`
	Experience        int      `json:"experience"`
	IsAvailable       *bool    `json:"is_available"`
	AssignedVehicleID string   `json:"assigned_vehicle_id"`
	Rating            *float64 `json:"rating"`
}

// ListDriversHandler returns drivers, optionally only ?available=true|false.
func ListDriversHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var available *bool
		if raw := c.Query("available"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return errBadRequest(c, "available must be true or false")
			}
			available = &v
		}
		list, err := deps.Drivers.ListDrivers(c.UserContext(), available)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(list)
	}
}

// CreateDriverHandler registers a driver.
func CreateDriverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req driverRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		d, err := deps.Drivers.CreateDriver(c.UserContext(), usecases.DriverInput(req))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(d)
	}
}

// UpdateDriverHandler patches a driver; absent fields keep their values.
func UpdateDriverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req driverRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		d, err := deps.Drivers.UpdateDriver(c.UserContext(), c.Params("id"), usecases.DriverInput(req))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(d)
	}
}

// DeleteDriverHandler removes a driver.
func DeleteDriverHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Drivers.DeleteDriver(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
