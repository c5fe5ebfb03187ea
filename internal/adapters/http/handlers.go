package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

// parseDate reads an optional YYYY-MM-DD query parameter.
func parseDate(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, domain.ValidationError{Field: key, Msg: "must be YYYY-MM-DD"}
	}
	return &d, nil
}

// ListAvailableTripsHandler returns bookable trips, optionally for one date
// and direction.
func ListAvailableTripsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		date, err := parseDate(c, "date")
		if err != nil {
			return errFromDomain(c, err)
		}

		trips, err := deps.Trips.ListAvailableTrips(c.UserContext(), date, c.Query("from"), c.Query("to"))
		if err != nil {
			return errFromDomain(c, err)
		}

		out := make([]domain.Trip, len(trips))
		for i, t := range trips {
			out[i] = t.Public()
		}
		return c.JSON(out)
	}
}

// GetTripHandler returns one trip with its seat map.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		trip, err := deps.Trips.GetTrip(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if isAdmin(c.UserContext()) {
			return c.JSON(trip)
		}
		return c.JSON(trip.Public())
	}
}

type customerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createBookingRequest struct {
	TripID         string          `json:"trip_id"`
	Customer       customerRequest `json:"customer"`
	SeatNumbers    []int           `json:"seat_numbers"`
	PickupLocation string          `json:"pickup_location"`
	Payment        struct {
		Method        string `json:"method"`
		TransactionID string `json:"transaction_id"`
	} `json:"payment"`
}

// CreateBookingHandler records a Pending booking request. Seats are checked
// but not held.
func CreateBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createBookingRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if id := c.Params("id"); id != "" {
			req.TripID = id
		}

		b, err := deps.Bookings.CreateBooking(c.UserContext(), usecases.CreateBookingInput{
			TripID: req.TripID,
			Customer: domain.Customer{
				Name:  req.Customer.Name,
				Email: req.Customer.Email,
				Phone: req.Customer.Phone,
			},
			SeatNumbers:    req.SeatNumbers,
			PickupLocation: req.PickupLocation,
			Payment: domain.Payment{
				Method:        domain.PaymentMethod(req.Payment.Method),
				TransactionID: req.Payment.TransactionID,
			},
		})
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/bookings/" + b.ID)
		return c.Status(fiber.StatusCreated).JSON(b)
	}
}

// GetBookingHandler returns one booking. The booking ID is the customer's
// reference.
func GetBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Bookings.GetBooking(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		if !isAdmin(c.UserContext()) {
			b.AdminNotes = ""
		}
		return c.JSON(b)
	}
}

// CancelBookingHandler withdraws a Pending booking.
func CancelBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := deps.Bookings.CancelBooking(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(b)
	}
}
