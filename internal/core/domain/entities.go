package domain

import (
	"strings"
	"time"
)

// Route is the single fixed corridor a deployment operates on.
type Route struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DefaultRoute is used when no route is configured.
var DefaultRoute = Route{From: "Akluj", To: "Pune"}

// Vehicle types offered by the operator.
const (
	VehicleErtiga = "Maruti Suzuki Ertiga"
	VehicleWinger = "Tata Winger 12-seater"
	VehicleBharat = "BharatBenz 1017"
)

// VehicleTypes lists every accepted vehicle type label.
var VehicleTypes = []string{VehicleErtiga, VehicleWinger, VehicleBharat}

// ValidVehicleType reports whether t is one of VehicleTypes.
func ValidVehicleType(t string) bool {
	for _, v := range VehicleTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Vehicle is a seat-capacity unit. Only IsActive changes after trips
// reference it.
type Vehicle struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	TotalSeats         int       `json:"total_seats"`
	RegistrationNumber string    `json:"registration_number"`
	Route              Route     `json:"route"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// Driver operates vehicles on trips.
type Driver struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	LicenseNumber     string    `json:"license_number"`
	Experience        int       `json:"experience"`
	IsAvailable       bool      `json:"is_available"`
	AssignedVehicleID string    `json:"assigned_vehicle_id,omitempty"`
	Rating            float64   `json:"rating"`
	TotalTrips        int       `json:"total_trips"`
	CreatedAt         time.Time `json:"created_at"`
}

// TripStatus is the lifecycle state of a Trip.
type TripStatus string

const (
	TripScheduled TripStatus = "Scheduled"
	TripBoarding  TripStatus = "Boarding"
	TripFull      TripStatus = "Full"
	TripDeparted  TripStatus = "Departed"
	TripCompleted TripStatus = "Completed"
	TripCancelled TripStatus = "Cancelled"
)

// TripStatuses lists the six known statuses in lifecycle order.
var TripStatuses = []TripStatus{TripScheduled, TripBoarding, TripFull, TripDeparted, TripCompleted, TripCancelled}

// Valid reports whether s is one of the known statuses.
func (s TripStatus) Valid() bool {
	for _, v := range TripStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// AcceptsBookings reports whether new bookings may target a trip in this status.
func (s TripStatus) AcceptsBookings() bool {
	return s == TripScheduled || s == TripBoarding
}

// BookingType records how a seat was taken. The zero value means the seat is free.
type BookingType string

const (
	BookingOnline BookingType = "Online"
	BookingManual BookingType = "Manual"
)

// Seat is a bookable unit of a Trip. A free seat carries no BookedBy,
// BookingType or BookingRef.
type Seat struct {
	SeatNumber  int         `json:"seat_number"`
	IsBooked    bool        `json:"is_booked"`
	BookedBy    string      `json:"booked_by,omitempty"`
	BookingType BookingType `json:"booking_type,omitempty"`
	BookingRef  string      `json:"booking_ref,omitempty"`
}

// Trip is one scheduled departure with its own seat map. Values are treated
// as immutable snapshots: transitions in seats.go return a modified copy.
type Trip struct {
	ID               string     `json:"id"`
	VehicleID        string     `json:"vehicle_id"`
	Vehicle          *Vehicle   `json:"vehicle,omitempty"`
	DriverID         string     `json:"driver_id,omitempty"`
	Route            Route      `json:"route"`
	DepartureDate    time.Time  `json:"departure_date"`
	DepartureTime    string     `json:"departure_time"` // HH:MM
	Status           TripStatus `json:"status"`
	Seats            []Seat     `json:"seats"`
	Fare             float64    `json:"fare"`
	TotalRevenue     float64    `json:"total_revenue"`
	BookedSeatsCount int        `json:"booked_seats_count"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TotalSeats is the capacity fixed at creation.
func (t Trip) TotalSeats() int { return len(t.Seats) }

// DateKey returns the departure date as YYYY-MM-DD.
func (t Trip) DateKey() string { return t.DepartureDate.Format(DateLayout) }

// DateLayout is the wire and storage format for civil dates.
const DateLayout = "2006-01-02"

// BookingStatus is the approval state of a Booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingAccepted  BookingStatus = "Accepted"
	BookingRejected  BookingStatus = "Rejected"
	BookingCancelled BookingStatus = "Cancelled"
)

// Valid reports whether s is a known booking status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingAccepted, BookingRejected, BookingCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer intends to pay.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "Online"
	PaymentCash   PaymentMethod = "Cash"
	PaymentUPI    PaymentMethod = "UPI"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentOnline || m == PaymentCash || m == PaymentUPI
}

// PaymentStatus is recorded, never settled, by this service.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentRefunded  PaymentStatus = "Refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Customer is the contact attached to a booking.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Normalize trims fields and lowercases the email.
func (c Customer) Normalize() Customer {
	return Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.ToLower(strings.TrimSpace(c.Email)),
		Phone: strings.TrimSpace(c.Phone),
	}
}

// Payment records the amount owed for a booking.
type Payment struct {
	Amount        float64       `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// Booking is a customer's request for seats on one Trip, subject to admin
// approval.
type Booking struct {
	ID              string        `json:"id"`
	TripID          string        `json:"trip_id"`
	Customer        Customer      `json:"customer"`
	SeatNumbers     []int         `json:"seat_numbers"`
	Status          BookingStatus `json:"status"`
	PickupLocation  string        `json:"pickup_location"`
	Payment         Payment       `json:"payment"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	AdminNotes      string        `json:"admin_notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// UnavailableSeats is computed on read for Pending bookings: requested
	// seats that are booked on the trip right now. Never persisted.
	UnavailableSeats []int `json:"unavailable_seats,omitempty"`
}

// DashboardStats is the operational summary for one calendar day.
type DashboardStats struct {
	Date                 string             `json:"date"`
	TotalRevenue         float64            `json:"total_revenue"`
	OccupancyRate        float64            `json:"occupancy_rate"`
	PendingBookingsCount int                `json:"pending_bookings_count"`
	TodayBookingsCount   int                `json:"today_bookings_count"`
	RevenueByVehicleType map[string]float64 `json:"revenue_by_vehicle_type"`
	TotalTrips           int                `json:"total_trips"`
	TripsByStatus        map[string]int     `json:"trips_by_status"`
}
