package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// InitializeSeats returns total free seats numbered 1..total.
func InitializeSeats(total int) ([]Seat, error) {
	if total < 1 {
		return nil, ValidationError{Field: "total_seats", Msg: "must be at least 1"}
	}
	seats := make([]Seat, total)
	for i := range seats {
		seats[i] = Seat{SeatNumber: i + 1}
	}
	return seats, nil
}

// ValidateSeatNumbers checks a requested seat set is non-empty, positive and
// free of duplicates. Existence on a trip is checked by ReserveSeats.
func ValidateSeatNumbers(nums []int) error {
	if len(nums) == 0 {
		return ValidationError{Field: "seat_numbers", Msg: "at least one seat is required"}
	}
	seen := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		if n < 1 {
			return ValidationError{Field: "seat_numbers", Msg: fmt.Sprintf("invalid seat number %d", n)}
		}
		if _, dup := seen[n]; dup {
			return ValidationError{Field: "seat_numbers", Msg: fmt.Sprintf("seat %d requested twice", n)}
		}
		seen[n] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (t Trip) Clone() Trip {
	out := t
	out.Seats = append([]Seat(nil), t.Seats...)
	if t.Vehicle != nil {
		v := *t.Vehicle
		out.Vehicle = &v
	}
	return out
}

// Public returns a copy without seat holders or revenue. Customers and
// public broadcast topics only need availability.
func (t Trip) Public() Trip {
	out := t.Clone()
	for i, s := range out.Seats {
		out.Seats[i] = Seat{SeatNumber: s.SeatNumber, IsBooked: s.IsBooked}
	}
	out.TotalRevenue = 0
	return out
}

func (t Trip) seatIndex(n int) int {
	// Seats are numbered 1..N in order; fall back to a scan for stored maps
	// that were not.
	if n >= 1 && n <= len(t.Seats) && t.Seats[n-1].SeatNumber == n {
		return n - 1
	}
	for i, s := range t.Seats {
		if s.SeatNumber == n {
			return i
		}
	}
	return -1
}

// UnavailableSeats returns the requested seat numbers that exist on the trip
// and are currently booked, in ascending order.
func (t Trip) UnavailableSeats(nums []int) []int {
	var out []int
	for _, n := range nums {
		if i := t.seatIndex(n); i >= 0 && t.Seats[i].IsBooked {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// CheckSeatsAvailable validates a seat set against this snapshot without
// changing it.
func (t Trip) CheckSeatsAvailable(nums []int) error {
	if err := ValidateSeatNumbers(nums); err != nil {
		return err
	}
	for _, n := range nums {
		if t.seatIndex(n) < 0 {
			return NotFoundError{Resource: "seat", ID: strconv.Itoa(n)}
		}
	}
	if taken := t.UnavailableSeats(nums); len(taken) > 0 {
		return ConflictError{Resource: "seat", Msg: fmt.Sprintf("seats unavailable: %v", taken), Seats: taken}
	}
	return nil
}

// FreeSeats returns the number of seats not booked.
func (t Trip) FreeSeats() int { return t.TotalSeats() - countBooked(t.Seats) }

// ReserveSeats books every requested seat or none of them. It fails with
// NotFoundError for an unknown seat number and ConflictError when any seat is
// already booked. A Scheduled trip whose last seat is taken becomes Full.
func (t Trip) ReserveSeats(nums []int, bookedBy string, bt BookingType, ref string) (Trip, error) {
	if err := t.CheckSeatsAvailable(nums); err != nil {
		return t, err
	}

	out := t.Clone()
	for _, n := range nums {
		i := out.seatIndex(n)
		out.Seats[i] = Seat{
			SeatNumber:  n,
			IsBooked:    true,
			BookedBy:    bookedBy,
			BookingType: bt,
			BookingRef:  ref,
		}
	}
	out.BookedSeatsCount = countBooked(out.Seats)
	if out.BookedSeatsCount == out.TotalSeats() && out.Status == TripScheduled {
		out.Status = TripFull
	}
	return out, nil
}

// ReleaseSeat frees one seat. Releasing a free seat is a no-op. Status is
// left alone; reopening a Full trip is an explicit status change.
func (t Trip) ReleaseSeat(n int) (Trip, error) {
	i := t.seatIndex(n)
	if i < 0 {
		return t, NotFoundError{Resource: "seat", ID: strconv.Itoa(n)}
	}
	out := t.Clone()
	out.Seats[i] = Seat{SeatNumber: n}
	out.BookedSeatsCount = countBooked(out.Seats)
	return out, nil
}

// WithStatus sets the trip status. Any of the six known statuses is accepted
// from any state.
func (t Trip) WithStatus(s TripStatus) (Trip, error) {
	if !s.Valid() {
		return t, ConflictError{Resource: "trip", Msg: fmt.Sprintf("unknown status %q", s)}
	}
	out := t.Clone()
	out.Status = s
	return out, nil
}

// AddRevenue returns a copy with amount added to TotalRevenue.
func (t Trip) AddRevenue(amount float64) Trip {
	out := t.Clone()
	out.TotalRevenue += amount
	return out
}

func countBooked(seats []Seat) int {
	n := 0
	for _, s := range seats {
		if s.IsBooked {
			n++
		}
	}
	return n
}
