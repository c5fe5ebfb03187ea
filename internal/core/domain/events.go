package domain

import "time"

// Topic is a broadcast channel name. The set is fixed.
type Topic string

const (
	TopicSeatUpdated       Topic = "seat-updated"
	TopicBookingUpdated    Topic = "booking-updated"
	TopicNewBooking        Topic = "new-booking"
	TopicTripStatusUpdated Topic = "trip-status-updated"
	TopicTripUpdated       Topic = "trip-updated"
)

// Topics lists every broadcast topic.
var Topics = []Topic{TopicSeatUpdated, TopicBookingUpdated, TopicNewBooking, TopicTripStatusUpdated, TopicTripUpdated}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, v := range Topics {
		if v == t {
			return true
		}
	}
	return false
}

// AdminOnly reports whether the topic carries customer data and is limited
// to admin subscribers.
func (t Topic) AdminOnly() bool {
	return t == TopicNewBooking || t == TopicBookingUpdated
}

// Event is a broadcast payload. Subscribers treat it as a hint to re-fetch.
type Event struct {
	Topic     Topic     `json:"topic"`
	TripID    string    `json:"trip_id,omitempty"`
	BookingID string    `json:"booking_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatUpdate is the payload of seat-updated.
type SeatUpdate struct {
	SeatNumbers      []int `json:"seat_numbers"`
	IsBooked         bool  `json:"is_booked"`
	BookedSeatsCount int   `json:"booked_seats_count"`
}

// StatusUpdate is the payload of trip-status-updated.
type StatusUpdate struct {
	From TripStatus `json:"from"`
	To   TripStatus `json:"to"`
}
