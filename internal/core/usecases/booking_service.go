package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/pkg/metrics"
)

// notifyTimeout caps one background notification dispatch.
const notifyTimeout = 2 * time.Minute

// CreateBookingInput is a customer's booking request.
type CreateBookingInput struct {
	TripID         string
	Customer       domain.Customer
	SeatNumbers    []int
	PickupLocation string
	// Payment fields override the computed defaults when set.
	Payment domain.Payment
}

// BookingService coordinates the booking lifecycle. It is the only writer of
// seat mutations caused by bookings.
type BookingService struct {
	trips       ports.TripRepository
	bookings    ports.BookingRepository
	broadcaster ports.Broadcaster
	notifier    ports.NotificationGateway
	cache       ports.CacheService

	attempts int
	wg       sync.WaitGroup
}

// NewBookingService creates a new BookingService. broadcaster, notifier and
// cache may be nil.
func NewBookingService(
	trips ports.TripRepository,
	bookings ports.BookingRepository,
	broadcaster ports.Broadcaster,
	notifier ports.NotificationGateway,
	cache ports.CacheService,
) *BookingService {
	return &BookingService{
		trips:       trips,
		bookings:    bookings,
		broadcaster: broadcaster,
		notifier:    notifier,
		cache:       cache,
		attempts:    DefaultCommitAttempts,
	}
}

// SetCommitAttempts overrides how often a conflicting trip write is retried.
func (s *BookingService) SetCommitAttempts(n int) {
	if n > 0 {
		s.attempts = n
	}
}

// Drain waits for in-flight notification dispatches.
func (s *BookingService) Drain() {
	s.wg.Wait()
}

// CreateBooking records a Pending booking after checking the requested seats
// against the current trip snapshot. No seats are held.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (b *domain.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.CreateBooking")
	defer func() { endSpan(span, err) }()

	in.Customer = in.Customer.Normalize()
	if err := validateBookingInput(in); err != nil {
		return nil, err
	}

	trip, err := s.trips.GetByID(ctx, in.TripID)
	if err != nil {
		return nil, err
	}
	if !trip.Status.AcceptsBookings() {
		return nil, domain.ConflictError{
			Resource: "trip",
			Msg:      fmt.Sprintf("trip is %s and not accepting bookings", trip.Status),
		}
	}
	if err := trip.CheckSeatsAvailable(in.SeatNumbers); err != nil {
		countSeatConflict("create", err)
		return nil, err
	}

	payment := domain.Payment{
		Amount: trip.Fare * float64(len(in.SeatNumbers)),
		Method: domain.PaymentOnline,
		Status: domain.PaymentPending,
	}
	if in.Payment.Amount > 0 {
		payment.Amount = in.Payment.Amount
	}
	if in.Payment.Method != "" {
		payment.Method = in.Payment.Method
	}
	if in.Payment.Status != "" {
		payment.Status = in.Payment.Status
	}
	payment.TransactionID = in.Payment.TransactionID

	b = &domain.Booking{
		TripID:         trip.ID,
		Customer:       in.Customer,
		SeatNumbers:    append([]int(nil), in.SeatNumbers...),
		Status:         domain.BookingPending,
		PickupLocation: strings.TrimSpace(in.PickupLocation),
		Payment:        payment,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}
	metrics.BookingsCreated.Inc()

	publish(ctx, s.broadcaster, domain.Event{
		Topic:     domain.TopicNewBooking,
		TripID:    b.TripID,
		BookingID: b.ID,
		Payload:   b,
	})
	return b, nil
}

// AcceptBooking re-validates the booking's seats against the trip as it is
// now, reserves them and records the revenue. A seat taken since the booking
// was created fails the call with a ConflictError and the booking stays
// Pending.
func (s *BookingService) AcceptBooking(ctx context.Context, id, adminNotes string) (b *domain.Booking, t *domain.Trip, err error) {
	ctx, span := startSpan(ctx, "BookingService.AcceptBooking")
	defer func() { endSpan(span, err) }()

	var booking domain.Booking
	var before, after domain.Trip

	err = withTripCommit(ctx, s.attempts, "accept", func() error {
		cur, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePending(cur); err != nil {
			return err
		}
		trip, err := s.trips.GetByID(ctx, cur.TripID)
		if err != nil {
			return err
		}

		next, err := trip.ReserveSeats(cur.SeatNumbers, cur.Customer.Email, domain.BookingOnline, cur.ID)
		if err != nil {
			countSeatConflict("accept", err)
			return err
		}
		next = next.AddRevenue(cur.Payment.Amount)

		if adminNotes != "" {
			cur.AdminNotes = adminNotes
		}
		if err := s.bookings.Accept(ctx, cur, &next, trip.Version); err != nil {
			return err
		}
		booking, before, after = *cur, *trip, next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	metrics.BookingDecisions.WithLabelValues(string(domain.BookingAccepted)).Inc()

	invalidateTrip(ctx, s.cache, after.ID)
	s.dispatch(ctx, "confirmation", func(ctx context.Context) ports.NotificationResult {
		return s.notifier.SendConfirmation(ctx, booking, after)
	})

	publishTripChange(ctx, s.broadcaster, before, after, booking.SeatNumbers, true)
	publish(ctx, s.broadcaster, domain.Event{
		Topic:     domain.TopicBookingUpdated,
		TripID:    booking.TripID,
		BookingID: booking.ID,
		Payload:   booking,
	})
	s.flagStalePending(ctx, after)

	return &booking, &after, nil
}

// RejectBooking closes a Pending booking. Seats and revenue are untouched.
func (s *BookingService) RejectBooking(ctx context.Context, id, reason, adminNotes string) (b *domain.Booking, err error) {
	ctx, span := startSpan(ctx, "BookingService.RejectBooking")
	defer func() { endSpan(span, err) }()

	b, err = s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requirePending(b); err != nil {
		return nil, err
	}
	b.RejectionReason = strings.TrimSpace(reason)
	if adminNotes != "" {
		b.AdminNotes = adminNotes
	}
	if err := s.bookings.Reject(ctx, b); err != nil {
		return nil, err
	}
	metrics.BookingDecisions.WithLabelValues(string(domain.BookingRejected)).Inc()

	rejected := *b
	s.dispatch(ctx, "rejection", func(ctx context.Context) ports.NotificationResult {
		return s.notifier.SendRejection(ctx, rejected, rejected.RejectionReason)
	})
	publish(ctx, s.broadcaster, domain.Event{
		Topic:     domain.TopicBookingUpdated,
		TripID:    b.TripID,
		BookingID: b.ID,
		Payload:   rejected,
	})
	return b, nil
}

// CancelBooking withdraws a Pending booking. Inventory is never touched.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requirePending(b); err != nil {
		return nil, err
	}
	if err := s.bookings.Cancel(ctx, b); err != nil {
		return nil, err
	}
	metrics.BookingDecisions.WithLabelValues(string(domain.BookingCancelled)).Inc()

	publish(ctx, s.broadcaster, domain.Event{
		Topic:     domain.TopicBookingUpdated,
		TripID:    b.TripID,
		BookingID: b.ID,
		Payload:   *b,
	})
	return b, nil
}

// UpdateBookingStatus applies an admin decision expressed as a target status.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, id string, status domain.BookingStatus, reason, adminNotes string) (*domain.Booking, error) {
	switch status {
	case domain.BookingAccepted:
		b, _, err := s.AcceptBooking(ctx, id, adminNotes)
		return b, err
	case domain.BookingRejected:
		return s.RejectBooking(ctx, id, reason, adminNotes)
	default:
		return nil, domain.ValidationError{Field: "status", Msg: "must be Accepted or Rejected"}
	}
}

// GetBooking returns one booking, annotated like ListBookings.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []domain.Booking{*b}
	s.annotate(ctx, out)
	return &out[0], nil
}

// ListBookings returns bookings newest first. Pending bookings carry the
// requested seats that are already taken on their trip.
func (s *BookingService) ListBookings(ctx context.Context, filter ports.BookingFilter) ([]domain.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ValidationError{Field: "status", Msg: "unknown booking status"}
	}
	list, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	s.annotate(ctx, list)
	return list, nil
}

func (s *BookingService) annotate(ctx context.Context, list []domain.Booking) {
	trips := make(map[string]*domain.Trip)
	for i := range list {
		if list[i].Status != domain.BookingPending {
			continue
		}
		t, ok := trips[list[i].TripID]
		if !ok {
			t, _ = s.trips.GetByID(ctx, list[i].TripID)
			trips[list[i].TripID] = t
		}
		if t != nil {
			list[i].UnavailableSeats = t.UnavailableSeats(list[i].SeatNumbers)
		}
	}
}

// flagStalePending publishes a booking-updated hint for every Pending booking
// on the trip whose seats are no longer all free. They stay Pending.
func (s *BookingService) flagStalePending(ctx context.Context, trip domain.Trip) {
	if s.broadcaster == nil {
		return
	}
	pending, err := s.bookings.List(ctx, ports.BookingFilter{TripID: trip.ID, Status: domain.BookingPending})
	if err != nil {
		slog.WarnContext(ctx, "list pending bookings", "trip_id", trip.ID, "error", err)
		return
	}
	for _, p := range pending {
		taken := trip.UnavailableSeats(p.SeatNumbers)
		if len(taken) == 0 {
			continue
		}
		p.UnavailableSeats = taken
		publish(ctx, s.broadcaster, domain.Event{
			Topic:     domain.TopicBookingUpdated,
			TripID:    p.TripID,
			BookingID: p.ID,
			Payload:   p,
		})
	}
}

// dispatch runs a notification in the background after commit. The result is
// only logged.
func (s *BookingService) dispatch(ctx context.Context, kind string, send func(context.Context) ports.NotificationResult) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("notification dispatch panicked", "kind", kind, "panic", r)
			}
		}()

		res := send(ctx)
		for _, c := range res.Channels {
			result := "ok"
			if !c.Success {
				result = "failed"
				slog.WarnContext(ctx, "notification failed", "kind", kind, "channel", c.Channel, "error", c.Error)
			}
			metrics.NotificationsSent.WithLabelValues(c.Channel, result).Inc()
		}
	}()
}

func requirePending(b *domain.Booking) error {
	if b.Status != domain.BookingPending {
		return domain.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("booking is %s, not Pending", b.Status),
		}
	}
	return nil
}

func validateBookingInput(in CreateBookingInput) error {
	if in.TripID == "" {
		return domain.ValidationError{Field: "trip_id", Msg: "is required"}
	}
	if in.Customer.Name == "" {
		return domain.ValidationError{Field: "customer.name", Msg: "is required"}
	}
	if in.Customer.Email == "" {
		return domain.ValidationError{Field: "customer.email", Msg: "is required"}
	}
	if _, err := mail.ParseAddress(in.Customer.Email); err != nil {
		return domain.ValidationError{Field: "customer.email", Msg: "is not a valid address", Err: err}
	}
	if in.Customer.Phone == "" {
		return domain.ValidationError{Field: "customer.phone", Msg: "is required"}
	}
	if strings.TrimSpace(in.PickupLocation) == "" {
		return domain.ValidationError{Field: "pickup_location", Msg: "is required"}
	}
	if err := domain.ValidateSeatNumbers(in.SeatNumbers); err != nil {
		return err
	}
	if in.Payment.Amount < 0 {
		return domain.ValidationError{Field: "payment.amount", Msg: "must not be negative"}
	}
	if in.Payment.Method != "" && !in.Payment.Method.Valid() {
		return domain.ValidationError{Field: "payment.method", Msg: "must be Online, Cash or UPI"}
	}
	if in.Payment.Status != "" && !in.Payment.Status.Valid() {
		return domain.ValidationError{Field: "payment.status", Msg: "unknown payment status"}
	}
	return nil
}
