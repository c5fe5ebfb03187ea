package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/seatpass/internal/adapters/memory"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

// --- Fakes ---

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (r *recordingBroadcaster) Publish(ctx context.Context, topic domain.Topic, ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingBroadcaster) topics() []domain.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Topic, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Topic)
	}
	return out
}

func (r *recordingBroadcaster) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations []string
	rejections    []string
	fail          bool
}

func (n *recordingNotifier) result() ports.NotificationResult {
	if n.fail {
		return ports.NotificationResult{Channels: []ports.ChannelResult{
			{Channel: "email", Error: "smtp down"},
			{Channel: "whatsapp", Error: "not configured"},
		}}
	}
	return ports.NotificationResult{Channels: []ports.ChannelResult{{Channel: "email", Success: true}}}
}

func (n *recordingNotifier) SendConfirmation(ctx context.Context, b domain.Booking, t domain.Trip) ports.NotificationResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, b.ID)
	return n.result()
}

func (n *recordingNotifier) SendRejection(ctx context.Context, b domain.Booking, reason string) ports.NotificationResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejections = append(n.rejections, b.ID+":"+reason)
	return n.result()
}

// --- Fixture ---

var regSeq atomic.Int64

type fixture struct {
	store      *memory.Store
	trips      *memory.TripRepo
	bookings   *memory.BookingRepo
	vehicles   *memory.VehicleRepo
	drivers    *memory.DriverRepo
	broadcast  *recordingBroadcaster
	notifier   *recordingNotifier
	bookingSvc *usecases.BookingService
	tripSvc    *usecases.TripService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:     store,
		trips:     memory.NewTripRepo(store),
		bookings:  memory.NewBookingRepo(store),
		vehicles:  memory.NewVehicleRepo(store),
		drivers:   memory.NewDriverRepo(store),
		broadcast: &recordingBroadcaster{},
		notifier:  &recordingNotifier{},
	}
	f.bookingSvc = usecases.NewBookingService(f.trips, f.bookings, f.broadcast, f.notifier, nil)
	f.tripSvc = usecases.NewTripService(f.trips, f.vehicles, f.drivers, f.broadcast, nil)
	return f
}

func (f *fixture) trip(t *testing.T, seats int, fare float64) *domain.Trip {
	t.Helper()
	ctx := context.Background()
	v := &domain.Vehicle{
		Name:               "Test",
		Type:               domain.VehicleErtiga,
		TotalSeats:         seats,
		RegistrationNumber: fmt.Sprintf("MH-12-T-%04d", regSeq.Add(1)),
		Route:              domain.DefaultRoute,
		IsActive:           true,
	}
	if err := f.vehicles.Create(ctx, v); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	tr, err := f.tripSvc.CreateTrip(ctx, usecases.CreateTripInput{
		VehicleID:     v.ID,
		DepartureDate: "2026-10-17",
		DepartureTime: "08:30",
		Fare:          fare,
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return tr
}

func (f *fixture) book(t *testing.T, tripID string, seats ...int) *domain.Booking {
	t.Helper()
	b, err := f.bookingSvc.CreateBooking(context.Background(), bookingInput(tripID, seats...))
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}

func (f *fixture) reload(t *testing.T, id string) *domain.Trip {
	t.Helper()
	tr, err := f.trips.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get trip: %v", err)
	}
	return tr
}

func bookingInput(tripID string, seats ...int) usecases.CreateBookingInput {
	return usecases.CreateBookingInput{
		TripID:         tripID,
		Customer:       domain.Customer{Name: "Asha Patil", Email: "Asha@Example.com", Phone: "9876543210"},
		SeatNumbers:    seats,
		PickupLocation: "Akluj bus stand",
	}
}

func assertCountInvariant(t *testing.T, tr *domain.Trip) {
	t.Helper()
	n := 0
	for _, s := range tr.Seats {
		if s.IsBooked {
			n++
		}
	}
	if n != tr.BookedSeatsCount {
		t.Fatalf("booked_seats_count %d does not match %d booked seats", tr.BookedSeatsCount, n)
	}
}

// --- Tests ---

func TestCreateBooking_ComputesAmountAndNormalizes(t *testing.T) {
	f := newFixture(t)
	tr := f.trip(t, 7, 300)

	b := f.book(t, tr.ID, 1, 2)

	if b.Status != domain.BookingPending {
		t.Errorf("expected Pending, got %s", b.Status)
	}
	if b.Payment.Amount != 600 {
		t.Errorf("expected amount 600, got %v", b.Payment.Amount)
	}
	if b.Payment.Method != domain.PaymentOnline || b.Payment.Status != domain.PaymentPending {
		t.Errorf("unexpected payment defaults: %+v", b.Payment)
	}
	if b.Customer.Email != "asha@example.com" {
		t.Errorf("expected lowercased email, got %s", b.Customer.Email)
	}

	// seats are not held
	if got := f.reload(t, tr.ID); got.BookedSeatsCount != 0 {
		t.Errorf("create must not reserve seats, got %d booked", got.BookedSeatsCount)
	}

	topics := f.broadcast.topics()
	if topics[len(topics)-1] != domain.TopicNewBooking {
		t.Errorf("expected new-booking broadcast, got %v", topics)
	}
}

func TestCreateBooking_SuppliedPaymentWins(t *testing.T) {
	f := newFixture(t)
	tr := f.trip(t, 7, 300)

	in := bookingInput(tr.ID, 1)
	in.Payment = domain.Payment{Amount: 250, Method: domain.PaymentCash, TransactionID: "tx-1"}
	b, err := f.bookingSvc.CreateBooking(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Payment.Amount != 250 || b.Payment.Method != domain.PaymentCash || b.Payment.TransactionID != "tx-1" {
		t.Errorf("caller payment fields not kept: %+v", b.Payment)
	}
}

func TestCreateBooking_Errors(t *testing.T) {
	f := newFixture(t)
	tr := f.trip(t, 3, 100)
	ctx := context.Background()

	if _, err := f.tripSvc.SetSeatStatus(ctx, tr.ID, 2, true, ""); err != nil {
		t.Fatalf("manual mark: %v", err)
	}

	tests := []struct {
		name  string
		in    usecases.CreateBookingInput
		check func(error) bool
	}{
		{"unknown trip", bookingInput("missing", 1), domain.IsNotFound},
		{"empty seats", bookingInput(tr.ID), domain.IsValidation},
		{"duplicate seats", bookingInput(tr.ID, 1, 1), domain.IsValidation},
		{"unknown seat", bookingInput(tr.ID, 9), domain.IsNotFound},
		{"seat taken", bookingInput(tr.ID, 1, 2), domain.IsConflict},
		{"bad email", func() usecases.CreateBookingInput {
			in := bookingInput(tr.ID, 1)
			in.Customer.Email = "not-an-email"
			return in
		}(), domain.IsValidation},
		{"bad method", func() usecases.CreateBookingInput {
			in := bookingInput(tr.ID, 1)
			in.Payment.Method = "Card"
			return in
		}(), domain.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookingSvc.CreateBooking(ctx, tt.in)
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateBooking_TripNotAcceptingBookings(t *testing.T) {
	f := newFixture(t)
	tr := f.trip(t, 3, 100)

	for _, s := range []domain.TripStatus{domain.TripFull, domain.TripDeparted, domain.TripCompleted, domain.TripCancelled} {
		if _, err := f.tripSvc.SetTripStatus(context.Background(), tr.ID, s); err != nil {
			t.Fatalf("set status: %v", err)
		}
		_, err := f.bookingSvc.CreateBooking(context.Background(), bookingInput(tr.ID, 1))
		if !domain.IsConflict(err) {
			t.Errorf("%s: expected conflict, got %v", s, err)
		}
	}

	if _, err := f.tripSvc.SetTripStatus(context.Background(), tr.ID, domain.TripBoarding); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := f.bookingSvc.CreateBooking(context.Background(), bookingInput(tr.ID, 1)); err != nil {
		t.Errorf("boarding trip should accept bookings: %v", err)
	}
}

func TestAcceptBooking_SharedSeatScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 7, 300)

	a := f.book(t, tr.ID, 1, 2)
	b := f.book(t, tr.ID, 2, 3)
	if a.Payment.Amount != 600 || b.Payment.Amount != 600 {
		t.Fatalf("unexpected amounts %v %v", a.Payment.Amount, b.Payment.Amount)
	}

	gotA, trip, err := f.bookingSvc.AcceptBooking(ctx, a.ID, "")
	if err != nil {
		t.Fatalf("accept A: %v", err)
	}
	if gotA.Status != domain.BookingAccepted {
		t.Errorf("expected A accepted, got %s", gotA.Status)
	}
	if trip.BookedSeatsCount != 2 || trip.TotalRevenue != 600 {
		t.Errorf("unexpected trip after A: count=%d revenue=%v", trip.BookedSeatsCount, trip.TotalRevenue)
	}
	if trip.Seats[0].BookingRef != a.ID || trip.Seats[0].BookingType != domain.BookingOnline {
		t.Errorf("seat 1 not linked to booking A: %+v", trip.Seats[0])
	}
	if trip.Seats[0].BookedBy != "asha@example.com" {
		t.Errorf("seat 1 should be held by the customer's email, got %q", trip.Seats[0].BookedBy)
	}

	snapshot := f.reload(t, tr.ID)

	_, _, err = f.bookingSvc.AcceptBooking(ctx, b.ID, "")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict accepting B, got %v", err)
	}
	if seats := domain.ConflictSeats(err); len(seats) != 1 || seats[0] != 2 {
		t.Errorf("expected conflict on seat 2, got %v", seats)
	}

	after := f.reload(t, tr.ID)
	if after.Version != snapshot.Version || after.TotalRevenue != 600 || after.BookedSeatsCount != 2 {
		t.Errorf("trip changed by failed accept: %+v", after)
	}
	if after.Seats[2].IsBooked {
		t.Error("seat 3 must stay free")
	}
	stillB, _ := f.bookings.GetByID(ctx, b.ID)
	if stillB.Status != domain.BookingPending {
		t.Errorf("B should remain Pending, got %s", stillB.Status)
	}
	assertCountInvariant(t, after)
}

func TestAcceptBooking_FillsLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 1, 200)
	a := f.book(t, tr.ID, 1)

	f.broadcast.reset()
	_, trip, err := f.bookingSvc.AcceptBooking(ctx, a.ID, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if trip.Status != domain.TripFull {
		t.Errorf("expected Full, got %s", trip.Status)
	}

	want := []domain.Topic{
		domain.TopicSeatUpdated,
		domain.TopicTripUpdated,
		domain.TopicTripStatusUpdated,
		domain.TopicBookingUpdated,
	}
	got := f.broadcast.topics()
	if len(got) != len(want) {
		t.Fatalf("expected topics %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("topic %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	_, err = f.bookingSvc.CreateBooking(ctx, bookingInput(tr.ID, 1))
	if !domain.IsConflict(err) {
		t.Errorf("expected conflict on full trip, got %v", err)
	}
}

func TestAcceptBooking_FullOnlyOnLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 3, 100)

	a := f.book(t, tr.ID, 1, 2)
	b := f.book(t, tr.ID, 3)

	_, trip, err := f.bookingSvc.AcceptBooking(ctx, a.ID, "")
	if err != nil {
		t.Fatalf("accept a: %v", err)
	}
	if trip.Status != domain.TripScheduled {
		t.Errorf("N-1 seats must not fill the trip, got %s", trip.Status)
	}
	_, trip, err = f.bookingSvc.AcceptBooking(ctx, b.ID, "")
	if err != nil {
		t.Fatalf("accept b: %v", err)
	}
	if trip.Status != domain.TripFull {
		t.Errorf("expected Full, got %s", trip.Status)
	}
}

func TestAcceptBooking_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 7, 300)
	a := f.book(t, tr.ID, 4)

	if _, _, err := f.bookingSvc.AcceptBooking(ctx, a.ID, "paid at counter"); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if _, _, err := f.bookingSvc.AcceptBooking(ctx, a.ID, ""); !domain.IsConflict(err) {
		t.Fatalf("expected conflict on second accept, got %v", err)
	}
	if got := f.reload(t, tr.ID); got.TotalRevenue != 300 {
		t.Errorf("revenue must be added once, got %v", got.TotalRevenue)
	}
	stored, _ := f.bookings.GetByID(ctx, a.ID)
	if stored.AdminNotes != "paid at counter" {
		t.Errorf("admin notes not stored: %q", stored.AdminNotes)
	}

	f.bookingSvc.Drain()
	if len(f.notifier.confirmations) != 1 {
		t.Errorf("expected one confirmation, got %d", len(f.notifier.confirmations))
	}
}

func TestAcceptBooking_NotFound(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.bookingSvc.AcceptBooking(context.Background(), "nope", ""); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAcceptBooking_RevenueAccounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 12, 250)

	counts := [][]int{{1}, {2, 3}, {4, 5, 6}}
	total := 0
	for _, seats := range counts {
		b := f.book(t, tr.ID, seats...)
		if _, _, err := f.bookingSvc.AcceptBooking(ctx, b.ID, ""); err != nil {
			t.Fatalf("accept: %v", err)
		}
		total += len(seats)
	}

	got := f.reload(t, tr.ID)
	if got.TotalRevenue != 250*float64(total) {
		t.Errorf("expected revenue %v, got %v", 250*float64(total), got.TotalRevenue)
	}
	assertCountInvariant(t, got)
}

func TestAcceptBooking_NotificationFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.fail = true
	f.broadcast.err = errors.New("nats down")
	tr := f.trip(t, 2, 100)
	a := f.book(t, tr.ID, 1)

	if _, _, err := f.bookingSvc.AcceptBooking(context.Background(), a.ID, ""); err != nil {
		t.Fatalf("accept must succeed despite side-effect failures: %v", err)
	}
	f.bookingSvc.Drain()
	if got := f.reload(t, tr.ID); got.BookedSeatsCount != 1 {
		t.Errorf("expected 1 booked seat, got %d", got.BookedSeatsCount)
	}
}

func TestAcceptBooking_FlagsStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 7, 300)
	a := f.book(t, tr.ID, 1, 2)
	b := f.book(t, tr.ID, 2, 3)
	c := f.book(t, tr.ID, 5)

	f.broadcast.reset()
	if _, _, err := f.bookingSvc.AcceptBooking(ctx, a.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	var flagged []string
	f.broadcast.mu.Lock()
	for _, ev := range f.broadcast.events {
		if ev.Topic == domain.TopicBookingUpdated && ev.BookingID != a.ID {
			flagged = append(flagged, ev.BookingID)
		}
	}
	f.broadcast.mu.Unlock()
	if len(flagged) != 1 || flagged[0] != b.ID {
		t.Errorf("expected only %s flagged, got %v", b.ID, flagged)
	}

	list, err := f.bookingSvc.ListBookings(ctx, ports.BookingFilter{Status: domain.BookingPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, bk := range list {
		switch bk.ID {
		case b.ID:
			if len(bk.UnavailableSeats) != 1 || bk.UnavailableSeats[0] != 2 {
				t.Errorf("expected B to show seat 2 unavailable, got %v", bk.UnavailableSeats)
			}
		case c.ID:
			if len(bk.UnavailableSeats) != 0 {
				t.Errorf("C should have no unavailable seats, got %v", bk.UnavailableSeats)
			}
		}
	}
}

func TestAcceptBooking_ConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 7, 300)

	const n = 8
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.book(t, tr.ID, 1, i%3+2).ID
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, _, errs[i] = f.bookingSvc.AcceptBooking(ctx, id, "")
		}(i, id)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !domain.IsConflict(err):
			t.Errorf("unexpected error kind: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one acceptance, got %d", ok)
	}

	got := f.reload(t, tr.ID)
	if got.BookedSeatsCount != 2 || got.TotalRevenue != 600 {
		t.Errorf("unexpected trip state: count=%d revenue=%v", got.BookedSeatsCount, got.TotalRevenue)
	}
	assertCountInvariant(t, got)
}

func TestRejectBooking_Purity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 7, 300)
	a := f.book(t, tr.ID, 1)
	if _, _, err := f.bookingSvc.AcceptBooking(ctx, a.ID, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	b := f.book(t, tr.ID, 2, 3)
	before := f.reload(t, tr.ID)

	f.broadcast.reset()
	got, err := f.bookingSvc.RejectBooking(ctx, b.ID, "vehicle change", "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != domain.BookingRejected || got.RejectionReason != "vehicle change" {
		t.Errorf("unexpected booking: %+v", got)
	}

	after := f.reload(t, tr.ID)
	if after.BookedSeatsCount != before.BookedSeatsCount || after.TotalRevenue != before.TotalRevenue || after.Version != before.Version {
		t.Errorf("reject changed the trip: before=%+v after=%+v", before, after)
	}

	topics := f.broadcast.topics()
	if len(topics) != 1 || topics[0] != domain.TopicBookingUpdated {
		t.Errorf("expected only booking-updated, got %v", topics)
	}

	if _, err := f.bookingSvc.RejectBooking(ctx, b.ID, "", ""); !domain.IsConflict(err) {
		t.Errorf("expected conflict on second reject, got %v", err)
	}

	f.bookingSvc.Drain()
	if len(f.notifier.rejections) != 1 || f.notifier.rejections[0] != b.ID+":vehicle change" {
		t.Errorf("unexpected rejections: %v", f.notifier.rejections)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 3, 100)
	a := f.book(t, tr.ID, 1)

	got, err := f.bookingSvc.CancelBooking(ctx, a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.BookingCancelled {
		t.Errorf("expected Cancelled, got %s", got.Status)
	}
	if _, _, err := f.bookingSvc.AcceptBooking(ctx, a.ID, ""); !domain.IsConflict(err) {
		t.Errorf("cancelled booking must not be accepted, got %v", err)
	}
}

func TestUpdateBookingStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.trip(t, 3, 100)
	a := f.book(t, tr.ID, 1)
	b := f.book(t, tr.ID, 2)

	if _, err := f.bookingSvc.UpdateBookingStatus(ctx, a.ID, domain.BookingAccepted, "", ""); err != nil {
		t.Fatalf("accept via status: %v", err)
	}
	got, err := f.bookingSvc.UpdateBookingStatus(ctx, b.ID, domain.BookingRejected, "full", "")
	if err != nil {
		t.Fatalf("reject via status: %v", err)
	}
	if got.RejectionReason != "full" {
		t.Errorf("expected reason, got %q", got.RejectionReason)
	}
	if _, err := f.bookingSvc.UpdateBookingStatus(ctx, b.ID, domain.BookingCancelled, "", ""); !domain.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
