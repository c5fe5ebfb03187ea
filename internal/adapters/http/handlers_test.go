package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/seatpass/internal/adapters/http"
	"github.com/samirrijal/seatpass/internal/adapters/memory"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

const tripDate = "2026-10-20"

var (
	ist = time.FixedZone("IST", 5*3600+1800)
	// 10:00 IST on the trip date
	fixedNow = time.Date(2026, time.October, 20, 4, 30, 0, 0, time.UTC)
)

// ---- Mock repositories ----

type mockTripRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Trip, error)
	listFn    func(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error)
}

func (m *mockTripRepo) Create(ctx context.Context, t *domain.Trip) error { return nil }
func (m *mockTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.NotFoundError{Resource: "trip", ID: id}
}
func (m *mockTripRepo) List(ctx context.Context, f ports.TripFilter) ([]domain.Trip, error) {
	if m.listFn != nil {
		return m.listFn(ctx, f)
	}
	return nil, nil
}
func (m *mockTripRepo) Update(ctx context.Context, t *domain.Trip, expected int64) error {
	return nil
}

// ---- Helpers ----

type fixture struct {
	app  *fiber.App
	deps *handler.Dependencies
	trip *domain.Trip
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

// makeDeps wires every service to one in-memory store.
func makeDeps(opts ...func(*handler.Dependencies)) *handler.Dependencies {
	store := memory.New().WithClock(func() time.Time { return fixedNow })
	trips := memory.NewTripRepo(store)
	bookings := memory.NewBookingRepo(store)
	vehicles := memory.NewVehicleRepo(store)
	drivers := memory.NewDriverRepo(store)
	hub := handler.NewHub()

	d := &handler.Dependencies{
		Bookings:  usecases.NewBookingService(trips, bookings, hub, nil, nil),
		Trips:     usecases.NewTripService(trips, vehicles, drivers, hub, nil),
		Dashboard: usecases.NewDashboardService(trips, bookings, nil, ist),
		Vehicles:  usecases.NewVehicleService(vehicles, domain.DefaultRoute),
		Drivers:   usecases.NewDriverService(drivers, vehicles),
		Hub:       hub,
		Now:       func() time.Time { return fixedNow },
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func newFixture(t *testing.T, opts ...func(*handler.Dependencies)) *fixture {
	t.Helper()
	deps := makeDeps(opts...)
	ctx := context.Background()

	v, err := deps.Vehicles.CreateVehicle(ctx, usecases.CreateVehicleInput{
		Name:               "Ertiga 1",
		Type:               domain.VehicleErtiga,
		TotalSeats:         7,
		RegistrationNumber: "MH-45-AB-1234",
	})
	if err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	trip, err := deps.Trips.CreateTrip(ctx, usecases.CreateTripInput{
		VehicleID:     v.ID,
		DepartureDate: tripDate,
		DepartureTime: "07:30",
		Fare:          300,
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	return &fixture{app: setupApp(deps), deps: deps, trip: trip}
}

func (f *fixture) do(t *testing.T, method, path, body string, header ...string) (int, []byte, *fiberResponse) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := f.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data, &fiberResponse{header: resp.Header.Get}
}

type fiberResponse struct {
	header func(string) string
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func bookingBody(seats string) string {
	return `{"customer":{"name":"Asha Patil","email":"Asha@Example.com","phone":"9876543210"},` +
		`"seat_numbers":` + seats + `,"pickup_location":"Akluj bus stand"}`
}

func (f *fixture) createBooking(t *testing.T, seats string) domain.Booking {
	t.Helper()
	code, data, _ := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", bookingBody(seats))
	if code != fiber.StatusCreated {
		t.Fatalf("create booking: expected 201, got %d: %s", code, data)
	}
	return decode[domain.Booking](t, data)
}

// ---- System ----

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, data, _ := f.do(t, "GET", "/v1/health", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	body := decode[map[string]any](t, data)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
}

func TestReady_MemoryStore(t *testing.T) {
	f := newFixture(t)
	code, data, _ := f.do(t, "GET", "/v1/ready", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	body := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, data)
	if body.Checks["database"] != "memory" {
		t.Errorf("expected memory database check, got %q", body.Checks["database"])
	}
	if body.Checks["nats"] != "not configured" {
		t.Errorf("expected nats not configured, got %q", body.Checks["nats"])
	}
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestReady_DatabaseDown(t *testing.T) {
	f := newFixture(t, func(d *handler.Dependencies) { d.DB = failingPinger{} })
	code, _, _ := f.do(t, "GET", "/v1/ready", "")
	if code != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
}

// ---- Trips ----

// Without a secret every caller is an admin, so seat holders are only
// hidden once auth is configured.
func TestListAvailableTrips_HidesSeatHolders(t *testing.T) {
	f := newFixture(t, func(d *handler.Dependencies) { d.JWTSecret = "s3cret" })
	if _, err := f.deps.Trips.SetSeatStatus(context.Background(), f.trip.ID, 3, true, "Ravi"); err != nil {
		t.Fatalf("mark seat: %v", err)
	}

	code, data, _ := f.do(t, "GET", "/v1/trips?date="+tripDate, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	trips := decode[[]domain.Trip](t, data)
	if len(trips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(trips))
	}
	seat := trips[0].Seats[2]
	if !seat.IsBooked {
		t.Error("expected seat 3 booked")
	}
	if seat.BookedBy != "" || seat.BookingType != "" {
		t.Errorf("public view leaked seat holder %+v", seat)
	}
	if trips[0].BookedSeatsCount != 1 {
		t.Errorf("expected 1 booked seat, got %d", trips[0].BookedSeatsCount)
	}
}

func TestListAvailableTrips_OtherDate(t *testing.T) {
	f := newFixture(t)
	code, data, _ := f.do(t, "GET", "/v1/trips?date=2026-10-21", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if trips := decode[[]domain.Trip](t, data); len(trips) != 0 {
		t.Errorf("expected no trips, got %d", len(trips))
	}
}

func TestListAvailableTrips_BadDate(t *testing.T) {
	f := newFixture(t)
	code, data, _ := f.do(t, "GET", "/v1/trips?date=20-10-2026", "")
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
	apiErr := decode[handler.APIError](t, data)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %q", apiErr.Code)
	}
	if apiErr.RequestID == "" {
		t.Error("expected request id in error body")
	}
}

func TestGetTrip_NotFound(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.do(t, "GET", "/v1/trips/00000000-0000-0000-0000-000000000000", "")
	if code != 404 {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestGetTrip_StoreFailureIsInternal(t *testing.T) {
	deps := makeDeps(func(d *handler.Dependencies) {
		d.Trips = usecases.NewTripService(&mockTripRepo{
			getByIDFn: func(ctx context.Context, id string) (*domain.Trip, error) {
				return nil, errors.New("connection reset by peer")
			},
		}, nil, nil, nil, nil)
	})
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/trips/abc", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	json.NewDecoder(resp.Body).Decode(&apiErr)
	if strings.Contains(apiErr.Message, "connection reset") {
		t.Errorf("internal error leaked: %q", apiErr.Message)
	}
}

func TestGetTrip_ETag(t *testing.T) {
	f := newFixture(t)
	code, _, first := f.do(t, "GET", "/v1/trips/"+f.trip.ID, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	etag := first.header("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}
	if cc := first.header("Cache-Control"); cc != "public, max-age=5" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	code, _, _ = f.do(t, "GET", "/v1/trips/"+f.trip.ID, "", "If-None-Match", etag)
	if code != fiber.StatusNotModified {
		t.Fatalf("expected 304, got %d", code)
	}
}

// ---- Bookings ----

func TestCreateBooking_Success(t *testing.T) {
	f := newFixture(t)
	code, data, resp := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", bookingBody("[1,2]"))
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, data)
	}
	b := decode[domain.Booking](t, data)
	if b.Status != domain.BookingPending {
		t.Errorf("expected Pending, got %s", b.Status)
	}
	if b.Payment.Amount != 600 {
		t.Errorf("expected amount 600, got %v", b.Payment.Amount)
	}
	if b.Customer.Email != "asha@example.com" {
		t.Errorf("expected normalized email, got %q", b.Customer.Email)
	}
	if loc := resp.header("Location"); loc != "/v1/bookings/"+b.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	// no seats are held by a Pending booking
	trip, err := f.deps.Trips.GetTrip(context.Background(), f.trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if trip.BookedSeatsCount != 0 {
		t.Errorf("expected no booked seats, got %d", trip.BookedSeatsCount)
	}
}

func TestCreateBooking_TripIDInBody(t *testing.T) {
	f := newFixture(t)
	body := strings.Replace(bookingBody("[4]"), "{", `{"trip_id":"`+f.trip.ID+`",`, 1)
	code, data, _ := f.do(t, "POST", "/v1/bookings", body)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, data)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"customer":`},
		{"missing email", strings.Replace(bookingBody("[1]"), `"Asha@Example.com"`, `""`, 1)},
		{"no seats", bookingBody("[]")},
		{"duplicate seats", bookingBody("[2,2]")},
		{"bad payment method", strings.Replace(bookingBody("[1]"), `"pickup_location"`, `"payment":{"method":"Cheque"},"pickup_location"`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data, _ := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", tt.body)
			if code != 400 {
				t.Fatalf("expected 400, got %d: %s", code, data)
			}
		})
	}
}

func TestCreateBooking_SeatTaken(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deps.Trips.SetSeatStatus(context.Background(), f.trip.ID, 3, true, ""); err != nil {
		t.Fatal(err)
	}
	code, data, _ := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", bookingBody("[2,3]"))
	if code != 409 {
		t.Fatalf("expected 409, got %d: %s", code, data)
	}
	apiErr := decode[handler.APIError](t, data)
	if len(apiErr.Seats) != 1 || apiErr.Seats[0] != 3 {
		t.Errorf("expected conflicting seat 3, got %v", apiErr.Seats)
	}
}

func TestCreateBooking_UnknownSeatAndTrip(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", bookingBody("[8]"))
	if code != 404 {
		t.Fatalf("expected 404 for seat beyond capacity, got %d", code)
	}
	code, _, _ = f.do(t, "POST", "/v1/trips/missing/bookings", bookingBody("[1]"))
	if code != 404 {
		t.Fatalf("expected 404 for unknown trip, got %d", code)
	}
}

func TestCreateBooking_TripNotAcceptingBookings(t *testing.T) {
	f := newFixture(t)
	if _, err := f.deps.Trips.SetTripStatus(context.Background(), f.trip.ID, domain.TripDeparted); err != nil {
		t.Fatal(err)
	}
	code, _, _ := f.do(t, "POST", "/v1/trips/"+f.trip.ID+"/bookings", bookingBody("[1]"))
	if code != 409 {
		t.Fatalf("expected 409, got %d", code)
	}
}

func TestAcceptBooking_SecondRequestForSameSeatConflicts(t *testing.T) {
	f := newFixture(t)
	first := f.createBooking(t, "[1,2]")
	second := f.createBooking(t, "[2,3]")

	code, data, _ := f.do(t, "POST", "/v1/admin/bookings/"+first.ID+"/accept", `{"admin_notes":"paid at counter"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	accepted := decode[struct {
		Booking domain.Booking `json:"booking"`
		Trip    domain.Trip    `json:"trip"`
	}](t, data)
	if accepted.Booking.Status != domain.BookingAccepted {
		t.Errorf("expected Accepted, got %s", accepted.Booking.Status)
	}
	if accepted.Trip.BookedSeatsCount != 2 || accepted.Trip.TotalRevenue != 600 {
		t.Errorf("unexpected trip after accept: booked=%d revenue=%v",
			accepted.Trip.BookedSeatsCount, accepted.Trip.TotalRevenue)
	}
	if accepted.Trip.Seats[0].BookingRef != first.ID {
		t.Errorf("expected seat 1 to reference booking %s", first.ID)
	}

	code, data, _ = f.do(t, "POST", "/v1/admin/bookings/"+second.ID+"/accept", "")
	if code != 409 {
		t.Fatalf("expected 409, got %d: %s", code, data)
	}
	if seats := decode[handler.APIError](t, data).Seats; len(seats) != 1 || seats[0] != 2 {
		t.Errorf("expected conflicting seat 2, got %v", seats)
	}

	code, data, _ = f.do(t, "GET", "/v1/admin/bookings/"+second.ID, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	stale := decode[domain.Booking](t, data)
	if stale.Status != domain.BookingPending {
		t.Errorf("expected second booking to stay Pending, got %s", stale.Status)
	}
	if len(stale.UnavailableSeats) != 1 || stale.UnavailableSeats[0] != 2 {
		t.Errorf("expected unavailable seat 2, got %v", stale.UnavailableSeats)
	}

	// accepting twice is a state conflict
	code, _, _ = f.do(t, "POST", "/v1/admin/bookings/"+first.ID+"/accept", "")
	if code != 409 {
		t.Fatalf("expected 409 on repeated accept, got %d", code)
	}
}

func TestRejectBooking(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "[5]")

	code, data, _ := f.do(t, "POST", "/v1/admin/bookings/"+b.ID+"/reject", `{"rejection_reason":"vehicle changed"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	rejected := decode[domain.Booking](t, data)
	if rejected.Status != domain.BookingRejected || rejected.RejectionReason != "vehicle changed" {
		t.Errorf("unexpected booking %+v", rejected)
	}

	code, _, _ = f.do(t, "POST", "/v1/admin/bookings/"+b.ID+"/reject", "")
	if code != 409 {
		t.Fatalf("expected 409 on second reject, got %d", code)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "[6]")

	code, data, _ := f.do(t, "POST", "/v1/bookings/"+b.ID+"/cancel", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	if got := decode[domain.Booking](t, data).Status; got != domain.BookingCancelled {
		t.Errorf("expected Cancelled, got %s", got)
	}

	code, _, _ = f.do(t, "POST", "/v1/admin/bookings/"+b.ID+"/accept", "")
	if code != 409 {
		t.Fatalf("expected 409 accepting a cancelled booking, got %d", code)
	}
}

func TestGetBooking_HidesAdminNotesFromCustomers(t *testing.T) {
	f := newFixture(t, func(d *handler.Dependencies) { d.JWTSecret = "s3cret" })
	b := f.createBooking(t, "[1]")
	if _, err := f.deps.Bookings.RejectBooking(context.Background(), b.ID, "full", "called customer"); err != nil {
		t.Fatal(err)
	}

	code, data, _ := f.do(t, "GET", "/v1/bookings/"+b.ID, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if got := decode[domain.Booking](t, data); got.AdminNotes != "" || got.RejectionReason != "full" {
		t.Errorf("unexpected customer view %+v", got)
	}
}

func TestUpdateBookingStatus_Deprecated(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "[1]")

	code, data, resp := f.do(t, "PUT", "/v1/admin/bookings/"+b.ID+"/status", `{"status":"Accepted"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	if resp.header("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if resp.header("Sunset") == "" {
		t.Error("expected Sunset header")
	}

	other := f.createBooking(t, "[2]")
	code, _, _ = f.do(t, "PUT", "/v1/admin/bookings/"+other.ID+"/status", `{"status":"Cancelled"}`)
	if code != 400 {
		t.Fatalf("expected 400 for unsupported status, got %d", code)
	}

	// the explicit routes carry no deprecation headers
	_, _, resp = f.do(t, "POST", "/v1/admin/bookings/"+other.ID+"/reject", "")
	if resp.header("Deprecation") != "" {
		t.Error("reject route should not be deprecated")
	}
}

func TestListBookings_Pagination(t *testing.T) {
	f := newFixture(t)
	for _, s := range []string{"[1]", "[2]", "[3]"} {
		f.createBooking(t, s)
	}

	code, data, resp := f.do(t, "GET", "/v1/admin/bookings?status=Pending&limit=2", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	page := decode[struct {
		Data       []domain.Booking   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}](t, data)
	if len(page.Data) != 2 || page.Pagination.Total != 3 {
		t.Errorf("expected 2 of 3, got %d of %d", len(page.Data), page.Pagination.Total)
	}
	link := resp.header("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, "status=Pending") {
		t.Errorf("unexpected Link header %q", link)
	}
	if cc := resp.header("Cache-Control"); cc != "private, no-store" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	code, _, _ = f.do(t, "GET", "/v1/admin/bookings?status=Lost", "")
	if code != 400 {
		t.Fatalf("expected 400 for unknown status, got %d", code)
	}
}

// ---- Admin auth ----

func TestAdminAuth(t *testing.T) {
	const secret = "s3cret"
	f := newFixture(t, func(d *handler.Dependencies) { d.JWTSecret = secret })

	code, _, _ := f.do(t, "GET", "/v1/admin/bookings", "")
	if code != 401 {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, _, _ = f.do(t, "GET", "/v1/admin/bookings", "", "Authorization", "Bearer not-a-jwt")
	if code != 401 {
		t.Fatalf("expected 401 for garbage token, got %d", code)
	}

	customer, err := handler.IssueToken(secret, "u-1", "customer", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	code, _, _ = f.do(t, "GET", "/v1/admin/bookings", "", "Authorization", "Bearer "+customer)
	if code != 403 {
		t.Fatalf("expected 403 for customer token, got %d", code)
	}

	wrongKey, _ := handler.IssueToken("other", "a-1", handler.RoleAdmin, time.Hour)
	code, _, _ = f.do(t, "GET", "/v1/admin/bookings", "", "Authorization", "Bearer "+wrongKey)
	if code != 401 {
		t.Fatalf("expected 401 for token signed with another key, got %d", code)
	}

	admin, _ := handler.IssueToken(secret, "a-1", handler.RoleAdmin, time.Hour)
	code, _, _ = f.do(t, "GET", "/v1/admin/bookings", "", "Authorization", "Bearer "+admin)
	if code != 200 {
		t.Fatalf("expected 200 for admin token, got %d", code)
	}

	// public routes stay open
	code, _, _ = f.do(t, "GET", "/v1/trips", "")
	if code != 200 {
		t.Fatalf("expected 200 on public route, got %d", code)
	}
}

func TestGetTrip_AdminSeesSeatHolders(t *testing.T) {
	const secret = "s3cret"
	f := newFixture(t, func(d *handler.Dependencies) { d.JWTSecret = secret })
	if _, err := f.deps.Trips.SetSeatStatus(context.Background(), f.trip.ID, 4, true, "Walk-in"); err != nil {
		t.Fatal(err)
	}

	_, data, _ := f.do(t, "GET", "/v1/trips/"+f.trip.ID, "")
	if got := decode[domain.Trip](t, data).Seats[3].BookedBy; got != "" {
		t.Errorf("public view leaked seat holder %q", got)
	}

	admin, _ := handler.IssueToken(secret, "a-1", handler.RoleAdmin, time.Hour)
	_, data, _ = f.do(t, "GET", "/v1/trips/"+f.trip.ID, "", "Authorization", "Bearer "+admin)
	if got := decode[domain.Trip](t, data).Seats[3].BookedBy; got != "Walk-in" {
		t.Errorf("expected admin to see Walk-in, got %q", got)
	}
}

// ---- Admin trips ----

func TestSetSeatStatus(t *testing.T) {
	f := newFixture(t)
	path := "/v1/admin/trips/" + f.trip.ID + "/seats/"

	code, data, _ := f.do(t, "PATCH", path+"2", `{"is_booked":true,"booked_by":"Cash customer"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	trip := decode[domain.Trip](t, data)
	if s := trip.Seats[1]; !s.IsBooked || s.BookingType != domain.BookingManual || s.BookedBy != "Cash customer" {
		t.Errorf("unexpected seat %+v", s)
	}

	code, _, _ = f.do(t, "PATCH", path+"2", `{"is_booked":true}`)
	if code != 409 {
		t.Fatalf("expected 409 marking a booked seat, got %d", code)
	}

	code, data, _ = f.do(t, "PATCH", path+"2", `{"is_booked":false}`)
	if code != 200 {
		t.Fatalf("expected 200 releasing, got %d", code)
	}
	if decode[domain.Trip](t, data).Seats[1].IsBooked {
		t.Error("expected seat 2 free")
	}

	tests := []struct {
		name string
		seat string
		body string
		want int
	}{
		{"seat not a number", "two", `{"is_booked":true}`, 400},
		{"missing is_booked", "2", `{}`, 400},
		{"seat beyond capacity", "99", `{"is_booked":true}`, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := f.do(t, "PATCH", path+tt.seat, tt.body)
			if code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestSetTripStatus(t *testing.T) {
	f := newFixture(t)
	path := "/v1/admin/trips/" + f.trip.ID + "/status"

	code, data, _ := f.do(t, "PATCH", path, `{"status":"Boarding"}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	if got := decode[domain.Trip](t, data).Status; got != domain.TripBoarding {
		t.Errorf("expected Boarding, got %s", got)
	}

	code, _, _ = f.do(t, "PATCH", path, `{"status":"Flying"}`)
	if code != 409 {
		t.Fatalf("expected 409 for unknown status, got %d", code)
	}
}

func TestCreateAndListTrips(t *testing.T) {
	f := newFixture(t)

	code, data, _ := f.do(t, "POST", "/v1/admin/trips",
		`{"vehicle_id":"`+f.trip.VehicleID+`","departure_date":"2026-10-21","departure_time":"18:00","fare":350}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, data)
	}
	created := decode[domain.Trip](t, data)
	if created.TotalSeats() != 7 || created.Status != domain.TripScheduled {
		t.Errorf("unexpected trip %+v", created)
	}

	code, _, _ = f.do(t, "POST", "/v1/admin/trips",
		`{"vehicle_id":"`+f.trip.VehicleID+`","departure_date":"21/10/2026","departure_time":"18:00","fare":350}`)
	if code != 400 {
		t.Fatalf("expected 400 for bad date, got %d", code)
	}

	code, data, _ = f.do(t, "GET", "/v1/admin/trips?status=Scheduled", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	page := decode[struct {
		Data       []domain.Trip      `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}](t, data)
	if page.Pagination.Total != 2 {
		t.Errorf("expected 2 trips, got %d", page.Pagination.Total)
	}
}

// ---- Dashboard ----

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	b := f.createBooking(t, "[1,2]")
	f.createBooking(t, "[3]")
	if _, _, err := f.deps.Bookings.AcceptBooking(context.Background(), b.ID, ""); err != nil {
		t.Fatal(err)
	}

	code, data, _ := f.do(t, "GET", "/v1/admin/dashboard/stats?date="+tripDate, "")
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	stats := decode[domain.DashboardStats](t, data)
	if stats.TotalRevenue != 600 {
		t.Errorf("expected revenue 600, got %v", stats.TotalRevenue)
	}
	// 2 of 7 seats
	if stats.OccupancyRate != 28.57 {
		t.Errorf("expected occupancy 28.57, got %v", stats.OccupancyRate)
	}
	if stats.PendingBookingsCount != 1 || stats.TodayBookingsCount != 2 {
		t.Errorf("unexpected counts pending=%d today=%d", stats.PendingBookingsCount, stats.TodayBookingsCount)
	}
	if stats.RevenueByVehicleType[domain.VehicleErtiga] != 600 {
		t.Errorf("unexpected revenue by type %v", stats.RevenueByVehicleType)
	}

	// defaults to today from the clock
	code, data, _ = f.do(t, "GET", "/v1/admin/dashboard/stats", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if got := decode[domain.DashboardStats](t, data).Date; got != tripDate {
		t.Errorf("expected %s, got %s", tripDate, got)
	}
}

// ---- Fleet ----

func TestVehicles(t *testing.T) {
	f := newFixture(t)

	code, data, _ := f.do(t, "POST", "/v1/admin/vehicles",
		`{"name":"Winger 1","type":"Tata Winger 12-seater","total_seats":12,"registration_number":"mh-45-cd-9999"}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, data)
	}
	v := decode[domain.Vehicle](t, data)
	if v.RegistrationNumber != "MH-45-CD-9999" || v.Route != domain.DefaultRoute {
		t.Errorf("unexpected vehicle %+v", v)
	}

	code, _, _ = f.do(t, "POST", "/v1/admin/vehicles",
		`{"name":"Bus","type":"Double Decker","total_seats":60,"registration_number":"MH-01"}`)
	if code != 400 {
		t.Fatalf("expected 400 for unknown type, got %d", code)
	}

	code, _, _ = f.do(t, "DELETE", "/v1/admin/vehicles/"+v.ID, "")
	if code != 204 {
		t.Fatalf("expected 204, got %d", code)
	}
	code, data, _ = f.do(t, "GET", "/v1/admin/vehicles", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if list := decode[[]domain.Vehicle](t, data); len(list) != 1 {
		t.Errorf("expected 1 active vehicle, got %d", len(list))
	}

	// seeding is a no-op once vehicles exist
	code, data, _ = f.do(t, "POST", "/v1/admin/vehicles/seed", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if n := decode[map[string]int](t, data)["created"]; n != 0 {
		t.Errorf("expected 0 created, got %d", n)
	}
}

func TestDrivers(t *testing.T) {
	f := newFixture(t)

	code, data, _ := f.do(t, "POST", "/v1/admin/drivers",
		`{"name":"Suresh","phone":"9000000001","license_number":"MH12 2020 0001","experience":6}`)
	if code != 201 {
		t.Fatalf("expected 201, got %d: %s", code, data)
	}
	d := decode[domain.Driver](t, data)

	code, data, _ = f.do(t, "PUT", "/v1/admin/drivers/"+d.ID, `{"is_available":false}`)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	if decode[domain.Driver](t, data).IsAvailable {
		t.Error("expected driver unavailable")
	}

	code, data, _ = f.do(t, "GET", "/v1/admin/drivers?available=true", "")
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if list := decode[[]domain.Driver](t, data); len(list) != 0 {
		t.Errorf("expected no available drivers, got %d", len(list))
	}

	code, _, _ = f.do(t, "GET", "/v1/admin/drivers?available=maybe", "")
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}

	code, _, _ = f.do(t, "DELETE", "/v1/admin/drivers/"+d.ID, "")
	if code != 204 {
		t.Fatalf("expected 204, got %d", code)
	}
	code, _, _ = f.do(t, "DELETE", "/v1/admin/drivers/"+d.ID, "")
	if code != 404 {
		t.Fatalf("expected 404 deleting twice, got %d", code)
	}
}

// ---- GraphQL ----

func TestGraphQL_AvailableTrips(t *testing.T) {
	f := newFixture(t)
	body := `{"query":"{ availableTrips(date: \"` + tripDate + `\") { id departure_date free_seats seats { seat_number is_booked } } }"}`

	code, data, _ := f.do(t, "POST", "/graphql", body)
	if code != 200 {
		t.Fatalf("expected 200, got %d: %s", code, data)
	}
	var result struct {
		Data struct {
			AvailableTrips []struct {
				ID            string `json:"id"`
				DepartureDate string `json:"departure_date"`
				FreeSeats     int    `json:"free_seats"`
			} `json:"availableTrips"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Data.AvailableTrips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(result.Data.AvailableTrips))
	}
	got := result.Data.AvailableTrips[0]
	if got.ID != f.trip.ID || got.DepartureDate != tripDate || got.FreeSeats != 7 {
		t.Errorf("unexpected trip %+v", got)
	}
}

func TestGraphQL_AdminFieldsNeedToken(t *testing.T) {
	const secret = "s3cret"
	f := newFixture(t, func(d *handler.Dependencies) { d.JWTSecret = secret })
	f.createBooking(t, "[1]")
	body := `{"query":"{ bookings(status: \"Pending\") { id status seat_numbers } }"}`

	_, data, _ := f.do(t, "POST", "/graphql", body)
	if !strings.Contains(string(data), "admin role required") {
		t.Errorf("expected admin error, got %s", data)
	}

	admin, _ := handler.IssueToken(secret, "a-1", handler.RoleAdmin, time.Hour)
	_, data, _ = f.do(t, "POST", "/graphql", body, "Authorization", "Bearer "+admin)
	var result struct {
		Data struct {
			Bookings []domain.Booking `json:"bookings"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Data.Bookings) != 1 {
		t.Errorf("expected 1 booking, got %s", data)
	}
}

func TestGraphQL_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.do(t, "POST", "/graphql", `{}`)
	if code != 400 {
		t.Fatalf("expected 400, got %d", code)
	}
}

// ---- WebSocket ----

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	f := newFixture(t)
	code, _, _ := f.do(t, "GET", "/ws", "")
	if code != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", code)
	}
}
