package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/samirrijal/seatpass/internal/adapters/http"
	"github.com/samirrijal/seatpass/internal/adapters/postgres"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/usecases"
	"github.com/samirrijal/seatpass/internal/pkg/config"
)

func main() {
	var (
		manifestPath = pflag.StringP("manifest", "m", "configs/seed.jsonc", "JSONC manifest of vehicles, drivers and schedule")
		startDate    = pflag.String("start", "", "first schedule date, YYYY-MM-DD (default today)")
		samples      = pflag.Bool("samples", false, "insert the built-in sample vehicles instead of a manifest")
		adminToken   = pflag.Duration("admin-token", 0, "print an admin JWT valid for this long and exit")
	)
	pflag.Parse()

	cfg, err := config.Load("seatpass-seed")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *adminToken > 0 {
		if cfg.Auth.JWTSecret == "" {
			log.Fatal("auth.jwt_secret is empty, admin tokens are not needed")
		}
		tok, err := http.IssueToken(cfg.Auth.JWTSecret, "seed-cli", http.RoleAdmin, *adminToken)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Println(tok)
		return
	}

	if cfg.Database.Driver != "postgres" {
		log.Fatalf("seed needs database.driver=postgres, got %q", cfg.Database.Driver)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), 4)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	vehicleRepo := postgres.NewVehicleRepo(db)
	driverRepo := postgres.NewDriverRepo(db)
	vehicles := usecases.NewVehicleService(vehicleRepo, domain.Route{From: cfg.Booking.RouteFrom, To: cfg.Booking.RouteTo})
	drivers := usecases.NewDriverService(driverRepo, vehicleRepo)
	trips := usecases.NewTripService(postgres.NewTripRepo(db), vehicleRepo, driverRepo, nil, nil)

	if *samples {
		n, err := vehicles.SeedSampleVehicles(ctx)
		if err != nil {
			log.Fatalf("seed samples: %v", err)
		}
		log.Printf("%d sample vehicles created", n)
		return
	}

	m, err := ReadManifest(*manifestPath)
	if err != nil {
		log.Fatal(err)
	}

	start := time.Now().UTC()
	if *startDate != "" {
		if start, err = time.Parse(domain.DateLayout, *startDate); err != nil {
			log.Fatalf("--start: %v", err)
		}
	}

	s := seeder{vehicles: vehicles, drivers: drivers, trips: trips}
	sum, err := s.run(ctx, m, start)
	log.Printf("seed: %d vehicles, %d drivers, %d trips created; %d vehicles already present",
		sum.vehicles, sum.drivers, sum.trips, sum.existing)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
}

type seeder struct {
	vehicles *usecases.VehicleService
	drivers  *usecases.DriverService
	trips    *usecases.TripService
}

type summary struct {
	vehicles, drivers, trips, existing int
}

// run is idempotent for vehicles: a registration number that already exists
// is reused. Drivers and trips are always created.
func (s seeder) run(ctx context.Context, m *Manifest, start time.Time) (summary, error) {
	var sum summary

	existing, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return sum, fmt.Errorf("list vehicles: %w", err)
	}
	ids := make(map[string]string, len(existing))
	for _, v := range existing {
		ids[v.RegistrationNumber] = v.ID
	}

	for _, e := range m.Vehicles {
		reg := strings.ToUpper(strings.TrimSpace(e.RegistrationNumber))
		if _, ok := ids[reg]; ok {
			sum.existing++
			continue
		}
		v, err := s.vehicles.CreateVehicle(ctx, e.input())
		if err != nil {
			return sum, fmt.Errorf("vehicle %s: %w", e.RegistrationNumber, err)
		}
		ids[reg] = v.ID
		sum.vehicles++
	}
	lookup := func(reg string) string { return ids[strings.ToUpper(strings.TrimSpace(reg))] }

	for _, e := range m.Drivers {
		var vehicleID string
		if e.Vehicle != "" {
			vehicleID = lookup(e.Vehicle)
		}
		if _, err := s.drivers.CreateDriver(ctx, e.input(vehicleID)); err != nil {
			return sum, fmt.Errorf("driver %s: %w", e.Name, err)
		}
		sum.drivers++
	}

	for _, e := range m.Schedule {
		for _, in := range e.trips(lookup(e.Vehicle), start) {
			if _, err := s.trips.CreateTrip(ctx, in); err != nil {
				return sum, fmt.Errorf("trip %s %s on %s: %w", in.DepartureDate, in.DepartureTime, e.Vehicle, err)
			}
			sum.trips++
		}
	}
	return sum, nil
}
