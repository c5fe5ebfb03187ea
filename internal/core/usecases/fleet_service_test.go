package usecases_test

import (
	"context"
	"testing"

	"github.com/samirrijal/seatpass/internal/adapters/memory"
	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

func TestVehicleService_CreateAndDeactivate(t *testing.T) {
	store := memory.New()
	svc := usecases.NewVehicleService(memory.NewVehicleRepo(store), domain.Route{})
	ctx := context.Background()

	v, err := svc.CreateVehicle(ctx, usecases.CreateVehicleInput{
		Name: "Winger A", Type: domain.VehicleWinger, TotalSeats: 12, RegistrationNumber: "mh-12-xy-0001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RegistrationNumber != "MH-12-XY-0001" || !v.IsActive || v.Route != domain.DefaultRoute {
		t.Errorf("unexpected vehicle %+v", v)
	}

	if _, err := svc.CreateVehicle(ctx, usecases.CreateVehicleInput{Name: "Bus", Type: "Volvo", TotalSeats: 40, RegistrationNumber: "X"}); !domain.IsValidation(err) {
		t.Errorf("expected validation error for type, got %v", err)
	}
	if _, err := svc.CreateVehicle(ctx, usecases.CreateVehicleInput{Name: "Empty", Type: domain.VehicleErtiga, RegistrationNumber: "Y"}); !domain.IsValidation(err) {
		t.Errorf("expected validation error for seats, got %v", err)
	}

	if err := svc.DeactivateVehicle(ctx, v.ID); err != nil {
		t.Fatal(err)
	}
	list, _ := svc.ListVehicles(ctx)
	if len(list) != 0 {
		t.Errorf("deactivated vehicle must not be listed, got %d", len(list))
	}
	got, err := svc.GetVehicle(ctx, v.ID)
	if err != nil || got.IsActive {
		t.Errorf("expected inactive vehicle still readable, got %+v %v", got, err)
	}
}

func TestVehicleService_SeedOnlyWhenEmpty(t *testing.T) {
	svc := usecases.NewVehicleService(memory.NewVehicleRepo(memory.New()), domain.DefaultRoute)
	ctx := context.Background()

	n, err := svc.SeedSampleVehicles(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 seeded, got %d %v", n, err)
	}
	n, err = svc.SeedSampleVehicles(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected second seed to be a no-op, got %d %v", n, err)
	}
	list, _ := svc.ListVehicles(ctx)
	seats := 0
	for _, v := range list {
		seats += v.TotalSeats
	}
	if seats != 39 {
		t.Errorf("expected 7+12+20 seats, got %d", seats)
	}
}

func TestDriverService_CRUD(t *testing.T) {
	store := memory.New()
	vehicles := memory.NewVehicleRepo(store)
	svc := usecases.NewDriverService(memory.NewDriverRepo(store), vehicles)
	ctx := context.Background()

	d, err := svc.CreateDriver(ctx, usecases.DriverInput{
		Name: "Ravi", Phone: "9000000001", LicenseNumber: "mh12 2020 0001", Experience: 6,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !d.IsAvailable || d.Rating != 5 || d.LicenseNumber != "MH12 2020 0001" {
		t.Errorf("unexpected defaults %+v", d)
	}

	if _, err := svc.CreateDriver(ctx, usecases.DriverInput{Name: "Dup", Phone: "1", LicenseNumber: "MH12 2020 0001"}); !domain.IsConflict(err) {
		t.Errorf("expected conflict for duplicate license, got %v", err)
	}
	bad := 7.5
	if _, err := svc.CreateDriver(ctx, usecases.DriverInput{Name: "R", Phone: "1", LicenseNumber: "L2", Rating: &bad}); !domain.IsValidation(err) {
		t.Errorf("expected validation error for rating, got %v", err)
	}
	if _, err := svc.CreateDriver(ctx, usecases.DriverInput{Name: "R", Phone: "1", LicenseNumber: "L3", AssignedVehicleID: "ghost"}); !domain.IsNotFound(err) {
		t.Errorf("expected not found for vehicle, got %v", err)
	}

	off := false
	updated, err := svc.UpdateDriver(ctx, d.ID, usecases.DriverInput{Phone: "9000000002", IsAvailable: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "9000000002" || updated.IsAvailable || updated.Name != "Ravi" || updated.Experience != 6 {
		t.Errorf("unexpected update result %+v", updated)
	}

	available := true
	list, _ := svc.ListDrivers(ctx, &available)
	if len(list) != 0 {
		t.Errorf("expected no available drivers, got %d", len(list))
	}

	if err := svc.DeleteDriver(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteDriver(ctx, d.ID); !domain.IsNotFound(err) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}
