package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/ports"
)

// CreateVehicleInput describes a vehicle to register.
type CreateVehicleInput struct {
	Name               string
	Type               string
	TotalSeats         int
	RegistrationNumber string
}

// VehicleService manages the vehicle registry on the deployment's route.
type VehicleService struct {
	vehicles ports.VehicleRepository
	route    domain.Route
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(vehicles ports.VehicleRepository, route domain.Route) *VehicleService {
	if route.From == "" || route.To == "" {
		route = domain.DefaultRoute
	}
	return &VehicleService{vehicles: vehicles, route: route}
}

// CreateVehicle registers an active vehicle.
func (s *VehicleService) CreateVehicle(ctx context.Context, in CreateVehicleInput) (*domain.Vehicle, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RegistrationNumber = strings.ToUpper(strings.TrimSpace(in.RegistrationNumber))
	switch {
	case in.Name == "":
		return nil, domain.ValidationError{Field: "name", Msg: "is required"}
	case !domain.ValidVehicleType(in.Type):
		return nil, domain.ValidationError{Field: "type", Msg: "unknown vehicle type"}
	case in.TotalSeats < 1:
		return nil, domain.ValidationError{Field: "total_seats", Msg: "must be at least 1"}
	case in.RegistrationNumber == "":
		return nil, domain.ValidationError{Field: "registration_number", Msg: "is required"}
	}

	v := &domain.Vehicle{
		Name:               in.Name,
		Type:               in.Type,
		TotalSeats:         in.TotalSeats,
		RegistrationNumber: in.RegistrationNumber,
		Route:              s.route,
		IsActive:           true,
	}
	if err := s.vehicles.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListVehicles returns active vehicles ordered by name.
func (s *VehicleService) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	return s.vehicles.List(ctx, true)
}

// GetVehicle returns a vehicle whether or not it is active.
func (s *VehicleService) GetVehicle(ctx context.Context, id string) (*domain.Vehicle, error) {
	return s.vehicles.GetByID(ctx, id)
}

// DeactivateVehicle soft-deletes a vehicle. Existing trips keep referencing it.
func (s *VehicleService) DeactivateVehicle(ctx context.Context, id string) error {
	return s.vehicles.SetActive(ctx, id, false)
}

// SampleVehicles are inserted by SeedSampleVehicles into an empty registry.
var SampleVehicles = []CreateVehicleInput{
	{Name: "Ertiga 1", Type: domain.VehicleErtiga, TotalSeats: 7, RegistrationNumber: "MH-12-AB-1234"},
	{Name: "Winger 1", Type: domain.VehicleWinger, TotalSeats: 12, RegistrationNumber: "MH-12-CD-5678"},
	{Name: "BharatBenz 1", Type: domain.VehicleBharat, TotalSeats: 20, RegistrationNumber: "MH-12-EF-9012"},
}

// SeedSampleVehicles inserts SampleVehicles when no vehicle exists yet and
// reports how many were created.
func (s *VehicleService) SeedSampleVehicles(ctx context.Context) (int, error) {
	return s.SeedVehicles(ctx, SampleVehicles)
}

// SeedVehicles inserts the given vehicles only into an empty registry.
func (s *VehicleService) SeedVehicles(ctx context.Context, list []CreateVehicleInput) (int, error) {
	n, err := s.vehicles.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	created := 0
	for _, in := range list {
		if _, err := s.CreateVehicle(ctx, in); err != nil {
			return created, fmt.Errorf("seed %s: %w", in.Name, err)
		}
		created++
	}
	return created, nil
}

// DriverInput carries driver fields for create and update.
type DriverInput struct {
	Name              string
	Phone             string
	Email             string
	LicenseNumber     string
	Experience        int
	IsAvailable       *bool
	AssignedVehicleID string
	Rating            *float64
}

// DriverService manages drivers.
type DriverService struct {
	drivers  ports.DriverRepository
	vehicles ports.VehicleRepository
}

// NewDriverService creates a new DriverService.
func NewDriverService(drivers ports.DriverRepository, vehicles ports.VehicleRepository) *DriverService {
	return &DriverService{drivers: drivers, vehicles: vehicles}
}

// ListDrivers returns drivers, optionally filtered by availability.
func (s *DriverService) ListDrivers(ctx context.Context, available *bool) ([]domain.Driver, error) {
	return s.drivers.List(ctx, available)
}

// CreateDriver registers a driver. New drivers are available with a 5.0 rating.
func (s *DriverService) CreateDriver(ctx context.Context, in DriverInput) (*domain.Driver, error) {
	d := &domain.Driver{IsAvailable: true, Rating: 5}
	if err := s.apply(ctx, d, in); err != nil {
		return nil, err
	}
	if err := s.drivers.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDriver replaces the non-empty fields of in on an existing driver.
func (s *DriverService) UpdateDriver(ctx context.Context, id string, in DriverInput) (*domain.Driver, error) {
	d, err := s.drivers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := mergeDriver(*d, in)
	if err := s.apply(ctx, d, merged); err != nil {
		return nil, err
	}
	if err := s.drivers.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDriver removes a driver.
func (s *DriverService) DeleteDriver(ctx context.Context, id string) error {
	return s.drivers.Delete(ctx, id)
}

func (s *DriverService) apply(ctx context.Context, d *domain.Driver, in DriverInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.LicenseNumber = strings.ToUpper(strings.TrimSpace(in.LicenseNumber))
	switch {
	case in.Name == "":
		return domain.ValidationError{Field: "name", Msg: "is required"}
	case in.Phone == "":
		return domain.ValidationError{Field: "phone", Msg: "is required"}
	case in.LicenseNumber == "":
		return domain.ValidationError{Field: "license_number", Msg: "is required"}
	case in.Experience < 0:
		return domain.ValidationError{Field: "experience", Msg: "must not be negative"}
	case in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5):
		return domain.ValidationError{Field: "rating", Msg: "must be between 0 and 5"}
	}
	if in.AssignedVehicleID != "" {
		if _, err := s.vehicles.GetByID(ctx, in.AssignedVehicleID); err != nil {
			return err
		}
	}

	d.Name = in.Name
	d.Phone = in.Phone
	d.Email = strings.ToLower(strings.TrimSpace(in.Email))
	d.LicenseNumber = in.LicenseNumber
	d.Experience = in.Experience
	d.AssignedVehicleID = in.AssignedVehicleID
	if in.IsAvailable != nil {
		d.IsAvailable = *in.IsAvailable
	}
	if in.Rating != nil {
		d.Rating = *in.Rating
	}
	return nil
}

func mergeDriver(d domain.Driver, in DriverInput) DriverInput {
	out := DriverInput{
		Name:              d.Name,
		Phone:             d.Phone,
		Email:             d.Email,
		LicenseNumber:     d.LicenseNumber,
		Experience:        d.Experience,
		AssignedVehicleID: d.AssignedVehicleID,
		IsAvailable:       in.IsAvailable,
		Rating:            in.Rating,
	}
	if in.Name != "" {
		out.Name = in.Name
	}
	if in.Phone != "" {
		out.Phone = in.Phone
	}
	if in.Email != "" {
		out.Email = in.Email
	}
	if in.LicenseNumber != "" {
		out.LicenseNumber = in.LicenseNumber
	}
	if in.Experience > 0 {
		out.Experience = in.Experience
	}
	if in.AssignedVehicleID != "" {
		out.AssignedVehicleID = in.AssignedVehicleID
	}
	return out
}
