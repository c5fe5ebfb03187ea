package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/samirrijal/seatpass/internal/core/domain"
	"github.com/samirrijal/seatpass/internal/core/usecases"
)

// Manifest is the seed file. It accepts // and /* */ comments and trailing
// commas.
type Manifest struct {
	Vehicles []VehicleEntry  `json:"vehicles"`
	Drivers  []DriverEntry   `json:"drivers"`
	Schedule []ScheduleEntry `json:"schedule"`
}

type VehicleEntry struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	TotalSeats         int    `json:"total_seats"`
	RegistrationNumber string `json:"registration_number"`
}

type DriverEntry struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	LicenseNumber string `json:"license_number"`
	Experience    int    `json:"experience"`
	// Vehicle is the registration number of the assigned vehicle.
	Vehicle string `json:"vehicle,omitempty"`
}

// ScheduleEntry creates one trip per day for Days days starting at the
// seed date.
type ScheduleEntry struct {
	Vehicle       string  `json:"vehicle"` // registration number
	DepartureTime string  `json:"departure_time"`
	Fare          float64 `json:"fare"`
	Days          int     `json:"days"`
}

// ParseManifest strips JSONC syntax and decodes a manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadManifest reads and parses a manifest file.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// validate checks cross references; field rules are left to the services.
func (m *Manifest) validate() error {
	regs := make(map[string]bool, len(m.Vehicles))
	for _, v := range m.Vehicles {
		if regs[v.RegistrationNumber] {
			return fmt.Errorf("vehicle %s listed twice", v.RegistrationNumber)
		}
		regs[v.RegistrationNumber] = true
	}
	for _, d := range m.Drivers {
		if d.Vehicle != "" && !regs[d.Vehicle] {
			return fmt.Errorf("driver %s: unknown vehicle %s", d.Name, d.Vehicle)
		}
	}
	for i, s := range m.Schedule {
		if !regs[s.Vehicle] {
			return fmt.Errorf("schedule[%d]: unknown vehicle %s", i, s.Vehicle)
		}
		if s.Days < 1 {
			return fmt.Errorf("schedule[%d]: days must be at least 1", i)
		}
	}
	return nil
}

func (e VehicleEntry) input() usecases.CreateVehicleInput {
	return usecases.CreateVehicleInput{
		Name:               e.Name,
		Type:               e.Type,
		TotalSeats:         e.TotalSeats,
		RegistrationNumber: e.RegistrationNumber,
	}
}

func (e DriverEntry) input(vehicleID string) usecases.DriverInput {
	return usecases.DriverInput{
		Name:              e.Name,
		Phone:             e.Phone,
		Email:             e.Email,
		LicenseNumber:     e.LicenseNumber,
		Experience:        e.Experience,
		AssignedVehicleID: vehicleID,
	}
}

// trips expands the entry into one input per day from start.
func (e ScheduleEntry) trips(vehicleID string, start time.Time) []usecases.CreateTripInput {
	out := make([]usecases.CreateTripInput, 0, e.Days)
	for d := 0; d < e.Days; d++ {
		out = append(out, usecases.CreateTripInput{
			VehicleID:     vehicleID,
			DepartureDate: start.AddDate(0, 0, d).Format(domain.DateLayout),
			DepartureTime: e.DepartureTime,
			Fare:          e.Fare,
		})
	}
	return out
}
