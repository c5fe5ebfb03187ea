package memory

import (
	"context"
	"sort"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// VehicleRepo implements ports.VehicleRepository.
type VehicleRepo struct {
	s *Store
}

func NewVehicleRepo(s *Store) *VehicleRepo {
	return &VehicleRepo{s: s}
}

func (r *VehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.vehicles {
		if existing.RegistrationNumber == v.RegistrationNumber {
			return domain.ConflictError{Resource: "vehicle", Msg: "registration number already exists"}
		}
	}
	if v.ID == "" {
		v.ID = newID()
	}
	v.CreatedAt = r.s.now()
	r.s.vehicles[v.ID] = *v
	return nil
}

func (r *VehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	return &v, nil
}

func (r *VehicleRepo) List(ctx context.Context, activeOnly bool) ([]domain.Vehicle, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Vehicle
	for _, v := range r.s.vehicles {
		if activeOnly && !v.IsActive {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *VehicleRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.vehicles), nil
}

func (r *VehicleRepo) SetActive(ctx context.Context, id string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.vehicles[id]
	if !ok {
		return domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	v.IsActive = active
	r.s.vehicles[id] = v
	return nil
}

// DriverRepo implements ports.DriverRepository.
type DriverRepo struct {
	s *Store
}

func NewDriverRepo(s *Store) *DriverRepo {
	return &DriverRepo{s: s}
}

func (r *DriverRepo) Create(ctx context.Context, d *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.licenseTakenLocked(d.LicenseNumber, "") {
		return domain.ConflictError{Resource: "driver", Msg: "license number already exists"}
	}
	if d.ID == "" {
		d.ID = newID()
	}
	d.CreatedAt = r.s.now()
	r.s.drivers[d.ID] = *d
	return nil
}

func (r *DriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	d, ok := r.s.drivers[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "driver", ID: id}
	}
	return &d, nil
}

func (r *DriverRepo) List(ctx context.Context, available *bool) ([]domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Driver
	for _, d := range r.s.drivers {
		if available != nil && d.IsAvailable != *available {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DriverRepo) Update(ctx context.Context, d *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.drivers[d.ID]
	if !ok {
		return domain.NotFoundError{Resource: "driver", ID: d.ID}
	}
	if r.licenseTakenLocked(d.LicenseNumber, d.ID) {
		return domain.ConflictError{Resource: "driver", Msg: "license number already exists"}
	}
	d.CreatedAt = cur.CreatedAt
	r.s.drivers[d.ID] = *d
	return nil
}

func (r *DriverRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.drivers[id]; !ok {
		return domain.NotFoundError{Resource: "driver", ID: id}
	}
	delete(r.s.drivers, id)
	return nil
}

func (r *DriverRepo) licenseTakenLocked(license, exceptID string) bool {
	for id, d := range r.s.drivers {
		if id != exceptID && d.LicenseNumber == license {
			return true
		}
	}
	return false
}
