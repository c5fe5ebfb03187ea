package postgres

import (
	"context"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// VehicleRepo implements ports.VehicleRepository.
type VehicleRepo struct {
	db *DB
}

func NewVehicleRepo(db *DB) *VehicleRepo {
	return &VehicleRepo{db: db}
}

const vehicleColumns = `id, name, type, total_seats, registration_number, route_from, route_to, is_active, created_at`

func (r *VehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO vehicles (name, type, total_seats, registration_number, route_from, route_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, v.Name, v.Type, v.TotalSeats, v.RegistrationNumber, v.Route.From, v.Route.To, v.IsActive,
	).Scan(&v.ID, &v.CreatedAt)
	return translate("vehicle", v.ID, err)
}

func (r *VehicleRepo) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := r.db.Pool.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id).Scan(
		&v.ID, &v.Name, &v.Type, &v.TotalSeats, &v.RegistrationNumber, &v.Route.From, &v.Route.To, &v.IsActive, &v.CreatedAt)
	if err != nil {
		return nil, translate("vehicle", id, err)
	}
	return &v, nil
}

func (r *VehicleRepo) List(ctx context.Context, activeOnly bool) ([]domain.Vehicle, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+vehicleColumns+` FROM vehicles
		WHERE is_active OR NOT $1
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.Name, &v.Type, &v.TotalSeats, &v.RegistrationNumber,
			&v.Route.From, &v.Route.To, &v.IsActive, &v.CreatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *VehicleRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM vehicles`).Scan(&n)
	return n, err
}

func (r *VehicleRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE vehicles SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return translate("vehicle", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "vehicle", ID: id}
	}
	return nil
}
