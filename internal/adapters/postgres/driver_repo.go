package postgres

import (
	"context"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// DriverRepo implements ports.DriverRepository.
type DriverRepo struct {
	db *DB
}

func NewDriverRepo(db *DB) *DriverRepo {
	return &DriverRepo{db: db}
}

const driverColumns = `id, name, phone, email, license_number, experience, is_available,
	COALESCE(assigned_vehicle_id::text, ''), rating, total_trips, created_at`

func scanDriver(row interface{ Scan(...any) error }) (*domain.Driver, error) {
	var d domain.Driver
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Email, &d.LicenseNumber, &d.Experience,
		&d.IsAvailable, &d.AssignedVehicleID, &d.Rating, &d.TotalTrips, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DriverRepo) Create(ctx context.Context, d *domain.Driver) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO drivers (name, phone, email, license_number, experience, is_available, assigned_vehicle_id, rating, total_trips)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, d.Name, d.Phone, d.Email, d.LicenseNumber, d.Experience, d.IsAvailable,
		nilIfEmpty(d.AssignedVehicleID), d.Rating, d.TotalTrips,
	).Scan(&d.ID, &d.CreatedAt)
	return translate("driver", d.ID, err)
}

func (r *DriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	d, err := scanDriver(r.db.Pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if err != nil {
		return nil, translate("driver", id, err)
	}
	return d, nil
}

func (r *DriverRepo) List(ctx context.Context, available *bool) ([]domain.Driver, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE $1::boolean IS NULL OR is_available = $1
		ORDER BY name
	`, available)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

func (r *DriverRepo) Update(ctx context.Context, d *domain.Driver) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE drivers
		SET name = $2, phone = $3, email = $4, license_number = $5, experience = $6,
		    is_available = $7, assigned_vehicle_id = $8, rating = $9
		WHERE id = $1
	`, d.ID, d.Name, d.Phone, d.Email, d.LicenseNumber, d.Experience, d.IsAvailable,
		nilIfEmpty(d.AssignedVehicleID), d.Rating)
	if err != nil {
		return translate("driver", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "driver", ID: d.ID}
	}
	return nil
}

func (r *DriverRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return translate("driver", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundError{Resource: "driver", ID: id}
	}
	return nil
}
