package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const rentalColumns = `id, tenant_id, vehicle_id, customer_id, start_date, end_date, status, payment_mode, created_at`

func scanRental(row interface{ Scan(dest ...any) error }) (Rental, error) {
	var r Rental
	err := row.Scan(&r.ID, &r.TenantID, &r.VehicleID, &r.CustomerID,
		&r.StartDate, &r.EndDate, &r.Status, &r.PaymentMode, &r.CreatedAt)
	return r, err
}

const getRentalByTenant = `
SELECT ` + rentalColumns + `
FROM rentals
WHERE id = $1 AND tenant_id = $2`

// GetRentalByTenant loads one tenant-scoped rental.
func (q *Queries) GetRentalByTenant(ctx context.Context, id, tenantID uuid.UUID) (Rental, error) {
	return scanRental(q.db.QueryRow(ctx, getRentalByTenant, id, tenantID))
}

const listRentalsByVehicle = `
SELECT ` + rentalColumns + `
FROM rentals
WHERE vehicle_id = $1 AND tenant_id = $2 AND status <> 'CANCELLED'
ORDER BY start_date`

// ListRentalsByVehicle returns the non-cancelled rentals for one vehicle.
func (q *Queries) ListRentalsByVehicle(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]Rental, error) {
	rows, err := q.db.Query(ctx, listRentalsByVehicle, vehicleID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

const listRentalsByVehicleForUpdate = `
SELECT ` + rentalColumns + `
FROM rentals
WHERE vehicle_id = $1 AND tenant_id = $2 AND status <> 'CANCELLED'
ORDER BY start_date
FOR UPDATE`

// ListRentalsByVehicleForUpdate is the in-transaction re-check used before a
// booking commit; it locks the candidate rows for the duration.
func (q *Queries) ListRentalsByVehicleForUpdate(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]Rental, error) {
	rows, err := q.db.Query(ctx, listRentalsByVehicleForUpdate, vehicleID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

const listRentalsByTenantWindow = `
SELECT ` + rentalColumns + `
FROM rentals
WHERE tenant_id = $1
  AND status <> 'CANCELLED'
  AND start_date <= $3::date
  AND (end_date IS NULL OR end_date >= $2::date)
ORDER BY vehicle_id, start_date`

// ListRentalsByTenantWindow returns rentals intersecting [from, to] for
// calendar rendering.
func (q *Queries) ListRentalsByTenantWindow(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]Rental, error) {
	rows, err := q.db.Query(ctx, listRentalsByTenantWindow, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

// CreateRentalParams is the rental insert payload.
type CreateRentalParams struct {
	TenantID    uuid.UUID
	VehicleID   uuid.UUID
	CustomerID  uuid.UUID
	StartDate   time.Time
	EndDate     *time.Time
	Status      string
	PaymentMode string
}

const createRental = `
INSERT INTO rentals (tenant_id, vehicle_id, customer_id, start_date, end_date, status, payment_mode)
VALUES ($1, $2, $3, $4::date, $5::date, $6, $7)
RETURNING ` + rentalColumns

// CreateRental inserts a rental. The exclusion constraint on
// (vehicle, daterange) raises SQLSTATE 23P01 when the range is taken.
func (q *Queries) CreateRental(ctx context.Context, arg CreateRentalParams) (Rental, error) {
	return scanRental(q.db.QueryRow(ctx, createRental,
		arg.TenantID, arg.VehicleID, arg.CustomerID, arg.StartDate, arg.EndDate,
		arg.Status, arg.PaymentMode))
}

const updateRentalStatus = `
UPDATE rentals
SET status = $3
WHERE id = $1 AND tenant_id = $2
RETURNING ` + rentalColumns

// UpdateRentalStatus transitions a rental's status.
func (q *Queries) UpdateRentalStatus(ctx context.Context, id, tenantID uuid.UUID, status string) (Rental, error) {
	return scanRental(q.db.QueryRow(ctx, updateRentalStatus, id, tenantID, status))
}

func collectRentals(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Rental, error) {
	var out []Rental
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
