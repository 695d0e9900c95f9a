package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const vehicleColumns = `id, tenant_id, registration, make, model, daily_rate, weekly_rate, monthly_rate, active, created_at`

func scanVehicle(row interface{ Scan(dest ...any) error }) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(&v.ID, &v.TenantID, &v.Registration, &v.Make, &v.Model,
		&v.DailyRate, &v.WeeklyRate, &v.MonthlyRate, &v.Active, &v.CreatedAt)
	return v, err
}

const getVehicleByTenant = `
SELECT ` + vehicleColumns + `
FROM vehicles
WHERE id = $1 AND tenant_id = $2`

// GetVehicleByTenant loads one tenant-scoped vehicle.
func (q *Queries) GetVehicleByTenant(ctx context.Context, id, tenantID uuid.UUID) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx, getVehicleByTenant, id, tenantID))
}

const listVehiclesByTenant = `
SELECT ` + vehicleColumns + `
FROM vehicles
WHERE tenant_id = $1 AND active
ORDER BY registration
LIMIT $2 OFFSET $3`

// ListVehiclesByTenant returns the active fleet page for a tenant.
func (q *Queries) ListVehiclesByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]Vehicle, error) {
	rows, err := q.db.Query(ctx, listVehiclesByTenant, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateVehicleParams holds the insert payload for a vehicle.
type CreateVehicleParams struct {
	TenantID     uuid.UUID
	Registration string
	Make         string
	Model        string
	DailyRate    decimal.Decimal
	WeeklyRate   decimal.Decimal
	MonthlyRate  decimal.Decimal
}

const createVehicle = `
INSERT INTO vehicles (tenant_id, registration, make, model, daily_rate, weekly_rate, monthly_rate, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
RETURNING ` + vehicleColumns

// CreateVehicle inserts a vehicle and returns the stored row.
func (q *Queries) CreateVehicle(ctx context.Context, arg CreateVehicleParams) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx, createVehicle,
		arg.TenantID, arg.Registration, arg.Make, arg.Model,
		arg.DailyRate, arg.WeeklyRate, arg.MonthlyRate))
}

// UpdateVehicleRatesParams updates base rates on a vehicle.
type UpdateVehicleRatesParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	DailyRate   decimal.Decimal
	WeeklyRate  decimal.Decimal
	MonthlyRate decimal.Decimal
}

const updateVehicleRates = `
UPDATE vehicles
SET daily_rate = $3, weekly_rate = $4, monthly_rate = $5
WHERE id = $1 AND tenant_id = $2
RETURNING ` + vehicleColumns

// UpdateVehicleRates replaces the vehicle's base rates.
func (q *Queries) UpdateVehicleRates(ctx context.Context, arg UpdateVehicleRatesParams) (Vehicle, error) {
	return scanVehicle(q.db.QueryRow(ctx, updateVehicleRates,
		arg.ID, arg.TenantID, arg.DailyRate, arg.WeeklyRate, arg.MonthlyRate))
}

const listVehicleExtraPrices = `
SELECT p.vehicle_id, p.extra_id, p.price
FROM vehicle_extra_prices p
JOIN vehicles v ON v.id = p.vehicle_id
WHERE p.vehicle_id = $1 AND v.tenant_id = $2`

// ListVehicleExtraPrices returns the per-vehicle extra price overrides.
func (q *Queries) ListVehicleExtraPrices(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]VehicleExtraPrice, error) {
	rows, err := q.db.Query(ctx, listVehicleExtraPrices, vehicleID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VehicleExtraPrice
	for rows.Next() {
		var p VehicleExtraPrice
		if err := rows.Scan(&p.VehicleID, &p.ExtraID, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const upsertVehicleExtraPrice = `
INSERT INTO vehicle_extra_prices (vehicle_id, extra_id, price)
VALUES ($1, $2, $3)
ON CONFLICT (vehicle_id, extra_id) DO UPDATE SET price = EXCLUDED.price`

// UpsertVehicleExtraPrice sets the override price of an extra for a vehicle.
func (q *Queries) UpsertVehicleExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID, price decimal.Decimal) error {
	_, err := q.db.Exec(ctx, upsertVehicleExtraPrice, vehicleID, extraID, price)
	return err
}

const deleteVehicleExtraPrice = `
DELETE FROM vehicle_extra_prices WHERE vehicle_id = $1 AND extra_id = $2`

// DeleteVehicleExtraPrice removes an override so the global price applies
// again.
func (q *Queries) DeleteVehicleExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteVehicleExtraPrice, vehicleID, extraID)
	return err
}
