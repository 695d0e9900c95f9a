package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const holidayColumns = `id, tenant_id, name, start_date, end_date, surcharge_pct, recurs_annually, suppress_weekend, excluded_vehicle_ids`

func scanHoliday(row interface{ Scan(dest ...any) error }) (Holiday, error) {
	var h Holiday
	err := row.Scan(&h.ID, &h.TenantID, &h.Name, &h.StartDate, &h.EndDate,
		&h.SurchargePct, &h.RecursAnnually, &h.SuppressWeekend, &h.ExcludedVehicles)
	return h, err
}

const listHolidaysByTenant = `
SELECT ` + holidayColumns + `
FROM holidays
WHERE tenant_id = $1
ORDER BY start_date`

// ListHolidaysByTenant returns all holiday windows for a tenant.
func (q *Queries) ListHolidaysByTenant(ctx context.Context, tenantID uuid.UUID) ([]Holiday, error) {
	rows, err := q.db.Query(ctx, listHolidaysByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// CreateHolidayParams is the holiday insert payload.
type CreateHolidayParams struct {
	TenantID         uuid.UUID
	Name             string
	StartDate        string
	EndDate          string
	SurchargePct     decimal.Decimal
	RecursAnnually   bool
	SuppressWeekend  bool
	ExcludedVehicles []uuid.UUID
}

const createHoliday = `
INSERT INTO holidays (tenant_id, name, start_date, end_date, surcharge_pct, recurs_annually, suppress_weekend, excluded_vehicle_ids)
VALUES ($1, $2, $3::date, $4::date, $5, $6, $7, $8)
RETURNING ` + holidayColumns

// CreateHoliday inserts a holiday window.
func (q *Queries) CreateHoliday(ctx context.Context, arg CreateHolidayParams) (Holiday, error) {
	return scanHoliday(q.db.QueryRow(ctx, createHoliday,
		arg.TenantID, arg.Name, arg.StartDate, arg.EndDate, arg.SurchargePct,
		arg.RecursAnnually, arg.SuppressWeekend, arg.ExcludedVehicles))
}

const deleteHoliday = `
DELETE FROM holidays WHERE id = $1 AND tenant_id = $2`

// DeleteHoliday removes a tenant's holiday window.
func (q *Queries) DeleteHoliday(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteHoliday, id, tenantID)
	return err
}
