package db

import (
	"context"

	"github.com/google/uuid"
)

const getTenantBySlug = `
SELECT id, slug, name, currency, weekend_pct, weekend_days, weekend_active,
       days_per_week, days_per_month, created_at
FROM tenants
WHERE slug = $1`

// GetTenantBySlug loads a tenant by its subdomain slug.
func (q *Queries) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	var t Tenant
	err := q.db.QueryRow(ctx, getTenantBySlug, slug).Scan(
		&t.ID, &t.Slug, &t.Name, &t.Currency, &t.WeekendPct, &t.WeekendDays,
		&t.WeekendActive, &t.DaysPerWeek, &t.DaysPerMonth, &t.CreatedAt,
	)
	return t, err
}

const getTenantByID = `
SELECT id, slug, name, currency, weekend_pct, weekend_days, weekend_active,
       days_per_week, days_per_month, created_at
FROM tenants
WHERE id = $1`

// GetTenantByID loads a tenant by primary key.
func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	var t Tenant
	err := q.db.QueryRow(ctx, getTenantByID, id).Scan(
		&t.ID, &t.Slug, &t.Name, &t.Currency, &t.WeekendPct, &t.WeekendDays,
		&t.WeekendActive, &t.DaysPerWeek, &t.DaysPerMonth, &t.CreatedAt,
	)
	return t, err
}

// UpdateWeekendPricingParams carries the tenant weekend settings update.
type UpdateWeekendPricingParams struct {
	TenantID      uuid.UUID
	WeekendPct    string
	WeekendDays   []int32
	WeekendActive bool
}

const updateWeekendPricing = `
UPDATE tenants
SET weekend_pct = $2, weekend_days = $3, weekend_active = $4
WHERE id = $1`

// UpdateWeekendPricing stores the tenant-wide weekend surcharge settings.
func (q *Queries) UpdateWeekendPricing(ctx context.Context, arg UpdateWeekendPricingParams) error {
	_, err := q.db.Exec(ctx, updateWeekendPricing, arg.TenantID, arg.WeekendPct, arg.WeekendDays, arg.WeekendActive)
	return err
}
