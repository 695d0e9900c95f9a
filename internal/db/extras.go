package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const extraColumns = `id, tenant_id, name, price, pricing_type, max_quantity, active`

func scanExtra(row interface{ Scan(dest ...any) error }) (RentalExtra, error) {
	var e RentalExtra
	err := row.Scan(&e.ID, &e.TenantID, &e.Name, &e.Price, &e.PricingType, &e.MaxQuantity, &e.Active)
	return e, err
}

const listExtrasByTenant = `
SELECT ` + extraColumns + `
FROM rental_extras
WHERE tenant_id = $1
ORDER BY name`

// ListExtrasByTenant returns the extras catalogue, active and inactive.
func (q *Queries) ListExtrasByTenant(ctx context.Context, tenantID uuid.UUID) ([]RentalExtra, error) {
	rows, err := q.db.Query(ctx, listExtrasByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RentalExtra
	for rows.Next() {
		e, err := scanExtra(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateExtraParams is the rental extra insert payload.
type CreateExtraParams struct {
	TenantID    uuid.UUID
	Name        string
	Price       decimal.Decimal
	PricingType string
	MaxQuantity *int32
}

const createExtra = `
INSERT INTO rental_extras (tenant_id, name, price, pricing_type, max_quantity, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
RETURNING ` + extraColumns

// CreateExtra inserts a rental extra.
func (q *Queries) CreateExtra(ctx context.Context, arg CreateExtraParams) (RentalExtra, error) {
	return scanExtra(q.db.QueryRow(ctx, createExtra,
		arg.TenantID, arg.Name, arg.Price, arg.PricingType, arg.MaxQuantity))
}

// BookedQuantity is the confirmed booked total for one extra.
type BookedQuantity struct {
	ExtraID uuid.UUID
	Booked  int64
}

const sumBookedByExtra = `
SELECT s.extra_id, COALESCE(SUM(s.quantity), 0) AS booked
FROM extra_selections s
JOIN rentals r ON r.id = s.rental_id
WHERE r.tenant_id = $1 AND r.status <> 'CANCELLED'
GROUP BY s.extra_id`

// SumBookedByExtra aggregates confirmed selection quantities per extra,
// ignoring cancelled rentals.
func (q *Queries) SumBookedByExtra(ctx context.Context, tenantID uuid.UUID) ([]BookedQuantity, error) {
	rows, err := q.db.Query(ctx, sumBookedByExtra, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookedQuantity
	for rows.Next() {
		var b BookedQuantity
		if err := rows.Scan(&b.ExtraID, &b.Booked); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const createExtraSelection = `
INSERT INTO extra_selections (rental_id, extra_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, rental_id, extra_id, quantity`

// CreateExtraSelection records booked extra quantities on a rental.
func (q *Queries) CreateExtraSelection(ctx context.Context, rentalID, extraID uuid.UUID, quantity int32) (ExtraSelection, error) {
	var s ExtraSelection
	err := q.db.QueryRow(ctx, createExtraSelection, rentalID, extraID, quantity).
		Scan(&s.ID, &s.RentalID, &s.ExtraID, &s.Quantity)
	return s, err
}

const listSelectionsByRental = `
SELECT id, rental_id, extra_id, quantity
FROM extra_selections
WHERE rental_id = $1`

// ListSelectionsByRental returns the extras booked on one rental.
func (q *Queries) ListSelectionsByRental(ctx context.Context, rentalID uuid.UUID) ([]ExtraSelection, error) {
	rows, err := q.db.Query(ctx, listSelectionsByRental, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExtraSelection
	for rows.Next() {
		var s ExtraSelection
		if err := rows.Scan(&s.ID, &s.RentalID, &s.ExtraID, &s.Quantity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
