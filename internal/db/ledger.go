package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const chargeColumns = `id, tenant_id, rental_id, customer_id, category, amount, due_date, remaining_amount, written_off, created_at`

func scanCharge(row interface{ Scan(dest ...any) error }) (Charge, error) {
	var c Charge
	err := row.Scan(&c.ID, &c.TenantID, &c.RentalID, &c.CustomerID, &c.Category,
		&c.Amount, &c.DueDate, &c.RemainingAmount, &c.WrittenOff, &c.CreatedAt)
	return c, err
}

// CreateChargeParams is the charge insert payload. RemainingAmount starts at
// the absolute amount.
type CreateChargeParams struct {
	TenantID   uuid.UUID
	RentalID   uuid.UUID
	CustomerID uuid.UUID
	Category   string
	Amount     decimal.Decimal
	DueDate    time.Time
}

const createCharge = `
INSERT INTO charges (tenant_id, rental_id, customer_id, category, amount, due_date, remaining_amount, written_off)
VALUES ($1, $2, $3, $4, $5, $6::date, ABS($5::numeric), FALSE)
RETURNING ` + chargeColumns

// CreateCharge inserts a ledger entry for a rental.
func (q *Queries) CreateCharge(ctx context.Context, arg CreateChargeParams) (Charge, error) {
	return scanCharge(q.db.QueryRow(ctx, createCharge,
		arg.TenantID, arg.RentalID, arg.CustomerID, arg.Category, arg.Amount, arg.DueDate))
}

const getChargeForUpdate = `
SELECT ` + chargeColumns + `
FROM charges
WHERE id = $1 AND tenant_id = $2
FOR UPDATE`

// GetChargeForUpdate locks a charge row for the allocation transaction.
func (q *Queries) GetChargeForUpdate(ctx context.Context, id, tenantID uuid.UUID) (Charge, error) {
	return scanCharge(q.db.QueryRow(ctx, getChargeForUpdate, id, tenantID))
}

const listChargesByRental = `
SELECT ` + chargeColumns + `
FROM charges
WHERE rental_id = $1 AND tenant_id = $2
ORDER BY due_date, created_at`

// ListChargesByRental returns the ledger entries for one rental.
func (q *Queries) ListChargesByRental(ctx context.Context, rentalID, tenantID uuid.UUID) ([]Charge, error) {
	rows, err := q.db.Query(ctx, listChargesByRental, rentalID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

const listChargesByCustomer = `
SELECT ` + chargeColumns + `
FROM charges
WHERE customer_id = $1 AND tenant_id = $2
ORDER BY due_date, created_at`

// ListChargesByCustomer returns all ledger entries for one customer.
func (q *Queries) ListChargesByCustomer(ctx context.Context, customerID, tenantID uuid.UUID) ([]Charge, error) {
	rows, err := q.db.Query(ctx, listChargesByCustomer, customerID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCharges(rows)
}

const updateChargeRemaining = `
UPDATE charges
SET remaining_amount = $3
WHERE id = $1 AND tenant_id = $2`

// UpdateChargeRemaining stores the recomputed remaining amount.
func (q *Queries) UpdateChargeRemaining(ctx context.Context, id, tenantID uuid.UUID, remaining decimal.Decimal) error {
	_, err := q.db.Exec(ctx, updateChargeRemaining, id, tenantID, remaining)
	return err
}

const writeOffCharge = `
UPDATE charges
SET written_off = TRUE, remaining_amount = 0
WHERE id = $1 AND tenant_id = $2
RETURNING ` + chargeColumns

// WriteOffCharge forces a charge's remaining amount to zero.
func (q *Queries) WriteOffCharge(ctx context.Context, id, tenantID uuid.UUID) (Charge, error) {
	return scanCharge(q.db.QueryRow(ctx, writeOffCharge, id, tenantID))
}

// CreatePaymentParams is the payment insert payload.
type CreatePaymentParams struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Method     string
}

const createPayment = `
INSERT INTO payments (tenant_id, customer_id, amount, method)
VALUES ($1, $2, $3, $4)
RETURNING id, tenant_id, customer_id, amount, method, received_at`

// CreatePayment records money received from a customer.
func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, createPayment, arg.TenantID, arg.CustomerID, arg.Amount, arg.Method).
		Scan(&p.ID, &p.TenantID, &p.CustomerID, &p.Amount, &p.Method, &p.ReceivedAt)
	return p, err
}

const getPaymentByTenant = `
SELECT id, tenant_id, customer_id, amount, method, received_at
FROM payments
WHERE id = $1 AND tenant_id = $2`

// GetPaymentByTenant loads one tenant-scoped payment.
func (q *Queries) GetPaymentByTenant(ctx context.Context, id, tenantID uuid.UUID) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, getPaymentByTenant, id, tenantID).
		Scan(&p.ID, &p.TenantID, &p.CustomerID, &p.Amount, &p.Method, &p.ReceivedAt)
	return p, err
}

const listPaymentsByCustomer = `
SELECT id, tenant_id, customer_id, amount, method, received_at
FROM payments
WHERE customer_id = $1 AND tenant_id = $2
ORDER BY received_at`

// ListPaymentsByCustomer returns all payments for one customer.
func (q *Queries) ListPaymentsByCustomer(ctx context.Context, customerID, tenantID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByCustomer, customerID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.CustomerID, &p.Amount, &p.Method, &p.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const createAllocation = `
INSERT INTO payment_allocations (payment_id, charge_id, amount_applied)
VALUES ($1, $2, $3)
RETURNING id, payment_id, charge_id, amount_applied, created_at`

// CreateAllocation applies part of a payment against a charge.
func (q *Queries) CreateAllocation(ctx context.Context, paymentID, chargeID uuid.UUID, amount decimal.Decimal) (PaymentAllocation, error) {
	var a PaymentAllocation
	err := q.db.QueryRow(ctx, createAllocation, paymentID, chargeID, amount).
		Scan(&a.ID, &a.PaymentID, &a.ChargeID, &a.AmountApplied, &a.CreatedAt)
	return a, err
}

const listAllocationsByCharges = `
SELECT a.id, a.payment_id, a.charge_id, a.amount_applied, a.created_at
FROM payment_allocations a
JOIN charges c ON c.id = a.charge_id
WHERE c.tenant_id = $1 AND a.charge_id = ANY($2)
ORDER BY a.created_at`

// ListAllocationsByCharges returns the allocations touching any of the given
// charges.
func (q *Queries) ListAllocationsByCharges(ctx context.Context, tenantID uuid.UUID, chargeIDs []uuid.UUID) ([]PaymentAllocation, error) {
	rows, err := q.db.Query(ctx, listAllocationsByCharges, tenantID, chargeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentAllocation
	for rows.Next() {
		var a PaymentAllocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.ChargeID, &a.AmountApplied, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const sumAllocationsByCharge = `
SELECT COALESCE(SUM(amount_applied), 0)
FROM payment_allocations
WHERE charge_id = $1`

// SumAllocationsByCharge totals the amounts applied against one charge.
func (q *Queries) SumAllocationsByCharge(ctx context.Context, chargeID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := q.db.QueryRow(ctx, sumAllocationsByCharge, chargeID).Scan(&sum)
	return sum, err
}

func collectCharges(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Charge, error) {
	var out []Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
