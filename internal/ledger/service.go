package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/events"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// Service maintains the payment ledger: charges, payments, allocations, and
// write-offs. Allocation runs under FOR UPDATE so the stored remaining amount
// never drifts from the allocation rows.
type Service struct {
	Pool   *pgxpool.Pool
	Q      *db.Queries
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Statement is a rental's reconciled ledger view.
type Statement struct {
	RentalID uuid.UUID
	Charges  []ChargeState
	Charged  decimal.Decimal
	Paid     decimal.Decimal
	Balance  decimal.Decimal
}

// CustomerBalance is a customer's overall position across all rentals.
type CustomerBalance struct {
	CustomerID uuid.UUID
	Charged    decimal.Decimal
	Paid       decimal.Decimal
	Balance    decimal.Decimal
	Status     BalanceStatus
}

// RecordPayment stores money received from a customer without allocating it.
func (s *Service) RecordPayment(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, method string) (db.Payment, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Payment{}, err
	}
	if !amount.IsPositive() {
		return db.Payment{}, common.NewAppError(common.CodeBadRequest, "payment amount must be positive", 400, nil)
	}
	if _, err := s.Q.GetCustomerByTenant(ctx, customerID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Payment{}, common.NewAppError(common.CodeNotFound, "customer not found", 404, nil)
		}
		return db.Payment{}, fmt.Errorf("ledger: load customer: %w", err)
	}
	payment, err := s.Q.CreatePayment(ctx, db.CreatePaymentParams{
		TenantID:   t.ID,
		CustomerID: customerID,
		Amount:     amount,
		Method:     method,
	})
	if err != nil {
		return db.Payment{}, fmt.Errorf("ledger: record payment: %w", err)
	}
	s.emit(ctx, events.TopicPaymentRecorded, payment.ID, map[string]string{
		"customerId": customerID.String(),
		"amount":     amount.StringFixed(2),
	})
	return payment, nil
}

// Allocate applies part of a payment against a charge. The charge row is
// locked for the duration so concurrent allocations cannot overdraw it.
func (s *Service) Allocate(ctx context.Context, paymentID, chargeID uuid.UUID, amount decimal.Decimal) (db.PaymentAllocation, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.PaymentAllocation{}, err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return db.PaymentAllocation{}, fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	qtx := s.Q.WithTx(tx)

	payment, err := qtx.GetPaymentByTenant(ctx, paymentID, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.PaymentAllocation{}, common.NewAppError(common.CodeNotFound, "payment not found", 404, nil)
		}
		return db.PaymentAllocation{}, fmt.Errorf("ledger: load payment: %w", err)
	}
	charge, err := qtx.GetChargeForUpdate(ctx, chargeID, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.PaymentAllocation{}, common.NewAppError(common.CodeNotFound, "charge not found", 404, nil)
		}
		return db.PaymentAllocation{}, fmt.Errorf("ledger: lock charge: %w", err)
	}
	if charge.CustomerID != payment.CustomerID {
		return db.PaymentAllocation{}, common.NewAppError(common.CodeConflict, "payment and charge belong to different customers", 409, nil)
	}

	allocated, err := qtx.SumAllocationsByCharge(ctx, charge.ID)
	if err != nil {
		return db.PaymentAllocation{}, fmt.Errorf("ledger: sum allocations: %w", err)
	}
	state := ChargeState{
		Charge:    toCharge(charge),
		Allocated: allocated,
		Remaining: Remaining(toCharge(charge), allocated),
	}
	if err := ValidateAllocation(state, amount); err != nil {
		return db.PaymentAllocation{}, err
	}

	allocation, err := qtx.CreateAllocation(ctx, paymentID, chargeID, amount)
	if err != nil {
		return db.PaymentAllocation{}, fmt.Errorf("ledger: create allocation: %w", err)
	}
	if err := qtx.UpdateChargeRemaining(ctx, chargeID, t.ID, state.Remaining.Sub(amount)); err != nil {
		return db.PaymentAllocation{}, fmt.Errorf("ledger: update remaining: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return db.PaymentAllocation{}, fmt.Errorf("ledger: commit allocation: %w", err)
	}

	s.emit(ctx, events.TopicPaymentAllocated, allocation.ID, map[string]string{
		"paymentId": paymentID.String(),
		"chargeId":  chargeID.String(),
		"amount":    amount.StringFixed(2),
	})
	return allocation, nil
}

// WriteOff forgives the unpaid part of a charge. Allocations already made
// stay on the books.
func (s *Service) WriteOff(ctx context.Context, chargeID uuid.UUID) (db.Charge, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Charge{}, err
	}

	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return db.Charge{}, fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	qtx := s.Q.WithTx(tx)

	charge, err := qtx.GetChargeForUpdate(ctx, chargeID, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Charge{}, common.NewAppError(common.CodeNotFound, "charge not found", 404, nil)
		}
		return db.Charge{}, fmt.Errorf("ledger: lock charge: %w", err)
	}
	if charge.WrittenOff {
		return db.Charge{}, common.NewAppError(common.CodeConflict, "charge already written off", 409, nil)
	}

	updated, err := qtx.WriteOffCharge(ctx, chargeID, t.ID)
	if err != nil {
		return db.Charge{}, fmt.Errorf("ledger: write off charge: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return db.Charge{}, fmt.Errorf("ledger: commit write-off: %w", err)
	}

	s.emit(ctx, events.TopicChargeWrittenOff, updated.ID, map[string]string{
		"rentalId": updated.RentalID.String(),
		"amount":   updated.Amount.StringFixed(2),
	})
	return updated, nil
}

// RentalStatement reconciles every charge on a rental against its
// allocations.
func (s *Service) RentalStatement(ctx context.Context, rentalID uuid.UUID) (Statement, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return Statement{}, err
	}
	if _, err := s.Q.GetRentalByTenant(ctx, rentalID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Statement{}, common.NewAppError(common.CodeNotFound, "rental not found", 404, nil)
		}
		return Statement{}, fmt.Errorf("ledger: load rental: %w", err)
	}

	rows, err := s.Q.ListChargesByRental(ctx, rentalID, t.ID)
	if err != nil {
		return Statement{}, fmt.Errorf("ledger: load charges: %w", err)
	}
	states, err := s.reconcileRows(ctx, t.ID, rows)
	if err != nil {
		return Statement{}, err
	}

	stmt := Statement{RentalID: rentalID, Charges: states, Charged: decimal.Zero, Paid: decimal.Zero}
	for _, st := range states {
		stmt.Charged = stmt.Charged.Add(st.Charge.Amount)
		stmt.Paid = stmt.Paid.Add(st.Allocated)
	}
	stmt.Balance = stmt.Paid.Sub(stmt.Charged)
	return stmt, nil
}

// BalanceFor computes a customer's overall position from their charges and
// payments.
func (s *Service) BalanceFor(ctx context.Context, customerID uuid.UUID) (CustomerBalance, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return CustomerBalance{}, err
	}
	if _, err := s.Q.GetCustomerByTenant(ctx, customerID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerBalance{}, common.NewAppError(common.CodeNotFound, "customer not found", 404, nil)
		}
		return CustomerBalance{}, fmt.Errorf("ledger: load customer: %w", err)
	}

	chargeRows, err := s.Q.ListChargesByCustomer(ctx, customerID, t.ID)
	if err != nil {
		return CustomerBalance{}, fmt.Errorf("ledger: load charges: %w", err)
	}
	paymentRows, err := s.Q.ListPaymentsByCustomer(ctx, customerID, t.ID)
	if err != nil {
		return CustomerBalance{}, fmt.Errorf("ledger: load payments: %w", err)
	}

	charges := make([]Charge, 0, len(chargeRows))
	for _, row := range chargeRows {
		charges = append(charges, toCharge(row))
	}
	payments := make([]Payment, 0, len(paymentRows))
	for _, row := range paymentRows {
		payments = append(payments, Payment{
			ID:         row.ID,
			CustomerID: row.CustomerID,
			Amount:     row.Amount,
			ReceivedAt: row.ReceivedAt,
		})
	}

	balance, status := Balance(charges, payments)
	out := CustomerBalance{CustomerID: customerID, Balance: balance, Status: status, Charged: decimal.Zero, Paid: decimal.Zero}
	for _, c := range charges {
		out.Charged = out.Charged.Add(c.Amount)
	}
	for _, p := range payments {
		out.Paid = out.Paid.Add(p.Amount)
	}
	return out, nil
}

func (s *Service) reconcileRows(ctx context.Context, tenantID uuid.UUID, rows []db.Charge) ([]ChargeState, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	charges := make([]Charge, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		charges = append(charges, toCharge(row))
	}
	var allocations []Allocation
	if len(ids) > 0 {
		allocRows, err := s.Q.ListAllocationsByCharges(ctx, tenantID, ids)
		if err != nil {
			return nil, fmt.Errorf("ledger: load allocations: %w", err)
		}
		for _, row := range allocRows {
			allocations = append(allocations, Allocation{
				ID:            row.ID,
				PaymentID:     row.PaymentID,
				ChargeID:      row.ChargeID,
				AmountApplied: row.AmountApplied,
			})
		}
	}
	return Reconcile(charges, allocations), nil
}

func (s *Service) tenantFrom(ctx context.Context) (db.Tenant, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Tenant{}, fmt.Errorf("ledger: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Tenant{}, fmt.Errorf("ledger: load tenant %q: %w", slug, err)
	}
	return t, nil
}

func (s *Service) emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if _, err := s.Bus.Emit(ctx, topic, aggregateID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("domain event emit failed")
	}
}

func toCharge(row db.Charge) Charge {
	return Charge{
		ID:         row.ID,
		TenantID:   row.TenantID,
		RentalID:   row.RentalID,
		CustomerID: row.CustomerID,
		Category:   row.Category,
		Amount:     row.Amount,
		DueDate:    row.DueDate,
		WrittenOff: row.WrittenOff,
	}
}
