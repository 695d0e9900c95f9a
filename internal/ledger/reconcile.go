package ledger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge statuses. Transitions are driven only by allocation and write-off
// events, never by time.
type ChargeStatus string

const (
	StatusUnpaid            ChargeStatus = "UNPAID"
	StatusPartiallyPaid     ChargeStatus = "PARTIALLY_PAID"
	StatusPaid              ChargeStatus = "PAID"
	StatusWrittenOff        ChargeStatus = "WRITTEN_OFF"
	StatusPartialWrittenOff ChargeStatus = "PARTIAL_WRITTEN_OFF"
)

// Customer balance statuses.
type BalanceStatus string

const (
	BalanceSettled  BalanceStatus = "SETTLED"
	BalanceInCredit BalanceStatus = "IN_CREDIT"
	BalanceInDebt   BalanceStatus = "IN_DEBT"
)

// Epsilon is half the smallest currency unit: balances within it are settled.
var Epsilon = decimal.RequireFromString("0.005")

// Charge is a billable ledger entry. Amount is signed; credits carry a
// negative amount and reconcile against their absolute value.
type Charge struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	RentalID   uuid.UUID
	CustomerID uuid.UUID
	Category   string
	Amount     decimal.Decimal
	DueDate    time.Time
	WrittenOff bool
}

// Allocation applies part of a payment against a charge.
type Allocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	ChargeID      uuid.UUID
	AmountApplied decimal.Decimal
}

// Payment is money received from a customer.
type Payment struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	ReceivedAt time.Time
}

// ChargeState is a charge with its reconciled totals.
type ChargeState struct {
	Charge    Charge
	Allocated decimal.Decimal
	Remaining decimal.Decimal
	Status    ChargeStatus
}

// OverAllocationError reports an allocation that would drive a charge's
// remaining amount negative.
type OverAllocationError struct {
	ChargeID  uuid.UUID
	Attempted decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("ledger: allocating %s to charge %s exceeds remaining %s",
		e.Attempted.StringFixed(2), e.ChargeID, e.Remaining.StringFixed(2))
}

func (e *OverAllocationError) Code() string { return "OVER_ALLOCATION" }
func (e *OverAllocationError) Status() int  { return http.StatusConflict }

func (e *OverAllocationError) Message() string {
	return "allocation exceeds the charge's remaining amount"
}

func (e *OverAllocationError) Details() map[string]any {
	return map[string]any{
		"chargeId":  e.ChargeID,
		"attempted": e.Attempted.StringFixed(2),
		"remaining": e.Remaining.StringFixed(2),
	}
}

// Remaining computes |amount| minus the total allocated, clamped at zero.
// Written-off charges always have zero remaining.
func Remaining(c Charge, allocated decimal.Decimal) decimal.Decimal {
	if c.WrittenOff {
		return decimal.Zero
	}
	rem := c.Amount.Abs().Sub(allocated)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}

// Status derives the charge state from its allocated total and write-off
// flag.
func Status(c Charge, allocated decimal.Decimal) ChargeStatus {
	full := c.Amount.Abs()
	switch {
	case allocated.GreaterThanOrEqual(full) && full.IsPositive():
		return StatusPaid
	case c.WrittenOff && allocated.IsPositive():
		return StatusPartialWrittenOff
	case c.WrittenOff:
		return StatusWrittenOff
	case allocated.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusUnpaid
	}
}

// Reconcile aggregates charges and allocations into per-charge states.
// Allocations referencing unknown charges are ignored.
func Reconcile(charges []Charge, allocations []Allocation) []ChargeState {
	allocated := make(map[uuid.UUID]decimal.Decimal, len(charges))
	for _, a := range allocations {
		allocated[a.ChargeID] = allocated[a.ChargeID].Add(a.AmountApplied)
	}
	out := make([]ChargeState, 0, len(charges))
	for _, c := range charges {
		sum := allocated[c.ID]
		out = append(out, ChargeState{
			Charge:    c,
			Allocated: sum,
			Remaining: Remaining(c, sum),
			Status:    Status(c, sum),
		})
	}
	return out
}

// ValidateAllocation rejects allocations that are non-positive or exceed the
// charge's remaining amount.
func ValidateAllocation(state ChargeState, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &OverAllocationError{ChargeID: state.Charge.ID, Attempted: amount, Remaining: state.Remaining}
	}
	if amount.GreaterThan(state.Remaining) {
		return &OverAllocationError{ChargeID: state.Charge.ID, Attempted: amount, Remaining: state.Remaining}
	}
	return nil
}

// Balance computes payments minus charges for a customer. Positive means the
// customer is in credit.
func Balance(charges []Charge, payments []Payment) (decimal.Decimal, BalanceStatus) {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	for _, c := range charges {
		total = total.Sub(c.Amount)
	}
	switch {
	case total.Abs().LessThanOrEqual(Epsilon):
		return total, BalanceSettled
	case total.IsPositive():
		return total, BalanceInCredit
	default:
		return total, BalanceInDebt
	}
}
