package ledger

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

func charge(amount string) Charge {
	return Charge{ID: uuid.New(), CustomerID: uuid.New(), Category: "RENTAL", Amount: d(amount)}
}

func alloc(chargeID uuid.UUID, amount string) Allocation {
	return Allocation{ID: uuid.New(), PaymentID: uuid.New(), ChargeID: chargeID, AmountApplied: d(amount)}
}

func TestChargeStatusProgression(t *testing.T) {
	c := charge("100")

	states := Reconcile([]Charge{c}, nil)
	require.Equal(t, StatusUnpaid, states[0].Status)
	require.True(t, states[0].Remaining.Equal(d("100")))

	states = Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "40")})
	require.Equal(t, StatusPartiallyPaid, states[0].Status)
	require.True(t, states[0].Remaining.Equal(d("60")))

	states = Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "40"), alloc(c.ID, "60")})
	require.Equal(t, StatusPaid, states[0].Status)
	require.True(t, states[0].Remaining.IsZero())
}

func TestWrittenOffStatuses(t *testing.T) {
	c := charge("100")
	c.WrittenOff = true

	states := Reconcile([]Charge{c}, nil)
	require.Equal(t, StatusWrittenOff, states[0].Status)
	require.True(t, states[0].Remaining.IsZero())

	states = Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "40")})
	require.Equal(t, StatusPartialWrittenOff, states[0].Status)
	require.True(t, states[0].Remaining.IsZero())
}

func TestRemainingNeverNegative(t *testing.T) {
	c := charge("100")
	states := Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "150")})
	require.True(t, states[0].Remaining.IsZero())
	require.Equal(t, StatusPaid, states[0].Status)
}

func TestRemainingInvariantAfterEveryAllocation(t *testing.T) {
	c := charge("250")
	var allocs []Allocation
	for _, amt := range []string{"50", "75", "25", "100"} {
		allocs = append(allocs, alloc(c.ID, amt))
		states := Reconcile([]Charge{c}, allocs)
		total := decimal.Zero
		for _, a := range allocs {
			total = total.Add(a.AmountApplied)
		}
		expect := c.Amount.Abs().Sub(total)
		if expect.IsNegative() {
			expect = decimal.Zero
		}
		require.True(t, states[0].Remaining.Equal(expect))
	}
}

func TestNegativeChargeReconcilesOnAbsoluteAmount(t *testing.T) {
	c := charge("-80")
	states := Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "80")})
	require.Equal(t, StatusPaid, states[0].Status)
	require.True(t, states[0].Remaining.IsZero())
}

func TestValidateAllocationRejectsOverAllocation(t *testing.T) {
	c := charge("100")
	states := Reconcile([]Charge{c}, []Allocation{alloc(c.ID, "70")})

	err := ValidateAllocation(states[0], d("40"))
	var over *OverAllocationError
	require.True(t, errors.As(err, &over))
	require.Equal(t, c.ID, over.ChargeID)
	require.True(t, over.Remaining.Equal(d("30")))

	require.NoError(t, ValidateAllocation(states[0], d("30")))
}

func TestValidateAllocationRejectsNonPositive(t *testing.T) {
	c := charge("100")
	states := Reconcile([]Charge{c}, nil)
	require.Error(t, ValidateAllocation(states[0], d("0")))
	require.Error(t, ValidateAllocation(states[0], d("-5")))
}

func TestCustomerBalanceSettled(t *testing.T) {
	customer := uuid.New()
	charges := []Charge{
		{ID: uuid.New(), CustomerID: customer, Amount: d("300")},
		{ID: uuid.New(), CustomerID: customer, Amount: d("200")},
	}
	payments := []Payment{
		{ID: uuid.New(), CustomerID: customer, Amount: d("500")},
	}
	balance, status := Balance(charges, payments)
	require.True(t, balance.IsZero())
	require.Equal(t, BalanceSettled, status)
}

func TestCustomerBalanceCreditAndDebt(t *testing.T) {
	balance, status := Balance([]Charge{charge("100")}, []Payment{{Amount: d("150")}})
	require.True(t, balance.Equal(d("50")))
	require.Equal(t, BalanceInCredit, status)

	balance, status = Balance([]Charge{charge("100")}, []Payment{{Amount: d("25")}})
	require.True(t, balance.Equal(d("-75")))
	require.Equal(t, BalanceInDebt, status)
}

func TestCustomerBalanceWithinEpsilonSettled(t *testing.T) {
	_, status := Balance([]Charge{charge("100")}, []Payment{{Amount: d("99.996")}})
	require.Equal(t, BalanceSettled, status)
}
