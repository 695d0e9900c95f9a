package extras

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestRemainingClampedAtZero(t *testing.T) {
	rem, limited := Remaining(intPtr(5), 7)
	require.True(t, limited)
	require.Equal(t, 0, rem)
}

func TestRemainingUnlimited(t *testing.T) {
	_, limited := Remaining(nil, 100)
	require.False(t, limited)
}

func TestStockIdentityHolds(t *testing.T) {
	// remaining + booked == max for any booked <= max.
	for booked := 0; booked <= 5; booked++ {
		rem, _ := Remaining(intPtr(5), booked)
		require.Equal(t, 5, rem+booked)
	}
}

func TestEvaluateShortfall(t *testing.T) {
	childSeat := Extra{ID: uuid.New(), Name: "Child seat", MaxQuantity: intPtr(5), Active: true}
	booked := map[uuid.UUID]int{childSeat.ID: 3}

	// 3 of 5 booked: requesting 3 is short by 1.
	_, err := Evaluate([]Extra{childSeat}, booked, []Request{{ExtraID: childSeat.ID, Quantity: 3}})
	var short *InsufficientStockError
	require.True(t, errors.As(err, &short))
	require.Equal(t, childSeat.ID, short.ExtraID)
	require.Equal(t, 1, short.Shortfall())
	require.Equal(t, 2, short.Remaining)

	// Requesting 2 succeeds and exhausts the stock.
	levels, err := Evaluate([]Extra{childSeat}, booked, []Request{{ExtraID: childSeat.ID, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, levels, 1)
	require.True(t, levels[0].CanFulfill)
	require.Equal(t, 2, levels[0].Remaining)

	booked[childSeat.ID] = 5
	rem, _ := Remaining(childSeat.MaxQuantity, booked[childSeat.ID])
	require.Equal(t, 0, rem)
}

func TestEvaluateUnlimitedExtraAlwaysFulfillable(t *testing.T) {
	gps := Extra{ID: uuid.New(), Name: "GPS", Active: true}
	levels, err := Evaluate([]Extra{gps}, nil, []Request{{ExtraID: gps.ID, Quantity: 999}})
	require.NoError(t, err)
	require.False(t, levels[0].Limited)
	require.True(t, levels[0].CanFulfill)
}
