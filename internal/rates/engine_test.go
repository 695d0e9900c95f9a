package rates

import (
	"errors"
	"testing"
	"time"

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

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestBaseSubtotalWeeklyTier(t *testing.T) {
	v := VehicleRates{Daily: d("45"), Weekly: d("280")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 11)

	bd, err := Resolve(v, DefaultTiers(), start, &end, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 10, bd.Days)
	require.Equal(t, PeriodWeekly, bd.Period)
	// 1 week flat + 3 days prorated.
	require.True(t, bd.Base.Equal(d("415")), "got %s", bd.Base)
	// Never more than two flat weeks.
	require.True(t, bd.Base.LessThanOrEqual(d("560")))
}

func TestBaseSubtotalProrationCappedAtNextTier(t *testing.T) {
	v := VehicleRates{Daily: d("60"), Weekly: d("280")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 14) // 13 days: 1 week + 6 days

	bd, err := Resolve(v, DefaultTiers(), start, &end, nil, nil, nil)
	require.NoError(t, err)
	// 6 days at 60 = 360 > 280, so the second week is charged flat.
	require.True(t, bd.Base.Equal(d("560")), "got %s", bd.Base)
}

func TestBaseSubtotalMonthlyTier(t *testing.T) {
	v := VehicleRates{Daily: d("45"), Weekly: d("280"), Monthly: d("900")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 29) // 28 days

	bd, err := Resolve(v, DefaultTiers(), start, &end, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, PeriodMonthly, bd.Period)
	require.True(t, bd.Base.Equal(d("900")), "got %s", bd.Base)
}

func TestResolveRejectsInvertedRange(t *testing.T) {
	v := VehicleRates{Daily: d("45")}
	start := date(2024, time.March, 10)
	end := date(2024, time.March, 10)

	_, err := Resolve(v, DefaultTiers(), start, &end, nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestResolveOpenEndedChargesOneCycle(t *testing.T) {
	v := VehicleRates{Daily: d("45"), Weekly: d("280"), Monthly: d("900")}
	start := date(2024, time.March, 1)

	bd, err := Resolve(v, DefaultTiers(), start, nil, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, 28, bd.Days)
	require.True(t, bd.Base.Equal(d("900")))
}

func TestResolveExtraUsesOverridePrice(t *testing.T) {
	extraID := uuid.New()
	v := VehicleRates{VehicleID: uuid.New(), Daily: d("45")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 3)

	catalogue := []Extra{{ID: extraID, Name: "Child seat", Price: d("10"), PricingType: PricingGlobal, Active: true}}
	overrides := map[uuid.UUID]decimal.Decimal{extraID: d("7.50")}

	bd, err := Resolve(v, DefaultTiers(), start, &end, catalogue, overrides, []Selection{{ExtraID: extraID, Quantity: 2}})
	require.NoError(t, err)
	require.Len(t, bd.Extras, 1)
	require.True(t, bd.Extras[0].Overridden)
	require.True(t, bd.Extras[0].Amount.Equal(d("15")))
	require.True(t, bd.Subtotal.Equal(d("105")))
}

func TestResolvePerVehicleExtraWithoutOverrideExcluded(t *testing.T) {
	extraID := uuid.New()
	v := VehicleRates{Daily: d("45")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 2)

	catalogue := []Extra{{ID: extraID, Name: "Roof box", Price: d("25"), PricingType: PricingPerVehicle, Active: true}}

	bd, err := Resolve(v, DefaultTiers(), start, &end, catalogue, nil, []Selection{{ExtraID: extraID, Quantity: 1}})
	require.NoError(t, err)
	require.Empty(t, bd.Extras)
	require.True(t, bd.Subtotal.Equal(d("45")))
}

func TestResolveUnknownExtra(t *testing.T) {
	v := VehicleRates{Daily: d("45")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 2)

	missing := uuid.New()
	_, err := Resolve(v, DefaultTiers(), start, &end, nil, nil, []Selection{{ExtraID: missing, Quantity: 1}})
	var unknown *UnknownExtraError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, missing, unknown.ExtraID)
}

func TestResolveInactiveExtra(t *testing.T) {
	extraID := uuid.New()
	v := VehicleRates{Daily: d("45")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 2)

	catalogue := []Extra{{ID: extraID, Name: "GPS", Price: d("5"), PricingType: PricingGlobal, Active: false}}
	_, err := Resolve(v, DefaultTiers(), start, &end, catalogue, nil, []Selection{{ExtraID: extraID, Quantity: 1}})
	var unknown *UnknownExtraError
	require.True(t, errors.As(err, &unknown))
}

func TestResolveIdempotent(t *testing.T) {
	extraID := uuid.New()
	v := VehicleRates{Daily: d("45"), Weekly: d("280")}
	start := date(2024, time.March, 1)
	end := date(2024, time.March, 11)
	catalogue := []Extra{{ID: extraID, Name: "Child seat", Price: d("10"), PricingType: PricingGlobal, Active: true}}
	sel := []Selection{{ExtraID: extraID, Quantity: 1}}

	first, err := Resolve(v, DefaultTiers(), start, &end, catalogue, nil, sel)
	require.NoError(t, err)
	second, err := Resolve(v, DefaultTiers(), start, &end, catalogue, nil, sel)
	require.NoError(t, err)
	require.True(t, first.Subtotal.Equal(second.Subtotal))
	require.Equal(t, first.Days, second.Days)
	require.Equal(t, first.Period, second.Period)
}
