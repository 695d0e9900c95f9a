package rates

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidDateRange is returned when the requested end date is not after the start date.
var ErrInvalidDateRange error = &InvalidDateRangeError{}

// InvalidDateRangeError is the concrete type behind ErrInvalidDateRange. Its
// methods give handlers the HTTP shape without this package knowing about them.
type InvalidDateRangeError struct{}

func (*InvalidDateRangeError) Error() string   { return "rates: end date must be after start date" }
func (*InvalidDateRangeError) Code() string    { return "INVALID_DATE_RANGE" }
func (*InvalidDateRangeError) Status() int     { return http.StatusBadRequest }
func (*InvalidDateRangeError) Message() string { return "end date must be after start date" }

func (*InvalidDateRangeError) Details() map[string]any { return nil }

// UnknownExtraError is returned when a selected extra does not exist or is inactive.
type UnknownExtraError struct {
	ExtraID uuid.UUID
}

func (e *UnknownExtraError) Error() string {
	return fmt.Sprintf("rates: unknown or inactive extra %s", e.ExtraID)
}

func (e *UnknownExtraError) Code() string    { return "UNKNOWN_EXTRA" }
func (e *UnknownExtraError) Status() int     { return http.StatusBadRequest }
func (e *UnknownExtraError) Message() string { return "selected extra does not exist or is inactive" }

func (e *UnknownExtraError) Details() map[string]any {
	return map[string]any{"extraId": e.ExtraID}
}

// RatePeriod identifies which rate tier anchored the base subtotal.
type RatePeriod string

const (
	PeriodDaily   RatePeriod = "DAILY"
	PeriodWeekly  RatePeriod = "WEEKLY"
	PeriodMonthly RatePeriod = "MONTHLY"
)

// Extra pricing types. Per-vehicle extras are only bookable when the vehicle
// carries an override price.
const (
	PricingGlobal     = "GLOBAL"
	PricingPerVehicle = "PER_VEHICLE"
)

// VehicleRates carries the base rates configured for a single vehicle.
// A zero rate means the tier is not offered for that vehicle.
type VehicleRates struct {
	VehicleID uuid.UUID
	Daily     decimal.Decimal
	Weekly    decimal.Decimal
	Monthly   decimal.Decimal
}

// Tiers holds the tenant-configured thresholds that map a rental duration
// onto a rate tier.
type Tiers struct {
	DaysPerWeek  int
	DaysPerMonth int
}

// DefaultTiers returns the platform defaults used when a tenant has not
// configured thresholds.
func DefaultTiers() Tiers {
	return Tiers{DaysPerWeek: 7, DaysPerMonth: 28}
}

func (t Tiers) normalized() Tiers {
	if t.DaysPerWeek <= 0 {
		t.DaysPerWeek = 7
	}
	if t.DaysPerMonth <= t.DaysPerWeek {
		t.DaysPerMonth = 28
	}
	return t
}

// Extra describes a bookable add-on from the tenant catalogue.
type Extra struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	PricingType string
	Active      bool
}

// Selection is a requested extra with its quantity.
type Selection struct {
	ExtraID  uuid.UUID
	Quantity int
}

// Line is a priced extra on the breakdown.
type Line struct {
	ExtraID    uuid.UUID
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	Amount     decimal.Decimal
	Overridden bool
}

// Breakdown is the computed price before surcharges.
type Breakdown struct {
	Days     int
	Period   RatePeriod
	Base     decimal.Decimal
	Extras   []Line
	Subtotal decimal.Decimal
}

// Days returns the number of chargeable days between start and end where the
// end date is exclusive. Open-ended rentals (nil end) are charged one monthly
// cycle up front.
func Days(start time.Time, end *time.Time, tiers Tiers) (int, error) {
	tiers = tiers.normalized()
	if end == nil {
		return tiers.DaysPerMonth, nil
	}
	if !end.After(start) {
		return 0, ErrInvalidDateRange
	}
	hours := end.Sub(start).Hours()
	days := int(hours / 24)
	if float64(days*24) < hours {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days, nil
}

// Resolve computes the pre-surcharge price breakdown for the rental.
// Overrides maps extra ID to a vehicle-specific unit price.
func Resolve(v VehicleRates, tiers Tiers, start time.Time, end *time.Time, catalogue []Extra, overrides map[uuid.UUID]decimal.Decimal, selections []Selection) (Breakdown, error) {
	tiers = tiers.normalized()
	days, err := Days(start, end, tiers)
	if err != nil {
		return Breakdown{}, err
	}

	base, period := baseSubtotal(v, tiers, days)

	byID := make(map[uuid.UUID]Extra, len(catalogue))
	for _, e := range catalogue {
		byID[e.ID] = e
	}

	out := Breakdown{Days: days, Period: period, Base: base, Subtotal: base}
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		extra, ok := byID[sel.ExtraID]
		if !ok || !extra.Active {
			return Breakdown{}, &UnknownExtraError{ExtraID: sel.ExtraID}
		}
		price, overridden := overrides[extra.ID]
		if !overridden {
			if extra.PricingType == PricingPerVehicle {
				// Priced per vehicle and this vehicle has no price row:
				// the extra is not offered for this vehicle.
				continue
			}
			price = extra.Price
		}
		amount := price.Mul(decimal.NewFromInt(int64(sel.Quantity)))
		out.Extras = append(out.Extras, Line{
			ExtraID:    extra.ID,
			Name:       extra.Name,
			UnitPrice:  price,
			Quantity:   sel.Quantity,
			Amount:     amount,
			Overridden: overridden,
		})
		out.Subtotal = out.Subtotal.Add(amount)
	}
	return out, nil
}

// baseSubtotal picks the cheapest combination of rate tiers for the duration.
// A longer tier's flat rate caps any prorated total so a renter never pays
// more than the next tier up.
func baseSubtotal(v VehicleRates, tiers Tiers, days int) (decimal.Decimal, RatePeriod) {
	best := v.Daily.Mul(decimal.NewFromInt(int64(days)))
	period := PeriodDaily

	if v.Weekly.IsPositive() {
		if c := tieredCost(days, tiers.DaysPerWeek, v.Weekly, func(rem int) decimal.Decimal {
			return v.Daily.Mul(decimal.NewFromInt(int64(rem)))
		}); c.LessThan(best) {
			best = c
			period = PeriodWeekly
		}
	}
	if v.Monthly.IsPositive() {
		if c := tieredCost(days, tiers.DaysPerMonth, v.Monthly, func(rem int) decimal.Decimal {
			sub, _ := baseSubtotal(VehicleRates{Daily: v.Daily, Weekly: v.Weekly}, tiers, rem)
			return sub
		}); c.LessThan(best) {
			best = c
			period = PeriodMonthly
		}
	}
	return best, period
}

// tieredCost charges full periods at the flat rate and the remainder via
// remCost, capped at one extra flat period.
func tieredCost(days, perPeriod int, flat decimal.Decimal, remCost func(int) decimal.Decimal) decimal.Decimal {
	full := days / perPeriod
	rem := days % perPeriod
	total := flat.Mul(decimal.NewFromInt(int64(full)))
	if rem == 0 {
		if full == 0 {
			return flat
		}
		return total
	}
	tail := remCost(rem)
	if tail.GreaterThan(flat) || tail.IsZero() {
		tail = flat
	}
	return total.Add(tail)
}
