package surcharge

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Holiday is a tenant-scoped surcharge window. Excluded vehicles take the
// plain rate during the window. Recurring holidays match by month and day in
// any year the rental spans.
type Holiday struct {
	ID               uuid.UUID
	Name             string
	Start            time.Time
	End              time.Time
	SurchargePct     decimal.Decimal
	RecursAnnually   bool
	SuppressWeekend  bool
	ExcludedVehicles []uuid.UUID
}

// WeekendSettings is the tenant-wide weekend uplift. Days holds the weekday
// indices the tenant treats as the weekend.
type WeekendSettings struct {
	Enabled      bool
	SurchargePct decimal.Decimal
	Days         []time.Weekday
}

// DayCharge records how a single rental day was surcharged.
type DayCharge struct {
	Date        time.Time
	HolidayID   *uuid.UUID
	HolidayName string
	HolidayPct  decimal.Decimal
	WeekendPct  decimal.Decimal
	Amount      decimal.Decimal
}

// Result is the surcharge total with its per-day breakdown.
type Result struct {
	Total decimal.Decimal
	Days  []DayCharge
}

// Calculate walks the days charged from start and applies holiday and weekend
// uplifts on top of the per-day share of the base subtotal. When several
// holiday windows cover the same day only the highest percentage applies;
// ties break on earliest start date, then lowest ID. Weekend and holiday
// uplifts stack additively unless the winning holiday suppresses weekend
// pricing. Malformed holiday rows are skipped, never fatal.
func Calculate(baseSubtotal decimal.Decimal, start time.Time, days int, vehicleID uuid.UUID, holidays []Holiday, weekend WeekendSettings, logger zerolog.Logger) Result {
	res := Result{Total: decimal.Zero}
	if days <= 0 {
		return res
	}
	perDay := baseSubtotal.Div(decimal.NewFromInt(int64(days)))
	hundred := decimal.NewFromInt(100)

	valid := make([]Holiday, 0, len(holidays))
	for _, h := range holidays {
		if h.End.Before(h.Start) {
			logger.Warn().
				Str("holiday_id", h.ID.String()).
				Str("holiday", h.Name).
				Time("start", h.Start).
				Time("end", h.End).
				Msg("skipping holiday with end before start")
			continue
		}
		valid = append(valid, h)
	}

	day := truncateToDay(start)
	for i := 0; i < days; i++ {
		charge := DayCharge{Date: day, Amount: decimal.Zero}

		winner, matched := holidayForDay(day, vehicleID, valid)
		if matched {
			charge.HolidayID = &winner.ID
			charge.HolidayName = winner.Name
			charge.HolidayPct = winner.SurchargePct
			charge.Amount = charge.Amount.Add(perDay.Mul(winner.SurchargePct).Div(hundred))
		}

		suppress := matched && winner.SuppressWeekend
		if weekend.Enabled && !suppress && weekend.SurchargePct.IsPositive() && isWeekend(day.Weekday(), weekend.Days) {
			charge.WeekendPct = weekend.SurchargePct
			charge.Amount = charge.Amount.Add(perDay.Mul(weekend.SurchargePct).Div(hundred))
		}

		if !charge.Amount.IsZero() {
			res.Days = append(res.Days, charge)
			res.Total = res.Total.Add(charge.Amount)
		}
		day = day.AddDate(0, 0, 1)
	}
	return res
}

// holidayForDay returns the winning holiday covering the given day, if any.
func holidayForDay(day time.Time, vehicleID uuid.UUID, holidays []Holiday) (Holiday, bool) {
	var winner Holiday
	matched := false
	for _, h := range holidays {
		if excludesVehicle(h, vehicleID) {
			continue
		}
		if !covers(h, day) {
			continue
		}
		if !matched || beats(h, winner) {
			winner = h
			matched = true
		}
	}
	return winner, matched
}

// beats is the deterministic tie-break between overlapping holidays:
// highest percentage, then earliest start, then lowest ID.
func beats(a, b Holiday) bool {
	if !a.SurchargePct.Equal(b.SurchargePct) {
		return a.SurchargePct.GreaterThan(b.SurchargePct)
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID.String() < b.ID.String()
}

func covers(h Holiday, day time.Time) bool {
	if h.RecursAnnually {
		return coversRecurring(h, day)
	}
	s := truncateToDay(h.Start)
	e := truncateToDay(h.End)
	return !day.Before(s) && !day.After(e)
}

// coversRecurring projects the holiday window onto the year of the candidate
// day. Windows wrapping the year end are checked against both projections.
func coversRecurring(h Holiday, day time.Time) bool {
	s := truncateToDay(h.Start)
	e := truncateToDay(h.End)
	span := int(e.Sub(s).Hours() / 24)
	for _, year := range []int{day.Year(), day.Year() - 1} {
		projStart := time.Date(year, s.Month(), s.Day(), 0, 0, 0, 0, day.Location())
		projEnd := projStart.AddDate(0, 0, span)
		if !day.Before(projStart) && !day.After(projEnd) {
			return true
		}
	}
	return false
}

func excludesVehicle(h Holiday, vehicleID uuid.UUID) bool {
	for _, id := range h.ExcludedVehicles {
		if id == vehicleID {
			return true
		}
	}
	return false
}

func isWeekend(wd time.Weekday, days []time.Weekday) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
