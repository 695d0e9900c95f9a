package surcharge

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
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

func christmas(pct string) Holiday {
	return Holiday{
		ID:           uuid.New(),
		Name:         "Christmas",
		Start:        date(2023, time.December, 24),
		End:          date(2023, time.December, 26),
		SurchargePct: d(pct),
	}
}

func satSun() WeekendSettings {
	return WeekendSettings{Enabled: true, SurchargePct: d("10"), Days: []time.Weekday{time.Saturday, time.Sunday}}
}

func TestHolidayAndWeekendStackAdditively(t *testing.T) {
	// 24 Dec 2023 is a Sunday: one day at base 100/day should collect
	// the 20% holiday uplift plus the 10% weekend uplift.
	vehicle := uuid.New()
	res := Calculate(d("100"), date(2023, time.December, 24), 1,
		vehicle, []Holiday{christmas("20")}, satSun(), zerolog.Nop())

	require.True(t, res.Total.Equal(d("30")), "got %s", res.Total)
	require.Len(t, res.Days, 1)
	require.Equal(t, "Christmas", res.Days[0].HolidayName)
	require.True(t, res.Days[0].HolidayPct.Equal(d("20")))
	require.True(t, res.Days[0].WeekendPct.Equal(d("10")))
}

func TestHolidaySuppressesWeekendWhenFlagged(t *testing.T) {
	vehicle := uuid.New()
	h := christmas("20")
	h.SuppressWeekend = true
	res := Calculate(d("100"), date(2023, time.December, 24), 1,
		vehicle, []Holiday{h}, satSun(), zerolog.Nop())

	require.True(t, res.Total.Equal(d("20")), "got %s", res.Total)
}

func TestOverlappingHolidaysHighestWinsNoStacking(t *testing.T) {
	vehicle := uuid.New()
	low := christmas("15")
	high := christmas("25")
	res := Calculate(d("100"), date(2023, time.December, 25), 1,
		vehicle, []Holiday{low, high}, WeekendSettings{}, zerolog.Nop())

	require.True(t, res.Total.Equal(d("25")), "got %s", res.Total)
	require.Equal(t, high.ID, *res.Days[0].HolidayID)
}

func TestOverlappingHolidaysTieBreakDeterministic(t *testing.T) {
	vehicle := uuid.New()
	a := christmas("20")
	b := christmas("20")
	b.Start = date(2023, time.December, 23)
	b.End = date(2023, time.December, 26)

	// b starts earlier so it wins the tie regardless of input order.
	first := Calculate(d("100"), date(2023, time.December, 25), 1,
		vehicle, []Holiday{a, b}, WeekendSettings{}, zerolog.Nop())
	second := Calculate(d("100"), date(2023, time.December, 25), 1,
		vehicle, []Holiday{b, a}, WeekendSettings{}, zerolog.Nop())

	require.Equal(t, b.ID, *first.Days[0].HolidayID)
	require.Equal(t, b.ID, *second.Days[0].HolidayID)
}

func TestExcludedVehicleSkipsHolidayButKeepsWeekend(t *testing.T) {
	vehicle := uuid.New()
	h := christmas("20")
	h.ExcludedVehicles = []uuid.UUID{vehicle}
	res := Calculate(d("100"), date(2023, time.December, 24), 1,
		vehicle, []Holiday{h}, satSun(), zerolog.Nop())

	// Sunday weekend uplift still applies.
	require.True(t, res.Total.Equal(d("10")), "got %s", res.Total)
	require.Nil(t, res.Days[0].HolidayID)
}

func TestRecurringHolidayMatchesAcrossYears(t *testing.T) {
	vehicle := uuid.New()
	h := christmas("20")
	h.RecursAnnually = true
	res := Calculate(d("100"), date(2025, time.December, 24), 1,
		vehicle, []Holiday{h}, WeekendSettings{}, zerolog.Nop())

	require.True(t, res.Total.Equal(d("20")), "got %s", res.Total)
}

func TestRecurringHolidayWrappingYearEnd(t *testing.T) {
	vehicle := uuid.New()
	h := Holiday{
		ID:             uuid.New(),
		Name:           "New Year",
		Start:          date(2022, time.December, 30),
		End:            date(2023, time.January, 2),
		SurchargePct:   d("15"),
		RecursAnnually: true,
	}
	res := Calculate(d("100"), date(2026, time.January, 1), 1,
		vehicle, []Holiday{h}, WeekendSettings{}, zerolog.Nop())

	require.True(t, res.Total.Equal(d("15")), "got %s", res.Total)
}

func TestMalformedHolidaySkipped(t *testing.T) {
	vehicle := uuid.New()
	h := christmas("20")
	h.Start, h.End = h.End, h.Start
	res := Calculate(d("100"), date(2023, time.December, 24), 1,
		vehicle, []Holiday{h}, WeekendSettings{}, zerolog.Nop())

	require.True(t, res.Total.IsZero())
}

func TestMultiDaySpanAccumulates(t *testing.T) {
	// Fri 22 Dec to Wed 27 Dec 2023, base 50/day over 5 days.
	// Sat 23: weekend 10%. Sun 24: holiday 20% + weekend 10%.
	// Mon 25, Tue 26: holiday 20% each.
	vehicle := uuid.New()
	res := Calculate(d("250"), date(2023, time.December, 22), 5,
		vehicle, []Holiday{christmas("20")}, satSun(), zerolog.Nop())

	// 50*(0.10 + 0.30 + 0.20 + 0.20) = 40
	require.True(t, res.Total.Equal(d("40")), "got %s", res.Total)
	require.Len(t, res.Days, 4)
}
