package quote

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/extras"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

type stubQuerier struct {
	tenant    db.Tenant
	vehicle   db.Vehicle
	extras    []db.RentalExtra
	overrides []db.VehicleExtraPrice
	holidays  []db.Holiday
	rentals   []db.Rental
	booked    []db.BookedQuantity

	holidayCalls int
}

func (s *stubQuerier) GetTenantBySlug(_ context.Context, slug string) (db.Tenant, error) {
	return s.tenant, nil
}

func (s *stubQuerier) GetVehicleByTenant(_ context.Context, _, _ uuid.UUID) (db.Vehicle, error) {
	return s.vehicle, nil
}

func (s *stubQuerier) ListExtrasByTenant(_ context.Context, _ uuid.UUID) ([]db.RentalExtra, error) {
	return s.extras, nil
}

func (s *stubQuerier) ListVehicleExtraPrices(_ context.Context, _, _ uuid.UUID) ([]db.VehicleExtraPrice, error) {
	return s.overrides, nil
}

func (s *stubQuerier) ListHolidaysByTenant(_ context.Context, _ uuid.UUID) ([]db.Holiday, error) {
	s.holidayCalls++
	return s.holidays, nil
}

func (s *stubQuerier) ListRentalsByVehicle(_ context.Context, _, _ uuid.UUID) ([]db.Rental, error) {
	return s.rentals, nil
}

func (s *stubQuerier) SumBookedByExtra(_ context.Context, _ uuid.UUID) ([]db.BookedQuantity, error) {
	return s.booked, nil
}

func newTestService(t *testing.T, q Querier) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Q:      q,
		Cache:  NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	}
}

func fixtureQuerier() *stubQuerier {
	tenantID := uuid.New()
	return &stubQuerier{
		tenant: db.Tenant{
			ID:            tenantID,
			Slug:          "acme",
			Currency:      "GBP",
			DaysPerWeek:   7,
			DaysPerMonth:  28,
			WeekendActive: false,
			WeekendPct:    decimal.Zero,
		},
		vehicle: db.Vehicle{
			ID:          uuid.New(),
			TenantID:    tenantID,
			DailyRate:   decimal.NewFromInt(45),
			WeeklyRate:  decimal.NewFromInt(280),
			MonthlyRate: decimal.NewFromInt(900),
		},
	}
}

func testCtx() context.Context {
	return tenant.With(context.Background(), "acme")
}

func TestComputeBaseQuote(t *testing.T) {
	q := fixtureQuerier()
	svc := newTestService(t, q)

	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	out, err := svc.Compute(testCtx(), Input{VehicleID: q.vehicle.ID, Start: start, End: &end})
	require.NoError(t, err)

	require.Equal(t, "GBP", out.Currency)
	require.Equal(t, 10, out.Days)
	// one week flat plus three daily days beats ten daily days
	require.True(t, out.Base.Equal(decimal.NewFromInt(415)), "base = %s", out.Base)
	require.True(t, out.Total.Equal(out.Subtotal), "no surcharges configured")
	require.True(t, out.Available)
}

func TestComputeRequiresTenant(t *testing.T) {
	q := fixtureQuerier()
	svc := newTestService(t, q)

	_, err := svc.Compute(context.Background(), Input{VehicleID: q.vehicle.ID, Start: time.Now()})
	require.Error(t, err)
}

func TestComputeVehicleUnavailable(t *testing.T) {
	q := fixtureQuerier()
	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	blocking := db.Rental{
		ID:        uuid.New(),
		VehicleID: q.vehicle.ID,
		StartDate: start.AddDate(0, 0, 2),
		EndDate:   nil, // open-ended blocks everything after its start
		Status:    availability.StatusActive,
	}
	q.rentals = []db.Rental{blocking}
	svc := newTestService(t, q)

	_, err := svc.Compute(testCtx(), Input{VehicleID: q.vehicle.ID, Start: start, End: &end})
	var unavailable *availability.VehicleUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, []uuid.UUID{blocking.ID}, unavailable.Conflicts)
}

func TestComputeInsufficientStock(t *testing.T) {
	q := fixtureQuerier()
	cap := int32(2)
	seat := db.RentalExtra{
		ID:          uuid.New(),
		TenantID:    q.tenant.ID,
		Name:        "Child seat",
		Price:       decimal.NewFromInt(5),
		PricingType: "PER_DAY",
		MaxQuantity: &cap,
		Active:      true,
	}
	q.extras = []db.RentalExtra{seat}
	q.booked = []db.BookedQuantity{{ExtraID: seat.ID, Booked: 1}}
	svc := newTestService(t, q)

	start := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	_, err := svc.Compute(testCtx(), Input{
		VehicleID: q.vehicle.ID,
		Start:     start,
		End:       &end,
		Extras:    []ExtraRequest{{ExtraID: seat.ID, Quantity: 2}},
	})
	var short *extras.InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Equal(t, 1, short.Shortfall())
}

func TestComputeAppliesHolidaySurcharge(t *testing.T) {
	q := fixtureQuerier()
	q.holidays = []db.Holiday{{
		ID:           uuid.New(),
		TenantID:     q.tenant.ID,
		Name:         "Festival",
		StartDate:    time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		SurchargePct: decimal.NewFromInt(20),
	}}
	svc := newTestService(t, q)

	start := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	out, err := svc.Compute(testCtx(), Input{VehicleID: q.vehicle.ID, Start: start, End: &end})
	require.NoError(t, err)

	// 2 days at 45, every day inside the window at +20%
	require.True(t, out.Base.Equal(decimal.NewFromInt(90)))
	require.True(t, out.Surcharge.Total.Equal(decimal.NewFromInt(18)), "surcharge = %s", out.Surcharge.Total)
	require.True(t, out.Total.Equal(decimal.NewFromInt(108)))
}

func TestComputeCachesPricingConfig(t *testing.T) {
	q := fixtureQuerier()
	svc := newTestService(t, q)

	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	in := Input{VehicleID: q.vehicle.ID, Start: start, End: &end}

	_, err := svc.Compute(testCtx(), in)
	require.NoError(t, err)
	_, err = svc.Compute(testCtx(), in)
	require.NoError(t, err)

	require.Equal(t, 1, q.holidayCalls, "second quote should hit the cache")
}

func TestComputeOpenEndedUsesMonthlyCycle(t *testing.T) {
	q := fixtureQuerier()
	svc := newTestService(t, q)

	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	out, err := svc.Compute(testCtx(), Input{VehicleID: q.vehicle.ID, Start: start})
	require.NoError(t, err)

	require.Equal(t, 28, out.Days)
	require.True(t, out.Base.Equal(decimal.NewFromInt(900)), "base = %s", out.Base)
}
