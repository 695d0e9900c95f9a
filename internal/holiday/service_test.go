package holiday

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

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/quote"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

type stubQuerier struct {
	Querier
	tenant  db.Tenant
	created db.CreateHolidayParams
	weekend db.UpdateWeekendPricingParams
}

func (s *stubQuerier) GetTenantBySlug(_ context.Context, _ string) (db.Tenant, error) {
	return s.tenant, nil
}

func (s *stubQuerier) CreateHoliday(_ context.Context, arg db.CreateHolidayParams) (db.Holiday, error) {
	s.created = arg
	return db.Holiday{ID: uuid.New(), TenantID: arg.TenantID, Name: arg.Name}, nil
}

func (s *stubQuerier) UpdateWeekendPricing(_ context.Context, arg db.UpdateWeekendPricingParams) error {
	s.weekend = arg
	return nil
}

func newTestService(t *testing.T, q Querier) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Service{
		Q:      q,
		Cache:  quote.NewCache(client, time.Minute),
		Logger: zerolog.Nop(),
	}, mr
}

func testCtx() context.Context {
	return tenant.With(context.Background(), "acme")
}

func TestCreateInvalidatesPricingConfig(t *testing.T) {
	q := &stubQuerier{tenant: db.Tenant{ID: uuid.New(), Slug: "acme"}}
	svc, mr := newTestService(t, q)
	require.NoError(t, mr.Set("acme:pricing-config", `{"currency":"GBP"}`))

	_, err := svc.Create(testCtx(), CreateInput{
		Name:         "Festival",
		Start:        time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		SurchargePct: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.False(t, mr.Exists("acme:pricing-config"))
	require.Equal(t, "2026-07-01", q.created.StartDate)
	require.Equal(t, "2026-07-10", q.created.EndDate)
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	q := &stubQuerier{tenant: db.Tenant{ID: uuid.New(), Slug: "acme"}}
	svc, _ := newTestService(t, q)

	_, err := svc.Create(testCtx(), CreateInput{
		Name:         "Backwards",
		Start:        time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		SurchargePct: decimal.NewFromInt(20),
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeBadRequest, appErr.Code)
}

func TestUpdateWeekendValidatesDays(t *testing.T) {
	q := &stubQuerier{tenant: db.Tenant{ID: uuid.New(), Slug: "acme"}}
	svc, _ := newTestService(t, q)

	err := svc.UpdateWeekend(testCtx(), WeekendInput{
		Enabled:      true,
		SurchargePct: decimal.NewFromInt(10),
		Days:         []int32{5, 9},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeBadRequest, appErr.Code)
}

func TestUpdateWeekendInvalidatesPricingConfig(t *testing.T) {
	q := &stubQuerier{tenant: db.Tenant{ID: uuid.New(), Slug: "acme"}}
	svc, mr := newTestService(t, q)
	require.NoError(t, mr.Set("acme:pricing-config", `{"currency":"GBP"}`))

	err := svc.UpdateWeekend(testCtx(), WeekendInput{
		Enabled:      true,
		SurchargePct: decimal.NewFromInt(10),
		Days:         []int32{0, 6},
	})
	require.NoError(t, err)
	require.False(t, mr.Exists("acme:pricing-config"))
	require.True(t, q.weekend.WeekendActive)
	require.Equal(t, []int32{0, 6}, q.weekend.WeekendDays)
}
