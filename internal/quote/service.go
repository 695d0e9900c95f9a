package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/extras"
	"github.com/CortekUK/drive-247-sub013/internal/rates"
	"github.com/CortekUK/drive-247-sub013/internal/surcharge"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// Querier lists the queries the quote service needs.
type Querier interface {
	GetTenantBySlug(ctx context.Context, slug string) (db.Tenant, error)
	GetVehicleByTenant(ctx context.Context, id, tenantID uuid.UUID) (db.Vehicle, error)
	ListExtrasByTenant(ctx context.Context, tenantID uuid.UUID) ([]db.RentalExtra, error)
	ListVehicleExtraPrices(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]db.VehicleExtraPrice, error)
	ListHolidaysByTenant(ctx context.Context, tenantID uuid.UUID) ([]db.Holiday, error)
	ListRentalsByVehicle(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]db.Rental, error)
	SumBookedByExtra(ctx context.Context, tenantID uuid.UUID) ([]db.BookedQuantity, error)
}

// Service assembles a booking quote from pre-fetched tenant data. The engine
// packages it drives stay pure; everything here is read-only.
type Service struct {
	Q      Querier
	Cache  *Cache
	Logger zerolog.Logger
}

// ExtraRequest is a requested add-on line.
type ExtraRequest struct {
	ExtraID  uuid.UUID
	Quantity int
}

// Input describes the rental being quoted.
type Input struct {
	VehicleID uuid.UUID
	Start     time.Time
	End       *time.Time
	Extras    []ExtraRequest
}

// Output is the full quote: price breakdown, surcharges, stock, and the
// availability verdict.
type Output struct {
	Currency  string
	Days      int
	Period    rates.RatePeriod
	Base      decimal.Decimal
	Lines     []rates.Line
	Subtotal  decimal.Decimal
	Surcharge surcharge.Result
	Total     decimal.Decimal
	Stock     []extras.StockLevel
	Available bool
}

// pricingConfig is the cached per-tenant slice of configuration the quote
// path reads on every request.
type pricingConfig struct {
	Currency string        `json:"currency"`
	Tiers    rates.Tiers   `json:"tiers"`
	Weekend  weekendConfig `json:"weekend"`
	Holidays []db.Holiday  `json:"holidays"`
}

type weekendConfig struct {
	Enabled bool            `json:"enabled"`
	Pct     decimal.Decimal `json:"pct"`
	Days    []int32         `json:"days"`
}

// Compute produces a quote for the tenant resolved from the context.
// Identical inputs yield identical quotes; nothing is written.
func (s *Service) Compute(ctx context.Context, in Input) (Output, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return Output{}, fmt.Errorf("quote: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load tenant %q: %w", slug, err)
	}
	cfg, err := s.loadConfig(ctx, t)
	if err != nil {
		return Output{}, err
	}

	vehicle, err := s.Q.GetVehicleByTenant(ctx, in.VehicleID, t.ID)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load vehicle: %w", err)
	}

	catalogue, err := s.Q.ListExtrasByTenant(ctx, t.ID)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load extras: %w", err)
	}
	overrideRows, err := s.Q.ListVehicleExtraPrices(ctx, vehicle.ID, t.ID)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load extra overrides: %w", err)
	}

	breakdown, err := rates.Resolve(
		toVehicleRates(vehicle),
		cfg.Tiers,
		in.Start, in.End,
		toCatalogue(catalogue),
		toOverrides(overrideRows),
		toSelections(in.Extras),
	)
	if err != nil {
		return Output{}, err
	}

	sur := surcharge.Calculate(
		breakdown.Base, in.Start, breakdown.Days,
		vehicle.ID, toHolidays(cfg.Holidays), toWeekend(cfg.Weekend), s.Logger,
	)

	booked, err := s.Q.SumBookedByExtra(ctx, t.ID)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load booked extras: %w", err)
	}
	stock, err := extras.Evaluate(toStockCatalogue(catalogue), toBookedMap(booked), toStockRequests(in.Extras))
	if err != nil {
		return Output{Stock: stock}, err
	}

	existing, err := s.Q.ListRentalsByVehicle(ctx, vehicle.ID, t.ID)
	if err != nil {
		return Output{}, fmt.Errorf("quote: load rentals: %w", err)
	}
	if err := availability.Check(vehicle.ID, in.Start, in.End, toRentals(existing)); err != nil {
		return Output{}, err
	}

	return Output{
		Currency:  cfg.Currency,
		Days:      breakdown.Days,
		Period:    breakdown.Period,
		Base:      breakdown.Base,
		Lines:     breakdown.Extras,
		Subtotal:  breakdown.Subtotal,
		Surcharge: sur,
		Total:     breakdown.Subtotal.Add(sur.Total),
		Stock:     stock,
		Available: true,
	}, nil
}

func (s *Service) loadConfig(ctx context.Context, t db.Tenant) (pricingConfig, error) {
	key := tenant.PrefixKey(t.Slug, "pricing-config")
	var cfg pricingConfig
	if found, err := s.Cache.GetJSON(ctx, key, &cfg); err != nil {
		s.Logger.Warn().Err(err).Str("tenant", t.Slug).Msg("pricing config cache read failed")
	} else if found {
		return cfg, nil
	}

	holidays, err := s.Q.ListHolidaysByTenant(ctx, t.ID)
	if err != nil {
		return pricingConfig{}, fmt.Errorf("quote: load holidays: %w", err)
	}
	cfg = pricingConfig{
		Currency: t.Currency,
		Tiers:    rates.Tiers{DaysPerWeek: int(t.DaysPerWeek), DaysPerMonth: int(t.DaysPerMonth)},
		Weekend:  weekendConfig{Enabled: t.WeekendActive, Pct: t.WeekendPct, Days: t.WeekendDays},
		Holidays: holidays,
	}
	if err := s.Cache.SetJSON(ctx, key, cfg); err != nil {
		s.Logger.Warn().Err(err).Str("tenant", t.Slug).Msg("pricing config cache write failed")
	}
	return cfg, nil
}

func toVehicleRates(v db.Vehicle) rates.VehicleRates {
	return rates.VehicleRates{
		VehicleID: v.ID,
		Daily:     v.DailyRate,
		Weekly:    v.WeeklyRate,
		Monthly:   v.MonthlyRate,
	}
}

func toCatalogue(rows []db.RentalExtra) []rates.Extra {
	out := make([]rates.Extra, 0, len(rows))
	for _, r := range rows {
		out = append(out, rates.Extra{
			ID:          r.ID,
			Name:        r.Name,
			Price:       r.Price,
			PricingType: r.PricingType,
			Active:      r.Active,
		})
	}
	return out
}

func toStockCatalogue(rows []db.RentalExtra) []extras.Extra {
	out := make([]extras.Extra, 0, len(rows))
	for _, r := range rows {
		var maxQty *int
		if r.MaxQuantity != nil {
			v := int(*r.MaxQuantity)
			maxQty = &v
		}
		out = append(out, extras.Extra{
			ID:          r.ID,
			Name:        r.Name,
			Price:       r.Price,
			PricingType: r.PricingType,
			MaxQuantity: maxQty,
			Active:      r.Active,
		})
	}
	return out
}

func toOverrides(rows []db.VehicleExtraPrice) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.ExtraID] = r.Price
	}
	return out
}

func toSelections(reqs []ExtraRequest) []rates.Selection {
	out := make([]rates.Selection, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, rates.Selection{ExtraID: r.ExtraID, Quantity: r.Quantity})
	}
	return out
}

func toStockRequests(reqs []ExtraRequest) []extras.Request {
	out := make([]extras.Request, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, extras.Request{ExtraID: r.ExtraID, Quantity: r.Quantity})
	}
	return out
}

func toBookedMap(rows []db.BookedQuantity) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		out[r.ExtraID] = int(r.Booked)
	}
	return out
}

func toHolidays(rows []db.Holiday) []surcharge.Holiday {
	out := make([]surcharge.Holiday, 0, len(rows))
	for _, r := range rows {
		out = append(out, surcharge.Holiday{
			ID:               r.ID,
			Name:             r.Name,
			Start:            r.StartDate,
			End:              r.EndDate,
			SurchargePct:     r.SurchargePct,
			RecursAnnually:   r.RecursAnnually,
			SuppressWeekend:  r.SuppressWeekend,
			ExcludedVehicles: r.ExcludedVehicles,
		})
	}
	return out
}

func toWeekend(cfg weekendConfig) surcharge.WeekendSettings {
	days := make([]time.Weekday, 0, len(cfg.Days))
	for _, d := range cfg.Days {
		if d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d))
		}
	}
	return surcharge.WeekendSettings{Enabled: cfg.Enabled, SurchargePct: cfg.Pct, Days: days}
}

func toRentals(rows []db.Rental) []availability.Rental {
	out := make([]availability.Rental, 0, len(rows))
	for _, r := range rows {
		out = append(out, availability.Rental{
			ID:        r.ID,
			VehicleID: r.VehicleID,
			Start:     r.StartDate,
			End:       r.EndDate,
			Status:    r.Status,
		})
	}
	return out
}
