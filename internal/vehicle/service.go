package vehicle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// Querier lists the queries the fleet service needs.
type Querier interface {
	GetTenantBySlug(ctx context.Context, slug string) (db.Tenant, error)
	GetVehicleByTenant(ctx context.Context, id, tenantID uuid.UUID) (db.Vehicle, error)
	ListVehiclesByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int32) ([]db.Vehicle, error)
	CreateVehicle(ctx context.Context, arg db.CreateVehicleParams) (db.Vehicle, error)
	UpdateVehicleRates(ctx context.Context, arg db.UpdateVehicleRatesParams) (db.Vehicle, error)
	ListVehicleExtraPrices(ctx context.Context, vehicleID, tenantID uuid.UUID) ([]db.VehicleExtraPrice, error)
	UpsertVehicleExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID, price decimal.Decimal) error
	DeleteVehicleExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID) error
	ListRentalsByTenantWindow(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]db.Rental, error)
}

// Service manages the tenant's fleet and its pricing knobs.
type Service struct {
	Q Querier
}

// CreateInput is a new fleet vehicle.
type CreateInput struct {
	Registration string
	Make         string
	Model        string
	Daily        decimal.Decimal
	Weekly       decimal.Decimal
	Monthly      decimal.Decimal
}

// RatesInput replaces a vehicle's three rate tiers.
type RatesInput struct {
	Daily   decimal.Decimal
	Weekly  decimal.Decimal
	Monthly decimal.Decimal
}

// CalendarEntry is one rental placed on a display lane.
type CalendarEntry struct {
	Rental db.Rental
	Lane   int
}

// VehicleCalendar groups a vehicle's window rentals by lane.
type VehicleCalendar struct {
	VehicleID uuid.UUID
	Entries   []CalendarEntry
}

// List pages through the tenant's fleet.
func (s *Service) List(ctx context.Context, limit, offset int32) ([]db.Vehicle, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.Q.ListVehiclesByTenant(ctx, t.ID, limit, offset)
}

// Get loads one vehicle.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (db.Vehicle, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Vehicle{}, err
	}
	v, err := s.Q.GetVehicleByTenant(ctx, id, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Vehicle{}, common.NewAppError(common.CodeNotFound, "vehicle not found", 404, nil)
		}
		return db.Vehicle{}, fmt.Errorf("vehicle: load: %w", err)
	}
	return v, nil
}

// Create adds a vehicle to the fleet. All three rates must be positive so
// the rate resolver always has a usable candidate.
func (s *Service) Create(ctx context.Context, in CreateInput) (db.Vehicle, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Vehicle{}, err
	}
	if err := validateRates(in.Daily, in.Weekly, in.Monthly); err != nil {
		return db.Vehicle{}, err
	}
	v, err := s.Q.CreateVehicle(ctx, db.CreateVehicleParams{
		TenantID:     t.ID,
		Registration: in.Registration,
		Make:         in.Make,
		Model:        in.Model,
		DailyRate:    in.Daily,
		WeeklyRate:   in.Weekly,
		MonthlyRate:  in.Monthly,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == db.UniqueViolation {
			return db.Vehicle{}, common.NewAppError(common.CodeConflict, "registration already in fleet", 409, nil)
		}
		return db.Vehicle{}, fmt.Errorf("vehicle: create: %w", err)
	}
	return v, nil
}

// UpdateRates replaces the vehicle's daily, weekly, and monthly rates.
func (s *Service) UpdateRates(ctx context.Context, id uuid.UUID, in RatesInput) (db.Vehicle, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Vehicle{}, err
	}
	if err := validateRates(in.Daily, in.Weekly, in.Monthly); err != nil {
		return db.Vehicle{}, err
	}
	v, err := s.Q.UpdateVehicleRates(ctx, db.UpdateVehicleRatesParams{
		ID:          id,
		TenantID:    t.ID,
		DailyRate:   in.Daily,
		WeeklyRate:  in.Weekly,
		MonthlyRate: in.Monthly,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Vehicle{}, common.NewAppError(common.CodeNotFound, "vehicle not found", 404, nil)
		}
		return db.Vehicle{}, fmt.Errorf("vehicle: update rates: %w", err)
	}
	return v, nil
}

// ListExtraPrices returns the per-vehicle extra price overrides.
func (s *Service) ListExtraPrices(ctx context.Context, vehicleID uuid.UUID) ([]db.VehicleExtraPrice, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.Q.GetVehicleByTenant(ctx, vehicleID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.NewAppError(common.CodeNotFound, "vehicle not found", 404, nil)
		}
		return nil, fmt.Errorf("vehicle: load: %w", err)
	}
	return s.Q.ListVehicleExtraPrices(ctx, vehicleID, t.ID)
}

// SetExtraPrice overrides an extra's price for one vehicle.
func (s *Service) SetExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID, price decimal.Decimal) error {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return err
	}
	if price.IsNegative() {
		return common.NewAppError(common.CodeBadRequest, "override price cannot be negative", 400, nil)
	}
	if _, err := s.Q.GetVehicleByTenant(ctx, vehicleID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError(common.CodeNotFound, "vehicle not found", 404, nil)
		}
		return fmt.Errorf("vehicle: load: %w", err)
	}
	return s.Q.UpsertVehicleExtraPrice(ctx, vehicleID, extraID, price)
}

// ClearExtraPrice removes an override so the extra falls back to its
// catalogue price.
func (s *Service) ClearExtraPrice(ctx context.Context, vehicleID, extraID uuid.UUID) error {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Q.GetVehicleByTenant(ctx, vehicleID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NewAppError(common.CodeNotFound, "vehicle not found", 404, nil)
		}
		return fmt.Errorf("vehicle: load: %w", err)
	}
	return s.Q.DeleteVehicleExtraPrice(ctx, vehicleID, extraID)
}

// Calendar lays the window's rentals out on non-overlapping display lanes,
// one group per vehicle.
func (s *Service) Calendar(ctx context.Context, from, to time.Time) ([]VehicleCalendar, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, common.NewAppError(common.CodeBadRequest, "window end before start", 400, nil)
	}
	rows, err := s.Q.ListRentalsByTenantWindow(ctx, t.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("vehicle: load rentals: %w", err)
	}

	byVehicle := make(map[uuid.UUID][]db.Rental)
	var order []uuid.UUID
	for _, r := range rows {
		if _, seen := byVehicle[r.VehicleID]; !seen {
			order = append(order, r.VehicleID)
		}
		byVehicle[r.VehicleID] = append(byVehicle[r.VehicleID], r)
	}

	out := make([]VehicleCalendar, 0, len(order))
	for _, vid := range order {
		group := byVehicle[vid]
		index := make(map[uuid.UUID]db.Rental, len(group))
		for _, r := range group {
			index[r.ID] = r
		}
		cal := VehicleCalendar{VehicleID: vid}
		for lane, placed := range availability.Lanes(toRentals(group)) {
			for _, r := range placed {
				cal.Entries = append(cal.Entries, CalendarEntry{Rental: index[r.ID], Lane: lane})
			}
		}
		out = append(out, cal)
	}
	return out, nil
}

func (s *Service) tenantFrom(ctx context.Context) (db.Tenant, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Tenant{}, fmt.Errorf("vehicle: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Tenant{}, fmt.Errorf("vehicle: load tenant %q: %w", slug, err)
	}
	return t, nil
}

func validateRates(daily, weekly, monthly decimal.Decimal) error {
	if !daily.IsPositive() || !weekly.IsPositive() || !monthly.IsPositive() {
		return common.NewAppError(common.CodeBadRequest, "all rates must be positive", 400, nil)
	}
	return nil
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
