package holiday

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/quote"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// Querier lists the queries the holiday service needs.
type Querier interface {
	GetTenantBySlug(ctx context.Context, slug string) (db.Tenant, error)
	ListHolidaysByTenant(ctx context.Context, tenantID uuid.UUID) ([]db.Holiday, error)
	CreateHoliday(ctx context.Context, arg db.CreateHolidayParams) (db.Holiday, error)
	DeleteHoliday(ctx context.Context, id, tenantID uuid.UUID) error
	UpdateWeekendPricing(ctx context.Context, arg db.UpdateWeekendPricingParams) error
}

// Service manages holiday windows and weekend pricing. Every write drops the
// tenant's cached pricing config so the next quote sees it.
type Service struct {
	Q      Querier
	Cache  *quote.Cache
	Logger zerolog.Logger
}

// CreateInput is a new holiday window.
type CreateInput struct {
	Name             string
	Start            time.Time
	End              time.Time
	SurchargePct     decimal.Decimal
	RecursAnnually   bool
	SuppressWeekend  bool
	ExcludedVehicles []uuid.UUID
}

// WeekendInput is the tenant-wide weekend surcharge.
type WeekendInput struct {
	Enabled      bool
	SurchargePct decimal.Decimal
	Days         []int32
}

// List returns the tenant's holiday windows.
func (s *Service) List(ctx context.Context) ([]db.Holiday, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return nil, err
	}
	return s.Q.ListHolidaysByTenant(ctx, t.ID)
}

// Create stores a holiday window.
func (s *Service) Create(ctx context.Context, in CreateInput) (db.Holiday, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.Holiday{}, err
	}
	if in.End.Before(in.Start) {
		return db.Holiday{}, common.NewAppError(common.CodeBadRequest, "holiday end before start", 400, nil)
	}
	if in.SurchargePct.IsNegative() {
		return db.Holiday{}, common.NewAppError(common.CodeBadRequest, "surcharge percentage cannot be negative", 400, nil)
	}
	h, err := s.Q.CreateHoliday(ctx, db.CreateHolidayParams{
		TenantID:         t.ID,
		Name:             in.Name,
		StartDate:        in.Start.Format("2006-01-02"),
		EndDate:          in.End.Format("2006-01-02"),
		SurchargePct:     in.SurchargePct,
		RecursAnnually:   in.RecursAnnually,
		SuppressWeekend:  in.SuppressWeekend,
		ExcludedVehicles: in.ExcludedVehicles,
	})
	if err != nil {
		return db.Holiday{}, fmt.Errorf("holiday: create: %w", err)
	}
	s.invalidate(ctx, t.Slug)
	return h, nil
}

// Delete removes a holiday window.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return err
	}
	if err := s.Q.DeleteHoliday(ctx, id, t.ID); err != nil {
		return fmt.Errorf("holiday: delete: %w", err)
	}
	s.invalidate(ctx, t.Slug)
	return nil
}

// UpdateWeekend replaces the tenant's weekend surcharge settings.
func (s *Service) UpdateWeekend(ctx context.Context, in WeekendInput) error {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return err
	}
	if in.SurchargePct.IsNegative() {
		return common.NewAppError(common.CodeBadRequest, "surcharge percentage cannot be negative", 400, nil)
	}
	for _, d := range in.Days {
		if d < 0 || d > 6 {
			return common.NewAppError(common.CodeBadRequest, "weekend days must be 0-6", 400, nil)
		}
	}
	if err := s.Q.UpdateWeekendPricing(ctx, db.UpdateWeekendPricingParams{
		TenantID:      t.ID,
		WeekendPct:    in.SurchargePct.String(),
		WeekendDays:   in.Days,
		WeekendActive: in.Enabled,
	}); err != nil {
		return fmt.Errorf("holiday: update weekend pricing: %w", err)
	}
	s.invalidate(ctx, t.Slug)
	return nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	key := tenant.PrefixKey(slug, "pricing-config")
	if err := s.Cache.Invalidate(ctx, key); err != nil {
		s.Logger.Warn().Err(err).Str("tenant", slug).Msg("pricing config cache invalidation failed")
	}
}

func (s *Service) tenantFrom(ctx context.Context) (db.Tenant, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Tenant{}, fmt.Errorf("holiday: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Tenant{}, fmt.Errorf("holiday: load tenant %q: %w", slug, err)
	}
	return t, nil
}
