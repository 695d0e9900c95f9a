package extras

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/rates"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// Querier lists the queries the extras service needs.
type Querier interface {
	GetTenantBySlug(ctx context.Context, slug string) (db.Tenant, error)
	ListExtrasByTenant(ctx context.Context, tenantID uuid.UUID) ([]db.RentalExtra, error)
	SumBookedByExtra(ctx context.Context, tenantID uuid.UUID) ([]db.BookedQuantity, error)
	CreateExtra(ctx context.Context, arg db.CreateExtraParams) (db.RentalExtra, error)
}

// Service manages the add-on catalogue and reports live stock.
type Service struct {
	Q Querier
}

// CatalogueEntry is an extra together with its current stock position.
type CatalogueEntry struct {
	Extra     db.RentalExtra
	Limited   bool
	Remaining int
}

// CreateInput is a new catalogue extra. A nil MaxQuantity means unlimited.
type CreateInput struct {
	Name        string
	Price       decimal.Decimal
	PricingType string
	MaxQuantity *int32
}

// Catalogue lists the tenant's extras with how many units remain bookable.
func (s *Service) Catalogue(ctx context.Context) ([]CatalogueEntry, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.Q.ListExtrasByTenant(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("extras: load catalogue: %w", err)
	}
	booked, err := s.Q.SumBookedByExtra(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("extras: load booked totals: %w", err)
	}
	bookedMap := make(map[uuid.UUID]int, len(booked))
	for _, b := range booked {
		bookedMap[b.ExtraID] = int(b.Booked)
	}

	out := make([]CatalogueEntry, 0, len(rows))
	for _, row := range rows {
		var maxQty *int
		if row.MaxQuantity != nil {
			v := int(*row.MaxQuantity)
			maxQty = &v
		}
		remaining, limited := Remaining(maxQty, bookedMap[row.ID])
		out = append(out, CatalogueEntry{Extra: row, Limited: limited, Remaining: remaining})
	}
	return out, nil
}

// Create adds an extra to the catalogue.
func (s *Service) Create(ctx context.Context, in CreateInput) (db.RentalExtra, error) {
	t, err := s.tenantFrom(ctx)
	if err != nil {
		return db.RentalExtra{}, err
	}
	if in.Price.IsNegative() {
		return db.RentalExtra{}, common.NewAppError(common.CodeBadRequest, "price cannot be negative", 400, nil)
	}
	if in.MaxQuantity != nil && *in.MaxQuantity < 0 {
		return db.RentalExtra{}, common.NewAppError(common.CodeBadRequest, "max quantity cannot be negative", 400, nil)
	}
	switch in.PricingType {
	case rates.PricingGlobal, rates.PricingPerVehicle:
	default:
		return db.RentalExtra{}, common.NewAppError(common.CodeBadRequest, "unknown pricing type", 400, nil)
	}
	return s.Q.CreateExtra(ctx, db.CreateExtraParams{
		TenantID:    t.ID,
		Name:        in.Name,
		Price:       in.Price,
		PricingType: in.PricingType,
		MaxQuantity: in.MaxQuantity,
	})
}

func (s *Service) tenantFrom(ctx context.Context) (db.Tenant, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Tenant{}, fmt.Errorf("extras: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Tenant{}, fmt.Errorf("extras: load tenant %q: %w", slug, err)
	}
	return t, nil
}
