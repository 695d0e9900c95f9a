package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/events"
	"github.com/CortekUK/drive-247-sub013/internal/extras"
	"github.com/CortekUK/drive-247-sub013/internal/lock"
	"github.com/CortekUK/drive-247-sub013/internal/quote"
	"github.com/CortekUK/drive-247-sub013/internal/tenant"
)

// ChargeCategoryRental is the category of the initial charge a confirmed
// booking raises.
const ChargeCategoryRental = "RENTAL"

const defaultLockTTL = 10 * time.Second

// Service turns a quote into a confirmed rental. Everything the confirmation
// writes goes through a single transaction; the exclusion constraint on
// rentals is the last line of defence against double booking.
type Service struct {
	Pool   *pgxpool.Pool
	Q      *db.Queries
	Quotes *quote.Service
	Locker lock.Locker
	Bus    *events.Bus
	Logger zerolog.Logger

	// LockTTL bounds how long a vehicle stays locked during confirm.
	LockTTL time.Duration
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL > 0 {
		return s.LockTTL
	}
	return defaultLockTTL
}

// Input describes the booking to confirm.
type Input struct {
	VehicleID   uuid.UUID
	CustomerID  uuid.UUID
	Start       time.Time
	End         *time.Time
	PaymentMode string
	Extras      []quote.ExtraRequest
}

// Confirmation is the created rental together with the quote it was priced
// from and the initial charge.
type Confirmation struct {
	Rental db.Rental
	Quote  quote.Output
	Charge db.Charge
}

// Confirm prices the rental, then creates it atomically with its extra
// selections and initial charge. Availability and extras stock are re-checked
// inside the transaction under FOR UPDATE; a race lost at commit time
// surfaces as a vehicle conflict rather than a constraint error.
func (s *Service) Confirm(ctx context.Context, in Input) (Confirmation, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return Confirmation{}, fmt.Errorf("booking: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return Confirmation{}, fmt.Errorf("booking: load tenant %q: %w", slug, err)
	}
	if _, err := s.Q.GetCustomerByTenant(ctx, in.CustomerID, t.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Confirmation{}, common.NewAppError(common.CodeNotFound, "customer not found", 404, nil)
		}
		return Confirmation{}, fmt.Errorf("booking: load customer: %w", err)
	}

	out, err := s.Quotes.Compute(ctx, quote.Input{
		VehicleID: in.VehicleID,
		Start:     in.Start,
		End:       in.End,
		Extras:    in.Extras,
	})
	if err != nil {
		return Confirmation{}, err
	}

	var conf Confirmation
	key := tenant.PrefixKey(slug, "booking:vehicle:"+in.VehicleID.String())
	err = s.Locker.WithLock(ctx, key, s.lockTTL(), func(ctx context.Context) error {
		conf, err = s.confirmTx(ctx, t, in, out)
		return err
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.publish(ctx, t.ID, events.TopicRentalConfirmed, conf.Rental.ID)
	return conf, nil
}

func (s *Service) confirmTx(ctx context.Context, t db.Tenant, in Input, out quote.Output) (Confirmation, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Confirmation{}, fmt.Errorf("booking: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	qtx := s.Q.WithTx(tx)

	// Re-check availability against rows locked for the rest of the tx.
	existing, err := qtx.ListRentalsByVehicleForUpdate(ctx, in.VehicleID, t.ID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("booking: lock rentals: %w", err)
	}
	if err := availability.Check(in.VehicleID, in.Start, in.End, toRentals(existing)); err != nil {
		return Confirmation{}, err
	}

	// Stock could have moved between quote and confirm.
	if len(in.Extras) > 0 {
		if err := s.recheckStock(ctx, qtx, t.ID, in.Extras); err != nil {
			return Confirmation{}, err
		}
	}

	rental, err := qtx.CreateRental(ctx, db.CreateRentalParams{
		TenantID:    t.ID,
		VehicleID:   in.VehicleID,
		CustomerID:  in.CustomerID,
		StartDate:   in.Start,
		EndDate:     in.End,
		Status:      availability.StatusActive,
		PaymentMode: in.PaymentMode,
	})
	if err != nil {
		return Confirmation{}, mapConstraint(err, in.VehicleID)
	}

	for _, line := range in.Extras {
		if _, err := qtx.CreateExtraSelection(ctx, rental.ID, line.ExtraID, int32(line.Quantity)); err != nil {
			return Confirmation{}, fmt.Errorf("booking: record extra selection: %w", err)
		}
	}

	charge, err := qtx.CreateCharge(ctx, db.CreateChargeParams{
		TenantID:   t.ID,
		RentalID:   rental.ID,
		CustomerID: in.CustomerID,
		Category:   ChargeCategoryRental,
		Amount:     out.Total,
		DueDate:    in.Start,
	})
	if err != nil {
		return Confirmation{}, fmt.Errorf("booking: raise charge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Confirmation{}, mapConstraint(err, in.VehicleID)
	}
	return Confirmation{Rental: rental, Quote: out, Charge: charge}, nil
}

// Cancel frees the vehicle's date range. Only enquiries and active rentals
// can be cancelled; cancelling twice is a no-op conflict.
func (s *Service) Cancel(ctx context.Context, rentalID uuid.UUID) (db.Rental, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Rental{}, fmt.Errorf("booking: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Rental{}, fmt.Errorf("booking: load tenant %q: %w", slug, err)
	}
	rental, err := s.Q.GetRentalByTenant(ctx, rentalID, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Rental{}, common.NewAppError(common.CodeNotFound, "rental not found", 404, nil)
		}
		return db.Rental{}, fmt.Errorf("booking: load rental: %w", err)
	}
	switch rental.Status {
	case availability.StatusCancelled:
		return db.Rental{}, common.NewAppError(common.CodeConflict, "rental already cancelled", 409, nil)
	case availability.StatusClosed:
		return db.Rental{}, common.NewAppError(common.CodeConflict, "closed rental cannot be cancelled", 409, nil)
	}
	updated, err := s.Q.UpdateRentalStatus(ctx, rentalID, t.ID, availability.StatusCancelled)
	if err != nil {
		return db.Rental{}, fmt.Errorf("booking: cancel rental: %w", err)
	}
	s.publish(ctx, t.ID, events.TopicRentalCancelled, updated.ID)
	return updated, nil
}

// Close marks a returned rental CLOSED so reporting can tell it apart from
// live bookings. The date range stays blocked for historical accuracy.
func (s *Service) Close(ctx context.Context, rentalID uuid.UUID) (db.Rental, error) {
	slug, ok := tenant.From(ctx)
	if !ok {
		return db.Rental{}, fmt.Errorf("booking: tenant missing from context")
	}
	t, err := s.Q.GetTenantBySlug(ctx, slug)
	if err != nil {
		return db.Rental{}, fmt.Errorf("booking: load tenant %q: %w", slug, err)
	}
	rental, err := s.Q.GetRentalByTenant(ctx, rentalID, t.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Rental{}, common.NewAppError(common.CodeNotFound, "rental not found", 404, nil)
		}
		return db.Rental{}, fmt.Errorf("booking: load rental: %w", err)
	}
	if rental.Status != availability.StatusActive {
		return db.Rental{}, common.NewAppError(common.CodeConflict, "only active rentals can be closed", 409, nil)
	}
	updated, err := s.Q.UpdateRentalStatus(ctx, rentalID, t.ID, availability.StatusClosed)
	if err != nil {
		return db.Rental{}, fmt.Errorf("booking: close rental: %w", err)
	}
	s.publish(ctx, t.ID, events.TopicRentalClosed, updated.ID)
	return updated, nil
}

func (s *Service) recheckStock(ctx context.Context, qtx *db.Queries, tenantID uuid.UUID, requests []quote.ExtraRequest) error {
	catalogue, err := qtx.ListExtrasByTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("booking: load extras: %w", err)
	}
	booked, err := qtx.SumBookedByExtra(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("booking: load booked extras: %w", err)
	}
	stockReqs := make([]extras.Request, 0, len(requests))
	for _, r := range requests {
		stockReqs = append(stockReqs, extras.Request{ExtraID: r.ExtraID, Quantity: r.Quantity})
	}
	bookedMap := make(map[uuid.UUID]int, len(booked))
	for _, b := range booked {
		bookedMap[b.ExtraID] = int(b.Booked)
	}
	stockCat := make([]extras.Extra, 0, len(catalogue))
	for _, c := range catalogue {
		var maxQty *int
		if c.MaxQuantity != nil {
			v := int(*c.MaxQuantity)
			maxQty = &v
		}
		stockCat = append(stockCat, extras.Extra{
			ID:          c.ID,
			Name:        c.Name,
			Price:       c.Price,
			PricingType: c.PricingType,
			MaxQuantity: maxQty,
			Active:      c.Active,
		})
	}
	_, err = extras.Evaluate(stockCat, bookedMap, stockReqs)
	return err
}

func (s *Service) publish(ctx context.Context, tenantID uuid.UUID, topic string, rentalID uuid.UUID) {
	if s.Bus == nil {
		return
	}
	payload := map[string]string{"tenantId": tenantID.String(), "rentalId": rentalID.String()}
	if _, err := s.Bus.Emit(ctx, topic, rentalID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("domain event emit failed")
	}
}

// mapConstraint converts the exclusion or unique violations raised by the
// rentals table into the availability conflict callers expect.
func mapConstraint(err error, vehicleID uuid.UUID) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == db.ExclusionViolation || pgErr.Code == db.UniqueViolation {
			return &availability.VehicleUnavailableError{VehicleID: vehicleID}
		}
	}
	return fmt.Errorf("booking: create rental: %w", err)
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
