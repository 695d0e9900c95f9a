package booking

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/db"
)

func TestMapConstraintExclusionViolation(t *testing.T) {
	vehicleID := uuid.New()
	pgErr := &pgconn.PgError{Code: db.ExclusionViolation, ConstraintName: "rentals_no_overlap"}

	err := mapConstraint(fmt.Errorf("insert: %w", pgErr), vehicleID)

	var unavailable *availability.VehicleUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, vehicleID, unavailable.VehicleID)
}

func TestMapConstraintUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: db.UniqueViolation}

	err := mapConstraint(pgErr, uuid.New())

	var unavailable *availability.VehicleUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestMapConstraintPassesThroughOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")

	err := mapConstraint(cause, uuid.New())

	var unavailable *availability.VehicleUnavailableError
	require.False(t, errors.As(err, &unavailable))
	require.ErrorIs(t, err, cause)
}

func TestConfirmRequestToInput(t *testing.T) {
	vehicleID := uuid.New()
	customerID := uuid.New()
	extraID := uuid.New()
	end := "2026-07-10"
	payload := confirmRequest{
		VehicleID:   vehicleID.String(),
		CustomerID:  customerID.String(),
		StartDate:   "2026-07-01",
		EndDate:     &end,
		PaymentMode: "UPFRONT",
		Extras:      []confirmRequestLine{{ExtraID: extraID.String(), Quantity: 2}},
	}

	in, err := payload.toInput()
	require.NoError(t, err)
	require.Equal(t, vehicleID, in.VehicleID)
	require.Equal(t, customerID, in.CustomerID)
	require.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), in.Start)
	require.NotNil(t, in.End)
	require.Equal(t, time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC), *in.End)
	require.Len(t, in.Extras, 1)
	require.Equal(t, 2, in.Extras[0].Quantity)
}

func TestConfirmRequestToInputOpenEnded(t *testing.T) {
	payload := confirmRequest{
		VehicleID:   uuid.NewString(),
		CustomerID:  uuid.NewString(),
		StartDate:   "2026-07-01",
		PaymentMode: "ROLLING",
	}

	in, err := payload.toInput()
	require.NoError(t, err)
	require.Nil(t, in.End)
}

func TestToRentalPayloadDates(t *testing.T) {
	end := time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC)
	rental := db.Rental{
		ID:          uuid.New(),
		VehicleID:   uuid.New(),
		CustomerID:  uuid.New(),
		StartDate:   time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     &end,
		Status:      availability.StatusActive,
		PaymentMode: "UPFRONT",
	}

	out := toRentalPayload(rental)
	require.Equal(t, "2026-07-01", out.StartDate)
	require.NotNil(t, out.EndDate)
	require.Equal(t, "2026-07-10", *out.EndDate)

	rental.EndDate = nil
	require.Nil(t, toRentalPayload(rental).EndDate)
}
