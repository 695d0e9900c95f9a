//go:build integration

package booking

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/db"
)

// Exercises the rentals exclusion constraint against a real Postgres:
//
//	TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/booking/
func TestConcurrentInsertsHitExclusionConstraint(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	migrateURL := strings.Replace(url, "postgres://", "pgx5://", 1)
	require.NoError(t, db.Migrate(migrateURL))

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()
	q := db.New(pool)

	slug := "race-" + uuid.NewString()[:8]
	var tenantID uuid.UUID
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO tenants (slug, name, currency) VALUES ($1, $1, 'GBP') RETURNING id`, slug,
	).Scan(&tenantID))

	customer, err := q.CreateCustomer(ctx, tenantID, "Race Tester", slug+"@example.com")
	require.NoError(t, err)
	vehicle, err := q.CreateVehicle(ctx, db.CreateVehicleParams{
		TenantID:     tenantID,
		Registration: strings.ToUpper(slug),
		Make:         "Ford",
		Model:        "Transit",
		DailyRate:    decimal.NewFromInt(50),
		WeeklyRate:   decimal.NewFromInt(280),
		MonthlyRate:  decimal.NewFromInt(900),
	})
	require.NoError(t, err)

	start := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	insert := func() error {
		_, err := q.CreateRental(ctx, db.CreateRentalParams{
			TenantID:    tenantID,
			VehicleID:   vehicle.ID,
			CustomerID:  customer.ID,
			StartDate:   start,
			EndDate:     &end,
			Status:      availability.StatusActive,
			PaymentMode: "INVOICE",
		})
		return err
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = insert()
		}(i)
	}
	wg.Wait()

	var failures int
	for _, insErr := range errs {
		if insErr == nil {
			continue
		}
		failures++
		var unavailable *availability.VehicleUnavailableError
		require.ErrorAs(t, mapConstraint(insErr, vehicle.ID), &unavailable)
		require.Equal(t, vehicle.ID, unavailable.VehicleID)
	}
	require.Equal(t, 1, failures, "exactly one insert should hit the constraint")

	// Cancelling the winner frees the range for rebooking.
	rentals, err := q.ListRentalsByVehicle(ctx, vehicle.ID, tenantID)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	_, err = q.UpdateRentalStatus(ctx, rentals[0].ID, tenantID, availability.StatusCancelled)
	require.NoError(t, err)
	require.NoError(t, insert())
}
