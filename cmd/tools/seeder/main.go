package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/CortekUK/drive-247-sub013/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	tenantID := ensureTenant(ctx, pool, cfg.DefaultTenant)
	log.Printf("Using tenant ID: %s", tenantID)

	seedVehicles(ctx, pool, tenantID)
	seedExtras(ctx, pool, tenantID)
	seedHolidays(ctx, pool, tenantID)
	seedCustomers(ctx, pool, tenantID)

	log.Println("Seeding completed successfully!")
}

func ensureTenant(ctx context.Context, pool *pgxpool.Pool, slug string) string {
	if strings.TrimSpace(slug) == "" {
		slug = "default"
	}
	var tenantID string
	err := pool.QueryRow(ctx, `
		INSERT INTO tenants (slug, name, currency, weekend_pct, weekend_days, weekend_active)
		VALUES ($1, initcap($1), 'GBP', 15, '{6,0}', TRUE)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id;
	`, slug).Scan(&tenantID)
	if err != nil {
		log.Fatalf("ensure tenant %q: %v", slug, err)
	}
	return tenantID
}

func seedVehicles(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	vehicles := []struct {
		Registration string
		Make         string
		Model        string
		Daily        string
		Weekly       string
		Monthly      string
	}{
		{"LT24 XYZ", "Ford", "Transit Custom", "55", "330", "1100"},
		{"LV73 ABC", "Mercedes-Benz", "Sprinter", "70", "420", "1400"},
		{"KN22 DEF", "Volkswagen", "Crafter", "68", "400", "1350"},
		{"LR71 GHJ", "Vauxhall", "Vivaro", "48", "290", "960"},
		{"LS24 KLM", "Renault", "Trafic", "46", "280", "930"},
		{"LA23 NPQ", "Ford", "Ranger", "62", "370", "1250"},
		{"LB72 RST", "Toyota", "Hilux", "64", "385", "1280"},
		{"LC24 UVW", "Citroen", "Berlingo", "38", "230", "760"},
	}

	log.Println("Seeding vehicles...")
	for _, v := range vehicles {
		_, err := pool.Exec(ctx, `
			INSERT INTO vehicles (tenant_id, registration, make, model, daily_rate, weekly_rate, monthly_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tenant_id, registration) DO UPDATE SET
				daily_rate = EXCLUDED.daily_rate,
				weekly_rate = EXCLUDED.weekly_rate,
				monthly_rate = EXCLUDED.monthly_rate;
		`, tenantID, v.Registration, v.Make, v.Model, v.Daily, v.Weekly, v.Monthly)
		if err != nil {
			log.Printf("Failed to seed vehicle %s: %v", v.Registration, err)
		}
	}
}

func seedExtras(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	extras := []struct {
		Name        string
		Price       string
		PricingType string
		MaxQuantity *int
	}{
		{"Sat Nav", "5", "GLOBAL", intPtr(10)},
		{"Child Seat", "4", "GLOBAL", intPtr(6)},
		{"Roof Rack", "6", "PER_VEHICLE", intPtr(4)},
		{"Additional Driver", "8", "GLOBAL", nil},
		{"Tail Lift Trolley", "3", "GLOBAL", intPtr(5)},
	}

	log.Println("Seeding extras...")
	for _, e := range extras {
		_, err := pool.Exec(ctx, `
			INSERT INTO rental_extras (tenant_id, name, price, pricing_type, max_quantity)
			SELECT $1, $2, $3, $4, $5
			WHERE NOT EXISTS (
				SELECT 1 FROM rental_extras WHERE tenant_id = $1 AND name = $2
			);
		`, tenantID, e.Name, e.Price, e.PricingType, e.MaxQuantity)
		if err != nil {
			log.Printf("Failed to seed extra %s: %v", e.Name, err)
		}
	}
}

func seedHolidays(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	holidays := []struct {
		Name            string
		Start           string
		End             string
		Pct             string
		Recurs          bool
		SuppressWeekend bool
	}{
		{"Christmas", "2026-12-24", "2026-12-26", "25", true, true},
		{"New Year", "2026-12-31", "2027-01-01", "20", true, false},
		{"Summer Bank Holiday", "2026-08-29", "2026-08-31", "10", true, false},
	}

	log.Println("Seeding holidays...")
	for _, h := range holidays {
		_, err := pool.Exec(ctx, `
			INSERT INTO holidays (tenant_id, name, start_date, end_date, surcharge_pct, recurs_annually, suppress_weekend)
			SELECT $1, $2, $3::date, $4::date, $5, $6, $7
			WHERE NOT EXISTS (
				SELECT 1 FROM holidays WHERE tenant_id = $1 AND name = $2
			);
		`, tenantID, h.Name, h.Start, h.End, h.Pct, h.Recurs, h.SuppressWeekend)
		if err != nil {
			log.Printf("Failed to seed holiday %s: %v", h.Name, err)
		}
	}
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	customers := []struct {
		Name  string
		Email string
	}{
		{"Amelia Clarke", "amelia@example.com"},
		{"Oliver Hughes", "oliver@example.com"},
		{"Priya Sharma", "priya@example.com"},
		{"Tomasz Kowalski", "tomasz@example.com"},
	}

	log.Println("Seeding customers...")
	for _, c := range customers {
		_, err := pool.Exec(ctx, `
			INSERT INTO customers (tenant_id, name, email)
			SELECT $1, $2, $3
			WHERE NOT EXISTS (
				SELECT 1 FROM customers WHERE tenant_id = $1 AND email = $3
			);
		`, tenantID, c.Name, c.Email)
		if err != nil {
			log.Printf("Failed to seed customer %s: %v", c.Email, err)
		}
	}
}

func intPtr(v int) *int { return &v }
