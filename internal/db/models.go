package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant is a rental company on the platform. Weekend pricing and rate tier
// thresholds live at tenant level.
type Tenant struct {
	ID            uuid.UUID
	Slug          string
	Name          string
	Currency      string
	WeekendPct    decimal.Decimal
	WeekendDays   []int32
	WeekendActive bool
	DaysPerWeek   int32
	DaysPerMonth  int32
	CreatedAt     time.Time
}

// Vehicle is a fleet unit with its base rates. Identity is immutable, rates
// are mutable by tenant staff.
type Vehicle struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Registration string
	Make         string
	Model        string
	DailyRate    decimal.Decimal
	WeeklyRate   decimal.Decimal
	MonthlyRate  decimal.Decimal
	Active       bool
	CreatedAt    time.Time
}

// RentalExtra is a bookable add-on. MaxQuantity nil means unlimited stock.
type RentalExtra struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Price       decimal.Decimal
	PricingType string
	MaxQuantity *int32
	Active      bool
}

// VehicleExtraPrice overrides an extra's price for one vehicle.
type VehicleExtraPrice struct {
	VehicleID uuid.UUID
	ExtraID   uuid.UUID
	Price     decimal.Decimal
}

// Holiday is a tenant surcharge window.
type Holiday struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	SurchargePct     decimal.Decimal
	RecursAnnually   bool
	SuppressWeekend  bool
	ExcludedVehicles []uuid.UUID
}

// Customer belongs to a tenant.
type Customer struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Email    string
}

// Rental is a booking. EndDate nil means open-ended.
type Rental struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	VehicleID   uuid.UUID
	CustomerID  uuid.UUID
	StartDate   time.Time
	EndDate     *time.Time
	Status      string
	PaymentMode string
	CreatedAt   time.Time
}

// ExtraSelection records booked extra quantities on a rental.
type ExtraSelection struct {
	ID       uuid.UUID
	RentalID uuid.UUID
	ExtraID  uuid.UUID
	Quantity int32
}

// Charge is a ledger entry. RemainingAmount mutates as payments allocate
// against it.
type Charge struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	RentalID        uuid.UUID
	CustomerID      uuid.UUID
	Category        string
	Amount          decimal.Decimal
	DueDate         time.Time
	RemainingAmount decimal.Decimal
	WrittenOff      bool
	CreatedAt       time.Time
}

// Payment is money received from a customer.
type Payment struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Method     string
	ReceivedAt time.Time
}

// PaymentAllocation applies part of a payment against one charge.
type PaymentAllocation struct {
	ID            uuid.UUID
	PaymentID     uuid.UUID
	ChargeID      uuid.UUID
	AmountApplied decimal.Decimal
	CreatedAt     time.Time
}

// DomainEvent is a persisted platform event.
type DomainEvent struct {
	ID          uuid.UUID
	Topic       string
	AggregateID uuid.UUID
	Payload     []byte
	OccurredAt  time.Time
}
