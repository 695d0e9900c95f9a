package extras

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Extra is a bookable add-on, optionally stock-limited. A nil MaxQuantity
// means unlimited.
type Extra struct {
	ID          uuid.UUID
	Name        string
	Price       decimal.Decimal
	PricingType string
	MaxQuantity *int
	Active      bool
}

// Request asks for a quantity of one extra.
type Request struct {
	ExtraID  uuid.UUID
	Quantity int
}

// StockLevel is the computed availability of one extra. Stock is a global
// cap shared across all confirmed bookings, not scoped to a date range.
type StockLevel struct {
	ExtraID    uuid.UUID
	Name       string
	Limited    bool
	MaxQty     int
	Booked     int
	Remaining  int
	CanFulfill bool
}

// InsufficientStockError names the extra and the shortfall so the caller can
// render an actionable message.
type InsufficientStockError struct {
	ExtraID   uuid.UUID
	Name      string
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("extras: %q has %d left, %d requested (short %d)", e.Name, e.Remaining, e.Requested, e.Shortfall())
}

// Shortfall is how many units over the remaining stock the request was.
func (e *InsufficientStockError) Shortfall() int {
	return e.Requested - e.Remaining
}

func (e *InsufficientStockError) Code() string    { return "INSUFFICIENT_STOCK" }
func (e *InsufficientStockError) Status() int     { return http.StatusConflict }
func (e *InsufficientStockError) Message() string { return "not enough stock for extra" }

func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"extraId":   e.ExtraID,
		"name":      e.Name,
		"requested": e.Requested,
		"remaining": e.Remaining,
		"shortfall": e.Shortfall(),
	}
}

// Remaining computes the bookable quantity left for an extra, clamped at
// zero. The second return reports whether the extra is stock-limited at all.
func Remaining(maxQuantity *int, booked int) (int, bool) {
	if maxQuantity == nil {
		return 0, false
	}
	rem := *maxQuantity - booked
	if rem < 0 {
		rem = 0
	}
	return rem, true
}

// Evaluate computes stock levels for the requested extras given the already
// booked quantities, and fails on the first shortfall. Unknown extras are the
// rate resolver's concern; they are skipped here.
func Evaluate(catalogue []Extra, booked map[uuid.UUID]int, requests []Request) ([]StockLevel, error) {
	byID := make(map[uuid.UUID]Extra, len(catalogue))
	for _, e := range catalogue {
		byID[e.ID] = e
	}

	levels := make([]StockLevel, 0, len(requests))
	for _, req := range requests {
		extra, ok := byID[req.ExtraID]
		if !ok {
			continue
		}
		level := StockLevel{ExtraID: extra.ID, Name: extra.Name, Booked: booked[extra.ID], CanFulfill: true}
		rem, limited := Remaining(extra.MaxQuantity, level.Booked)
		if limited {
			level.Limited = true
			level.MaxQty = *extra.MaxQuantity
			level.Remaining = rem
			level.CanFulfill = req.Quantity <= rem
		}
		levels = append(levels, level)
		if !level.CanFulfill {
			return levels, &InsufficientStockError{
				ExtraID:   extra.ID,
				Name:      extra.Name,
				Requested: req.Quantity,
				Remaining: rem,
			}
		}
	}
	return levels, nil
}
