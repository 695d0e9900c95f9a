package availability

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Rental statuses understood by the checker. Only cancelled rentals free up
// their date range.
const (
	StatusEnquiry   = "ENQUIRY"
	StatusActive    = "ACTIVE"
	StatusClosed    = "CLOSED"
	StatusCancelled = "CANCELLED"
)

// Rental is the slice of a rental row the checker needs. A nil End means the
// rental is open-ended and blocks the vehicle indefinitely.
type Rental struct {
	ID        uuid.UUID
	VehicleID uuid.UUID
	Start     time.Time
	End       *time.Time
	Status    string
}

// VehicleUnavailableError reports a booking conflict with the rentals that
// caused it.
type VehicleUnavailableError struct {
	VehicleID uuid.UUID
	Conflicts []uuid.UUID
}

func (e *VehicleUnavailableError) Error() string {
	return fmt.Sprintf("availability: vehicle %s has %d conflicting rental(s)", e.VehicleID, len(e.Conflicts))
}

func (e *VehicleUnavailableError) Code() string { return "VEHICLE_UNAVAILABLE" }
func (e *VehicleUnavailableError) Status() int  { return http.StatusConflict }

func (e *VehicleUnavailableError) Message() string {
	return "vehicle is not available for the requested dates"
}

func (e *VehicleUnavailableError) Details() map[string]any {
	return map[string]any{
		"vehicleId": e.VehicleID,
		"conflicts": e.Conflicts,
	}
}

// Overlaps reports whether two inclusive date ranges intersect, treating a
// nil end as unbounded.
func Overlaps(s1 time.Time, e1 *time.Time, s2 time.Time, e2 *time.Time) bool {
	startsBeforeEnd := func(s time.Time, e *time.Time) bool {
		return e == nil || !s.After(*e)
	}
	return startsBeforeEnd(s1, e2) && startsBeforeEnd(s2, e1)
}

// Conflicts returns the IDs of non-cancelled rentals whose effective range
// intersects the proposed one.
func Conflicts(start time.Time, end *time.Time, existing []Rental) []uuid.UUID {
	var out []uuid.UUID
	for _, r := range existing {
		if r.Status == StatusCancelled {
			continue
		}
		if Overlaps(start, end, r.Start, r.End) {
			out = append(out, r.ID)
		}
	}
	return out
}

// Check validates the proposed range against existing rentals for the
// vehicle. It returns a VehicleUnavailableError listing the conflicts.
func Check(vehicleID uuid.UUID, start time.Time, end *time.Time, existing []Rental) error {
	conflicts := Conflicts(start, end, existing)
	if len(conflicts) == 0 {
		return nil
	}
	return &VehicleUnavailableError{VehicleID: vehicleID, Conflicts: conflicts}
}

// Lanes groups rentals into non-overlapping display lanes for calendar
// rendering. Rentals are placed greedily in start order; each lane holds
// mutually non-overlapping rentals.
func Lanes(rentals []Rental) [][]Rental {
	active := make([]Rental, 0, len(rentals))
	for _, r := range rentals {
		if r.Status != StatusCancelled {
			active = append(active, r)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].Start.Equal(active[j].Start) {
			return active[i].Start.Before(active[j].Start)
		}
		return active[i].ID.String() < active[j].ID.String()
	})

	var lanes [][]Rental
next:
	for _, r := range active {
		for i, lane := range lanes {
			last := lane[len(lane)-1]
			if !Overlaps(r.Start, r.End, last.Start, last.End) {
				lanes[i] = append(lanes[i], r)
				continue next
			}
		}
		lanes = append(lanes, []Rental{r})
	}
	return lanes
}
