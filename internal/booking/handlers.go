package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/CortekUK/drive-247-sub013/internal/availability"
	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
	"github.com/CortekUK/drive-247-sub013/internal/obs"
	"github.com/CortekUK/drive-247-sub013/internal/quote"
)

// Handler exposes booking confirmation and lifecycle endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type confirmRequest struct {
	VehicleID   string               `json:"vehicleId" validate:"required,uuid4"`
	CustomerID  string               `json:"customerId" validate:"required,uuid4"`
	StartDate   string               `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     *string              `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	PaymentMode string               `json:"paymentMode" validate:"required,oneof=UPFRONT ROLLING"`
	Extras      []confirmRequestLine `json:"extras" validate:"dive"`
}

type confirmRequestLine struct {
	ExtraID  string `json:"extraId" validate:"required,uuid4"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type rentalPayload struct {
	ID          string  `json:"id"`
	VehicleID   string  `json:"vehicleId"`
	CustomerID  string  `json:"customerId"`
	StartDate   string  `json:"startDate"`
	EndDate     *string `json:"endDate,omitempty"`
	Status      string  `json:"status"`
	PaymentMode string  `json:"paymentMode"`
}

type confirmResponse struct {
	Rental   rentalPayload `json:"rental"`
	Total    string        `json:"total"`
	Currency string        `json:"currency"`
	ChargeID string        `json:"chargeId"`
}

// Confirm books a vehicle for a customer.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var payload confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	in, err := payload.toInput()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}

	conf, err := h.Svc.Confirm(r.Context(), in)
	if err != nil {
		var unavailable *availability.VehicleUnavailableError
		if errors.As(err, &unavailable) {
			obs.BookingConflictsTotal.Inc()
		}
		obs.BookingsTotal.WithLabelValues("rejected").Inc()
		common.RenderError(w, err)
		return
	}
	obs.BookingsTotal.WithLabelValues("confirmed").Inc()
	common.JSON(w, http.StatusCreated, confirmResponse{
		Rental:   toRentalPayload(conf.Rental),
		Total:    conf.Quote.Total.StringFixed(2),
		Currency: conf.Quote.Currency,
		ChargeID: conf.Charge.ID.String(),
	})
}

// Cancel releases a rental's date range.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "rentalID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid rental id", nil)
		return
	}
	rental, err := h.Svc.Cancel(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toRentalPayload(rental))
}

// Close marks a returned rental closed.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "rentalID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid rental id", nil)
		return
	}
	rental, err := h.Svc.Close(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toRentalPayload(rental))
}

func (p confirmRequest) toInput() (Input, error) {
	vehicleID, err := uuid.Parse(p.VehicleID)
	if err != nil {
		return Input{}, err
	}
	customerID, err := uuid.Parse(p.CustomerID)
	if err != nil {
		return Input{}, err
	}
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return Input{}, err
	}
	in := Input{
		VehicleID:   vehicleID,
		CustomerID:  customerID,
		Start:       start,
		PaymentMode: p.PaymentMode,
	}
	if p.EndDate != nil {
		end, err := time.Parse("2006-01-02", *p.EndDate)
		if err != nil {
			return Input{}, err
		}
		in.End = &end
	}
	for _, line := range p.Extras {
		extraID, err := uuid.Parse(line.ExtraID)
		if err != nil {
			return Input{}, err
		}
		in.Extras = append(in.Extras, quote.ExtraRequest{ExtraID: extraID, Quantity: line.Quantity})
	}
	return in, nil
}

func toRentalPayload(r db.Rental) rentalPayload {
	out := rentalPayload{
		ID:          r.ID.String(),
		VehicleID:   r.VehicleID.String(),
		CustomerID:  r.CustomerID.String(),
		StartDate:   r.StartDate.Format("2006-01-02"),
		Status:      r.Status,
		PaymentMode: r.PaymentMode,
	}
	if r.EndDate != nil {
		end := r.EndDate.Format("2006-01-02")
		out.EndDate = &end
	}
	return out
}
