package quote

import (
	"encoding/json"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/obs"
)

// Handler exposes the public quote endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type quoteRequest struct {
	VehicleID string             `json:"vehicleId" validate:"required,uuid4"`
	StartDate string             `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   *string            `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Extras    []quoteRequestLine `json:"extras" validate:"dive"`
}

type quoteRequestLine struct {
	ExtraID  string `json:"extraId" validate:"required,uuid4"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

type quoteResponse struct {
	Currency  string              `json:"currency"`
	Days      int                 `json:"days"`
	Period    string              `json:"period"`
	Base      string              `json:"base"`
	Extras    []quoteLine         `json:"extras"`
	Subtotal  string              `json:"subtotal"`
	Surcharge string              `json:"surcharge"`
	Total     string              `json:"total"`
	Breakdown []surchargeDay      `json:"surchargeBreakdown"`
	Stock     []stockLevelPayload `json:"stock"`
	Available bool                `json:"available"`
}

type quoteLine struct {
	ExtraID    string `json:"extraId"`
	Name       string `json:"name"`
	UnitPrice  string `json:"unitPrice"`
	Quantity   int    `json:"quantity"`
	Amount     string `json:"amount"`
	Overridden bool   `json:"overridden"`
}

type surchargeDay struct {
	Date       string `json:"date"`
	Holiday    string `json:"holiday,omitempty"`
	HolidayPct string `json:"holidayPct,omitempty"`
	WeekendPct string `json:"weekendPct,omitempty"`
	Amount     string `json:"amount"`
}

type stockLevelPayload struct {
	ExtraID    string `json:"extraId"`
	Name       string `json:"name"`
	Limited    bool   `json:"limited"`
	Remaining  int    `json:"remaining"`
	CanFulfill bool   `json:"canFulfill"`
}

// Quote computes a booking quote without writing anything.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var payload quoteRequest
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

	started := time.Now()
	out, err := h.Svc.Compute(r.Context(), in)
	obs.QuoteLatency.Observe(float64(time.Since(started).Milliseconds()))
	if err != nil {
		obs.QuotesTotal.WithLabelValues("error").Inc()
		common.RenderError(w, err)
		return
	}
	obs.QuotesTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusOK, toResponse(out))
}

func (p quoteRequest) toInput() (Input, error) {
	vehicleID, err := uuid.Parse(p.VehicleID)
	if err != nil {
		return Input{}, err
	}
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return Input{}, err
	}
	in := Input{VehicleID: vehicleID, Start: start}
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
		in.Extras = append(in.Extras, ExtraRequest{ExtraID: extraID, Quantity: line.Quantity})
	}
	return in, nil
}

// toResponse rounds to two decimals at the presentation edge only.
func toResponse(out Output) quoteResponse {
	resp := quoteResponse{
		Currency:  out.Currency,
		Days:      out.Days,
		Period:    string(out.Period),
		Base:      out.Base.StringFixed(2),
		Subtotal:  out.Subtotal.StringFixed(2),
		Surcharge: out.Surcharge.Total.StringFixed(2),
		Total:     out.Total.StringFixed(2),
		Available: out.Available,
	}
	for _, line := range out.Lines {
		resp.Extras = append(resp.Extras, quoteLine{
			ExtraID:    line.ExtraID.String(),
			Name:       line.Name,
			UnitPrice:  line.UnitPrice.StringFixed(2),
			Quantity:   line.Quantity,
			Amount:     line.Amount.StringFixed(2),
			Overridden: line.Overridden,
		})
	}
	for _, day := range out.Surcharge.Days {
		entry := surchargeDay{
			Date:   day.Date.Format("2006-01-02"),
			Amount: day.Amount.StringFixed(2),
		}
		if day.HolidayID != nil {
			entry.Holiday = day.HolidayName
			entry.HolidayPct = day.HolidayPct.StringFixed(2)
		}
		if day.WeekendPct.IsPositive() {
			entry.WeekendPct = day.WeekendPct.StringFixed(2)
		}
		resp.Breakdown = append(resp.Breakdown, entry)
	}
	for _, level := range out.Stock {
		resp.Stock = append(resp.Stock, stockLevelPayload{
			ExtraID:    level.ExtraID.String(),
			Name:       level.Name,
			Limited:    level.Limited,
			Remaining:  level.Remaining,
			CanFulfill: level.CanFulfill,
		})
	}
	return resp
}
