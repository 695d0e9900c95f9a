package holiday

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/common"
	"github.com/CortekUK/drive-247-sub013/internal/db"
)

// Handler exposes holiday and weekend pricing administration.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	Name             string   `json:"name" validate:"required,max=128"`
	StartDate        string   `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate          string   `json:"endDate" validate:"required,datetime=2006-01-02"`
	SurchargePct     string   `json:"surchargePct" validate:"required"`
	RecursAnnually   bool     `json:"recursAnnually"`
	SuppressWeekend  bool     `json:"suppressWeekend"`
	ExcludedVehicles []string `json:"excludedVehicleIds" validate:"dive,uuid4"`
}

type weekendRequest struct {
	Enabled      bool    `json:"enabled"`
	SurchargePct string  `json:"surchargePct" validate:"required"`
	Days         []int32 `json:"days" validate:"required,min=1,dive,gte=0,lte=6"`
}

type holidayPayload struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	SurchargePct     string   `json:"surchargePct"`
	RecursAnnually   bool     `json:"recursAnnually"`
	SuppressWeekend  bool     `json:"suppressWeekend"`
	ExcludedVehicles []string `json:"excludedVehicleIds,omitempty"`
}

// List returns the tenant's holiday calendar.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Svc.List(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]holidayPayload, 0, len(holidays))
	for _, row := range holidays {
		out = append(out, toHolidayPayload(row))
	}
	common.JSON(w, http.StatusOK, out)
}

// Create stores a holiday window.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createRequest
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
	created, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toHolidayPayload(created))
}

// Delete removes a holiday window.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "holidayID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid holiday id", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateWeekend replaces the weekend surcharge settings.
func (h *Handler) UpdateWeekend(w http.ResponseWriter, r *http.Request) {
	var payload weekendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	pct, err := decimal.NewFromString(payload.SurchargePct)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid surcharge percentage", nil)
		return
	}
	if err := h.Svc.UpdateWeekend(r.Context(), WeekendInput{
		Enabled:      payload.Enabled,
		SurchargePct: pct,
		Days:         payload.Days,
	}); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p createRequest) toInput() (CreateInput, error) {
	start, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return CreateInput{}, err
	}
	end, err := time.Parse("2006-01-02", p.EndDate)
	if err != nil {
		return CreateInput{}, err
	}
	pct, err := decimal.NewFromString(p.SurchargePct)
	if err != nil {
		return CreateInput{}, err
	}
	in := CreateInput{
		Name:            p.Name,
		Start:           start,
		End:             end,
		SurchargePct:    pct,
		RecursAnnually:  p.RecursAnnually,
		SuppressWeekend: p.SuppressWeekend,
	}
	for _, raw := range p.ExcludedVehicles {
		id, err := uuid.Parse(raw)
		if err != nil {
			return CreateInput{}, err
		}
		in.ExcludedVehicles = append(in.ExcludedVehicles, id)
	}
	return in, nil
}

func toHolidayPayload(row db.Holiday) holidayPayload {
	out := holidayPayload{
		ID:              row.ID.String(),
		Name:            row.Name,
		StartDate:       row.StartDate.Format("2006-01-02"),
		EndDate:         row.EndDate.Format("2006-01-02"),
		SurchargePct:    row.SurchargePct.StringFixed(2),
		RecursAnnually:  row.RecursAnnually,
		SuppressWeekend: row.SuppressWeekend,
	}
	for _, id := range row.ExcludedVehicles {
		out.ExcludedVehicles = append(out.ExcludedVehicles, id.String())
	}
	return out
}
