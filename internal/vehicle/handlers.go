package vehicle

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

// Handler exposes fleet administration endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	Registration string `json:"registration" validate:"required,max=16"`
	Make         string `json:"make" validate:"required,max=64"`
	Model        string `json:"model" validate:"required,max=64"`
	DailyRate    string `json:"dailyRate" validate:"required"`
	WeeklyRate   string `json:"weeklyRate" validate:"required"`
	MonthlyRate  string `json:"monthlyRate" validate:"required"`
}

type ratesRequest struct {
	DailyRate   string `json:"dailyRate" validate:"required"`
	WeeklyRate  string `json:"weeklyRate" validate:"required"`
	MonthlyRate string `json:"monthlyRate" validate:"required"`
}

type overrideRequest struct {
	ExtraID string `json:"extraId" validate:"required,uuid4"`
	Price   string `json:"price" validate:"required"`
}

type vehiclePayload struct {
	ID           string `json:"id"`
	Registration string `json:"registration"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	DailyRate    string `json:"dailyRate"`
	WeeklyRate   string `json:"weeklyRate"`
	MonthlyRate  string `json:"monthlyRate"`
	Active       bool   `json:"active"`
}

type calendarEntryPayload struct {
	RentalID  string  `json:"rentalId"`
	StartDate string  `json:"startDate"`
	EndDate   *string `json:"endDate,omitempty"`
	Status    string  `json:"status"`
	Lane      int     `json:"lane"`
}

type calendarPayload struct {
	VehicleID string                 `json:"vehicleId"`
	Entries   []calendarEntryPayload `json:"entries"`
}

// List pages the fleet.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50)
	if perPage > 200 {
		perPage = 200
	}
	vehicles, err := h.Svc.List(r.Context(), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]vehiclePayload, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, toVehiclePayload(v))
	}
	common.JSON(w, http.StatusOK, out)
}

// Get loads one vehicle.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid vehicle id", nil)
		return
	}
	v, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toVehiclePayload(v))
}

// Create adds a vehicle.
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
	daily, weekly, monthly, err := parseRates(payload.DailyRate, payload.WeeklyRate, payload.MonthlyRate)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid rate", nil)
		return
	}
	v, err := h.Svc.Create(r.Context(), CreateInput{
		Registration: payload.Registration,
		Make:         payload.Make,
		Model:        payload.Model,
		Daily:        daily,
		Weekly:       weekly,
		Monthly:      monthly,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toVehiclePayload(v))
}

// UpdateRates replaces the three rate tiers.
func (h *Handler) UpdateRates(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid vehicle id", nil)
		return
	}
	var payload ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	daily, weekly, monthly, err := parseRates(payload.DailyRate, payload.WeeklyRate, payload.MonthlyRate)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid rate", nil)
		return
	}
	v, err := h.Svc.UpdateRates(r.Context(), id, RatesInput{Daily: daily, Weekly: weekly, Monthly: monthly})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toVehiclePayload(v))
}

// ListOverrides returns per-vehicle extra price overrides.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid vehicle id", nil)
		return
	}
	rows, err := h.Svc.ListExtraPrices(r.Context(), id)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]string{
			"extraId": row.ExtraID.String(),
			"price":   row.Price.StringFixed(2),
		})
	}
	common.JSON(w, http.StatusOK, out)
}

// SetOverride upserts a per-vehicle extra price.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid vehicle id", nil)
		return
	}
	var payload overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	extraID, err := uuid.Parse(payload.ExtraID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid extra id", nil)
		return
	}
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid price", nil)
		return
	}
	if err := h.Svc.SetExtraPrice(r.Context(), id, extraID, price); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearOverride removes a per-vehicle extra price.
func (h *Handler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "vehicleID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid vehicle id", nil)
		return
	}
	extraID, err := uuid.Parse(chi.URLParam(r, "extraID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid extra id", nil)
		return
	}
	if err := h.Svc.ClearExtraPrice(r.Context(), id, extraID); err != nil {
		common.RenderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Calendar renders window rentals on display lanes per vehicle.
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid from date", nil)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid to date", nil)
		return
	}
	calendars, err := h.Svc.Calendar(r.Context(), from, to)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]calendarPayload, 0, len(calendars))
	for _, cal := range calendars {
		entry := calendarPayload{VehicleID: cal.VehicleID.String()}
		for _, e := range cal.Entries {
			p := calendarEntryPayload{
				RentalID:  e.Rental.ID.String(),
				StartDate: e.Rental.StartDate.Format("2006-01-02"),
				Status:    e.Rental.Status,
				Lane:      e.Lane,
			}
			if e.Rental.EndDate != nil {
				end := e.Rental.EndDate.Format("2006-01-02")
				p.EndDate = &end
			}
			entry.Entries = append(entry.Entries, p)
		}
		out = append(out, entry)
	}
	common.JSON(w, http.StatusOK, out)
}

func parseRates(daily, weekly, monthly string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	d, err := decimal.NewFromString(daily)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	wk, err := decimal.NewFromString(weekly)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	m, err := decimal.NewFromString(monthly)
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, err
	}
	return d, wk, m, nil
}

func toVehiclePayload(v db.Vehicle) vehiclePayload {
	return vehiclePayload{
		ID:           v.ID.String(),
		Registration: v.Registration,
		Make:         v.Make,
		Model:        v.Model,
		DailyRate:    v.DailyRate.StringFixed(2),
		WeeklyRate:   v.WeeklyRate.StringFixed(2),
		MonthlyRate:  v.MonthlyRate.StringFixed(2),
		Active:       v.Active,
	}
}
