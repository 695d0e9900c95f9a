package extras

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/CortekUK/drive-247-sub013/internal/common"
)

// Handler exposes the add-on catalogue.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	Name        string `json:"name" validate:"required,max=128"`
	Price       string `json:"price" validate:"required"`
	PricingType string `json:"pricingType" validate:"required,oneof=GLOBAL PER_VEHICLE"`
	MaxQuantity *int32 `json:"maxQuantity" validate:"omitempty,gte=0"`
}

type cataloguePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	PricingType string `json:"pricingType"`
	Active      bool   `json:"active"`
	Limited     bool   `json:"limited"`
	Remaining   int    `json:"remaining"`
	MaxQuantity *int32 `json:"maxQuantity,omitempty"`
}

// Catalogue lists extras with live stock positions.
func (h *Handler) Catalogue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Svc.Catalogue(r.Context())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	out := make([]cataloguePayload, 0, len(entries))
	for _, entry := range entries {
		out = append(out, cataloguePayload{
			ID:          entry.Extra.ID.String(),
			Name:        entry.Extra.Name,
			Price:       entry.Extra.Price.StringFixed(2),
			PricingType: entry.Extra.PricingType,
			Active:      entry.Extra.Active,
			Limited:     entry.Limited,
			Remaining:   entry.Remaining,
			MaxQuantity: entry.Extra.MaxQuantity,
		})
	}
	common.JSON(w, http.StatusOK, out)
}

// Create adds an extra to the catalogue.
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
	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid price", nil)
		return
	}
	created, err := h.Svc.Create(r.Context(), CreateInput{
		Name:        payload.Name,
		Price:       price,
		PricingType: payload.PricingType,
		MaxQuantity: payload.MaxQuantity,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, cataloguePayload{
		ID:          created.ID.String(),
		Name:        created.Name,
		Price:       created.Price.StringFixed(2),
		PricingType: created.PricingType,
		Active:      created.Active,
		MaxQuantity: created.MaxQuantity,
	})
}
