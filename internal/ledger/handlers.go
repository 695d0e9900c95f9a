package ledger

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
	"github.com/CortekUK/drive-247-sub013/internal/obs"
)

// Handler exposes ledger endpoints: payments, allocations, write-offs, and
// statements.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type paymentRequest struct {
	CustomerID string `json:"customerId" validate:"required,uuid4"`
	Amount     string `json:"amount" validate:"required"`
	Method     string `json:"method" validate:"required,oneof=CARD CASH TRANSFER"`
}

type allocationRequest struct {
	PaymentID string `json:"paymentId" validate:"required,uuid4"`
	ChargeID  string `json:"chargeId" validate:"required,uuid4"`
	Amount    string `json:"amount" validate:"required"`
}

type paymentPayload struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
	ReceivedAt string `json:"receivedAt"`
}

type chargePayload struct {
	ID         string `json:"id"`
	RentalID   string `json:"rentalId"`
	Category   string `json:"category"`
	Amount     string `json:"amount"`
	Allocated  string `json:"allocated"`
	Remaining  string `json:"remaining"`
	Status     string `json:"status"`
	WrittenOff bool   `json:"writtenOff"`
	DueDate    string `json:"dueDate"`
}

type statementPayload struct {
	RentalID string          `json:"rentalId"`
	Charges  []chargePayload `json:"charges"`
	Charged  string          `json:"charged"`
	Paid     string          `json:"paid"`
	Balance  string          `json:"balance"`
}

type balancePayload struct {
	CustomerID string `json:"customerId"`
	Charged    string `json:"charged"`
	Paid       string `json:"paid"`
	Balance    string `json:"balance"`
	Status     string `json:"status"`
}

// RecordPayment accepts money received from a customer.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var payload paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	customerID, err := uuid.Parse(payload.CustomerID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid customer id", nil)
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid amount", nil)
		return
	}

	payment, err := h.Svc.RecordPayment(r.Context(), customerID, amount, payload.Method)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, toPaymentPayload(payment))
}

// Allocate applies part of a payment against a charge.
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	var payload allocationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payload", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
		return
	}
	paymentID, err := uuid.Parse(payload.PaymentID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid payment id", nil)
		return
	}
	chargeID, err := uuid.Parse(payload.ChargeID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid charge id", nil)
		return
	}
	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid amount", nil)
		return
	}

	allocation, err := h.Svc.Allocate(r.Context(), paymentID, chargeID, amount)
	if err != nil {
		obs.AllocationsTotal.WithLabelValues("rejected").Inc()
		common.RenderError(w, err)
		return
	}
	obs.AllocationsTotal.WithLabelValues("applied").Inc()
	common.JSON(w, http.StatusCreated, map[string]string{
		"id":        allocation.ID.String(),
		"paymentId": allocation.PaymentID.String(),
		"chargeId":  allocation.ChargeID.String(),
		"amount":    allocation.AmountApplied.StringFixed(2),
	})
}

// WriteOff forgives the unpaid remainder of a charge.
func (h *Handler) WriteOff(w http.ResponseWriter, r *http.Request) {
	chargeID, err := uuid.Parse(chi.URLParam(r, "chargeID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid charge id", nil)
		return
	}
	charge, err := h.Svc.WriteOff(r.Context(), chargeID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"id":         charge.ID.String(),
		"writtenOff": charge.WrittenOff,
		"remaining":  charge.RemainingAmount.StringFixed(2),
	})
}

// Statement renders a rental's reconciled charges.
func (h *Handler) Statement(w http.ResponseWriter, r *http.Request) {
	rentalID, err := uuid.Parse(chi.URLParam(r, "rentalID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid rental id", nil)
		return
	}
	stmt, err := h.Svc.RentalStatement(r.Context(), rentalID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, toStatementPayload(stmt))
}

// Balance renders a customer's overall position.
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid customer id", nil)
		return
	}
	balance, err := h.Svc.BalanceFor(r.Context(), customerID)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, balancePayload{
		CustomerID: balance.CustomerID.String(),
		Charged:    balance.Charged.StringFixed(2),
		Paid:       balance.Paid.StringFixed(2),
		Balance:    balance.Balance.StringFixed(2),
		Status:     string(balance.Status),
	})
}

func toPaymentPayload(p db.Payment) paymentPayload {
	return paymentPayload{
		ID:         p.ID.String(),
		CustomerID: p.CustomerID.String(),
		Amount:     p.Amount.StringFixed(2),
		Method:     p.Method,
		ReceivedAt: p.ReceivedAt.Format(time.RFC3339),
	}
}

func toStatementPayload(stmt Statement) statementPayload {
	out := statementPayload{
		RentalID: stmt.RentalID.String(),
		Charged:  stmt.Charged.StringFixed(2),
		Paid:     stmt.Paid.StringFixed(2),
		Balance:  stmt.Balance.StringFixed(2),
	}
	for _, st := range stmt.Charges {
		out.Charges = append(out.Charges, chargePayload{
			ID:         st.Charge.ID.String(),
			RentalID:   st.Charge.RentalID.String(),
			Category:   st.Charge.Category,
			Amount:     st.Charge.Amount.StringFixed(2),
			Allocated:  st.Allocated.StringFixed(2),
			Remaining:  st.Remaining.StringFixed(2),
			Status:     string(st.Status),
			WrittenOff: st.Charge.WrittenOff,
			DueDate:    st.Charge.DueDate.Format("2006-01-02"),
		})
	}
	return out
}
