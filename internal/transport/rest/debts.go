package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"debtio/internal/domain"
	"debtio/internal/finance"
	"debtio/internal/repository"
	"debtio/internal/service"
	"debtio/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

type debtResponse struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   *string  `json:"description,omitempty"`
	Principal     float64  `json:"principal"`
	Rate          float64  `json:"rate"`
	RatePeriod    string   `json:"rate_period"`
	Installments  int      `json:"installments"`
	StartDate     string   `json:"start_date"`
	TotalAmount   float64  `json:"total_amount"`
	TotalInterest float64  `json:"total_interest"`
	Cuota         float64  `json:"cuota"`
}

func toDebtResponse(d domain.Debt) debtResponse {
	return debtResponse{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		Principal:     d.Principal,
		Rate:          d.Rate,
		RatePeriod:    string(d.RatePeriod),
		Installments:  d.Installments,
		StartDate:     d.StartDate.Format("2006-01-02"),
		TotalAmount:   d.TotalAmount,
		TotalInterest: d.TotalInterest,
		Cuota:         d.Cuota,
	}
}

type installmentResponse struct {
	ID            string  `json:"id"`
	Sequence      int     `json:"sequence"`
	DueDate       string  `json:"due_date"`
	Amount        float64 `json:"amount"`
	Capital       float64 `json:"capital"`
	Interest      float64 `json:"interest"`
	Paid          bool    `json:"paid"`
	PaidAt        *string `json:"paid_at,omitempty"`
	PaymentMethod *string `json:"payment_method,omitempty"`
	ReceiptKey    *string `json:"receipt_key,omitempty"`

	DaysUntilDue  int     `json:"days_until_due"`
	OverdueMonths int     `json:"overdue_months"`
	Penalty       float64 `json:"penalty"`
	Payable       float64 `json:"payable"`
	State         string  `json:"state"`
}

func toInstallmentResponse(v service.InstallmentView) installmentResponse {
	resp := installmentResponse{
		ID:            v.ID,
		Sequence:      v.Sequence,
		DueDate:       v.DueDate.Format("2006-01-02"),
		Amount:        v.Amount,
		Capital:       v.Capital,
		Interest:      v.Interest,
		Paid:          v.Paid,
		PaymentMethod: v.PaymentMethod,
		ReceiptKey:    v.ReceiptKey,

		DaysUntilDue:  v.Assessment.DaysUntilDue,
		OverdueMonths: v.Assessment.OverdueMonths,
		Penalty:       v.Assessment.Penalty,
		Payable:       v.Assessment.Payable,
		State:         string(v.Assessment.State),
	}
	if v.PaidAt != nil {
		s := v.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}

func (h *Handler) createDebt(w http.ResponseWriter, r *http.Request) {
	in, err := ValidateDebtRequest(r)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			ErrorBadRequest(w, vErr.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	debt, err := h.debts.CreateDebt(r.Context(), userID, *in)
	if err != nil {
		if errors.Is(err, finance.ErrInvalidInput) {
			ErrorBadRequest(w, err.Error())
			return
		}
		log.Printf("[HTTP] createDebt error: %v", err)
		ErrorInternal(w, "failed to create debt")
		return
	}

	SuccessCreated(w, "Debt created", toDebtResponse(*debt))
}

func (h *Handler) updateDebt(w http.ResponseWriter, r *http.Request) {
	debtID := chi.URLParam(r, "debt_id")

	in, err := ValidateDebtRequest(r)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			ErrorBadRequest(w, vErr.Error())
			return
		}
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	debt, err := h.debts.UpdateDebt(r.Context(), userID, debtID, *in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			ErrorNotFound(w, "debt not found")
		case errors.Is(err, finance.ErrInvalidInput):
			ErrorBadRequest(w, err.Error())
		default:
			log.Printf("[HTTP] updateDebt error: %v", err)
			ErrorInternal(w, "failed to update debt")
		}
		return
	}

	Success(w, "Debt updated", toDebtResponse(*debt))
}

func (h *Handler) deleteDebt(w http.ResponseWriter, r *http.Request) {
	debtID := chi.URLParam(r, "debt_id")

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.debts.DeleteDebt(r.Context(), userID, debtID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ErrorNotFound(w, "debt not found")
			return
		}
		log.Printf("[HTTP] deleteDebt error: %v", err)
		ErrorInternal(w, "failed to delete debt")
		return
	}

	Success(w, "Debt deleted", nil)
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	debtID := chi.URLParam(r, "debt_id")

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	ds, err := h.debts.GetDebt(r.Context(), userID, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ErrorNotFound(w, "debt not found")
			return
		}
		log.Printf("[HTTP] getDebt error: %v", err)
		ErrorInternal(w, "failed to load debt")
		return
	}

	installments := make([]installmentResponse, 0, len(ds.Installments))
	for _, v := range ds.Installments {
		installments = append(installments, toInstallmentResponse(v))
	}

	Success(w, "", map[string]interface{}{
		"debt":          toDebtResponse(ds.Debt),
		"installments":  installments,
		"total_penalty": ds.TotalPenalty,
		"total_payable": ds.TotalPayable,
		"overdue_count": ds.OverdueCount,
		"paid_count":    ds.PaidCount,
	})
}

func (h *Handler) listDebts(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	debts, err := h.debts.ListDebts(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] listDebts error: %v", err)
		ErrorInternal(w, "failed to list debts")
		return
	}

	out := make([]debtResponse, 0, len(debts))
	for _, d := range debts {
		out = append(out, toDebtResponse(d))
	}

	Success(w, "", out)
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	summary, err := h.debts.GetSummary(r.Context(), userID)
	if err != nil {
		log.Printf("[HTTP] getSummary error: %v", err)
		ErrorInternal(w, "failed to build summary")
		return
	}

	Success(w, "", summary)
}

type previewRequest struct {
	Principal    float64 `json:"principal"`
	Rate         float64 `json:"rate"`
	Installments int     `json:"installments"`
	RatePeriod   string  `json:"rate_period"`
}

// previewSchedule runs the generator without touching storage, so the debt
// form can show the amortization table before anything is saved.
func (h *Handler) previewSchedule(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	rows, err := h.debts.PreviewSchedule(req.Principal, req.Rate, req.Installments, finance.RatePeriod(req.RatePeriod))
	if err != nil {
		if errors.Is(err, finance.ErrInvalidInput) {
			ErrorBadRequest(w, err.Error())
			return
		}
		log.Printf("[HTTP] previewSchedule error: %v", err)
		ErrorInternal(w, "failed to generate schedule")
		return
	}

	Success(w, "", rows)
}

func (h *Handler) exportSchedule(w http.ResponseWriter, r *http.Request) {
	debtID := chi.URLParam(r, "debt_id")

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.debts.StartScheduleExport(r.Context(), userID, debtID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ErrorNotFound(w, "debt not found")
			return
		}
		log.Printf("[HTTP] exportSchedule error: %v", err)
		ErrorInternal(w, "failed to start export")
		return
	}

	SuccessAccepted(w, "Export queued", map[string]interface{}{"export_id": exportID})
}
