package rest

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"debtio/internal/repository"
	"debtio/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) payInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "installment_id")

	req, err := ValidatePayRequest(r)
	if err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	view, err := h.installments.MarkPaid(r.Context(), userID, installmentID, req.PaymentMethod, req.ReceiptKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ErrorNotFound(w, "installment not found")
			return
		}
		log.Printf("[HTTP] payInstallment error: %v", err)
		ErrorInternal(w, "failed to register payment")
		return
	}

	Success(w, "Payment registered", toInstallmentResponse(*view))
}

func (h *Handler) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	installmentID := chi.URLParam(r, "installment_id")

	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10 MB
		ErrorBadRequest(w, "invalid form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorBadRequest(w, "file required")
		return
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(file); err != nil {
		ErrorInternal(w, "failed to read file")
		return
	}

	url, err := h.installments.AttachReceipt(r.Context(), userID, installmentID, header.Filename, buf.Bytes())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			ErrorNotFound(w, "installment not found")
			return
		}
		log.Printf("[HTTP] uploadReceipt error: %v", err)
		ErrorInternal(w, "failed to store receipt")
		return
	}

	SuccessCreated(w, "Receipt stored", map[string]interface{}{"url": url})
}
