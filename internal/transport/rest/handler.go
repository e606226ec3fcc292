package rest

import (
	"context"
	"net/http"
	"time"

	"debtio/internal/domain"
	"debtio/internal/finance"
	"debtio/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type DebtManager interface {
	CreateDebt(ctx context.Context, userID int64, in service.DebtInput) (*domain.Debt, error)
	UpdateDebt(ctx context.Context, userID int64, debtID string, in service.DebtInput) (*domain.Debt, error)
	DeleteDebt(ctx context.Context, userID int64, debtID string) error
	GetDebt(ctx context.Context, userID int64, debtID string) (*service.DebtWithSchedule, error)
	ListDebts(ctx context.Context, userID int64) ([]domain.Debt, error)
	GetSummary(ctx context.Context, userID int64) (*service.UserSummary, error)
	PreviewSchedule(principal, rate float64, installments int, period finance.RatePeriod) ([]finance.AmortizationRow, error)
	StartScheduleExport(ctx context.Context, userID int64, debtID string) (string, error)
}

type InstallmentManager interface {
	MarkPaid(ctx context.Context, userID int64, installmentID, method string, receiptKey *string) (*service.InstallmentView, error)
	AttachReceipt(ctx context.Context, userID int64, installmentID, fileName string, data []byte) (string, error)
}

type ExportLister interface {
	GetExports(ctx context.Context, userID int64) ([]service.ExportStatus, error)
	GetExport(ctx context.Context, exportID string, userID int64) (*service.ExportStatus, error)
}

type Handler struct {
	debts        DebtManager
	installments InstallmentManager
	exports      ExportLister
}

func NewHandler(debts DebtManager, installments InstallmentManager, exports ExportLister) *Handler {
	return &Handler{
		debts:        debts,
		installments: installments,
		exports:      exports,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Route("/debts", func(r chi.Router) {
		r.Get("/", h.listDebts)
		r.Post("/", h.createDebt)
		r.Post("/preview", h.previewSchedule)
		r.Get("/summary", h.getSummary)
		r.Get("/{debt_id}", h.getDebt)
		r.Put("/{debt_id}", h.updateDebt)
		r.Delete("/{debt_id}", h.deleteDebt)
		r.Post("/{debt_id}/export", h.exportSchedule)
	})

	r.Route("/installments", func(r chi.Router) {
		r.Post("/{installment_id}/pay", h.payInstallment)
		r.Post("/{installment_id}/receipt", h.uploadReceipt)
	})

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
	})

	return r
}
