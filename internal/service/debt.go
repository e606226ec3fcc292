package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"debtio/internal/clients"
	"debtio/internal/domain"
	"debtio/internal/finance"
	"debtio/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

type DebtRepository interface {
	Create(ctx context.Context, d *domain.Debt) error
	Update(ctx context.Context, d *domain.Debt) error
	GetByID(ctx context.Context, id string) (*domain.Debt, error)
	List(ctx context.Context, f repository.DebtsFilter) ([]domain.Debt, error)
	Delete(ctx context.Context, id string) error
}

type InstallmentRepository interface {
	ListByDebt(ctx context.Context, debtID string) ([]domain.Installment, error)
	ReplaceForDebt(ctx context.Context, debtID string, items []domain.Installment) error
}

// Clock supplies "today" to every date-dependent computation; injected so
// penalties stay testable and the engine never reads an ambient global.
type Clock func() time.Time

// DebtInput carries the financial terms of a debt as entered by the user.
type DebtInput struct {
	Title        string
	Description  *string
	Principal    float64
	Rate         float64
	RatePeriod   finance.RatePeriod
	Installments int
	StartDate    time.Time
}

// InstallmentView is a persisted installment paired with its live assessment.
type InstallmentView struct {
	domain.Installment
	Assessment finance.Assessment
}

// DebtWithSchedule is the full read model: the debt, its installment rows and
// the mora accrued as of today. Penalties are recomputed on every call and
// never stored.
type DebtWithSchedule struct {
	Debt         domain.Debt
	Installments []InstallmentView

	TotalPenalty float64
	TotalPayable float64
	OverdueCount int
	PaidCount    int
}

const (
	debtsCacheTTL   = 5 * time.Minute
	summaryCacheTTL = 15 * time.Minute
)

type DebtService struct {
	debts        DebtRepository
	installments InstallmentRepository
	redis        *clients.RedisClient
	storage      *clients.StorageClient
	s3           *clients.S3Client
	ws           *clients.WebSocketClient
	now          Clock
}

func NewDebtService(
	debts DebtRepository,
	installments InstallmentRepository,
	redis *clients.RedisClient,
	storage *clients.StorageClient,
	s3 *clients.S3Client,
	ws *clients.WebSocketClient,
	now Clock,
) *DebtService {
	if now == nil {
		now = time.Now
	}
	return &DebtService{
		debts:        debts,
		installments: installments,
		redis:        redis,
		storage:      storage,
		s3:           s3,
		ws:           ws,
		now:          now,
	}
}

// CreateDebt validates the terms, generates the amortization schedule and
// persists the debt together with its installment batch.
func (s *DebtService) CreateDebt(ctx context.Context, userID int64, in DebtInput) (*domain.Debt, error) {
	rows, err := finance.GenerateSchedule(in.Principal, in.Rate, in.Installments, in.RatePeriod)
	if err != nil {
		return nil, err
	}

	totalAmount, totalInterest, cuota := finance.ScheduleTotals(rows)

	debt := &domain.Debt{
		ID:            uuid.NewString(),
		UserID:        userID,
		Title:         in.Title,
		Description:   in.Description,
		Principal:     in.Principal,
		Rate:          in.Rate,
		RatePeriod:    in.RatePeriod,
		Installments:  in.Installments,
		StartDate:     in.StartDate,
		TotalAmount:   totalAmount,
		TotalInterest: totalInterest,
		Cuota:         cuota,
	}

	if err := s.debts.Create(ctx, debt); err != nil {
		return nil, err
	}

	if err := s.installments.ReplaceForDebt(ctx, debt.ID, buildInstallments(debt, rows)); err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, userID)

	return debt, nil
}

// UpdateDebt applies new financial terms. The whole installment batch is
// deleted and regenerated; there is no incremental schedule patching, so any
// paid flags on the old batch are discarded along with it.
func (s *DebtService) UpdateDebt(ctx context.Context, userID int64, debtID string, in DebtInput) (*domain.Debt, error) {
	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if debt.UserID != userID {
		return nil, repository.ErrNotFound
	}

	rows, err := finance.GenerateSchedule(in.Principal, in.Rate, in.Installments, in.RatePeriod)
	if err != nil {
		return nil, err
	}

	totalAmount, totalInterest, cuota := finance.ScheduleTotals(rows)

	debt.Title = in.Title
	debt.Description = in.Description
	debt.Principal = in.Principal
	debt.Rate = in.Rate
	debt.RatePeriod = in.RatePeriod
	debt.Installments = in.Installments
	debt.StartDate = in.StartDate
	debt.TotalAmount = totalAmount
	debt.TotalInterest = totalInterest
	debt.Cuota = cuota

	if err := s.debts.Update(ctx, debt); err != nil {
		return nil, err
	}

	if err := s.installments.ReplaceForDebt(ctx, debt.ID, buildInstallments(debt, rows)); err != nil {
		return nil, err
	}

	s.invalidateUserCache(ctx, userID)

	return debt, nil
}

func (s *DebtService) DeleteDebt(ctx context.Context, userID int64, debtID string) error {
	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return err
	}
	if debt.UserID != userID {
		return repository.ErrNotFound
	}

	if err := s.debts.Delete(ctx, debtID); err != nil {
		return err
	}

	s.invalidateUserCache(ctx, userID)
	return nil
}

// GetDebt loads a debt with its schedule and assesses every installment
// against the injected clock.
func (s *DebtService) GetDebt(ctx context.Context, userID int64, debtID string) (*DebtWithSchedule, error) {
	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if debt.UserID != userID {
		return nil, repository.ErrNotFound
	}

	items, err := s.installments.ListByDebt(ctx, debtID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	out := &DebtWithSchedule{Debt: *debt}

	for _, it := range items {
		a := finance.Assess(it.Amount, it.DueDate, today, it.Paid)

		// aggregate with per-step rounding so totals don't drift
		out.TotalPenalty = finance.Round2(out.TotalPenalty + a.Penalty)
		if !it.Paid {
			out.TotalPayable = finance.Round2(out.TotalPayable + a.Payable)
		}
		switch a.State {
		case finance.StateOverdue:
			out.OverdueCount++
		case finance.StatePaid:
			out.PaidCount++
		}

		out.Installments = append(out.Installments, InstallmentView{Installment: it, Assessment: a})
	}

	return out, nil
}

func (s *DebtService) ListDebts(ctx context.Context, userID int64) ([]domain.Debt, error) {
	cacheKey := fmt.Sprintf("debts_user_%d", userID)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey); err == nil && raw != "" {
			var cached []domain.Debt
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	uid := userID
	debts, err := s.debts.List(ctx, repository.DebtsFilter{UserID: &uid})
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(debts); err == nil {
			_ = s.redis.Set(ctx, cacheKey, string(data), debtsCacheTTL)
		}
	}

	return debts, nil
}

// PreviewSchedule runs the generator without persisting anything, for the
// debt form's live preview.
func (s *DebtService) PreviewSchedule(principal, rate float64, installments int, period finance.RatePeriod) ([]finance.AmortizationRow, error) {
	return finance.GenerateSchedule(principal, rate, installments, period)
}

func (s *DebtService) invalidateUserCache(ctx context.Context, userID int64) {
	if s.redis == nil {
		return
	}
	today := s.now().Format("2006-01-02")
	_ = s.redis.Del(ctx,
		fmt.Sprintf("debts_user_%d", userID),
		fmt.Sprintf("summary_user_%d_%s", userID, today),
	)
}

// buildInstallments turns generated rows into persistable installments; due
// dates fall monthly, the first one a month after the start date.
func buildInstallments(debt *domain.Debt, rows []finance.AmortizationRow) []domain.Installment {
	items := make([]domain.Installment, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.Installment{
			ID:       uuid.NewString(),
			DebtID:   debt.ID,
			Sequence: row.Sequence,
			DueDate:  debt.StartDate.AddDate(0, row.Sequence, 0),
			Amount:   row.Cuota,
			Capital:  row.Capital,
			Interest: row.Interest,
		})
	}
	return items
}

type ExportStatus struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	DebtID   string    `json:"debt_id"`
	Progress float64   `json:"progress"`
	FileURL  *string   `json:"file_url"`
	Created  time.Time `json:"created_at"`
}

const (
	exportSetKey = "export_ids"
	exportTTL    = 20 * time.Minute
)

func (s *DebtService) saveExportStatus(ctx context.Context, st *ExportStatus) error {
	if s.redis == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, st.Key, string(data), exportTTL); err != nil {
		return err
	}

	return s.redis.SAdd(ctx, exportSetKey, st.Key)
}

// StartScheduleExport renders a debt's schedule (with live penalties) to an
// xlsx file in the background and reports progress over the websocket hub.
func (s *DebtService) StartScheduleExport(ctx context.Context, userID int64, debtID string) (string, error) {
	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return "", err
	}
	if debt.UserID != userID {
		return "", repository.ErrNotFound
	}

	exportID := fmt.Sprintf("exports:%s", uuid.NewString())

	status := &ExportStatus{
		Key:      exportID,
		Type:     "schedule",
		UserID:   userID,
		DebtID:   debtID,
		Progress: 0,
		FileURL:  nil,
		Created:  s.now(),
	}
	_ = s.saveExportStatus(ctx, status)

	go s.runScheduleExport(context.Background(), status, debt)

	return exportID, nil
}

func (s *DebtService) runScheduleExport(ctx context.Context, status *ExportStatus, debt *domain.Debt) {
	items, err := s.installments.ListByDebt(ctx, debt.ID)
	if err != nil {
		log.Printf("[EXPORT] list installments for %s: %v", debt.ID, err)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, "failed to load schedule")
		}
		return
	}

	today := s.now()

	f := excelize.NewFile()
	sheet := "Schedule"
	f.SetSheetName(f.GetSheetName(0), sheet)

	_ = f.SetDocProps(&excelize.DocProperties{
		Creator: fmt.Sprintf("user_%d", status.UserID),
	})

	headers := []string{"#", "Due date", "Cuota", "Capital", "Interest", "Balance", "State", "Penalty", "Payable"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	balance := debt.Principal
	total := len(items)
	for idx, it := range items {
		a := finance.Assess(it.Amount, it.DueDate, today, it.Paid)
		if it.Sequence == total {
			balance = 0
		} else {
			balance = finance.Round2(balance - it.Capital)
		}

		values := []any{
			it.Sequence,
			it.DueDate.Format("2006-01-02"),
			it.Amount,
			it.Capital,
			it.Interest,
			balance,
			string(a.State),
			a.Penalty,
			a.Payable,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, idx+2)
			_ = f.SetCellValue(sheet, cell, v)
		}

		if total > 0 {
			raw := float64(idx+1) / float64(total) * 100.0
			progress := math.Round(raw)
			// reserve 100% for when the file URL is ready
			if progress >= 100 {
				progress = 95
			}
			status.Progress = progress
			_ = s.saveExportStatus(ctx, status)
			if s.ws != nil {
				_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, progress, "generating")
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		log.Printf("[EXPORT] write xlsx for %s: %v", debt.ID, err)
		if s.ws != nil {
			_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, "failed to render file")
		}
		return
	}
	data := buf.Bytes()

	fileName := fmt.Sprintf("schedule_%s_%s.xlsx", debt.ID, s.now().Format("20060102_150405"))

	var url string
	if s.s3 != nil {
		key, err := s.s3.UploadXLSX(ctx, fileName, data)
		if err == nil {
			url, err = s.s3.GetTemporaryURL(ctx, key, 48*time.Hour)
			if err != nil {
				url = ""
			}
		}
	}
	if url == "" && s.storage != nil {
		saved, err := s.storage.Save(ctx, fileName, data)
		if err != nil {
			log.Printf("[EXPORT] save file for %s: %v", debt.ID, err)
			if s.ws != nil {
				_ = s.ws.NotifyExportFailed(ctx, status.UserID, status.Key, "failed to store file")
			}
			return
		}
		url = s.storage.GetURL(saved)
	}

	status.FileURL = &url
	status.Progress = 100
	_ = s.saveExportStatus(ctx, status)

	if s.ws != nil {
		_ = s.ws.NotifyExportProgress(ctx, status.UserID, status.Key, 100, "ready")
		_ = s.ws.NotifyExportComplete(ctx, status.UserID, status.Key, url, fileName)
	}
}
