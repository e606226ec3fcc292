package service

import (
	"context"
	"fmt"
	"time"

	"debtio/internal/clients"
	"debtio/internal/domain"
	"debtio/internal/finance"
	"debtio/internal/repository"
)

type InstallmentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Installment, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, method string, receiptKey *string) error
	SetReceipt(ctx context.Context, id string, receiptKey string) error
}

type InstallmentService struct {
	installments InstallmentStore
	debts        DebtRepository
	redis        *clients.RedisClient
	storage      *clients.StorageClient
	now          Clock
}

func NewInstallmentService(
	installments InstallmentStore,
	debts DebtRepository,
	redis *clients.RedisClient,
	storage *clients.StorageClient,
	now Clock,
) *InstallmentService {
	if now == nil {
		now = time.Now
	}
	return &InstallmentService{
		installments: installments,
		debts:        debts,
		redis:        redis,
		storage:      storage,
		now:          now,
	}
}

func (s *InstallmentService) ownedInstallment(ctx context.Context, userID int64, installmentID string) (*domain.Installment, error) {
	it, err := s.installments.GetByID(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	debt, err := s.debts.GetByID(ctx, it.DebtID)
	if err != nil {
		return nil, err
	}
	if debt.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return it, nil
}

// MarkPaid flips the paid flag, stamps the payment moment from the injected
// clock and returns the final assessment as of that moment (the mora that
// applied when the payment was registered).
func (s *InstallmentService) MarkPaid(ctx context.Context, userID int64, installmentID, method string, receiptKey *string) (*InstallmentView, error) {
	it, err := s.ownedInstallment(ctx, userID, installmentID)
	if err != nil {
		return nil, err
	}

	paidAt := s.now()
	// assessed before flipping the flag: this is the amount that settled it
	settled := finance.Assess(it.Amount, it.DueDate, paidAt, false)

	if err := s.installments.MarkPaid(ctx, installmentID, paidAt, method, receiptKey); err != nil {
		return nil, err
	}

	it.Paid = true
	it.PaidAt = &paidAt
	it.PaymentMethod = &method
	if receiptKey != nil {
		it.ReceiptKey = receiptKey
	}

	if s.redis != nil {
		s.invalidate(ctx, userID)
	}

	view := &InstallmentView{Installment: *it, Assessment: settled}
	view.Assessment.State = finance.StatePaid
	return view, nil
}

// AttachReceipt stores an uploaded receipt file and links it to the
// installment.
func (s *InstallmentService) AttachReceipt(ctx context.Context, userID int64, installmentID, fileName string, data []byte) (string, error) {
	if _, err := s.ownedInstallment(ctx, userID, installmentID); err != nil {
		return "", err
	}
	if s.storage == nil {
		return "", repository.ErrNotFound
	}

	saved, err := s.storage.Save(ctx, fileName, data)
	if err != nil {
		return "", err
	}

	if err := s.installments.SetReceipt(ctx, installmentID, saved); err != nil {
		return "", err
	}

	return s.storage.GetURL(saved), nil
}

func (s *InstallmentService) invalidate(ctx context.Context, userID int64) {
	today := s.now().Format("2006-01-02")
	_ = s.redis.Del(ctx,
		fmt.Sprintf("debts_user_%d", userID),
		fmt.Sprintf("summary_user_%d_%s", userID, today),
	)
}
