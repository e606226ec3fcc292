package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"debtio/internal/domain"
	"debtio/internal/finance"
	"debtio/internal/repository"
)

type mockInstallmentStore struct {
	items map[string]domain.Installment

	markPaidCalls int
	lastPaidAt    time.Time
	lastMethod    string
}

func newMockInstallmentStore() *mockInstallmentStore {
	return &mockInstallmentStore{items: make(map[string]domain.Installment)}
}

func (m *mockInstallmentStore) GetByID(ctx context.Context, id string) (*domain.Installment, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

func (m *mockInstallmentStore) MarkPaid(ctx context.Context, id string, paidAt time.Time, method string, receiptKey *string) error {
	it, ok := m.items[id]
	if !ok || it.Paid {
		return repository.ErrNotFound
	}
	it.Paid = true
	it.PaidAt = &paidAt
	it.PaymentMethod = &method
	if receiptKey != nil {
		it.ReceiptKey = receiptKey
	}
	m.items[id] = it

	m.markPaidCalls++
	m.lastPaidAt = paidAt
	m.lastMethod = method
	return nil
}

func (m *mockInstallmentStore) SetReceipt(ctx context.Context, id string, receiptKey string) error {
	it, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	it.ReceiptKey = &receiptKey
	m.items[id] = it
	return nil
}

func TestMarkPaid_SettlesWithAccruedPenalty(t *testing.T) {
	debtRepo := newMockDebtRepo()
	debtRepo.debts["d1"] = domain.Debt{ID: "d1", UserID: 1, Title: "Sofa"}

	store := newMockInstallmentStore()
	store.items["i1"] = domain.Installment{
		ID:       "i1",
		DebtID:   "d1",
		Sequence: 1,
		DueDate:  time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:   250,
	}

	// payment registered two whole months late: mora = 250 * 1% * 2 = 5.00
	paidAt := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	svc := NewInstallmentService(store, debtRepo, nil, nil, fixedClock(paidAt))

	view, err := svc.MarkPaid(context.Background(), 1, "i1", "transfer", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !view.Paid {
		t.Error("expected installment marked paid")
	}
	if view.PaidAt == nil || !view.PaidAt.Equal(paidAt) {
		t.Errorf("expected paid_at %v, got %v", paidAt, view.PaidAt)
	}
	if view.Assessment.Penalty != 5 {
		t.Errorf("expected settled penalty 5.00, got %.2f", view.Assessment.Penalty)
	}
	if view.Assessment.Payable != 255 {
		t.Errorf("expected settled payable 255.00, got %.2f", view.Assessment.Payable)
	}
	if view.Assessment.State != finance.StatePaid {
		t.Errorf("expected state %q, got %q", finance.StatePaid, view.Assessment.State)
	}

	if store.markPaidCalls != 1 {
		t.Errorf("expected 1 MarkPaid call, got %d", store.markPaidCalls)
	}
	if store.lastMethod != "transfer" {
		t.Errorf("expected method transfer, got %q", store.lastMethod)
	}
}

func TestMarkPaid_OnTimeAccruesNothing(t *testing.T) {
	debtRepo := newMockDebtRepo()
	debtRepo.debts["d1"] = domain.Debt{ID: "d1", UserID: 1, Title: "Sofa"}

	store := newMockInstallmentStore()
	store.items["i1"] = domain.Installment{
		ID:      "i1",
		DebtID:  "d1",
		DueDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:  250,
	}

	paidAt := time.Date(2025, 1, 15, 16, 0, 0, 0, time.UTC)
	svc := NewInstallmentService(store, debtRepo, nil, nil, fixedClock(paidAt))

	view, err := svc.MarkPaid(context.Background(), 1, "i1", "manual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Assessment.Penalty != 0 {
		t.Errorf("expected zero penalty on due date, got %.2f", view.Assessment.Penalty)
	}
	if view.Assessment.Payable != 250 {
		t.Errorf("expected payable 250.00, got %.2f", view.Assessment.Payable)
	}
}

func TestMarkPaid_ForeignInstallmentHidden(t *testing.T) {
	debtRepo := newMockDebtRepo()
	debtRepo.debts["d1"] = domain.Debt{ID: "d1", UserID: 1}

	store := newMockInstallmentStore()
	store.items["i1"] = domain.Installment{ID: "i1", DebtID: "d1", Amount: 100, DueDate: time.Now()}

	svc := NewInstallmentService(store, debtRepo, nil, nil, nil)

	_, err := svc.MarkPaid(context.Background(), 99, "i1", "manual", nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign installment, got %v", err)
	}
	if store.markPaidCalls != 0 {
		t.Error("MarkPaid must not reach the store for a foreign installment")
	}
}
