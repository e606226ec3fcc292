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

type mockDebtRepo struct {
	debts map[string]domain.Debt
}

func newMockDebtRepo() *mockDebtRepo {
	return &mockDebtRepo{debts: make(map[string]domain.Debt)}
}

func (m *mockDebtRepo) Create(ctx context.Context, d *domain.Debt) error {
	m.debts[d.ID] = *d
	return nil
}

func (m *mockDebtRepo) Update(ctx context.Context, d *domain.Debt) error {
	if _, ok := m.debts[d.ID]; !ok {
		return repository.ErrNotFound
	}
	m.debts[d.ID] = *d
	return nil
}

func (m *mockDebtRepo) GetByID(ctx context.Context, id string) (*domain.Debt, error) {
	d, ok := m.debts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *mockDebtRepo) List(ctx context.Context, f repository.DebtsFilter) ([]domain.Debt, error) {
	var out []domain.Debt
	for _, d := range m.debts {
		if f.UserID != nil && d.UserID != *f.UserID {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *mockDebtRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.debts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.debts, id)
	return nil
}

type mockInstallmentRepo struct {
	byDebt       map[string][]domain.Installment
	replaceCalls int
}

func newMockInstallmentRepo() *mockInstallmentRepo {
	return &mockInstallmentRepo{byDebt: make(map[string][]domain.Installment)}
}

func (m *mockInstallmentRepo) ListByDebt(ctx context.Context, debtID string) ([]domain.Installment, error) {
	return m.byDebt[debtID], nil
}

func (m *mockInstallmentRepo) ReplaceForDebt(ctx context.Context, debtID string, items []domain.Installment) error {
	m.replaceCalls++
	m.byDebt[debtID] = items
	return nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newTestDebtService(debts *mockDebtRepo, installments *mockInstallmentRepo, today time.Time) *DebtService {
	return NewDebtService(debts, installments, nil, nil, nil, nil, fixedClock(today))
}

func TestCreateDebt_GeneratesInstallmentBatch(t *testing.T) {
	debtRepo := newMockDebtRepo()
	instRepo := newMockInstallmentRepo()
	today := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	svc := newTestDebtService(debtRepo, instRepo, today)

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	debt, err := svc.CreateDebt(context.Background(), 1, DebtInput{
		Title:        "Car loan",
		Principal:    1000,
		Rate:         9.8,
		RatePeriod:   finance.RateAnnual,
		Installments: 12,
		StartDate:    start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if debt.Cuota <= 0 {
		t.Error("expected positive cuota")
	}
	if debt.TotalAmount <= debt.Principal {
		t.Errorf("expected total %v above principal %v", debt.TotalAmount, debt.Principal)
	}

	items := instRepo.byDebt[debt.ID]
	if len(items) != 12 {
		t.Fatalf("expected 12 installments, got %d", len(items))
	}
	for i, it := range items {
		if it.Sequence != i+1 {
			t.Errorf("installment %d has sequence %d", i, it.Sequence)
		}
		if it.Amount != debt.Cuota {
			t.Errorf("installment %d: amount %.2f != cuota %.2f", i+1, it.Amount, debt.Cuota)
		}
		wantDue := start.AddDate(0, i+1, 0)
		if !it.DueDate.Equal(wantDue) {
			t.Errorf("installment %d: due %v, want %v", i+1, it.DueDate, wantDue)
		}
		if it.Paid {
			t.Errorf("installment %d created as paid", i+1)
		}
	}
}

func TestCreateDebt_RejectsInvalidTerms(t *testing.T) {
	svc := newTestDebtService(newMockDebtRepo(), newMockInstallmentRepo(), time.Now())

	_, err := svc.CreateDebt(context.Background(), 1, DebtInput{
		Title:        "Bad",
		Principal:    -5,
		Rate:         1,
		RatePeriod:   finance.RateMonthly,
		Installments: 3,
		StartDate:    time.Now(),
	})
	if !errors.Is(err, finance.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateDebt_RegeneratesWholeBatch(t *testing.T) {
	debtRepo := newMockDebtRepo()
	instRepo := newMockInstallmentRepo()
	today := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestDebtService(debtRepo, instRepo, today)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	debt, err := svc.CreateDebt(context.Background(), 7, DebtInput{
		Title:        "Fridge",
		Principal:    600,
		Rate:         0,
		RatePeriod:   finance.RateOneTime,
		Installments: 6,
		StartDate:    start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// mark one paid, then edit terms: the paid flag must not survive
	items := instRepo.byDebt[debt.ID]
	items[0].Paid = true
	instRepo.byDebt[debt.ID] = items

	updated, err := svc.UpdateDebt(context.Background(), 7, debt.ID, DebtInput{
		Title:        "Fridge",
		Principal:    600,
		Rate:         0,
		RatePeriod:   finance.RateOneTime,
		Installments: 3,
		StartDate:    start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Installments != 3 {
		t.Errorf("expected 3 installments on debt, got %d", updated.Installments)
	}
	fresh := instRepo.byDebt[debt.ID]
	if len(fresh) != 3 {
		t.Fatalf("expected regenerated batch of 3, got %d", len(fresh))
	}
	for _, it := range fresh {
		if it.Paid {
			t.Error("regenerated installment kept paid flag")
		}
	}
	if instRepo.replaceCalls != 2 {
		t.Errorf("expected 2 batch replacements, got %d", instRepo.replaceCalls)
	}
}

func TestUpdateDebt_OtherUsersDebtHidden(t *testing.T) {
	debtRepo := newMockDebtRepo()
	instRepo := newMockInstallmentRepo()
	svc := newTestDebtService(debtRepo, instRepo, time.Now())

	debt, err := svc.CreateDebt(context.Background(), 1, DebtInput{
		Title:        "Mine",
		Principal:    100,
		Rate:         0,
		RatePeriod:   finance.RateOneTime,
		Installments: 2,
		StartDate:    time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.UpdateDebt(context.Background(), 2, debt.ID, DebtInput{
		Title:        "Stolen",
		Principal:    100,
		Rate:         0,
		RatePeriod:   finance.RateOneTime,
		Installments: 2,
		StartDate:    time.Now(),
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign debt, got %v", err)
	}
}

func TestGetDebt_AssessesAgainstInjectedClock(t *testing.T) {
	debtRepo := newMockDebtRepo()
	instRepo := newMockInstallmentRepo()

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	creating := newTestDebtService(debtRepo, instRepo, start)
	debt, err := creating.CreateDebt(context.Background(), 1, DebtInput{
		Title:        "Phone",
		Principal:    300,
		Rate:         0,
		RatePeriod:   finance.RateOneTime,
		Installments: 3,
		StartDate:    start,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// first installment due 2025-02-15; read on 2025-04-20: two whole months
	// overdue, mora = 100 * 1% * 2
	today := time.Date(2025, 4, 20, 10, 30, 0, 0, time.UTC)
	reading := newTestDebtService(debtRepo, instRepo, today)

	ds, err := reading.GetDebt(context.Background(), 1, debt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Installments) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(ds.Installments))
	}

	first := ds.Installments[0]
	if first.Assessment.State != finance.StateOverdue {
		t.Errorf("expected first installment overdue, got %q", first.Assessment.State)
	}
	if first.Assessment.OverdueMonths != 2 {
		t.Errorf("expected 2 overdue months, got %d", first.Assessment.OverdueMonths)
	}
	if first.Assessment.Penalty != 2 {
		t.Errorf("expected penalty 2.00, got %.2f", first.Assessment.Penalty)
	}
	if ds.OverdueCount != 3 {
		t.Errorf("expected 3 overdue installments, got %d", ds.OverdueCount)
	}

	// same day, same answer: assessments are pure in (dueDate, today)
	again, err := reading.GetDebt(context.Background(), 1, debt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.TotalPenalty != ds.TotalPenalty {
		t.Errorf("penalty changed between identical reads: %.2f vs %.2f", again.TotalPenalty, ds.TotalPenalty)
	}
}
