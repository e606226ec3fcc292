package domain

import "time"

// Installment is one scheduled payment of a debt. The whole batch is deleted
// and regenerated whenever the debt's financial terms change; rows are never
// patched individually.
type Installment struct {
	ID       string
	DebtID   string
	Sequence int

	DueDate  time.Time
	Amount   float64
	Capital  float64
	Interest float64

	Paid          bool
	PaidAt        *time.Time
	PaymentMethod *string
	ReceiptKey    *string

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// DueInstallment is an installment joined with the debt fields the reminder
// scanner needs to address its owner.
type DueInstallment struct {
	Installment

	DebtTitle string
	UserID    int64
}
