package domain

import (
	"time"

	"debtio/internal/finance"
)

// Debt is a registered loan or installment purchase. The computed fields
// (TotalAmount, TotalInterest, Cuota) are derived from the financial terms
// at creation/edit time and persisted alongside them.
type Debt struct {
	ID     string
	UserID int64

	Title       string
	Description *string

	Principal    float64
	Rate         float64
	RatePeriod   finance.RatePeriod
	Installments int
	StartDate    time.Time

	TotalAmount   float64
	TotalInterest float64
	Cuota         float64

	CreatedAt *time.Time
	UpdatedAt *time.Time
}
