package finance

import (
	"errors"
	"fmt"
	"math"
)

// RatePeriod says how a debt's nominal rate is applied over time.
type RatePeriod string

const (
	// RateOneTime charges rate% of the principal once, spread over all installments.
	RateOneTime RatePeriod = "one_time"
	// RateMonthly compounds rate% per month (annuity schedule).
	RateMonthly RatePeriod = "monthly"
	// RateAnnual compounds rate% per year, converted to an effective monthly rate.
	RateAnnual RatePeriod = "annual"
)

var ErrInvalidInput = errors.New("invalid input")

// ValidRatePeriod reports whether p is one of the supported periods.
func ValidRatePeriod(p RatePeriod) bool {
	switch p {
	case RateOneTime, RateMonthly, RateAnnual:
		return true
	}
	return false
}

// AmortizationRow is one installment of a generated schedule: how much of
// the fixed cuota goes to capital, how much to interest, and the outstanding
// balance once the row is paid.
type AmortizationRow struct {
	Sequence int     `json:"sequence"`
	Capital  float64 `json:"capital"`
	Interest float64 `json:"interest"`
	Cuota    float64 `json:"cuota"`
	Balance  float64 `json:"balance"`
}

// Round2 rounds a monetary value to cents, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GenerateSchedule splits a debt into n installment rows. The sum of the
// capital components equals principal exactly and the last row closes the
// balance to zero: intermediate values are rounded to cents at every step
// and the final row's capital is overridden with whatever remains, so
// floating-point drift never exceeds the last-row correction.
//
// The result depends only on the arguments; calling it twice with the same
// inputs yields identical rows.
func GenerateSchedule(principal, rate float64, installments int, period RatePeriod) ([]AmortizationRow, error) {
	if principal <= 0 {
		return nil, fmt.Errorf("%w: principal must be positive, got %v", ErrInvalidInput, principal)
	}
	if installments <= 0 {
		return nil, fmt.Errorf("%w: installments must be positive, got %d", ErrInvalidInput, installments)
	}
	if rate < 0 {
		return nil, fmt.Errorf("%w: rate must not be negative, got %v", ErrInvalidInput, rate)
	}
	if !ValidRatePeriod(period) {
		return nil, fmt.Errorf("%w: unknown rate period %q", ErrInvalidInput, period)
	}

	if rate == 0 {
		return zeroRateSchedule(principal, installments), nil
	}

	if period == RateOneTime {
		return oneTimeSchedule(principal, rate, installments), nil
	}

	r := rate / 100
	if period == RateAnnual {
		// effective monthly rate equivalent to the annual one
		r = math.Pow(1+rate/100, 1.0/12) - 1
	}
	return annuitySchedule(principal, r, installments), nil
}

func zeroRateSchedule(principal float64, n int) []AmortizationRow {
	// capital stays unrounded so the components sum back to the principal;
	// only the cuota shown to the user is rounded
	capital := principal / float64(n)
	cuota := Round2(capital)

	rows := make([]AmortizationRow, 0, n)
	balance := principal
	for i := 1; i <= n; i++ {
		if i == n {
			balance = 0
		} else {
			balance -= capital
		}
		rows = append(rows, AmortizationRow{
			Sequence: i,
			Capital:  capital,
			Interest: 0,
			Cuota:    cuota,
			Balance:  Round2(balance),
		})
	}
	return rows
}

func oneTimeSchedule(principal, rate float64, n int) []AmortizationRow {
	totalInterest := principal * rate / 100
	cuota := Round2((principal + totalInterest) / float64(n))
	baseCapital := Round2(principal / float64(n))

	rows := make([]AmortizationRow, 0, n)
	balance := principal
	capitalSum := 0.0
	for i := 1; i <= n; i++ {
		capital := baseCapital
		if i == n {
			capital = Round2(principal - capitalSum)
			balance = 0
		} else {
			balance = Round2(balance - capital)
		}
		interest := Round2(cuota - capital)
		capitalSum = Round2(capitalSum + capital)

		rows = append(rows, AmortizationRow{
			Sequence: i,
			Capital:  capital,
			Interest: interest,
			Cuota:    cuota,
			Balance:  balance,
		})
	}
	return rows
}

func annuitySchedule(principal, r float64, n int) []AmortizationRow {
	pow := math.Pow(1+r, float64(n))
	// standard equal-installment formula; rounded once and reused for every row
	cuota := Round2(principal * r * pow / (pow - 1))

	rows := make([]AmortizationRow, 0, n)
	balance := principal
	capitalSum := 0.0
	for i := 1; i <= n; i++ {
		interest := Round2(balance * r)
		capital := Round2(cuota - interest)
		if i == n {
			// force exact closure: whatever capital remains goes into the
			// last row, and its interest is recomputed so capital+interest
			// still reconstructs the cuota
			capital = Round2(principal - capitalSum)
			interest = Round2(cuota - capital)
			balance = 0
		} else {
			balance = Round2(balance - capital)
		}
		capitalSum = Round2(capitalSum + capital)

		rows = append(rows, AmortizationRow{
			Sequence: i,
			Capital:  capital,
			Interest: interest,
			Cuota:    cuota,
			Balance:  balance,
		})
	}
	return rows
}

// ScheduleTotals sums a schedule into the figures persisted on the debt:
// total amount payable, total interest and the fixed cuota.
func ScheduleTotals(rows []AmortizationRow) (totalAmount, totalInterest, cuota float64) {
	for _, row := range rows {
		totalAmount = Round2(totalAmount + row.Capital + row.Interest)
		totalInterest = Round2(totalInterest + row.Interest)
	}
	if len(rows) > 0 {
		cuota = rows[0].Cuota
	}
	return totalAmount, totalInterest, cuota
}
