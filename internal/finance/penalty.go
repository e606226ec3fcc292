package finance

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrDateParse = errors.New("invalid date")

// MonthlyPenaltyRate is the system-wide mora surcharge applied per whole
// overdue calendar month: 1% of the scheduled amount.
const MonthlyPenaltyRate = 0.01

// UpcomingWindowDays is how many days before the due date an installment
// counts as upcoming.
const UpcomingWindowDays = 7

// InstallmentState classifies an installment relative to today. Paid wins
// over every date-based state.
type InstallmentState string

const (
	StateFuture   InstallmentState = "future"
	StateUpcoming InstallmentState = "upcoming"
	StateDueToday InstallmentState = "due_today"
	StateOverdue  InstallmentState = "overdue"
	StatePaid     InstallmentState = "paid"
)

// Assessment is the live view of one installment: lateness, accrued mora
// and the amount actually payable. It is recomputed on every read and never
// persisted.
type Assessment struct {
	DaysUntilDue  int              `json:"days_until_due"`
	OverdueMonths int              `json:"overdue_months"`
	Penalty       float64          `json:"penalty"`
	Payable       float64          `json:"payable"`
	State         InstallmentState `json:"state"`
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrDateParse, s)
	}
	return t, nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysUntilDue returns the signed number of calendar days between today and
// the due date, both normalized to midnight. Zero means due today, negative
// means overdue by that many days. Ceiling keeps the count stable across
// DST transitions.
func DaysUntilDue(due, today time.Time) int {
	diff := midnight(due).Sub(midnight(today))
	return int(math.Ceil(diff.Hours() / 24))
}

// OverdueMonths counts the whole calendar months elapsed past the due date.
// The current partial month does not count until the due day-of-month comes
// around again. Returns 0 whenever today is on or before the due date; no
// mora accrues until a full month has elapsed.
func OverdueMonths(due, today time.Time) int {
	due, today = midnight(due), midnight(today)
	if !today.After(due) {
		return 0
	}
	months := (today.Year()-due.Year())*12 + int(today.Month()) - int(due.Month())
	if today.Day() < due.Day() {
		months--
	}
	if months < 0 {
		months = 0
	}
	return months
}

// Penalty returns the mora accrued on one installment after the given number
// of whole overdue months.
func Penalty(scheduled float64, overdueMonths int) float64 {
	if overdueMonths <= 0 {
		return 0
	}
	return Round2(scheduled * MonthlyPenaltyRate * float64(overdueMonths))
}

// Payable is the amount that settles the installment today.
func Payable(scheduled, penalty float64) float64 {
	return Round2(scheduled + penalty)
}

// Assess computes the full live view of an installment. A paid installment
// accrues no mora regardless of its due date.
func Assess(scheduled float64, due, today time.Time, paid bool) Assessment {
	days := DaysUntilDue(due, today)

	if paid {
		return Assessment{
			DaysUntilDue:  days,
			OverdueMonths: 0,
			Penalty:       0,
			Payable:       Round2(scheduled),
			State:         StatePaid,
		}
	}

	months := OverdueMonths(due, today)
	penalty := Penalty(scheduled, months)

	return Assessment{
		DaysUntilDue:  days,
		OverdueMonths: months,
		Penalty:       penalty,
		Payable:       Payable(scheduled, penalty),
		State:         stateFor(days),
	}
}

func stateFor(days int) InstallmentState {
	switch {
	case days < 0:
		return StateOverdue
	case days == 0:
		return StateDueToday
	case days <= UpcomingWindowDays:
		return StateUpcoming
	default:
		return StateFuture
	}
}
