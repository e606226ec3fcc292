package finance

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestGenerateSchedule_ZeroRate(t *testing.T) {
	rows, err := GenerateSchedule(300, 0, 3, RateMonthly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Capital != 100 {
			t.Errorf("row %d: expected capital 100.00, got %.2f", row.Sequence, row.Capital)
		}
		if row.Interest != 0 {
			t.Errorf("row %d: expected interest 0, got %.2f", row.Sequence, row.Interest)
		}
		if row.Cuota != 100 {
			t.Errorf("row %d: expected cuota 100.00, got %.2f", row.Sequence, row.Cuota)
		}
	}
	if rows[2].Balance != 0 {
		t.Errorf("expected final balance 0, got %.2f", rows[2].Balance)
	}
}

func TestGenerateSchedule_AnnualRate(t *testing.T) {
	rows, err := GenerateSchedule(1000, 9.8, 12, RateAnnual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 rows, got %d", len(rows))
	}

	// fixed cuota from the effective-monthly-rate annuity formula
	r := math.Pow(1.098, 1.0/12) - 1
	pow := math.Pow(1+r, 12)
	want := Round2(1000 * r * pow / (pow - 1))

	for _, row := range rows {
		if row.Cuota != want {
			t.Fatalf("row %d: expected cuota %.2f, got %.2f", row.Sequence, want, row.Cuota)
		}
	}
	if rows[11].Balance != 0 {
		t.Errorf("expected final balance 0, got %.4f", rows[11].Balance)
	}
}

func TestGenerateSchedule_OneTimeCharge(t *testing.T) {
	rows, err := GenerateSchedule(1000, 10, 4, RateOneTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10% one-time interest: total 1100, cuota 275
	for _, row := range rows {
		if row.Cuota != 275 {
			t.Errorf("row %d: expected cuota 275.00, got %.2f", row.Sequence, row.Cuota)
		}
	}
	if rows[3].Balance != 0 {
		t.Errorf("expected final balance 0, got %.2f", rows[3].Balance)
	}

	total, interest, cuota := ScheduleTotals(rows)
	if total != 1100 {
		t.Errorf("expected total 1100.00, got %.2f", total)
	}
	if interest != 100 {
		t.Errorf("expected total interest 100.00, got %.2f", interest)
	}
	if cuota != 275 {
		t.Errorf("expected cuota 275.00, got %.2f", cuota)
	}
}

func TestGenerateSchedule_SingleInstallment(t *testing.T) {
	rows, err := GenerateSchedule(500, 5, 1, RateOneTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Capital != 500 {
		t.Errorf("expected capital 500.00, got %.2f", rows[0].Capital)
	}
	if rows[0].Cuota != 525 {
		t.Errorf("expected cuota 525.00, got %.2f", rows[0].Cuota)
	}
	if rows[0].Balance != 0 {
		t.Errorf("expected balance 0, got %.2f", rows[0].Balance)
	}
}

func TestGenerateSchedule_Invariants(t *testing.T) {
	cases := []struct {
		name         string
		principal    float64
		rate         float64
		installments int
		period       RatePeriod
	}{
		{"monthly short", 1000, 2.5, 6, RateMonthly},
		{"monthly long", 15750.33, 1.9, 48, RateMonthly},
		{"annual typical", 1000, 9.8, 12, RateAnnual},
		{"annual long", 250000, 12.5, 240, RateAnnual},
		{"one-time", 999.99, 7.3, 7, RateOneTime},
		{"zero rate uneven", 100, 0, 3, RateMonthly},
		{"single", 1234.56, 3.4, 1, RateAnnual},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := GenerateSchedule(tc.principal, tc.rate, tc.installments, tc.period)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(rows) != tc.installments {
				t.Fatalf("expected %d rows, got %d", tc.installments, len(rows))
			}

			capitalSum := 0.0
			for _, row := range rows {
				capitalSum += row.Capital
				if got := Round2(row.Capital + row.Interest); got != row.Cuota {
					t.Errorf("row %d: capital %.2f + interest %.2f = %.2f, want cuota %.2f",
						row.Sequence, row.Capital, row.Interest, got, row.Cuota)
				}
				if row.Capital < 0 || row.Interest < 0 {
					t.Errorf("row %d: negative component (capital=%.2f interest=%.2f)",
						row.Sequence, row.Capital, row.Interest)
				}
			}

			if Round2(capitalSum) != Round2(tc.principal) {
				t.Errorf("capital components sum to %.2f, want principal %.2f", capitalSum, tc.principal)
			}
			if last := rows[len(rows)-1].Balance; last != 0 {
				t.Errorf("final balance %.4f, want exactly 0", last)
			}
		})
	}
}

func TestGenerateSchedule_Deterministic(t *testing.T) {
	first, err := GenerateSchedule(8200.50, 9.8, 24, RateAnnual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := GenerateSchedule(8200.50, 9.8, 24, RateAnnual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical schedules for identical inputs")
	}
}

func TestGenerateSchedule_RejectsBadInput(t *testing.T) {
	cases := []struct {
		name         string
		principal    float64
		rate         float64
		installments int
		period       RatePeriod
	}{
		{"zero principal", 0, 5, 12, RateMonthly},
		{"negative principal", -100, 5, 12, RateMonthly},
		{"zero installments", 1000, 5, 0, RateMonthly},
		{"negative installments", 1000, 5, -3, RateMonthly},
		{"negative rate", 1000, -1, 12, RateMonthly},
		{"unknown period", 1000, 5, 12, RatePeriod("weekly")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateSchedule(tc.principal, tc.rate, tc.installments, tc.period)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.004, 1.00},
		{1.006, 1.01},
		{-1.006, -1.01},
		{0.1 + 0.2, 0.3},
		{100, 100},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
