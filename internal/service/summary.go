package service

import (
	"context"
	"encoding/json"
	"fmt"

	"debtio/internal/finance"
	"debtio/internal/repository"
)

// UserSummary aggregates a user's position as of one calendar day.
type UserSummary struct {
	Date string `json:"date"`

	DebtCount        int     `json:"debt_count"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalPenalty     float64 `json:"total_penalty"`
	OverdueCount     int     `json:"overdue_count"`
	UpcomingCount    int     `json:"upcoming_count"`
}

// GetSummary computes the dashboard figures. Cached per user per day: within
// a day the assessment of every installment is deterministic, so the cache
// can never serve a stale penalty.
func (s *DebtService) GetSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	today := s.now()
	day := today.Format("2006-01-02")
	cacheKey := fmt.Sprintf("summary_user_%d_%s", userID, day)

	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey); err == nil && raw != "" {
			var cached UserSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	uid := userID
	debts, err := s.debts.List(ctx, repository.DebtsFilter{UserID: &uid})
	if err != nil {
		return nil, err
	}

	summary := &UserSummary{Date: day, DebtCount: len(debts)}

	for _, d := range debts {
		items, err := s.installments.ListByDebt(ctx, d.ID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			a := finance.Assess(it.Amount, it.DueDate, today, it.Paid)
			switch a.State {
			case finance.StatePaid:
				continue
			case finance.StateOverdue:
				summary.OverdueCount++
			case finance.StateDueToday, finance.StateUpcoming:
				summary.UpcomingCount++
			}
			summary.TotalOutstanding = finance.Round2(summary.TotalOutstanding + a.Payable)
			summary.TotalPenalty = finance.Round2(summary.TotalPenalty + a.Penalty)
		}
	}

	if s.redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			_ = s.redis.Set(ctx, cacheKey, string(data), summaryCacheTTL)
		}
	}

	return summary, nil
}
