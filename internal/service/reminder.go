package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"debtio/internal/clients"
	"debtio/internal/domain"
	"debtio/internal/finance"
)

type ReminderRepository interface {
	ListUnpaidDueBefore(ctx context.Context, horizon time.Time) ([]domain.DueInstallment, error)
}

// ReminderService periodically scans for installments that are upcoming or
// overdue and pushes a websocket notice to the owning user. Redis set
// membership keeps each installment to one notice per day.
type ReminderService struct {
	installments ReminderRepository
	redis        *clients.RedisClient
	ws           *clients.WebSocketClient
	now          Clock
	interval     time.Duration
}

func NewReminderService(
	installments ReminderRepository,
	redis *clients.RedisClient,
	ws *clients.WebSocketClient,
	now Clock,
	interval time.Duration,
) *ReminderService {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ReminderService{
		installments: installments,
		redis:        redis,
		ws:           ws,
		now:          now,
		interval:     interval,
	}
}

// Run blocks until the context is cancelled, scanning on a fixed ticker. An
// immediate first scan runs at startup so restarts don't miss a day.
func (s *ReminderService) Run(ctx context.Context) {
	if err := s.Scan(ctx); err != nil {
		log.Printf("[REMINDER] scan error: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				log.Printf("[REMINDER] scan error: %v", err)
			}
		}
	}
}

// Scan performs one reminder pass against the current clock.
func (s *ReminderService) Scan(ctx context.Context) error {
	today := s.now()
	horizon := today.AddDate(0, 0, finance.UpcomingWindowDays)

	items, err := s.installments.ListUnpaidDueBefore(ctx, horizon)
	if err != nil {
		return err
	}

	dedupeKey := fmt.Sprintf("reminded_%s", today.Format("2006-01-02"))

	for _, it := range items {
		a := finance.Assess(it.Amount, it.DueDate, today, it.Paid)
		if a.State == finance.StateFuture || a.State == finance.StatePaid {
			continue
		}

		if s.redis != nil {
			fresh, err := s.redis.AddOnce(ctx, dedupeKey, it.ID, 48*time.Hour)
			if err != nil {
				log.Printf("[REMINDER] dedupe error for %s: %v", it.ID, err)
			} else if !fresh {
				continue
			}
		}

		if s.ws != nil {
			_ = s.ws.NotifyPaymentReminder(ctx, it.UserID, it.ID, it.DebtTitle,
				string(a.State), a.DaysUntilDue, a.Payable)
		}
	}

	return nil
}
