package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"debtio/internal/domain"
	"debtio/internal/finance"
)

var ErrNotFound = errors.New("not found")

type DebtsFilter struct {
	UserID     *int64
	RatePeriod *string
}

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

const debtColumns = `d.id, d.user_id, d.title, d.description, d.principal, d.rate, d.rate_period, d.installments, d.start_date, d.total_amount, d.total_interest, d.cuota, d.created_at, d.updated_at`

func scanDebt(row interface{ Scan(...any) error }) (*domain.Debt, error) {
	var d domain.Debt
	var ratePeriod string
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.Title,
		&d.Description,
		&d.Principal,
		&d.Rate,
		&ratePeriod,
		&d.Installments,
		&d.StartDate,
		&d.TotalAmount,
		&d.TotalInterest,
		&d.Cuota,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.RatePeriod = finance.RatePeriod(ratePeriod)
	return &d, nil
}

func (r *DebtRepository) Create(ctx context.Context, d *domain.Debt) error {
	query := `
		INSERT INTO debts (id, user_id, title, description, principal, rate, rate_period, installments, start_date, total_amount, total_interest, cuota, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.UserID, d.Title, d.Description,
		d.Principal, d.Rate, string(d.RatePeriod), d.Installments, d.StartDate,
		d.TotalAmount, d.TotalInterest, d.Cuota,
	)
	return err
}

func (r *DebtRepository) Update(ctx context.Context, d *domain.Debt) error {
	query := `
		UPDATE debts
		SET title = $2, description = $3, principal = $4, rate = $5, rate_period = $6,
		    installments = $7, start_date = $8, total_amount = $9, total_interest = $10,
		    cuota = $11, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		d.ID, d.Title, d.Description,
		d.Principal, d.Rate, string(d.RatePeriod), d.Installments, d.StartDate,
		d.TotalAmount, d.TotalInterest, d.Cuota,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DebtRepository) GetByID(ctx context.Context, id string) (*domain.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts d WHERE d.id = $1`

	d, err := scanDebt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *DebtRepository) List(ctx context.Context, f DebtsFilter) ([]domain.Debt, error) {
	base := `SELECT ` + debtColumns + ` FROM debts d`

	where := []string{"1=1"}
	args := []any{}
	i := 1

	if f.UserID != nil {
		where = append(where, fmt.Sprintf("d.user_id = $%d", i))
		args = append(args, *f.UserID)
		i++
	}

	if f.RatePeriod != nil && *f.RatePeriod != "" {
		where = append(where, fmt.Sprintf("d.rate_period = $%d", i))
		args = append(args, *f.RatePeriod)
		i++
	}

	query := base + " WHERE " + strings.Join(where, " AND ") + " ORDER BY d.start_date DESC, d.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *DebtRepository) Delete(ctx context.Context, id string) error {
	// installments go first; the debt owns them
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE debt_id = $1`, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// Touch bumps updated_at, used when only the installment batch changed.
func (r *DebtRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE debts SET updated_at = $2 WHERE id = $1`, id, at)
	return err
}
