package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"debtio/internal/domain"
)

type InstallmentRepository struct {
	db *sql.DB
}

func NewInstallmentRepository(db *sql.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

const installmentColumns = `i.id, i.debt_id, i.sequence, i.due_date, i.amount, i.capital, i.interest, i.paid, i.paid_at, i.payment_method, i.receipt_key, i.created_at, i.updated_at`

func scanInstallment(row interface{ Scan(...any) error }) (*domain.Installment, error) {
	var it domain.Installment
	var paidAt sql.NullTime
	if err := row.Scan(
		&it.ID,
		&it.DebtID,
		&it.Sequence,
		&it.DueDate,
		&it.Amount,
		&it.Capital,
		&it.Interest,
		&it.Paid,
		&paidAt,
		&it.PaymentMethod,
		&it.ReceiptKey,
		&it.CreatedAt,
		&it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		it.PaidAt = &t
	}
	return &it, nil
}

func (r *InstallmentRepository) ListByDebt(ctx context.Context, debtID string) ([]domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments i WHERE i.debt_id = $1 ORDER BY i.sequence`

	rows, err := r.db.QueryContext(ctx, query, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Installment
	for rows.Next() {
		it, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *InstallmentRepository) GetByID(ctx context.Context, id string) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments i WHERE i.id = $1`

	it, err := scanInstallment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

// ReplaceForDebt swaps the whole installment batch of a debt inside one
// transaction: readers never observe a partial regeneration.
func (r *InstallmentRepository) ReplaceForDebt(ctx context.Context, debtID string, items []domain.Installment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM installments WHERE debt_id = $1`, debtID); err != nil {
		return err
	}

	insert := `
		INSERT INTO installments (id, debt_id, sequence, due_date, amount, capital, interest, paid, paid_at, payment_method, receipt_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, NULL, NULL, NULL, NOW(), NOW())
	`
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, insert,
			it.ID, debtID, it.Sequence, it.DueDate, it.Amount, it.Capital, it.Interest,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *InstallmentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, method string, receiptKey *string) error {
	query := `
		UPDATE installments
		SET paid = true, paid_at = $2, payment_method = $3, receipt_key = COALESCE($4, receipt_key), updated_at = NOW()
		WHERE id = $1 AND paid = false
	`
	res, err := r.db.ExecContext(ctx, query, id, paidAt, method, receiptKey)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *InstallmentRepository) SetReceipt(ctx context.Context, id string, receiptKey string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE installments SET receipt_key = $2, updated_at = NOW() WHERE id = $1`, id, receiptKey)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUnpaidDueBefore returns unpaid installments with a due date up to the
// horizon, joined with the owning debt so callers know whom to notify.
func (r *InstallmentRepository) ListUnpaidDueBefore(ctx context.Context, horizon time.Time) ([]domain.DueInstallment, error) {
	query := `
		SELECT ` + installmentColumns + `, d.title, d.user_id
		FROM installments i
		JOIN debts d ON d.id = i.debt_id
		WHERE i.paid = false AND i.due_date <= $1
		ORDER BY i.due_date
	`

	rows, err := r.db.QueryContext(ctx, query, horizon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DueInstallment
	for rows.Next() {
		var it domain.DueInstallment
		var paidAt sql.NullTime
		if err := rows.Scan(
			&it.ID,
			&it.DebtID,
			&it.Sequence,
			&it.DueDate,
			&it.Amount,
			&it.Capital,
			&it.Interest,
			&it.Paid,
			&paidAt,
			&it.PaymentMethod,
			&it.ReceiptKey,
			&it.CreatedAt,
			&it.UpdatedAt,
			&it.DebtTitle,
			&it.UserID,
		); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			it.PaidAt = &t
		}
		out = append(out, it)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
