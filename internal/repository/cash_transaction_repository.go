package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

const txColumns = `
	id, user_id, type, amount, status, approved_by, rejected_by, reason,
	created_at, updated_at
`

// CashTransactionRepositoryImpl implements the CashTransactionRepository interface
type CashTransactionRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewCashTransactionRepository creates a new CashTransactionRepository
func NewCashTransactionRepository(db *pgxpool.Pool) domain.CashTransactionRepository {
	return &CashTransactionRepositoryImpl{db: db}
}

// Create appends a transaction to the ledger
func (r *CashTransactionRepositoryImpl) Create(ctx context.Context, tx *domain.CashTransaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO cash_transactions (
			id, user_id, type, amount, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := r.db.Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Amount,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create cash transaction: %w", err)
	}

	return nil
}

func scanCashTransaction(row pgx.Row) (*domain.CashTransaction, error) {
	tx := &domain.CashTransaction{}
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.Amount,
		&tx.Status,
		&tx.ApprovedBy,
		&tx.RejectedBy,
		&tx.Reason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan cash transaction: %w", err)
	}
	return tx, nil
}

// GetByID retrieves a transaction by ID
func (r *CashTransactionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.CashTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM cash_transactions WHERE id = $1`
	return scanCashTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *CashTransactionRepositoryImpl) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*domain.CashTransaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.CashTransaction
	for rows.Next() {
		tx, err := scanCashTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash transactions: %w", err)
	}

	return txs, nil
}

// GetByUserID retrieves a user's transactions, newest first
func (r *CashTransactionRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.CashTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM cash_transactions WHERE user_id = $1 ORDER BY created_at DESC`
	return r.queryTransactions(ctx, query, userID)
}

// GetByStatus retrieves transactions in a given status
func (r *CashTransactionRepositoryImpl) GetByStatus(ctx context.Context, status string) ([]*domain.CashTransaction, error) {
	if !domain.ValidTxStatus(status) {
		return nil, domain.ErrValidation
	}
	query := `SELECT ` + txColumns + ` FROM cash_transactions WHERE status = $1 ORDER BY created_at DESC`
	return r.queryTransactions(ctx, query, status)
}

// GetInWindow retrieves transactions created inside [from, to)
func (r *CashTransactionRepositoryImpl) GetInWindow(ctx context.Context, from, to time.Time) ([]*domain.CashTransaction, error) {
	query := `SELECT ` + txColumns + ` FROM cash_transactions WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at DESC`
	return r.queryTransactions(ctx, query, from, to)
}

// Transition moves a transaction to a new status, recording who acted and why
func (r *CashTransactionRepositoryImpl) Transition(ctx context.Context, id uuid.UUID, status string, actor *uuid.UUID, reason *string) error {
	if !domain.ValidTxStatus(status) {
		return domain.ErrValidation
	}

	// COMPLETED records the approver; CANCELLED/FAILED record the rejecter.
	var query string
	if status == domain.TxStatusCompleted {
		query = `
			UPDATE cash_transactions
			SET status = $1, approved_by = $2, reason = $3, updated_at = NOW()
			WHERE id = $4
		`
	} else {
		query = `
			UPDATE cash_transactions
			SET status = $1, rejected_by = $2, reason = $3, updated_at = NOW()
			WHERE id = $4
		`
	}

	tag, err := r.db.Exec(ctx, query, status, actor, reason, id)
	if err != nil {
		return fmt.Errorf("failed to transition cash transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// SumCompletedByType sums amounts over COMPLETED rows of one type for a user
func (r *CashTransactionRepositoryImpl) SumCompletedByType(ctx context.Context, userID uuid.UUID, txType string) (decimal.Decimal, error) {
	if !domain.ValidTxType(txType) {
		return decimal.Zero, domain.ErrValidation
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM cash_transactions
		WHERE user_id = $1 AND type = $2 AND status = $3
	`

	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, userID, txType, domain.TxStatusCompleted).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum completed %s: %w", txType, err)
	}

	return sum, nil
}

// SumCompletedInWindow sums COMPLETED amounts of one type across all users inside [from, to)
func (r *CashTransactionRepositoryImpl) SumCompletedInWindow(ctx context.Context, txType string, from, to time.Time) (decimal.Decimal, error) {
	if !domain.ValidTxType(txType) {
		return decimal.Zero, domain.ErrValidation
	}

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM cash_transactions
		WHERE type = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	`

	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, txType, domain.TxStatusCompleted, from, to).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s in window: %w", txType, err)
	}

	return sum, nil
}

// CancelStalePending cancels PENDING rows created before the cutoff
func (r *CashTransactionRepositoryImpl) CancelStalePending(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	query := `
		UPDATE cash_transactions
		SET status = $1, reason = $2, updated_at = NOW()
		WHERE status = $3 AND created_at < $4
	`

	tag, err := r.db.Exec(ctx, query, domain.TxStatusCancelled, reason, domain.TxStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel stale pending transactions: %w", err)
	}

	return tag.RowsAffected(), nil
}
