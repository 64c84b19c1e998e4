package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashTransaction represents a single cash movement in a user's ledger.
// Rows are append-only apart from status transitions and the audit fields.
type CashTransaction struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	ApprovedBy *uuid.UUID      `json:"approved_by,omitempty"`
	RejectedBy *uuid.UUID      `json:"rejected_by,omitempty"`
	Reason     *string         `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TransactionType constants
const (
	TxTypeDeposit    = "DEPOSIT"
	TxTypeWithdrawal = "WITHDRAWAL"
)

// TransactionStatus constants
const (
	TxStatusPending   = "PENDING"
	TxStatusCompleted = "COMPLETED"
	TxStatusCancelled = "CANCELLED"
	TxStatusFailed    = "FAILED"
)

// ValidTxType reports whether t is a known transaction type.
func ValidTxType(t string) bool {
	return t == TxTypeDeposit || t == TxTypeWithdrawal
}

// ValidTxStatus reports whether s is a known transaction status.
func ValidTxStatus(s string) bool {
	switch s {
	case TxStatusPending, TxStatusCompleted, TxStatusCancelled, TxStatusFailed:
		return true
	}
	return false
}

// Validate checks the invariants a transaction must satisfy before it is
// appended to the ledger.
func (t *CashTransaction) Validate() error {
	if !ValidTxType(t.Type) {
		return ErrValidation
	}
	if !ValidTxStatus(t.Status) {
		return ErrValidation
	}
	if !t.Amount.IsPositive() {
		return ErrValidation
	}
	return nil
}
