package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// Create creates a new user. Returns ErrDuplicateUser when any of
	// email, phone, PAN or aadhar number collide with an existing row.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetAll retrieves all users
	GetAll(ctx context.Context) ([]*User, error)

	// GetPending retrieves users awaiting verification
	GetPending(ctx context.Context) ([]*User, error)

	// MarkVerified persists a new credential hash and flips the user to verified
	MarkVerified(ctx context.Context, id uuid.UUID, passwordHash string) error

	// MarkRejected flips the user back to unverified and records the reason
	MarkRejected(ctx context.Context, id uuid.UUID, reason string) error

	// UpdatePassword replaces the stored credential hash
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateLastLogin stamps a successful login
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error

	// Counts returns total and verified user counts
	Counts(ctx context.Context) (total int, verified int, err error)

	// CountsInWindow returns how many users registered inside [from, to)
	CountsInWindow(ctx context.Context, from, to time.Time) (int, error)
}

// CashTransactionRepository defines the interface for the cash ledger
type CashTransactionRepository interface {
	// Create appends a transaction to the ledger
	Create(ctx context.Context, tx *CashTransaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*CashTransaction, error)

	// GetByUserID retrieves a user's transactions, newest first
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*CashTransaction, error)

	// GetByStatus retrieves transactions in a given status
	GetByStatus(ctx context.Context, status string) ([]*CashTransaction, error)

	// GetInWindow retrieves transactions created inside [from, to)
	GetInWindow(ctx context.Context, from, to time.Time) ([]*CashTransaction, error)

	// Transition moves a transaction to a new status, recording who acted
	// and why. Rejects unknown statuses.
	Transition(ctx context.Context, id uuid.UUID, status string, actor *uuid.UUID, reason *string) error

	// SumCompletedByType sums amounts over COMPLETED rows of one type for a user
	SumCompletedByType(ctx context.Context, userID uuid.UUID, txType string) (decimal.Decimal, error)

	// SumCompletedInWindow sums COMPLETED amounts of one type across all
	// users inside [from, to)
	SumCompletedInWindow(ctx context.Context, txType string, from, to time.Time) (decimal.Decimal, error)

	// CancelStalePending cancels PENDING rows created before the cutoff,
	// returning how many were swept
	CancelStalePending(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

// OrderRepository defines the interface for the trade ledger
type OrderRepository interface {
	// Create appends an order to the ledger
	Create(ctx context.Context, order *Order) error

	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByUserID retrieves a user's orders, newest first
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// GetOpen retrieves all OPEN orders
	GetOpen(ctx context.Context) ([]*Order, error)

	// Update persists edits to one order row
	Update(ctx context.Context, order *Order) error

	// SumOpenTradeAmount sums tradeAmount over a user's OPEN orders
	SumOpenTradeAmount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// SumClosedProfitLoss sums profitLoss over a user's CLOSED orders,
	// treating missing profitLoss as zero
	SumClosedProfitLoss(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)

	// AllOpenCapital sums tradeAmount over every OPEN order
	AllOpenCapital(ctx context.Context) (decimal.Decimal, error)

	// AllRealizedPnL sums profitLoss over every CLOSED order
	AllRealizedPnL(ctx context.Context) (decimal.Decimal, error)
}

// SettingsRepository defines the interface for the key-value feature flags
type SettingsRepository interface {
	// Get retrieves a setting value, falling back to def when the key is absent
	Get(ctx context.Context, key, def string) (string, error)

	// Set upserts a setting value
	Set(ctx context.Context, key, value string) error
}
