package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

const orderColumns = `
	id, user_id, symbol, type, quantity, buy_price, sell_price, trade_amount,
	range_low, range_high, range_mid, current_price, profit_loss, status,
	trade_date, created_at, updated_at
`

// OrderRepositoryImpl implements the OrderRepository interface
type OrderRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *pgxpool.Pool) domain.OrderRepository {
	return &OrderRepositoryImpl{db: db}
}

// Create appends an order to the ledger
func (r *OrderRepositoryImpl) Create(ctx context.Context, order *domain.Order) error {
	if !domain.ValidOrderType(order.Type) {
		return domain.ErrValidation
	}

	query := `
		INSERT INTO orders (
			id, user_id, symbol, type, quantity, buy_price, sell_price,
			trade_amount, range_low, range_high, range_mid, current_price,
			profit_loss, status, trade_date, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Symbol,
		order.Type,
		order.Quantity,
		order.BuyPrice,
		order.SellPrice,
		order.TradeAmount,
		order.PriceRange.Low,
		order.PriceRange.High,
		order.PriceRange.Mid,
		order.CurrentPrice,
		order.ProfitLoss,
		order.Status,
		order.TradeDate,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Symbol,
		&order.Type,
		&order.Quantity,
		&order.BuyPrice,
		&order.SellPrice,
		&order.TradeAmount,
		&order.PriceRange.Low,
		&order.PriceRange.High,
		&order.PriceRange.Mid,
		&order.CurrentPrice,
		&order.ProfitLoss,
		&order.Status,
		&order.TradeDate,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return order, nil
}

// GetByID retrieves an order by ID
func (r *OrderRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRow(ctx, query, id))
}

func (r *OrderRepositoryImpl) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// GetByUserID retrieves a user's orders, newest first
func (r *OrderRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY trade_date DESC`
	return r.queryOrders(ctx, query, userID)
}

// GetOpen retrieves all OPEN orders
func (r *OrderRepositoryImpl) GetOpen(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY trade_date DESC`
	return r.queryOrders(ctx, query, domain.OrderStatusOpen)
}

// Update persists edits to one order row
func (r *OrderRepositoryImpl) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET symbol = $1, type = $2, quantity = $3, buy_price = $4,
		    sell_price = $5, trade_amount = $6, range_low = $7, range_high = $8,
		    range_mid = $9, current_price = $10, profit_loss = $11, status = $12,
		    trade_date = $13, updated_at = NOW()
		WHERE id = $14
	`

	tag, err := r.db.Exec(ctx, query,
		order.Symbol,
		order.Type,
		order.Quantity,
		order.BuyPrice,
		order.SellPrice,
		order.TradeAmount,
		order.PriceRange.Low,
		order.PriceRange.High,
		order.PriceRange.Mid,
		order.CurrentPrice,
		order.ProfitLoss,
		order.Status,
		order.TradeDate,
		order.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *OrderRepositoryImpl) sumQuery(ctx context.Context, query string, args ...interface{}) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate orders: %w", err)
	}
	return sum, nil
}

// SumOpenTradeAmount sums tradeAmount over a user's OPEN orders
func (r *OrderRepositoryImpl) SumOpenTradeAmount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(trade_amount), 0)
		FROM orders
		WHERE user_id = $1 AND status = $2
	`
	return r.sumQuery(ctx, query, userID, domain.OrderStatusOpen)
}

// SumClosedProfitLoss sums profitLoss over a user's CLOSED orders
func (r *OrderRepositoryImpl) SumClosedProfitLoss(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(COALESCE(profit_loss, 0)), 0)
		FROM orders
		WHERE user_id = $1 AND status = $2
	`
	return r.sumQuery(ctx, query, userID, domain.OrderStatusClosed)
}

// AllOpenCapital sums tradeAmount over every OPEN order
func (r *OrderRepositoryImpl) AllOpenCapital(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(trade_amount), 0)
		FROM orders
		WHERE status = $1
	`
	return r.sumQuery(ctx, query, domain.OrderStatusOpen)
}

// AllRealizedPnL sums profitLoss over every CLOSED order
func (r *OrderRepositoryImpl) AllRealizedPnL(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(COALESCE(profit_loss, 0)), 0)
		FROM orders
		WHERE status = $1
	`
	return r.sumQuery(ctx, query, domain.OrderStatusClosed)
}
