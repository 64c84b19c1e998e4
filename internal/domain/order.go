package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceRange brackets the price a position was opened at. Mid always equals
// the buy price.
type PriceRange struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
	Mid  decimal.Decimal `json:"mid"`
}

// Order represents a trade position in a user's ledger
type Order struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	Symbol       string           `json:"symbol"`
	Type         string           `json:"type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	BuyPrice     decimal.Decimal  `json:"buy_price"`
	SellPrice    *decimal.Decimal `json:"sell_price,omitempty"`
	TradeAmount  decimal.Decimal  `json:"trade_amount"`
	PriceRange   PriceRange       `json:"price_range"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
	ProfitLoss   *decimal.Decimal `json:"profit_loss,omitempty"`
	Status       string           `json:"status"`
	TradeDate    time.Time        `json:"trade_date"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// OrderType constants
const (
	OrderTypeLong  = "LONG"
	OrderTypeShort = "SHORT"
)

// OrderStatus constants
const (
	OrderStatusOpen   = "OPEN"
	OrderStatusClosed = "CLOSED"
)

// ValidOrderType reports whether t is a known order type.
func ValidOrderType(t string) bool {
	return t == OrderTypeLong || t == OrderTypeShort
}

// IsLong checks if the order is a LONG position
func (o *Order) IsLong() bool {
	return o.Type == OrderTypeLong
}

// Reprice updates quantity and buy price together, keeping the dependent
// fields consistent: tradeAmount = quantity * buyPrice, and priceRange.Mid
// pinned to buyPrice.
func (o *Order) Reprice(quantity, buyPrice decimal.Decimal) {
	o.Quantity = quantity
	o.BuyPrice = buyPrice
	o.TradeAmount = quantity.Mul(buyPrice)
	o.PriceRange.Mid = buyPrice
	if o.PriceRange.Low.IsZero() && o.PriceRange.High.IsZero() {
		o.PriceRange.Low = buyPrice
		o.PriceRange.High = buyPrice
	}
}

// ComputeProfitLoss returns the realized P&L against the given sell price.
// LONG = sellTotal - buyTotal, SHORT = buyTotal - sellTotal.
func (o *Order) ComputeProfitLoss(sellPrice decimal.Decimal) decimal.Decimal {
	buyTotal := o.Quantity.Mul(o.BuyPrice)
	sellTotal := o.Quantity.Mul(sellPrice)
	if o.IsLong() {
		return sellTotal.Sub(buyTotal)
	}
	return buyTotal.Sub(sellTotal)
}

// Close transitions the order to CLOSED at the given sell price, fixing the
// realized P&L. Current price loses meaning once the position is closed.
func (o *Order) Close(sellPrice decimal.Decimal, closedAt time.Time) {
	pnl := o.ComputeProfitLoss(sellPrice)
	o.SellPrice = &sellPrice
	o.ProfitLoss = &pnl
	o.CurrentPrice = nil
	o.Status = OrderStatusClosed
	o.UpdatedAt = closedAt
}
