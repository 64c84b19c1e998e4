package dto

import "github.com/shopspring/decimal"

// RejectRequest represents an approval-rejection payload
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ApprovalResponse reports the outcome of an approve/reject call. EmailSent
// mirrors whether the gating notification was delivered.
type ApprovalResponse struct {
	EmailSent bool   `json:"emailSent"`
	Provider  string `json:"provider,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

// CreateOrderRequest represents the admin open-position payload
type CreateOrderRequest struct {
	UserID       string           `json:"user_id" validate:"required"`
	Symbol       string           `json:"symbol" validate:"required"`
	Type         string           `json:"type" validate:"required"`
	Quantity     decimal.Decimal  `json:"quantity" validate:"required"`
	BuyPrice     decimal.Decimal  `json:"buy_price" validate:"required"`
	RangeLow     *decimal.Decimal `json:"range_low,omitempty"`
	RangeHigh    *decimal.Decimal `json:"range_high,omitempty"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
}

// UpdateOrderRequest represents the admin edit-position payload
type UpdateOrderRequest struct {
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	BuyPrice     *decimal.Decimal `json:"buy_price,omitempty"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"`
}

// CloseOrderRequest represents the admin close-position payload
type CloseOrderRequest struct {
	SellPrice decimal.Decimal `json:"sell_price" validate:"required"`
}

// BankVisibilityRequest represents the feature-flag payload
type BankVisibilityRequest struct {
	Visible bool `json:"visible"`
}
