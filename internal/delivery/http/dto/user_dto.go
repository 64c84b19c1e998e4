package dto

import "github.com/shopspring/decimal"

// UserOutput represents user details in API responses
type UserOutput struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Role            string  `json:"role"`
	Status          string  `json:"status"`
	IsVerified      bool    `json:"is_verified"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// DepositRequest represents a cash-movement request payload
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}
