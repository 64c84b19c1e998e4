package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/repository"
	"brokerdesk/internal/service"
	"brokerdesk/internal/usecase"

	"brokerdesk/internal/delivery/http/dto"
)

// AdminHandler handles back-office administration requests
type AdminHandler struct {
	approvals *usecase.ApprovalService
	balances  *service.BalanceService
	userRepo  domain.UserRepository
	txRepo    domain.CashTransactionRepository
	orderRepo domain.OrderRepository
	settings  domain.SettingsRepository
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	approvals *usecase.ApprovalService,
	balances *service.BalanceService,
	userRepo domain.UserRepository,
	txRepo domain.CashTransactionRepository,
	orderRepo domain.OrderRepository,
	settings domain.SettingsRepository,
) *AdminHandler {
	return &AdminHandler{
		approvals: approvals,
		balances:  balances,
		userRepo:  userRepo,
		txRepo:    txRepo,
		orderRepo: orderRepo,
		settings:  settings,
	}
}

// GetUsers lists all users
// GET /api/v1/admin/users
func (h *AdminHandler) GetUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users, err := h.userRepo.GetAll(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load users", err)
	}

	out := make([]dto.UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, toUserOutput(u))
	}

	return SuccessResponse(c, map[string]interface{}{
		"users": out,
		"count": len(out),
	})
}

// GetPendingUsers lists users awaiting verification
// GET /api/v1/admin/users/pending
func (h *AdminHandler) GetPendingUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users, err := h.userRepo.GetPending(ctx)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load pending users", err)
	}

	out := make([]dto.UserOutput, 0, len(users))
	for _, u := range users {
		out = append(out, toUserOutput(u))
	}

	return SuccessResponse(c, map[string]interface{}{
		"users": out,
		"count": len(out),
	})
}

// ApproveUser runs the fail-closed approval for a user
// POST /api/v1/admin/users/:id/approve
func (h *AdminHandler) ApproveUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	receipt, err := h.approvals.Approve(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "User not found")
		}
		if errors.Is(err, domain.ErrNotificationFailed) {
			return c.JSON(http.StatusInternalServerError, dto.ApprovalResponse{EmailSent: false})
		}
		return InternalServerErrorResponse(c, "Failed to approve user", err)
	}

	return c.JSON(http.StatusOK, dto.ApprovalResponse{
		EmailSent: true,
		Provider:  receipt.Provider,
		MessageID: receipt.MessageID,
	})
}

// RejectUser runs the fail-closed rejection for a user
// POST /api/v1/admin/users/:id/reject
func (h *AdminHandler) RejectUser(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}

	var req dto.RejectRequest
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return BadRequestResponse(c, "A rejection reason is required")
	}

	receipt, err := h.approvals.Reject(c.Request().Context(), userID, req.Reason)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "User not found")
		}
		if errors.Is(err, domain.ErrNotificationFailed) {
			return c.JSON(http.StatusInternalServerError, dto.ApprovalResponse{EmailSent: false})
		}
		return InternalServerErrorResponse(c, "Failed to reject user", err)
	}

	return c.JSON(http.StatusOK, dto.ApprovalResponse{
		EmailSent: true,
		Provider:  receipt.Provider,
		MessageID: receipt.MessageID,
	})
}

// ApproveTransaction completes a pending cash transaction
// POST /api/v1/admin/transactions/:id/approve
func (h *AdminHandler) ApproveTransaction(c echo.Context) error {
	return h.transitionTransaction(c, domain.TxStatusCompleted, nil)
}

// RejectTransaction cancels a pending cash transaction
// POST /api/v1/admin/transactions/:id/reject
func (h *AdminHandler) RejectTransaction(c echo.Context) error {
	var req dto.RejectRequest
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return BadRequestResponse(c, "A rejection reason is required")
	}
	return h.transitionTransaction(c, domain.TxStatusCancelled, &req.Reason)
}

func (h *AdminHandler) transitionTransaction(c echo.Context, status string, reason *string) error {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid transaction id")
	}

	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.txRepo.GetByID(ctx, txID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "Transaction not found")
		}
		return InternalServerErrorResponse(c, "Failed to load transaction", err)
	}

	// Completed rows are immutable apart from audit fields; only PENDING
	// transactions can be decided.
	if tx.Status != domain.TxStatusPending {
		return BadRequestResponse(c, "Transaction has already been decided")
	}

	if err := h.txRepo.Transition(ctx, txID, status, &adminID, reason); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return BadRequestResponse(c, "Invalid status transition")
		}
		return InternalServerErrorResponse(c, "Failed to update transaction", err)
	}

	return SuccessMessageResponse(c, "Transaction updated", map[string]string{
		"id":     txID.String(),
		"status": status,
	})
}

// CreateOrder opens a position on a user's trade ledger
// POST /api/v1/admin/orders
func (h *AdminHandler) CreateOrder(c echo.Context) error {
	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return BadRequestResponse(c, "Invalid user id")
	}
	if !domain.ValidOrderType(req.Type) {
		return BadRequestResponse(c, "Order type must be LONG or SHORT")
	}
	if req.Symbol == "" || !req.Quantity.IsPositive() || !req.BuyPrice.IsPositive() {
		return BadRequestResponse(c, "symbol, positive quantity and positive buy_price are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "User not found")
		}
		return InternalServerErrorResponse(c, "Failed to load user", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:        uuid.New(),
		UserID:    userID,
		Symbol:    req.Symbol,
		Type:      req.Type,
		Status:    domain.OrderStatusOpen,
		TradeDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.RangeLow != nil {
		order.PriceRange.Low = *req.RangeLow
	}
	if req.RangeHigh != nil {
		order.PriceRange.High = *req.RangeHigh
	}
	order.Reprice(req.Quantity, req.BuyPrice)
	order.CurrentPrice = req.CurrentPrice

	if err := h.orderRepo.Create(ctx, order); err != nil {
		return InternalServerErrorResponse(c, "Failed to create order", err)
	}

	return CreatedResponse(c, order)
}

// UpdateOrder edits an open position, recomputing the dependent fields
// PUT /api/v1/admin/orders/:id
func (h *AdminHandler) UpdateOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid order id")
	}

	var req dto.UpdateOrderRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "Order not found")
		}
		return InternalServerErrorResponse(c, "Failed to load order", err)
	}

	if order.Status != domain.OrderStatusOpen {
		return BadRequestResponse(c, "Closed orders cannot be edited")
	}

	quantity := order.Quantity
	buyPrice := order.BuyPrice
	if req.Quantity != nil {
		if !req.Quantity.IsPositive() {
			return BadRequestResponse(c, "Quantity must be positive")
		}
		quantity = *req.Quantity
	}
	if req.BuyPrice != nil {
		if !req.BuyPrice.IsPositive() {
			return BadRequestResponse(c, "Buy price must be positive")
		}
		buyPrice = *req.BuyPrice
	}
	order.Reprice(quantity, buyPrice)
	if req.CurrentPrice != nil {
		order.CurrentPrice = req.CurrentPrice
	}

	if err := h.orderRepo.Update(ctx, order); err != nil {
		return InternalServerErrorResponse(c, "Failed to update order", err)
	}

	return SuccessResponse(c, order)
}

// CloseOrder closes a position at a sell price, fixing realized P&L
// POST /api/v1/admin/orders/:id/close
func (h *AdminHandler) CloseOrder(c echo.Context) error {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return BadRequestResponse(c, "Invalid order id")
	}

	var req dto.CloseOrderRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if !req.SellPrice.IsPositive() {
		return BadRequestResponse(c, "Sell price must be positive")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NotFoundResponse(c, "Order not found")
		}
		return InternalServerErrorResponse(c, "Failed to load order", err)
	}

	if order.Status != domain.OrderStatusOpen {
		return BadRequestResponse(c, "Order is already closed")
	}

	order.Close(req.SellPrice, time.Now())

	if err := h.orderRepo.Update(ctx, order); err != nil {
		return InternalServerErrorResponse(c, "Failed to close order", err)
	}

	return SuccessResponse(c, order)
}

// GetKPIs returns the admin dashboard aggregates with 30-day trends
// GET /api/v1/admin/kpis
func (h *AdminHandler) GetKPIs(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	report, err := h.balances.KPIReport(ctx, time.Now())
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to build KPI report", err)
	}

	return SuccessResponse(c, report)
}

// GetBankVisibility reads the bank-transfer feature flag
// GET /api/v1/admin/settings/bank-visibility
func (h *AdminHandler) GetBankVisibility(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	value, err := h.settings.Get(ctx, repository.SettingBankVisibility, "true")
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load setting", err)
	}

	return SuccessResponse(c, map[string]bool{"visible": value == "true"})
}

// SetBankVisibility writes the bank-transfer feature flag
// PUT /api/v1/admin/settings/bank-visibility
func (h *AdminHandler) SetBankVisibility(c echo.Context) error {
	var req dto.BankVisibilityRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	value := "false"
	if req.Visible {
		value = "true"
	}
	if err := h.settings.Set(ctx, repository.SettingBankVisibility, value); err != nil {
		return InternalServerErrorResponse(c, "Failed to save setting", err)
	}

	return SuccessResponse(c, map[string]bool{"visible": req.Visible})
}
