package http

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"brokerdesk/internal/domain"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/repository"
	"brokerdesk/internal/service"

	"brokerdesk/internal/delivery/http/dto"
)

// DashboardHandler handles the authenticated read/request endpoints
type DashboardHandler struct {
	balances  *service.BalanceService
	txRepo    domain.CashTransactionRepository
	orderRepo domain.OrderRepository
	settings  domain.SettingsRepository
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(
	balances *service.BalanceService,
	txRepo domain.CashTransactionRepository,
	orderRepo domain.OrderRepository,
	settings domain.SettingsRepository,
) *DashboardHandler {
	return &DashboardHandler{
		balances:  balances,
		txRepo:    txRepo,
		orderRepo: orderRepo,
		settings:  settings,
	}
}

// GetBalance returns the derived balance summary for the caller
// GET /api/v1/dashboard/balance
func (h *DashboardHandler) GetBalance(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	summary, err := h.balances.ComputeBalance(ctx, userID)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to compute balance", err)
	}

	return SuccessResponse(c, summary)
}

// GetTransactions returns the caller's cash ledger
// GET /api/v1/dashboard/transactions
func (h *DashboardHandler) GetTransactions(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	txs, err := h.txRepo.GetByUserID(ctx, userID)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load transactions", err)
	}

	return SuccessResponse(c, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// GetOrders returns the caller's trade ledger
// GET /api/v1/dashboard/orders
func (h *DashboardHandler) GetOrders(c echo.Context) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	orders, err := h.orderRepo.GetByUserID(ctx, userID)
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load orders", err)
	}

	return SuccessResponse(c, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	})
}

// RequestDeposit appends a PENDING deposit to the caller's ledger
// POST /api/v1/transactions/deposit
func (h *DashboardHandler) RequestDeposit(c echo.Context) error {
	return h.requestTransaction(c, domain.TxTypeDeposit)
}

// RequestWithdrawal appends a PENDING withdrawal to the caller's ledger
// POST /api/v1/transactions/withdrawal
func (h *DashboardHandler) RequestWithdrawal(c echo.Context) error {
	return h.requestTransaction(c, domain.TxTypeWithdrawal)
}

func (h *DashboardHandler) requestTransaction(c echo.Context, txType string) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return UnauthorizedResponse(c, "Not authenticated")
	}

	var req dto.DepositRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestResponse(c, "Invalid request payload")
	}
	if !req.Amount.IsPositive() {
		return BadRequestResponse(c, "Amount must be positive")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	now := time.Now()
	tx := &domain.CashTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      txType,
		Amount:    req.Amount,
		Status:    domain.TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.txRepo.Create(ctx, tx); err != nil {
		return InternalServerErrorResponse(c, "Failed to record transaction", err)
	}

	return CreatedResponse(c, tx)
}

// GetBankVisibility exposes the bank-transfer feature flag to clients
// GET /api/v1/dashboard/bank-visibility
func (h *DashboardHandler) GetBankVisibility(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	value, err := h.settings.Get(ctx, repository.SettingBankVisibility, "true")
	if err != nil {
		return InternalServerErrorResponse(c, "Failed to load setting", err)
	}

	return SuccessResponse(c, map[string]bool{"visible": value == "true"})
}
