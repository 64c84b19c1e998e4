package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

type dashboardFixture struct {
	handler *DashboardHandler
	user    *domain.User
	txs     *stubTxRepo
	orders  *stubOrderRepo
	echo    *echo.Echo
}

func newDashboardFixture(t *testing.T) *dashboardFixture {
	t.Helper()
	user := verifiedUser(t, "trader@example.com", "password123")
	users := newStubUserRepo(user)
	txs := newStubTxRepo()
	orders := newStubOrderRepo()

	return &dashboardFixture{
		handler: NewDashboardHandler(
			newBalanceService(users, txs, orders),
			txs,
			orders,
			newStubSettingsRepo(),
		),
		user:   user,
		txs:    txs,
		orders: orders,
		echo:   echo.New(),
	}
}

func (f *dashboardFixture) request(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := jsonContext(f.echo, method, target, body)
	c.Set("user_id", f.user.ID)
	c.Set("role", f.user.Role)
	return c, rec
}

func TestRequestDepositCreatesPendingTransaction(t *testing.T) {
	f := newDashboardFixture(t)

	c, rec := f.request(t, http.MethodPost, "/api/v1/transactions/deposit", `{"amount":"2500.75"}`)
	if err := f.handler.RequestDeposit(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	txs, _ := f.txs.GetByUserID(c.Request().Context(), f.user.ID)
	if len(txs) != 1 {
		t.Fatalf("expected one stored transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Status != domain.TxStatusPending {
		t.Fatalf("requested deposits must start PENDING, got %s", tx.Status)
	}
	if tx.Type != domain.TxTypeDeposit {
		t.Fatalf("expected DEPOSIT, got %s", tx.Type)
	}
	if !tx.Amount.Equal(decimal.RequireFromString("2500.75")) {
		t.Fatalf("expected amount 2500.75, got %s", tx.Amount)
	}
}

func TestRequestWithdrawalCreatesPendingTransaction(t *testing.T) {
	f := newDashboardFixture(t)

	c, rec := f.request(t, http.MethodPost, "/api/v1/transactions/withdrawal", `{"amount":"300"}`)
	if err := f.handler.RequestWithdrawal(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	txs, _ := f.txs.GetByUserID(c.Request().Context(), f.user.ID)
	if len(txs) != 1 || txs[0].Type != domain.TxTypeWithdrawal {
		t.Fatalf("expected one PENDING withdrawal, got %+v", txs)
	}
}

func TestRequestDepositRejectsNonPositiveAmount(t *testing.T) {
	f := newDashboardFixture(t)

	for _, amount := range []string{`"0"`, `"-10"`} {
		c, rec := f.request(t, http.MethodPost, "/api/v1/transactions/deposit", `{"amount":`+amount+`}`)
		if err := f.handler.RequestDeposit(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("amount %s: expected 400, got %d", amount, rec.Code)
		}
	}
}

func TestGetBalanceExcludesPendingMoney(t *testing.T) {
	f := newDashboardFixture(t)
	now := time.Now()

	completed := pendingDeposit(f.user.ID, "1000")
	completed.Status = domain.TxStatusCompleted
	pending := pendingDeposit(f.user.ID, "9999")
	f.txs.txs[completed.ID] = completed
	f.txs.txs[pending.ID] = pending

	open := &domain.Order{
		ID:        uuid.New(),
		UserID:    f.user.ID,
		Symbol:    "INFY",
		Type:      domain.OrderTypeLong,
		Status:    domain.OrderStatusOpen,
		TradeDate: now,
	}
	open.Reprice(decimal.NewFromInt(4), decimal.NewFromInt(100))
	f.orders.orders[open.ID] = open

	c, rec := f.request(t, http.MethodGet, "/api/v1/dashboard/balance", "")
	if err := f.handler.GetBalance(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data := resp.Data.(map[string]interface{})
	// 1000 completed deposit minus 400 locked in the open position; the
	// pending deposit contributes nothing.
	if got := data["account_balance"]; got != "600" {
		t.Fatalf("expected account balance 600, got %v", got)
	}
}

func TestGetTransactionsReturnsOwnLedgerOnly(t *testing.T) {
	f := newDashboardFixture(t)

	mine := pendingDeposit(f.user.ID, "100")
	theirs := pendingDeposit(uuid.New(), "200")
	f.txs.txs[mine.ID] = mine
	f.txs.txs[theirs.ID] = theirs

	c, rec := f.request(t, http.MethodGet, "/api/v1/dashboard/transactions", "")
	if err := f.handler.GetTransactions(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	data := resp.Data.(map[string]interface{})
	if count := data["count"].(float64); count != 1 {
		t.Fatalf("expected only the caller's transaction, got count %v", count)
	}
}
