package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/delivery/http/dto"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/repository"
)

type adminFixture struct {
	handler  *AdminHandler
	users    *stubUserRepo
	txs      *stubTxRepo
	orders   *stubOrderRepo
	settings *stubSettingsRepo
	notifier *stubNotifier
	adminID  uuid.UUID
	echo     *echo.Echo
}

func newAdminFixture(t *testing.T, users ...*domain.User) *adminFixture {
	t.Helper()
	admin := verifiedUser(t, "admin@example.com", "admin-password")
	admin.Role = domain.RoleAdmin

	userRepo := newStubUserRepo(append(users, admin)...)
	txRepo := newStubTxRepo()
	orderRepo := newStubOrderRepo()
	settings := newStubSettingsRepo()
	notifier := &stubNotifier{}

	return &adminFixture{
		handler: NewAdminHandler(
			newApprovalService(userRepo, notifier),
			newBalanceService(userRepo, txRepo, orderRepo),
			userRepo,
			txRepo,
			orderRepo,
			settings,
		),
		users:    userRepo,
		txs:      txRepo,
		orders:   orderRepo,
		settings: settings,
		notifier: notifier,
		adminID:  admin.ID,
		echo:     echo.New(),
	}
}

func (f *adminFixture) request(t *testing.T, method, target, body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	c, rec := jsonContext(f.echo, method, target, body)
	c.Set("user_id", f.adminID)
	c.Set("role", domain.RoleAdmin)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	return c, rec
}

func TestApproveUserSuccess(t *testing.T) {
	applicant := verifiedUser(t, "pending@example.com", "placeholder")
	applicant.IsVerified = false
	f := newAdminFixture(t, applicant)

	c, rec := f.request(t, http.MethodPost, "/", "", map[string]string{"id": applicant.ID.String()})
	if err := f.handler.ApproveUser(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.ApprovalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.EmailSent {
		t.Fatal("expected emailSent true on delivery success")
	}
	if resp.Provider != "api" || resp.MessageID == "" {
		t.Fatalf("expected delivery receipt in response, got %+v", resp)
	}
	if !applicant.IsVerified {
		t.Fatal("user should be verified after a delivered approval")
	}
}

func TestApproveUserDeliveryFailureLeavesUserUntouched(t *testing.T) {
	applicant := verifiedUser(t, "pending@example.com", "placeholder")
	applicant.IsVerified = false
	originalHash := applicant.PasswordHash
	f := newAdminFixture(t, applicant)
	f.notifier.err = errors.New("relay down")

	c, rec := f.request(t, http.MethodPost, "/", "", map[string]string{"id": applicant.ID.String()})
	if err := f.handler.ApproveUser(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp dto.ApprovalResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.EmailSent {
		t.Fatal("expected emailSent false on delivery failure")
	}
	if applicant.IsVerified {
		t.Fatal("user state must not change when the notification fails")
	}
	if applicant.PasswordHash != originalHash {
		t.Fatal("credential hash must not change when the notification fails")
	}
}

func TestApproveUnknownUser(t *testing.T) {
	f := newAdminFixture(t)

	c, rec := f.request(t, http.MethodPost, "/", "", map[string]string{"id": uuid.NewString()})
	if err := f.handler.ApproveUser(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRejectUserRequiresReason(t *testing.T) {
	applicant := verifiedUser(t, "pending@example.com", "placeholder")
	applicant.IsVerified = false
	f := newAdminFixture(t, applicant)

	c, rec := f.request(t, http.MethodPost, "/", `{}`, map[string]string{"id": applicant.ID.String()})
	if err := f.handler.RejectUser(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a reason, got %d", rec.Code)
	}
}

func TestRejectUserRecordsReason(t *testing.T) {
	applicant := verifiedUser(t, "pending@example.com", "placeholder")
	applicant.IsVerified = false
	f := newAdminFixture(t, applicant)

	c, rec := f.request(t, http.MethodPost, "/", `{"reason":"documents unreadable"}`,
		map[string]string{"id": applicant.ID.String()})
	if err := f.handler.RejectUser(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if applicant.RejectionReason == nil || *applicant.RejectionReason != "documents unreadable" {
		t.Fatalf("expected rejection reason to be recorded, got %v", applicant.RejectionReason)
	}
	if applicant.IsVerified {
		t.Fatal("rejected user must stay unverified")
	}
}

func pendingDeposit(userID uuid.UUID, amount string) *domain.CashTransaction {
	now := time.Now()
	return &domain.CashTransaction{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.TxTypeDeposit,
		Amount:    decimal.RequireFromString(amount),
		Status:    domain.TxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestApproveTransaction(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)
	tx := pendingDeposit(user.ID, "1000")
	f.txs.txs[tx.ID] = tx

	c, rec := f.request(t, http.MethodPost, "/", "", map[string]string{"id": tx.ID.String()})
	if err := f.handler.ApproveTransaction(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tx.Status != domain.TxStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", tx.Status)
	}
	if tx.ApprovedBy == nil || *tx.ApprovedBy != f.adminID {
		t.Fatal("expected the acting admin to be recorded")
	}
}

func TestRejectTransactionRecordsActorAndReason(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)
	tx := pendingDeposit(user.ID, "500")
	f.txs.txs[tx.ID] = tx

	c, rec := f.request(t, http.MethodPost, "/", `{"reason":"no matching bank credit"}`,
		map[string]string{"id": tx.ID.String()})
	if err := f.handler.RejectTransaction(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if tx.Status != domain.TxStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", tx.Status)
	}
	if tx.RejectedBy == nil || *tx.RejectedBy != f.adminID {
		t.Fatal("expected the acting admin to be recorded")
	}
	if tx.Reason == nil || *tx.Reason != "no matching bank credit" {
		t.Fatalf("expected reason to be recorded, got %v", tx.Reason)
	}
}

func TestDecidedTransactionIsImmutable(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)
	tx := pendingDeposit(user.ID, "1000")
	tx.Status = domain.TxStatusCompleted
	f.txs.txs[tx.ID] = tx

	c, rec := f.request(t, http.MethodPost, "/", "", map[string]string{"id": tx.ID.String()})
	if err := f.handler.ApproveTransaction(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an already decided transaction, got %d", rec.Code)
	}
}

func TestCreateOrderComputesDependentFields(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)

	body := `{"user_id":"` + user.ID.String() + `","symbol":"RELIANCE","type":"LONG","quantity":"10","buy_price":"250.50"}`
	c, rec := f.request(t, http.MethodPost, "/", body, nil)
	if err := f.handler.CreateOrder(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	orders, _ := f.orders.GetByUserID(c.Request().Context(), user.ID)
	if len(orders) != 1 {
		t.Fatalf("expected one stored order, got %d", len(orders))
	}
	order := orders[0]
	if !order.TradeAmount.Equal(decimal.RequireFromString("2505")) {
		t.Fatalf("expected trade amount 2505, got %s", order.TradeAmount)
	}
	if !order.PriceRange.Mid.Equal(order.BuyPrice) {
		t.Fatal("mid price must track the buy price")
	}
	if order.Status != domain.OrderStatusOpen {
		t.Fatalf("expected OPEN, got %s", order.Status)
	}
}

func TestCreateOrderForUnknownUser(t *testing.T) {
	f := newAdminFixture(t)

	body := `{"user_id":"` + uuid.NewString() + `","symbol":"RELIANCE","type":"LONG","quantity":"10","buy_price":"250.50"}`
	c, rec := f.request(t, http.MethodPost, "/", body, nil)
	if err := f.handler.CreateOrder(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestClosedOrderCannotBeEdited(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)

	order := &domain.Order{
		ID:     uuid.New(),
		UserID: user.ID,
		Symbol: "TCS",
		Type:   domain.OrderTypeLong,
		Status: domain.OrderStatusOpen,
	}
	order.Reprice(decimal.NewFromInt(5), decimal.NewFromInt(100))
	order.Close(decimal.NewFromInt(120), time.Now())
	f.orders.orders[order.ID] = order

	c, rec := f.request(t, http.MethodPut, "/", `{"quantity":"7"}`,
		map[string]string{"id": order.ID.String()})
	if err := f.handler.UpdateOrder(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a closed order, got %d", rec.Code)
	}
}

func TestCloseOrderFixesRealizedPnL(t *testing.T) {
	user := verifiedUser(t, "trader@example.com", "password123")
	f := newAdminFixture(t, user)

	order := &domain.Order{
		ID:     uuid.New(),
		UserID: user.ID,
		Symbol: "TCS",
		Type:   domain.OrderTypeLong,
		Status: domain.OrderStatusOpen,
	}
	order.Reprice(decimal.NewFromInt(10), decimal.NewFromInt(100))
	f.orders.orders[order.ID] = order

	c, rec := f.request(t, http.MethodPost, "/", `{"sell_price":"130"}`,
		map[string]string{"id": order.ID.String()})
	if err := f.handler.CloseOrder(c); err != nil {
		t.Fatal(err)
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if order.Status != domain.OrderStatusClosed {
		t.Fatalf("expected CLOSED, got %s", order.Status)
	}
	if order.ProfitLoss == nil || !order.ProfitLoss.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected realized P&L 300, got %v", order.ProfitLoss)
	}
	if order.CurrentPrice != nil {
		t.Fatal("current price should be cleared on close")
	}
}

func TestBankVisibilityRoundTrip(t *testing.T) {
	f := newAdminFixture(t)

	c, rec := f.request(t, http.MethodGet, "/", "", nil)
	if err := f.handler.GetBankVisibility(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"visible":true`) {
		t.Fatalf("expected default visible=true, got %d: %s", rec.Code, rec.Body.String())
	}

	c, rec = f.request(t, http.MethodPut, "/", `{"visible":false}`, nil)
	if err := f.handler.SetBankVisibility(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	stored, _ := f.settings.Get(c.Request().Context(), repository.SettingBankVisibility, "true")
	if stored != "false" {
		t.Fatalf("expected stored value false, got %q", stored)
	}

	c, rec = f.request(t, http.MethodGet, "/", "", nil)
	if err := f.handler.GetBankVisibility(c); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rec.Body.String(), `"visible":false`) {
		t.Fatalf("expected visible=false after update, got %s", rec.Body.String())
	}
}
