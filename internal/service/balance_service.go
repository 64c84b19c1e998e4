package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"brokerdesk/internal/domain"
)

// KPI window length for the admin dashboard trend figures.
const trendWindow = 30 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// BalanceSummary is the derived view of one account's money
type BalanceSummary struct {
	TotalDeposit     decimal.Decimal `json:"total_deposit"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	BaseBalance      decimal.Decimal `json:"base_balance"`
	OrderInvestment  decimal.Decimal `json:"order_investment"`
	RealizedPnL      decimal.Decimal `json:"realized_pnl"`
	AccountBalance   decimal.Decimal `json:"account_balance"`
}

// KPIMetric pairs a current-30-day total with its trend against the prior 30 days
type KPIMetric struct {
	Current decimal.Decimal `json:"current"`
	Prior   decimal.Decimal `json:"prior"`
	TrendPc decimal.Decimal `json:"trend_percent"`
}

// KPIReport is the admin dashboard aggregate view
type KPIReport struct {
	TotalUsers    int             `json:"total_users"`
	VerifiedUsers int             `json:"verified_users"`
	Signups       KPIMetric       `json:"signups"`
	Deposits      KPIMetric       `json:"deposits"`
	Withdrawals   KPIMetric       `json:"withdrawals"`
	OpenCapital   decimal.Decimal `json:"open_capital"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
}

// BalanceService derives account balances and admin KPIs from the two
// ledgers. It never writes; reads across the two tables are an
// eventually-consistent snapshot.
type BalanceService struct {
	txRepo    domain.CashTransactionRepository
	orderRepo domain.OrderRepository
	userRepo  domain.UserRepository
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(
	txRepo domain.CashTransactionRepository,
	orderRepo domain.OrderRepository,
	userRepo domain.UserRepository,
) *BalanceService {
	return &BalanceService{
		txRepo:    txRepo,
		orderRepo: orderRepo,
		userRepo:  userRepo,
	}
}

// ComputeBalance derives a user's spendable balance:
//
//	baseBalance    = completed deposits - completed withdrawals
//	accountBalance = baseBalance - open tradeAmount + closed profitLoss
//
// Open positions lock capital out of the spendable balance; only realized
// P&L feeds back in.
func (s *BalanceService) ComputeBalance(ctx context.Context, userID uuid.UUID) (*BalanceSummary, error) {
	deposits, err := s.txRepo.SumCompletedByType(ctx, userID, domain.TxTypeDeposit)
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}

	withdrawals, err := s.txRepo.SumCompletedByType(ctx, userID, domain.TxTypeWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	invested, err := s.orderRepo.SumOpenTradeAmount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum open trade amounts: %w", err)
	}

	realized, err := s.orderRepo.SumClosedProfitLoss(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum realized pnl: %w", err)
	}

	base := deposits.Sub(withdrawals)
	return &BalanceSummary{
		TotalDeposit:     deposits,
		TotalWithdrawals: withdrawals,
		BaseBalance:      base,
		OrderInvestment:  invested,
		RealizedPnL:      realized,
		AccountBalance:   base.Sub(invested).Add(realized),
	}, nil
}

// TrendPercent computes the percentage change from prior to current.
// A prior of zero reports 100% when current is nonzero and 0% otherwise,
// so an empty prior window never divides by zero.
func TrendPercent(prior, current decimal.Decimal) decimal.Decimal {
	if prior.IsZero() {
		if current.IsZero() {
			return decimal.Zero
		}
		return hundred
	}
	return current.Sub(prior).Div(prior).Mul(hundred)
}

// KPIReport builds the admin aggregate view: user counts, 30-day cash-flow
// trends, and the ledger-wide capital figures. now anchors the windows.
func (s *BalanceService) KPIReport(ctx context.Context, now time.Time) (*KPIReport, error) {
	total, verified, err := s.userRepo.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	windowStart := now.Add(-trendWindow)
	priorStart := now.Add(-2 * trendWindow)

	curSignups, err := s.userRepo.CountsInWindow(ctx, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count current signups: %w", err)
	}
	priorSignups, err := s.userRepo.CountsInWindow(ctx, priorStart, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count prior signups: %w", err)
	}

	deposits, err := s.windowedMetric(ctx, domain.TxTypeDeposit, priorStart, windowStart, now)
	if err != nil {
		return nil, err
	}
	withdrawals, err := s.windowedMetric(ctx, domain.TxTypeWithdrawal, priorStart, windowStart, now)
	if err != nil {
		return nil, err
	}

	openCapital, err := s.orderRepo.AllOpenCapital(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum open capital: %w", err)
	}
	realized, err := s.orderRepo.AllRealizedPnL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum realized pnl: %w", err)
	}

	curS := decimal.NewFromInt(int64(curSignups))
	priorS := decimal.NewFromInt(int64(priorSignups))

	return &KPIReport{
		TotalUsers:    total,
		VerifiedUsers: verified,
		Signups:       KPIMetric{Current: curS, Prior: priorS, TrendPc: TrendPercent(priorS, curS)},
		Deposits:      deposits,
		Withdrawals:   withdrawals,
		OpenCapital:   openCapital,
		RealizedPnL:   realized,
	}, nil
}

func (s *BalanceService) windowedMetric(ctx context.Context, txType string, priorStart, windowStart, now time.Time) (KPIMetric, error) {
	current, err := s.txRepo.SumCompletedInWindow(ctx, txType, windowStart, now)
	if err != nil {
		return KPIMetric{}, fmt.Errorf("failed to sum current %s window: %w", txType, err)
	}
	prior, err := s.txRepo.SumCompletedInWindow(ctx, txType, priorStart, windowStart)
	if err != nil {
		return KPIMetric{}, fmt.Errorf("failed to sum prior %s window: %w", txType, err)
	}
	return KPIMetric{Current: current, Prior: prior, TrendPc: TrendPercent(prior, current)}, nil
}
