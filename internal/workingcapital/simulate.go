package workingcapital

import (
	"github.com/iwvelando/cashflow-planner/internal/invoice"
	"github.com/iwvelando/cashflow-planner/pkg/mathutil"
)

// ProjectionPoint is the cash balance entering a forecast day. Day 0 is the
// opening balance; day i reflects the flows of forecast days 0 through i-1.
// Borrowed is what had to be drawn to bring the balance back to the buffer.
type ProjectionPoint struct {
	Day      int     `json:"day" yaml:"day"`
	Balance  float64 `json:"balance" yaml:"balance"`
	Borrowed float64 `json:"borrowed" yaml:"borrowed"`
}

// Simulate walks the forecast one day at a time. Inflows are scaled by
// arAdjustment and outflows by apAdjustment; whenever the balance falls below
// buffer the shortfall is borrowed and the balance is clamped to buffer.
func Simulate(forecast []invoice.ForecastDay, initialCash, buffer, arAdjustment, apAdjustment float64) []ProjectionPoint {
	projection := make([]ProjectionPoint, 0, len(forecast)+1)
	projection = append(projection, ProjectionPoint{Day: 0, Balance: initialCash})

	balance := initialCash
	for i, day := range forecast {
		balance += day.Inflow*arAdjustment - day.Outflow*apAdjustment

		var borrowed float64
		if balance < buffer {
			borrowed = buffer - balance
			balance = buffer
		}
		projection = append(projection, ProjectionPoint{Day: i + 1, Balance: balance, Borrowed: borrowed})
	}
	return projection
}

// SimulationMetrics summarize a projection.
type SimulationMetrics struct {
	AverageCashBalance float64 `json:"average_cash_balance" yaml:"average_cash_balance"`
	MinimumCashBalance float64 `json:"minimum_cash_balance" yaml:"minimum_cash_balance"`
	TotalBorrowing     float64 `json:"total_borrowing" yaml:"total_borrowing"`
	BorrowingCost      float64 `json:"borrowing_cost" yaml:"borrowing_cost"`
	BorrowingDays      int     `json:"borrowing_days" yaml:"borrowing_days"`
	// InvestmentIncome is the return on cash held above the buffer.
	InvestmentIncome float64 `json:"investment_income" yaml:"investment_income"`
}

// Rates prices borrowing and idle cash, both per day.
type Rates struct {
	BorrowingRate  float64
	InvestmentRate float64
}

// Summarize computes projection metrics. Borrowing cost charges every
// borrowed amount for the whole horizon.
func Summarize(projection []ProjectionPoint, buffer float64, rates Rates, horizonDays int) SimulationMetrics {
	if len(projection) == 0 {
		return SimulationMetrics{}
	}
	var m SimulationMetrics
	balances := make([]float64, len(projection))
	borrowed := make([]float64, len(projection))
	for i, p := range projection {
		balances[i] = p.Balance
		borrowed[i] = p.Borrowed
		if p.Borrowed > 0 {
			m.BorrowingDays++
		}
		if p.Balance > buffer {
			m.InvestmentIncome += (p.Balance - buffer) * rates.InvestmentRate
		}
	}
	m.AverageCashBalance = mathutil.Mean(balances)
	m.MinimumCashBalance = mathutil.MinOf(balances)
	m.TotalBorrowing = mathutil.Sum(borrowed)
	m.BorrowingCost = m.TotalBorrowing * rates.BorrowingRate * float64(horizonDays)
	return m
}
