package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
	"github.com/rustyeddy/trendline/strategies"
)

// Result summarizes a run. Rates are percentages.
type Result struct {
	InitialAmount    float64 `json:"initial_amount"`
	FinalAmount      float64 `json:"final_amount"`
	TotalProfit      float64 `json:"total_profit"`
	TotalProfitRate  float64 `json:"total_profit_rate"`
	AnnualProfitRate float64 `json:"annual_profit_rate"`
	TradingDays      int     `json:"trading_days"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Wins   int `json:"win_trades"`
	Losses int `json:"loss_trades"`

	Trades []Trade `json:"trades"`
}

// DefaultConfig returns the default buy threshold and initial amount with
// the stop loss rule.
func DefaultConfig() Config {
	return Config{
		InitialAmount: DefaultInitialAmount,
		BuyThreshold:  signals.DefaultBuyThreshold,
		Indicator:     indicators.DefaultConfig(),
		Strategies: []strategies.Spec{
			{Kind: strategies.StopLoss, Percent: market.Float(strategies.DefaultStopLossPercent)},
		},
		Relation: strategies.Or,
	}
}

func (e *Engine) result(bars []market.Bar, days int) (*Result, error) {
	initial := e.cfg.InitialAmount
	final := e.cash

	annual := (math.Pow(final/initial, 365/float64(days)) - 1) * 100
	if !finite(annual) {
		return nil, fmt.Errorf("%w: annual profit rate is %v", errs.ErrBacktest, annual)
	}

	trades := append([]Trade{}, e.trades...)
	return &Result{
		InitialAmount:    initial,
		FinalAmount:      final,
		TotalProfit:      final - initial,
		TotalProfitRate:  (final - initial) / initial * 100,
		AnnualProfitRate: annual,
		TradingDays:      days,
		StartDate:        bars[0].Date,
		EndDate:          bars[len(bars)-1].Date,
		Wins:             lo.CountBy(trades, func(t Trade) bool { return t.Profit > 0 }),
		Losses:           lo.CountBy(trades, func(t Trade) bool { return t.Profit < 0 }),
		Trades:           trades,
	}, nil
}

// WinRate is the percentage of trades with a positive profit.
func (r *Result) WinRate() float64 {
	if len(r.Trades) == 0 {
		return 0
	}
	return float64(r.Wins) / float64(len(r.Trades)) * 100
}

// calendarDays counts whole calendar days between two bar dates.
func calendarDays(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(s).Hours() / 24)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
