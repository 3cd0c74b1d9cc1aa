package analysis

import (
	"encoding/json"
	"io"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trendline/backtest"
	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
	"github.com/rustyeddy/trendline/strategies"
)

// CalculateReport is the calculate path output.
type CalculateReport struct {
	Success    bool   `json:"success"`
	RunID      string `json:"run_id"`
	Period     string `json:"period"`
	PeriodName string `json:"period_name"`

	*signals.Summary
}

func newCalculateReport(runID string, p market.Period, sum *signals.Summary) *CalculateReport {
	return &CalculateReport{
		Success:    true,
		RunID:      runID,
		Period:     string(p),
		PeriodName: p.Name(),
		Summary:    sum,
	}
}

// TradeReport is a closed trade with money rounded to cents.
type TradeReport struct {
	BuyDate    string  `json:"buy_date"`
	BuyPrice   float64 `json:"buy_price"`
	SellDate   string  `json:"sell_date"`
	SellPrice  float64 `json:"sell_price"`
	Shares     float64 `json:"shares"`
	Profit     float64 `json:"profit"`
	ProfitRate float64 `json:"profit_rate"`
	Reason     string  `json:"reason"`
}

// BacktestReport is the backtest path output. Amounts and rates are
// rounded to two decimals; Result keeps the exact values.
type BacktestReport struct {
	Success    bool   `json:"success"`
	RunID      string `json:"run_id"`
	Period     string `json:"period"`
	PeriodName string `json:"period_name"`

	Strategies []strategies.Spec `json:"sell_strategies"`
	Relation   string            `json:"strategy_relation"`

	InitialAmount    float64 `json:"initial_amount"`
	FinalAmount      float64 `json:"final_amount"`
	TotalProfit      float64 `json:"total_profit"`
	TotalProfitRate  float64 `json:"total_profit_rate"`
	AnnualProfitRate float64 `json:"annual_profit_rate"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	TradingDays      int     `json:"trading_days"`
	TotalTrades      int     `json:"total_trades"`
	WinTrades        int     `json:"win_trades"`
	LossTrades       int     `json:"loss_trades"`

	Trades []TradeReport `json:"trades"`

	Result *backtest.Result `json:"-"`
}

func newBacktestReport(runID string, p market.Period, eng *backtest.Engine, r *backtest.Result) *BacktestReport {
	return &BacktestReport{
		Success:          true,
		RunID:            runID,
		Period:           string(p),
		PeriodName:       p.Name(),
		Strategies:       eng.Exits().Specs(),
		Relation:         string(eng.Exits().Relation()),
		InitialAmount:    round2(r.InitialAmount),
		FinalAmount:      round2(r.FinalAmount),
		TotalProfit:      round2(r.TotalProfit),
		TotalProfitRate:  round2(r.TotalProfitRate),
		AnnualProfitRate: round2(r.AnnualProfitRate),
		StartDate:        r.StartDate.Format(market.DateLayout),
		EndDate:          r.EndDate.Format(market.DateLayout),
		TradingDays:      r.TradingDays,
		TotalTrades:      len(r.Trades),
		WinTrades:        r.Wins,
		LossTrades:       r.Losses,
		Trades: lo.Map(r.Trades, func(t backtest.Trade, _ int) TradeReport {
			return TradeReport{
				BuyDate:    t.BuyDate.Format(market.DateLayout),
				BuyPrice:   round2(t.BuyPrice),
				SellDate:   t.SellDate.Format(market.DateLayout),
				SellPrice:  round2(t.SellPrice),
				Shares:     decimal.NewFromFloat(t.Shares).Round(4).InexactFloat64(),
				Profit:     round2(t.Profit),
				ProfitRate: round2(t.ProfitRate),
				Reason:     t.Reason,
			}
		}),
		Result: r,
	}
}

// ErrorReport is written in place of a report when a run fails.
type ErrorReport struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func NewErrorReport(err error) ErrorReport {
	return ErrorReport{Error: err.Error(), ErrorCode: errs.Code(err)}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func round2(x float64) float64 {
	return backtest.Money(x).InexactFloat64()
}
