package backtest

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
	"github.com/rustyeddy/trendline/strategies"
)

func day(i int) time.Time {
	return time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func ohlc(i int, open, close float64) market.Bar {
	return market.Bar{
		Date:   day(i),
		Open:   open,
		High:   max(open, close),
		Low:    min(open, close),
		Close:  close,
		Volume: 1000,
	}
}

// flatBars builds bars whose open and close are the given prices.
func flatBars(closes ...float64) []market.Bar {
	out := make([]market.Bar, len(closes))
	for i, c := range closes {
		out[i] = ohlc(i, c, c)
	}
	return out
}

// wave is a deterministic oscillating series with several full cycles.
func wave(n int) []market.Bar {
	out := make([]market.Bar, n)
	prev := 100.0
	for i := range out {
		c := 100 + 40*math.Sin(float64(i)*2*math.Pi/40) + float64(i)*0.1
		out[i] = ohlc(i, prev, c)
		out[i].High += 1
		out[i].Low -= 1
		prev = c
	}
	return out
}

func sig(kind signals.Kind, idx int) signals.Signal {
	return signals.Signal{Index: idx, Date: day(idx), Kind: kind, Reason: "trend line crossed"}
}

func sigMap(ss ...signals.Signal) map[int]signals.Signal {
	return signals.Index(ss)
}

func pct(x float64) *float64 { return &x }

func newTestEngine(t *testing.T, rel strategies.Relation, specs ...strategies.Spec) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Relation = rel
	if len(specs) > 0 {
		cfg.Strategies = specs
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

func stopLoss(p float64) strategies.Spec {
	return strategies.Spec{Kind: strategies.StopLoss, Percent: pct(p)}
}

func trailing(p float64) strategies.Spec {
	return strategies.Spec{Kind: strategies.TrailingStop, Percent: pct(p)}
}

func TestNewEngine_Errors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Strategies = nil
	_, err := NewEngine(cfg)
	assert.ErrorIs(t, err, errs.ErrNoSellStrategy)

	cfg = DefaultConfig()
	cfg.InitialAmount = -1
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	cfg = DefaultConfig()
	cfg.BuyThreshold = 101
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	cfg = DefaultConfig()
	cfg.Relation = "NOR"
	_, err = NewEngine(cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	assert.Equal(t, signals.DefaultBuyThreshold, DefaultConfig().BuyThreshold)

	cfg := DefaultConfig()
	cfg.InitialAmount = 0
	cfg.BuyThreshold = 0
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, DefaultInitialAmount, e.cfg.InitialAmount)
	assert.Equal(t, 0.0, e.cfg.BuyThreshold)
}

func TestSimulate_StopLossScenario(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, stopLoss(5))
	bars := flatBars(100, 100, 95, 90)

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0))))
	require.Len(t, e.trades, 1)

	tr := e.trades[0]
	assert.Equal(t, day(1), tr.BuyDate)
	assert.Equal(t, 100.0, tr.BuyPrice)
	assert.Equal(t, day(2), tr.SellDate)
	assert.Equal(t, 95.0, tr.SellPrice)
	assert.Equal(t, "stop-loss(5.00%)", tr.Reason)
	assert.InDelta(t, -5000, tr.Profit, 1e-6)
	assert.InDelta(t, -5, tr.ProfitRate, 1e-9)
	assert.InDelta(t, 95000, e.cash, 1e-6)
}

func TestSimulate_EntersAtNextOpenWithFullAllocation(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, stopLoss(50))
	bars := []market.Bar{ohlc(0, 10, 11), ohlc(1, 20, 21), ohlc(2, 21, 22)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0))))
	require.Len(t, e.trades, 1)

	tr := e.trades[0]
	assert.Equal(t, 20.0, tr.BuyPrice)
	assert.InEpsilon(t, DefaultInitialAmount, tr.Shares*tr.BuyPrice, 1e-6)
}

func TestSimulate_BuyOnLastBarIsDropped(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := flatBars(100, 101, 102)

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 2))))
	assert.Empty(t, e.trades)
	assert.Equal(t, DefaultInitialAmount, e.cash)
}

func TestSimulate_EndOfData(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := flatBars(100, 100, 104, 107)

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0))))
	require.Len(t, e.trades, 1)

	tr := e.trades[0]
	assert.Equal(t, bars[3].Date, tr.SellDate)
	assert.Equal(t, bars[3].Close, tr.SellPrice)
	assert.Equal(t, EndOfData, tr.Reason)
}

func TestSimulate_SellSignalExitsAtNextOpen(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := []market.Bar{ohlc(0, 100, 100), ohlc(1, 100, 110), ohlc(2, 110, 120), ohlc(3, 118, 119)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0), sig(signals.Sell, 2))))
	require.Len(t, e.trades, 1)

	tr := e.trades[0]
	assert.Equal(t, day(3), tr.SellDate)
	assert.Equal(t, 118.0, tr.SellPrice)
	assert.Equal(t, "trend line crossed", tr.Reason)
}

func TestSimulate_SellSignalOnEntryBarIsHonored(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := []market.Bar{ohlc(0, 100, 100), ohlc(1, 100, 101), ohlc(2, 102, 103), ohlc(3, 103, 104)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0), sig(signals.Sell, 1))))
	require.Len(t, e.trades, 1)
	assert.Equal(t, day(2), e.trades[0].SellDate)
	assert.Equal(t, 102.0, e.trades[0].SellPrice)
}

func TestSimulate_SellSignalOnLastBarFallsToEndOfData(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := flatBars(100, 100, 101)

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0), sig(signals.Sell, 2))))
	require.Len(t, e.trades, 1)
	assert.Equal(t, EndOfData, e.trades[0].Reason)
	assert.Equal(t, 101.0, e.trades[0].SellPrice)
}

func TestSimulate_StrategyBeatsSellSignalOnSameBar(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, stopLoss(5))
	bars := []market.Bar{ohlc(0, 100, 100), ohlc(1, 100, 100), ohlc(2, 99, 90), ohlc(3, 80, 80)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0), sig(signals.Sell, 2))))
	require.Len(t, e.trades, 1)

	tr := e.trades[0]
	assert.Equal(t, day(2), tr.SellDate)
	assert.Equal(t, 90.0, tr.SellPrice)
	assert.Equal(t, "stop-loss(10.00%)", tr.Reason)
}

func TestSimulate_NoStrategyExitOnEntryBar(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, stopLoss(5))
	bars := []market.Bar{ohlc(0, 100, 100), ohlc(1, 100, 80), ohlc(2, 80, 81)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0))))
	require.Len(t, e.trades, 1)
	assert.Equal(t, day(2), e.trades[0].SellDate)
	assert.Equal(t, "stop-loss(19.00%)", e.trades[0].Reason)
}

func TestSimulate_ReentryOnlyAfterExitBar(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, stopLoss(5))
	bars := flatBars(100, 100, 90, 90, 95, 96, 97)

	err := e.simulate(bars, sigMap(
		sig(signals.Buy, 0),
		sig(signals.Buy, 2), // same bar as the stop loss exit
		sig(signals.Buy, 3),
	))
	require.NoError(t, err)
	require.Len(t, e.trades, 2)

	assert.Equal(t, day(2), e.trades[0].SellDate)
	assert.Equal(t, day(4), e.trades[1].BuyDate)
	assert.Equal(t, 95.0, e.trades[1].BuyPrice)
	assert.Equal(t, EndOfData, e.trades[1].Reason)
}

func TestSimulate_ReentryAfterSellSignalFill(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, trailing(10))
	bars := flatBars(100, 100, 200, 190, 100, 100, 101)

	err := e.simulate(bars, sigMap(
		sig(signals.Buy, 0),
		sig(signals.Sell, 2),
		sig(signals.Buy, 3), // fill bar of the sell
		sig(signals.Buy, 4),
	))
	require.NoError(t, err)
	require.Len(t, e.trades, 2)

	assert.Equal(t, day(3), e.trades[0].SellDate)
	assert.Equal(t, day(5), e.trades[1].BuyDate)
	// a fresh high-water mark: the old peak of 200 would have tripped the stop
	assert.Equal(t, EndOfData, e.trades[1].Reason)
}

func TestSimulate_AndExitsNoEarlierThanOr(t *testing.T) {
	t.Parallel()

	bars := flatBars(100, 100, 94, 89, 85)
	sigs := sigMap(sig(signals.Buy, 0))

	or := newTestEngine(t, strategies.Or, stopLoss(5), trailing(10))
	require.NoError(t, or.simulate(bars, sigs))
	and := newTestEngine(t, strategies.And, stopLoss(5), trailing(10))
	require.NoError(t, and.simulate(bars, sigs))

	require.Len(t, or.trades, 1)
	require.Len(t, and.trades, 1)
	assert.Equal(t, day(2), or.trades[0].SellDate)
	assert.Equal(t, day(3), and.trades[0].SellDate)
	assert.Equal(t, "stop-loss(11.00%) & trailing-stop(11.00%)", and.trades[0].Reason)
	assert.False(t, and.trades[0].SellDate.Before(or.trades[0].SellDate))
}

func TestResult_Metrics(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	bars := []market.Bar{ohlc(0, 100, 100), ohlc(1, 100, 105), ohlc(365, 110, 110)}

	require.NoError(t, e.simulate(bars, sigMap(sig(signals.Buy, 0))))
	r, err := e.result(bars, calendarDays(bars[0].Date, bars[2].Date))
	require.NoError(t, err)

	assert.Equal(t, 365, r.TradingDays)
	assert.InDelta(t, 110000, r.FinalAmount, 1e-6)
	assert.InDelta(t, 10000, r.TotalProfit, 1e-6)
	assert.InDelta(t, 10, r.TotalProfitRate, 1e-9)
	assert.InDelta(t, 10, r.AnnualProfitRate, 1e-9)
	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 0, r.Losses)
	assert.Equal(t, day(0), r.StartDate)
	assert.Equal(t, day(365), r.EndDate)
	assert.InDelta(t, 100, r.WinRate(), 1e-9)
}

func TestRun_SingleDayIsBacktestError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	_, err := e.Run(flatBars(100))
	assert.ErrorIs(t, err, errs.ErrBacktest)
}

func TestRun_MissingMA20(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or, strategies.Spec{Kind: strategies.BelowMA20, Days: 3})
	_, err := e.Run(wave(60))
	assert.ErrorIs(t, err, errs.ErrMovingAverageColumnMissing)
}

func TestRun_EmptyInput(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, strategies.Or)
	_, err := e.Run(nil)
	assert.ErrorIs(t, err, errs.ErrInsufficientData)
}

func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	bars := wave(200)
	e := newTestEngine(t, strategies.Or, stopLoss(8), trailing(12))

	r1, err := e.Run(bars)
	require.NoError(t, err)
	r2, err := e.Run(bars)
	require.NoError(t, err)

	require.NotEmpty(t, r1.Trades)
	assert.Equal(t, r1, r2)

	first := r1.Trades[0]
	assert.InEpsilon(t, DefaultInitialAmount, first.Shares*first.BuyPrice, 1e-6)

	for i := 1; i < len(r1.Trades); i++ {
		assert.True(t, r1.Trades[i].BuyDate.After(r1.Trades[i-1].SellDate))
	}
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	r := &Result{
		InitialAmount:    100000,
		FinalAmount:      110000,
		TotalProfit:      10000,
		TotalProfitRate:  10,
		AnnualProfitRate: 10,
		TradingDays:      365,
		StartDate:        day(0),
		EndDate:          day(365),
		Wins:             1,
		Trades: []Trade{{
			BuyDate: day(1), BuyPrice: 100, SellDate: day(365), SellPrice: 110,
			Shares: 1000, Profit: 10000, ProfitRate: 10, Reason: EndOfData,
		}},
	}

	var buf bytes.Buffer
	PrintResult(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "Backtest Result")
	assert.Contains(t, out, "Start:         2023-01-02")
	assert.Contains(t, out, "Return:        10.00%")
	assert.Contains(t, out, "Win Rate:      100.00%")
	assert.Contains(t, out, "end of data")
}

func TestMoney(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2.68", Money(2.675).String())
	assert.Equal(t, "-1.5", Money(-1.499).String())
}
