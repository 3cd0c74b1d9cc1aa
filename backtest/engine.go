// Package backtest simulates a single fully allocated long position driven
// by trend line signals for entries and by exit rules for exits.
package backtest

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
	"github.com/rustyeddy/trendline/strategies"
)

// EndOfData is the exit reason of a position still open on the last bar.
const EndOfData = "end of data"

// DefaultInitialAmount is the starting cash when none is given.
const DefaultInitialAmount = 100000.0

// Config parameterizes a backtest. Start from DefaultConfig: a zero
// InitialAmount selects DefaultInitialAmount, but a zero BuyThreshold is a
// valid level and is used as given.
type Config struct {
	InitialAmount float64
	BuyThreshold  float64
	Indicator     indicators.Config

	Strategies []strategies.Spec
	Relation   strategies.Relation
}

// Trade is a closed round trip.
type Trade struct {
	BuyDate    time.Time `json:"buy_date"`
	BuyPrice   float64   `json:"buy_price"`
	SellDate   time.Time `json:"sell_date"`
	SellPrice  float64   `json:"sell_price"`
	Shares     float64   `json:"shares"`
	Profit     float64   `json:"profit"`
	ProfitRate float64   `json:"profit_rate"`
	Reason     string    `json:"reason"`
}

// Engine runs backtests for one Config.
type Engine struct {
	cfg   Config
	exits *strategies.Engine

	cash   float64
	pos    *strategies.Position
	trades []Trade
}

// NewEngine validates cfg and builds the exit rule engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.InitialAmount == 0 {
		cfg.InitialAmount = DefaultInitialAmount
	}
	if cfg.InitialAmount < 0 || !finite(cfg.InitialAmount) {
		return nil, fmt.Errorf("%w: initial amount must be positive, got %v",
			errs.ErrInvalidParameter, cfg.InitialAmount)
	}
	if err := signals.ValidateBuyThreshold(cfg.BuyThreshold); err != nil {
		return nil, err
	}

	exits, err := strategies.NewEngine(cfg.Strategies, cfg.Relation)
	if err != nil {
		return nil, err
	}

	return &Engine{cfg: cfg, exits: exits}, nil
}

// Exits returns the exit rule engine in use.
func (e *Engine) Exits() *strategies.Engine { return e.exits }

// Run simulates bars from a flat position. Run may be called repeatedly;
// each call starts over with the initial amount.
func (e *Engine) Run(bars []market.Bar) (*Result, error) {
	if err := market.Validate(bars); err != nil {
		return nil, err
	}
	if err := e.exits.CheckSeries(bars); err != nil {
		return nil, err
	}

	days := calendarDays(bars[0].Date, bars[len(bars)-1].Date)
	if days <= 0 {
		return nil, fmt.Errorf("%w: trading days must be positive, got %d", errs.ErrBacktest, days)
	}

	rows, err := indicators.Compute(bars, e.cfg.Indicator)
	if err != nil {
		return nil, err
	}
	sigs, err := signals.Detect(rows, e.cfg.BuyThreshold)
	if err != nil {
		return nil, err
	}

	if err := e.simulate(bars, signals.Index(sigs)); err != nil {
		return nil, err
	}
	return e.result(bars, days)
}

func (e *Engine) simulate(bars []market.Bar, bySig map[int]signals.Signal) error {
	e.cash = e.cfg.InitialAmount
	e.pos = nil
	e.trades = nil

	n := len(bars)
	lastExit := -1

	for j := 0; j < n; j++ {
		bar := bars[j]
		sig, hasSig := bySig[j]

		if e.pos == nil {
			// A buy on the last bar has no bar to fill on.
			if hasSig && sig.Kind == signals.Buy && j > lastExit && j+1 < n {
				if err := e.open(bars[j+1], j+1); err != nil {
					return err
				}
			}
			continue
		}

		// 1) Exit rules, on bars after the entry bar, fill at this close.
		if j > e.pos.EntryIndex {
			if hit, why := e.exits.Evaluate(e.pos, bar); hit {
				e.close(bar.Date, bar.Close, why)
				lastExit = j
				continue
			}
		}

		// 2) Sell signal fills at the next open.
		if hasSig && sig.Kind == signals.Sell && j+1 < n {
			next := bars[j+1]
			e.close(next.Date, next.Open, sig.Reason)
			lastExit = j + 1
		}
	}

	if e.pos != nil {
		last := bars[n-1]
		e.close(last.Date, last.Close, EndOfData)
	}
	return nil
}

func (e *Engine) open(b market.Bar, idx int) error {
	if b.Open <= 0 || !finite(b.Open) {
		return fmt.Errorf("%w: cannot enter at open %v on %s", errs.ErrBacktest, b.Open, b.Day())
	}
	shares := e.cash / b.Open
	e.pos = strategies.NewPosition(b.Date, idx, b.Open, shares)
	e.exits.Reset(e.pos)
	e.cash = 0
	return nil
}

func (e *Engine) close(date time.Time, price float64, reason string) {
	p := e.pos
	e.pos = nil

	proceeds := p.Shares * price
	e.cash += proceeds

	e.trades = append(e.trades, Trade{
		BuyDate:    p.EntryDate,
		BuyPrice:   p.EntryPrice,
		SellDate:   date,
		SellPrice:  price,
		Shares:     p.Shares,
		Profit:     proceeds - p.Shares*p.EntryPrice,
		ProfitRate: (price - p.EntryPrice) / p.EntryPrice * 100,
		Reason:     reason,
	})
}
