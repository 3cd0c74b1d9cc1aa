// Package analysis runs the calculate and backtest paths over a loaded bar
// series: validate, resample to the requested period, compute the trend
// line, then summarize signals or simulate trades.
package analysis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/trendline/backtest"
	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/internal/logging"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/pkg/id"
	"github.com/rustyeddy/trendline/signals"
)

// Service is stateless apart from its logger and id source and is safe for
// concurrent use.
type Service struct {
	logger *zap.Logger
	ids    *id.Generator
}

type Option func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// WithIDs sets the run id source.
func WithIDs(g *id.Generator) Option {
	return func(s *Service) { s.ids = g }
}

func New(opts ...Option) *Service {
	s := &Service{logger: zap.NewNop(), ids: id.NewGenerator(0)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CalculateParams selects the indicator run.
type CalculateParams struct {
	Period       market.Period
	Indicator    indicators.Config
	BuyThreshold float64
	Recent       int
}

// BacktestParams selects the simulation.
type BacktestParams struct {
	Period   market.Period
	Backtest backtest.Config
}

// Calculate computes the indicator rows of bars at p.Period and summarizes
// their signals.
func (s *Service) Calculate(ctx context.Context, bars []market.Bar, p CalculateParams) (*CalculateReport, error) {
	runID := s.ids.New()
	log := s.logger.With(zap.String("run_id", runID), zap.String("op", "calculate"))
	start := time.Now()

	sum, series, err := s.calculate(ctx, bars, p)
	if err != nil {
		return nil, failed(log, err)
	}

	log.Info("calculate finished",
		zap.String("period", string(p.Period)),
		zap.Int("input_bars", len(bars)),
		zap.Int("bars", len(series)),
		zap.Int("buy_signals", sum.Statistics.BuySignals),
		zap.Int("sell_signals", sum.Statistics.SellSignals),
		zap.Duration("elapsed", time.Since(start)),
	)
	return newCalculateReport(runID, p.Period, sum), nil
}

func (s *Service) calculate(ctx context.Context, bars []market.Bar, p CalculateParams) (*signals.Summary, []market.Bar, error) {
	if err := signals.ValidateBuyThreshold(p.BuyThreshold); err != nil {
		return nil, nil, err
	}
	series, err := prepare(ctx, bars, p.Period)
	if err != nil {
		return nil, nil, err
	}
	rows, err := indicators.Compute(series, p.Indicator)
	if err != nil {
		return nil, nil, err
	}
	sum, err := signals.Summarize(rows, p.BuyThreshold, p.Recent)
	if err != nil {
		return nil, nil, err
	}
	return sum, series, nil
}

// Backtest simulates bars at p.Period.
func (s *Service) Backtest(ctx context.Context, bars []market.Bar, p BacktestParams) (*BacktestReport, error) {
	runID := s.ids.New()
	log := s.logger.With(zap.String("run_id", runID), zap.String("op", "backtest"))
	start := time.Now()

	eng, err := backtest.NewEngine(p.Backtest)
	if err != nil {
		return nil, failed(log, err)
	}

	log.Debug("backtest starting",
		zap.String("period", string(p.Period)),
		zap.Float64("initial_amount", p.Backtest.InitialAmount),
		zap.String("relation", string(eng.Exits().Relation())),
		zap.Int("strategies", len(eng.Exits().Specs())),
	)

	series, err := prepare(ctx, bars, p.Period)
	if err != nil {
		return nil, failed(log, err)
	}
	res, err := eng.Run(series)
	if err != nil {
		return nil, failed(log, err)
	}

	log.Info("backtest finished",
		zap.Int("bars", len(series)),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("final_amount", res.FinalAmount),
		zap.Float64("total_profit_rate", res.TotalProfitRate),
		zap.Duration("elapsed", time.Since(start)),
	)
	return newBacktestReport(runID, p.Period, eng, res), nil
}

func failed(log *zap.Logger, err error) error {
	log.Warn("run failed", zap.String("code", errs.Code(err)), zap.Error(err))
	return err
}

// prepare validates the raw daily series and resamples it.
func prepare(ctx context.Context, bars []market.Bar, p market.Period) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q (supported: D, W, M)", errs.ErrInvalidPeriod, p)
	}
	if err := market.Validate(bars); err != nil {
		return nil, err
	}
	return market.Resample(bars, p)
}
