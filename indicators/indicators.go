// Package indicators computes the support/resistance levels and the trend
// line oscillator for a bar series. Every function is a pure scan over its
// input; computing twice over the same bars yields identical rows.
package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

const (
	// DefaultN is the default HHV/LLV window of the trend line.
	DefaultN = 5

	// OversoldLevel and OverboughtLevel bound the oscillator zones.
	OversoldLevel   = 10.0
	OverboughtLevel = 90.0
)

// Config controls the trend line computation.
type Config struct {
	N    int        `json:"n" yaml:"n"`
	Flat FlatPolicy `json:"flat_ratio" yaml:"flat_ratio"`
}

// DefaultConfig returns N=5 with the midpoint flat-window policy.
func DefaultConfig() Config {
	return Config{N: DefaultN, Flat: FlatMidpoint}
}

// Row is one bar with its derived indicator values. Support, Resistance and
// Midline are nil on the first row because there is no previous close.
type Row struct {
	market.Bar

	Support    *float64 `json:"support"`
	Resistance *float64 `json:"resistance"`
	Midline    *float64 `json:"midline"`

	TrendLine float64 `json:"trend_line"`
	// TrendChange is the percent change of the trend line from the previous
	// row; nil on the first row or when the previous value is zero.
	TrendChange *float64 `json:"trend_change"`

	Oversold   bool `json:"oversold"`
	Overbought bool `json:"overbought"`

	Bottoming   bool `json:"bottoming"`
	BottomCross bool `json:"bottom_cross"`
	Topping     bool `json:"topping"`
	TopCross    bool `json:"top_cross"`
}

// Compute derives one Row per bar.
func Compute(bars []market.Bar, cfg Config) ([]Row, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no bars to compute", errs.ErrInsufficientData)
	}
	if cfg.N == 0 {
		cfg.N = DefaultN
	}
	if cfg.N < 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", errs.ErrInvalidParameter, cfg.N)
	}
	if _, err := ParseFlatPolicy(string(cfg.Flat)); err != nil {
		return nil, err
	}
	for _, b := range bars {
		if !finite(b.Open, b.High, b.Low, b.Close) {
			return nil, fmt.Errorf("%w: non-finite price on %s", errs.ErrCalculation, b.Day())
		}
	}

	osc, err := TrendLine(bars, cfg.N, cfg.Flat)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(bars))
	for i, b := range bars {
		r := Row{Bar: b, TrendLine: osc.Trend[i]}
		if !finite(r.TrendLine) {
			return nil, fmt.Errorf("%w: trend line is %v on %s", errs.ErrCalculation, r.TrendLine, b.Day())
		}

		if i > 0 {
			lv := LevelsAt(bars[i-1].Close, b)
			r.Support = market.Float(lv.Support)
			r.Resistance = market.Float(lv.Resistance)
			r.Midline = market.Float(lv.Midline)

			r.Oversold = r.TrendLine < OversoldLevel
			r.Overbought = r.TrendLine > OverboughtLevel

			if prev := osc.Trend[i-1]; prev != 0 {
				r.TrendChange = market.Float((r.TrendLine - prev) / prev * 100)
			}
		}
		rows[i] = r
	}

	markZones(rows)
	return rows, nil
}

// TrendValues returns the trend line of rows.
func TrendValues(rows []Row) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.TrendLine
	}
	return out
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
