// Package signals scans the trend line for threshold crossings.
package signals

import (
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/internal/errs"
)

// Kind is the direction of a signal.
type Kind string

const (
	Buy  Kind = "buy"
	Sell Kind = "sell"
)

const (
	// DefaultBuyThreshold is the level the trend line must cross upward.
	DefaultBuyThreshold = 10.0
	// SellThreshold is the fixed level the trend line must cross downward.
	SellThreshold = 90.0
)

// Signal is a crossing detected at one row.
type Signal struct {
	Index     int       `json:"-"`
	Date      time.Time `json:"date"`
	Close     float64   `json:"close"`
	TrendLine float64   `json:"trend_line"`
	Kind      Kind      `json:"kind"`
	Reason    string    `json:"reason"`
}

// ValidateBuyThreshold checks that th lies in [0,100].
func ValidateBuyThreshold(th float64) error {
	if th < 0 || th > 100 || th != th {
		return fmt.Errorf("%w: buy threshold must be in [0,100], got %v", errs.ErrInvalidParameter, th)
	}
	return nil
}

// At evaluates the crossing between prev and cur. Buy is checked first so
// that a buy threshold at or above the sell level still yields a buy.
func At(prev, cur, buyThreshold float64) (Kind, bool) {
	if prev <= buyThreshold && cur > buyThreshold {
		return Buy, true
	}
	if prev >= SellThreshold && cur < SellThreshold {
		return Sell, true
	}
	return "", false
}

// Detect returns the signals of rows in index order. The first row never
// carries a signal.
func Detect(rows []indicators.Row, buyThreshold float64) ([]Signal, error) {
	if err := ValidateBuyThreshold(buyThreshold); err != nil {
		return nil, err
	}

	var out []Signal
	for i := 1; i < len(rows); i++ {
		kind, ok := At(rows[i-1].TrendLine, rows[i].TrendLine, buyThreshold)
		if !ok {
			continue
		}
		out = append(out, Signal{
			Index:     i,
			Date:      rows[i].Date,
			Close:     rows[i].Close,
			TrendLine: rows[i].TrendLine,
			Kind:      kind,
			Reason:    reason(kind, buyThreshold),
		})
	}
	return out, nil
}

// Index maps row index to signal for O(1) lookup by the simulator.
func Index(sigs []Signal) map[int]Signal {
	return lo.KeyBy(sigs, func(s Signal) int { return s.Index })
}

// Split separates buys and sells, preserving order.
func Split(sigs []Signal) (buys, sells []Signal) {
	buys = lo.Filter(sigs, func(s Signal, _ int) bool { return s.Kind == Buy })
	sells = lo.Filter(sigs, func(s Signal, _ int) bool { return s.Kind == Sell })
	return buys, sells
}

func reason(k Kind, buyThreshold float64) string {
	if k == Buy {
		return fmt.Sprintf("trend line crossed above %.2f", buyThreshold)
	}
	return fmt.Sprintf("trend line crossed below %.2f", SellThreshold)
}
