package market

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/internal/errs"
)

// DateLayout is the calendar date format used in reports and stores.
const DateLayout = "2006-01-02"

// Bar is one OHLCV bar for a single trading session (or an aggregated
// period). MA20 is the externally supplied 20 period moving average of the
// close and is nil when the source has no value for that session.
type Bar struct {
	Date   time.Time `json:"date" yaml:"date"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
	MA20   *float64  `json:"ma20,omitempty" yaml:"ma20,omitempty"`
}

// Day returns the bar date formatted as YYYY-MM-DD.
func (b Bar) Day() string {
	return b.Date.Format(DateLayout)
}

// HasMA20 reports whether the bar carries a moving average value.
func (b Bar) HasMA20() bool {
	return b.MA20 != nil
}

// Float returns a pointer to x. Handy for optional fields such as MA20.
func Float(x float64) *float64 {
	return &x
}

// Validate checks that bars is non-empty, strictly ascending by date and
// that every bar is internally consistent (low <= open,close <= high).
func Validate(bars []Bar) error {
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", errs.ErrInsufficientData)
	}
	for i, b := range bars {
		if b.Date.IsZero() {
			return fmt.Errorf("%w: bar %d has no date", errs.ErrMissingColumns, i)
		}
		if b.High < b.Low {
			return fmt.Errorf("%w: bar %s high %.4f below low %.4f",
				errs.ErrInvalidParameter, b.Day(), b.High, b.Low)
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return fmt.Errorf("%w: bar %s not after %s",
				errs.ErrInvalidParameter, b.Day(), bars[i-1].Day())
		}
	}
	return nil
}

// HasMA20Column reports whether any bar in the series carries a moving
// average value. A series without a single value is treated as a series
// without the column.
func HasMA20Column(bars []Bar) bool {
	for _, b := range bars {
		if b.MA20 != nil {
			return true
		}
	}
	return false
}

// Closes returns the close prices of bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
