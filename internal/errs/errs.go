// Package errs holds the error taxonomy shared by the indicator pipeline and
// the backtest simulator. Failures are wrapped with fmt.Errorf("%w: ...") so
// callers can match them with errors.Is.
package errs

import "errors"

var (
	// ErrInvalidPeriod is returned for an unsupported period code.
	ErrInvalidPeriod = errors.New("invalid period")

	// ErrInsufficientData is returned for an empty or too-short bar sequence.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMissingColumns is returned when a required input column is absent.
	ErrMissingColumns = errors.New("missing columns")

	// ErrMovingAverageColumnMissing is returned when the below-ma20 exit is
	// selected but the series carries no moving average values.
	ErrMovingAverageColumnMissing = errors.New("moving average column missing")

	// ErrInvalidParameter is returned for an out-of-range threshold, percent
	// or day count.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNoSellStrategy is returned when a backtest selects no exit strategy.
	ErrNoSellStrategy = errors.New("no sell strategy selected")

	// ErrCalculation is returned for unexpected numeric failures such as NaN
	// propagation.
	ErrCalculation = errors.New("calculation error")

	// ErrBacktest is returned for simulation level failures.
	ErrBacktest = errors.New("backtest error")
)

// Code maps an error onto the stable code string reported to callers.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPeriod):
		return "INVALID_PERIOD"
	case errors.Is(err, ErrInsufficientData):
		return "INSUFFICIENT_DATA"
	case errors.Is(err, ErrMovingAverageColumnMissing):
		return "MOVING_AVERAGE_COLUMN_MISSING"
	case errors.Is(err, ErrMissingColumns):
		return "MISSING_COLUMNS"
	case errors.Is(err, ErrInvalidParameter):
		return "INVALID_PARAMETER"
	case errors.Is(err, ErrNoSellStrategy):
		return "NO_SELL_STRATEGY"
	case errors.Is(err, ErrCalculation):
		return "CALCULATION_ERROR"
	case errors.Is(err, ErrBacktest):
		return "BACKTEST_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
