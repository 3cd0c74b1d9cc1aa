package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendline/internal/errs"
)

// SMA is the recursive weighted moving average used by charting packages
// (SMA(X,N,M) in TDX notation):
//
//	y[0] = x[0]
//	y[i] = (M*x[i] + (N-M)*y[i-1]) / N
//
// It is stateful across the whole series, so it is computed as a scan.
func SMA(xs []float64, n, m int) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: SMA window must be positive, got %d", errs.ErrInvalidParameter, n)
	}
	if m <= 0 || m > n {
		return nil, fmt.Errorf("%w: SMA weight must be in [1,%d], got %d", errs.ErrInvalidParameter, n, m)
	}

	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out, nil
	}

	nf, mf := float64(n), float64(m)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = smaStep(out[i-1], xs[i], nf, mf)
	}
	return out, nil
}

func smaStep(prev, x, n, m float64) float64 {
	return (m*x + (n-m)*prev) / n
}

// EMA computes the exponential moving average with alpha = 2/(period+1),
// seeded with the first sample (no SMA warmup):
//
//	y[0] = x[0]
//	y[i] = y[i-1]*(period-1)/(period+1) + x[i]*2/(period+1)
func EMA(xs []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: EMA period must be positive, got %d", errs.ErrInvalidParameter, period)
	}

	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out, nil
	}

	keep, alpha := emaWeights(period)
	out[0] = xs[0]
	for i := 1; i < len(xs); i++ {
		out[i] = out[i-1]*keep + xs[i]*alpha
	}
	return out, nil
}

func emaWeights(period int) (keep, alpha float64) {
	p := float64(period)
	return (p - 1) / (p + 1), 2 / (p + 1)
}

// HHV returns the highest value over the trailing n samples ending at each
// index. Near the start of the series the window narrows to the samples
// available.
func HHV(xs []float64, n int) ([]float64, error) {
	return window(xs, n, func(a, b float64) bool { return a > b })
}

// LLV returns the lowest value over the trailing n samples ending at each
// index, narrowing near the start like HHV.
func LLV(xs []float64, n int) ([]float64, error) {
	return window(xs, n, func(a, b float64) bool { return a < b })
}

func window(xs []float64, n int, better func(a, b float64) bool) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", errs.ErrInvalidParameter, n)
	}

	out := make([]float64, len(xs))
	for i := range xs {
		start := i - n + 1
		if start < 0 {
			start = 0
		}
		best := xs[start]
		for j := start + 1; j <= i; j++ {
			if better(xs[j], best) {
				best = xs[j]
			}
		}
		out[i] = best
	}
	return out, nil
}
