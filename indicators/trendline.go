package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

// FlatPolicy decides the stochastic ratio when the trailing window is flat
// (HHV == LLV) and the ratio would divide by zero. The choice is visible in
// the output on flat markets, so it is part of the contract.
type FlatPolicy string

const (
	// FlatMidpoint uses 50, the middle of the 0..100 range.
	FlatMidpoint FlatPolicy = "midpoint"
	// FlatZero uses 0.
	FlatZero FlatPolicy = "zero"
	// FlatCarry repeats the previous ratio; the first bar falls back to 50.
	FlatCarry FlatPolicy = "carry"
)

const flatMidpoint = 50.0

// ParseFlatPolicy validates s. The empty string selects FlatMidpoint.
func ParseFlatPolicy(s string) (FlatPolicy, error) {
	switch FlatPolicy(s) {
	case "":
		return FlatMidpoint, nil
	case FlatMidpoint, FlatZero, FlatCarry:
		return FlatPolicy(s), nil
	default:
		return "", fmt.Errorf("%w: flat ratio policy %q (midpoint, zero, carry)", errs.ErrInvalidParameter, s)
	}
}

// Oscillator holds every stage of the trend line cascade. All slices have
// one entry per input bar.
type Oscillator struct {
	HHV   []float64
	LLV   []float64
	Ratio []float64
	SMA1  []float64
	SMA2  []float64
	V11   []float64
	Trend []float64
}

// TrendLine computes the trend line oscillator over bars:
//
//	ratio = (C - LLV(L,n)) / (HHV(H,n) - LLV(L,n)) * 100
//	SMA1  = SMA(ratio, 5, 1)
//	SMA2  = SMA(SMA1, 3, 1)
//	V11   = 3*SMA1 - 2*SMA2
//	trend = EMA(V11, 3)
func TrendLine(bars []market.Bar, n int, flat FlatPolicy) (*Oscillator, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: trend line needs at least one bar", errs.ErrInsufficientData)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: trend line window must be positive, got %d", errs.ErrInvalidParameter, n)
	}
	if flat == "" {
		flat = FlatMidpoint
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	osc := &Oscillator{}
	var err error
	if osc.HHV, err = HHV(highs, n); err != nil {
		return nil, err
	}
	if osc.LLV, err = LLV(lows, n); err != nil {
		return nil, err
	}

	osc.Ratio = make([]float64, len(bars))
	for i, b := range bars {
		span := osc.HHV[i] - osc.LLV[i]
		if span == 0 {
			osc.Ratio[i] = flatRatio(flat, osc.Ratio, i)
			continue
		}
		osc.Ratio[i] = stochastic(b.Close, osc.HHV[i], osc.LLV[i])
	}

	if osc.SMA1, err = SMA(osc.Ratio, 5, 1); err != nil {
		return nil, err
	}
	if osc.SMA2, err = SMA(osc.SMA1, 3, 1); err != nil {
		return nil, err
	}

	osc.V11 = make([]float64, len(bars))
	for i := range osc.V11 {
		osc.V11[i] = 3*osc.SMA1[i] - 2*osc.SMA2[i]
	}

	if osc.Trend, err = EMA(osc.V11, 3); err != nil {
		return nil, err
	}
	return osc, nil
}

func stochastic(close, hhv, llv float64) float64 {
	return (close - llv) / (hhv - llv) * 100
}

func flatRatio(p FlatPolicy, ratios []float64, i int) float64 {
	switch p {
	case FlatZero:
		return 0
	case FlatCarry:
		if i > 0 {
			return ratios[i-1]
		}
		return flatMidpoint
	default:
		return flatMidpoint
	}
}
