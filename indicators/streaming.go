package indicators

import (
	"fmt"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

// Stream computes the trend line one bar at a time. After the same bars
// its values are identical to TrendLine.
type Stream struct {
	n    int
	flat FlatPolicy

	highs []float64
	lows  []float64

	count int
	ratio float64
	sma1  float64
	sma2  float64
	trend float64
}

// NewStream returns a trend line stream over an n bar HHV/LLV window.
func NewStream(n int, flat FlatPolicy) (*Stream, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: trend line window must be positive, got %d", errs.ErrInvalidParameter, n)
	}
	if _, err := ParseFlatPolicy(string(flat)); err != nil {
		return nil, err
	}
	if flat == "" {
		flat = FlatMidpoint
	}
	return &Stream{
		n:     n,
		flat:  flat,
		highs: make([]float64, 0, n),
		lows:  make([]float64, 0, n),
	}, nil
}

func (s *Stream) Name() string {
	return fmt.Sprintf("TREND(%d)", s.n)
}

// Warmup is the number of bars before the HHV/LLV window is full.
func (s *Stream) Warmup() int {
	return s.n
}

func (s *Stream) Reset() {
	s.highs = s.highs[:0]
	s.lows = s.lows[:0]
	s.count = 0
	s.ratio, s.sma1, s.sma2, s.trend = 0, 0, 0, 0
}

// Update feeds the next bar and returns the new trend line value.
func (s *Stream) Update(b market.Bar) float64 {
	s.highs = push(s.highs, b.High, s.n)
	s.lows = push(s.lows, b.Low, s.n)

	hhv, llv := s.highs[0], s.lows[0]
	for i := 1; i < len(s.highs); i++ {
		hhv = max(hhv, s.highs[i])
		llv = min(llv, s.lows[i])
	}

	if hhv-llv == 0 {
		switch {
		case s.flat == FlatZero:
			s.ratio = 0
		case s.flat == FlatCarry && s.count > 0:
			// keep the previous ratio
		default:
			s.ratio = flatMidpoint
		}
	} else {
		s.ratio = stochastic(b.Close, hhv, llv)
	}

	if s.count == 0 {
		s.sma1 = s.ratio
		s.sma2 = s.sma1
		s.trend = 3*s.sma1 - 2*s.sma2
	} else {
		s.sma1 = smaStep(s.sma1, s.ratio, 5, 1)
		s.sma2 = smaStep(s.sma2, s.sma1, 3, 1)
		keep, alpha := emaWeights(3)
		s.trend = s.trend*keep + (3*s.sma1-2*s.sma2)*alpha
	}
	s.count++
	return s.trend
}

// Ready reports whether the HHV/LLV window is full.
func (s *Stream) Ready() bool {
	return s.count >= s.n
}

// Value is the latest trend line value, 0 before the first bar.
func (s *Stream) Value() float64 {
	return s.trend
}

// Count is the number of bars seen since the last Reset.
func (s *Stream) Count() int {
	return s.count
}

func push(xs []float64, x float64, n int) []float64 {
	if len(xs) == n {
		copy(xs, xs[1:])
		xs = xs[:n-1]
	}
	return append(xs, x)
}
