package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(d int, o, h, l, c float64) market.Bar {
	return market.Bar{
		Date:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d),
		Open:  o,
		High:  h,
		Low:   l,
		Close: c,
	}
}

func createTestBars() []market.Bar {
	return []market.Bar{
		bar(0, 100, 105, 99, 102),
		bar(1, 102, 107, 101, 105),
		bar(2, 105, 108, 104, 106),
		bar(3, 106, 110, 105, 108),
		bar(4, 108, 112, 107, 110),
		bar(5, 110, 113, 109, 111),
		bar(6, 111, 115, 110, 113),
		bar(7, 113, 116, 112, 114),
		bar(8, 114, 118, 113, 116),
		bar(9, 116, 120, 115, 118),
		bar(10, 118, 119, 100, 101),
		bar(11, 101, 102, 95, 96),
	}
}

func TestSMA_SeedsWithFirstSample(t *testing.T) {
	xs := []float64{42.5, 1, 2, 3}
	for n := 1; n <= 10; n++ {
		out, err := SMA(xs, n, 1)
		require.NoError(t, err)
		assert.Equal(t, xs[0], out[0], "n=%d", n)
	}
}

func TestSMA_KnownSequence(t *testing.T) {
	// y1 = (20 + 4*10)/5 = 12
	// y2 = (30 + 4*12)/5 = 15.6
	out, err := SMA([]float64{10, 20, 30}, 5, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 12, 15.6}, out, 1e-12)
}

func TestSMA_BadParams(t *testing.T) {
	_, err := SMA([]float64{1}, 0, 1)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
	_, err = SMA([]float64{1}, 3, 4)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	out, err := SMA(nil, 3, 1)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEMA_KnownSequence(t *testing.T) {
	// alpha = 2/(3+1) = 0.5
	// 10, 10.5, 11.25, 12.125
	out, err := EMA([]float64{10, 11, 12, 13}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 12.125, out[3], 1e-9)
	assert.Equal(t, 10.0, out[0])

	_, err = EMA([]float64{1}, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestHHVLLV_NarrowingWindow(t *testing.T) {
	xs := []float64{3, 1, 4, 1, 5, 9, 2}

	hhv, err := HHV(xs, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 4, 4, 5, 9, 9}, hhv)

	llv, err := LLV(xs, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 1, 1, 1, 1, 2}, llv)

	_, err = HHV(xs, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestLevelsAt(t *testing.T) {
	// L1 = min(10, 9) = 9, P1 = max(10, 12) - 9 = 3
	lv := LevelsAt(10, bar(1, 10, 12, 9, 11))
	assert.InDelta(t, 9.1875, lv.Support, 1e-12)
	assert.InDelta(t, 11.625, lv.Resistance, 1e-12)
	assert.InDelta(t, 10.40625, lv.Midline, 1e-12)

	// gap down: previous close above the whole bar
	lv = LevelsAt(20, bar(1, 10, 12, 9, 11))
	assert.InDelta(t, 9+11*0.5/8, lv.Support, 1e-12)
	assert.InDelta(t, 9+11*7.0/8, lv.Resistance, 1e-12)
}

func TestTrendLine_KnownCascade(t *testing.T) {
	// n=1 makes each ratio depend on its own bar: 50, 100, 0
	bars := []market.Bar{
		bar(0, 10, 12, 8, 10),
		bar(1, 10, 12, 8, 12),
		bar(2, 12, 12, 8, 8),
	}

	osc, err := TrendLine(bars, 1, FlatMidpoint)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{50, 100, 0}, osc.Ratio, 1e-12)
	assert.InDeltaSlice(t, []float64{50, 60, 48}, osc.SMA1, 1e-12)
	assert.InDeltaSlice(t, []float64{50, 160.0 / 3, 464.0 / 9}, osc.SMA2, 1e-9)
	assert.InDeltaSlice(t, []float64{50, 220.0 / 3, 368.0 / 9}, osc.V11, 1e-9)
	assert.InDeltaSlice(t, []float64{50, 185.0 / 3, 923.0 / 18}, osc.Trend, 1e-9)
}

func TestTrendLine_FlatPolicies(t *testing.T) {
	bars := []market.Bar{
		bar(0, 10, 12, 8, 11), // ratio 75
		bar(1, 10, 10, 10, 10),
	}

	tests := []struct {
		policy FlatPolicy
		want   float64
	}{
		{FlatMidpoint, 50},
		{FlatZero, 0},
		{FlatCarry, 75},
		{"", 50},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			osc, err := TrendLine(bars, 1, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, 75.0, osc.Ratio[0])
			assert.Equal(t, tt.want, osc.Ratio[1])
		})
	}

	flat := []market.Bar{bar(0, 10, 10, 10, 10), bar(1, 10, 10, 10, 10)}
	osc, err := TrendLine(flat, 5, FlatCarry)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50}, osc.Trend)

	osc, err = TrendLine(flat, 5, FlatZero)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, osc.Trend)
}

func TestParseFlatPolicy(t *testing.T) {
	p, err := ParseFlatPolicy("")
	require.NoError(t, err)
	assert.Equal(t, FlatMidpoint, p)

	_, err = ParseFlatPolicy("mean")
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestCompute(t *testing.T) {
	bars := createTestBars()

	rows, err := Compute(bars, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, rows, len(bars))

	first := rows[0]
	assert.Nil(t, first.Support)
	assert.Nil(t, first.Resistance)
	assert.Nil(t, first.Midline)
	assert.Nil(t, first.TrendChange)
	assert.False(t, first.Oversold)
	assert.False(t, first.Overbought)

	for i, r := range rows[1:] {
		require.NotNil(t, r.Support, "row %d", i+1)
		assert.LessOrEqual(t, *r.Support, *r.Midline)
		assert.LessOrEqual(t, *r.Midline, *r.Resistance)
		assert.Equal(t, r.TrendLine < OversoldLevel, r.Oversold)
		assert.Equal(t, r.TrendLine > OverboughtLevel, r.Overbought)
		assert.Equal(t, bars[i+1], r.Bar)
	}

	osc, err := TrendLine(bars, DefaultN, FlatMidpoint)
	require.NoError(t, err)
	assert.Equal(t, osc.Trend, TrendValues(rows))
}

func TestCompute_Idempotent(t *testing.T) {
	bars := createTestBars()

	a, err := Compute(bars, DefaultConfig())
	require.NoError(t, err)
	b, err := Compute(bars, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(nil, DefaultConfig())
	assert.ErrorIs(t, err, errs.ErrInsufficientData)

	_, err = Compute(createTestBars(), Config{N: -1})
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	_, err = Compute(createTestBars(), Config{N: 5, Flat: "bogus"})
	assert.ErrorIs(t, err, errs.ErrInvalidParameter)

	bars := createTestBars()
	bars[3].Close = math.NaN()
	_, err = Compute(bars, DefaultConfig())
	assert.ErrorIs(t, err, errs.ErrCalculation)
}

func TestFilter(t *testing.T) {
	got := Filter([]bool{true, true, true, false, true}, 2)
	assert.Equal(t, []bool{true, false, true, false, true}, got)

	got = Filter([]bool{true, true, true, true}, 15)
	assert.Equal(t, []bool{true, false, false, false}, got)
}

func TestStaircaseCrosses(t *testing.T) {
	assert.True(t, bottomCross(8, 12))
	assert.True(t, bottomCross(4, 6.5))
	assert.True(t, bottomCross(-1, 0.5))
	assert.False(t, bottomCross(12, 13))
	assert.False(t, bottomCross(8, 10))

	assert.True(t, topCross(92, 88))
	assert.True(t, topCross(101, 99.5))
	assert.False(t, topCross(85, 80))
}
