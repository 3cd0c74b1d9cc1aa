package signals

import (
	"github.com/samber/lo"

	"github.com/rustyeddy/trendline/indicators"
)

// DefaultRecent is the number of trailing rows reported by Summarize.
const DefaultRecent = 20

// Stats counts signals and zone rows.
type Stats struct {
	BuySignals  int `json:"buy_signals_count"`
	SellSignals int `json:"sell_signals_count"`
	Oversold    int `json:"oversold_count"`
	Overbought  int `json:"overbought_count"`
}

// Summary is the calculate-path view of an indicator run.
type Summary struct {
	TotalRecords int              `json:"total_records"`
	Statistics   Stats            `json:"statistics"`
	BuySignals   []Signal         `json:"buy_signals"`
	SellSignals  []Signal         `json:"sell_signals"`
	Recent       []indicators.Row `json:"recent_data"`
}

// Summarize detects signals over rows and gathers the counts and the last
// recent rows. recent <= 0 selects DefaultRecent.
func Summarize(rows []indicators.Row, buyThreshold float64, recent int) (*Summary, error) {
	sigs, err := Detect(rows, buyThreshold)
	if err != nil {
		return nil, err
	}
	if recent <= 0 {
		recent = DefaultRecent
	}

	buys, sells := Split(sigs)
	s := &Summary{
		TotalRecords: len(rows),
		Statistics: Stats{
			BuySignals:  len(buys),
			SellSignals: len(sells),
			Oversold:    lo.CountBy(rows, func(r indicators.Row) bool { return r.Oversold }),
			Overbought:  lo.CountBy(rows, func(r indicators.Row) bool { return r.Overbought }),
		},
		BuySignals:  buys,
		SellSignals: sells,
	}

	start := len(rows) - recent
	if start < 0 {
		start = 0
	}
	s.Recent = append([]indicators.Row(nil), rows[start:]...)
	return s, nil
}
