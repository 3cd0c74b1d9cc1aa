package loader

import (
	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/trendline/market"
)

// MA20Period is the window of the derived moving average.
const MA20Period = 20

// DeriveMA20 returns a copy of bars with missing MA20 values filled by the
// simple moving average of the close. Bars inside the first window keep
// their value (usually nil). Existing values are left untouched.
func DeriveMA20(bars []market.Bar) []market.Bar {
	out := make([]market.Bar, len(bars))
	copy(out, bars)
	if len(bars) < MA20Period {
		return out
	}

	sma := talib.Sma(market.Closes(bars), MA20Period)
	for i := MA20Period - 1; i < len(out); i++ {
		if out[i].MA20 == nil {
			out[i].MA20 = market.Float(sma[i])
		}
	}
	return out
}
