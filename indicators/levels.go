package indicators

import (
	"math"

	"github.com/rustyeddy/trendline/market"
)

// Levels holds the support, resistance and midline of one bar.
type Levels struct {
	Support    float64
	Resistance float64
	Midline    float64
}

// LevelsAt derives the levels of bar cur from the previous close:
//
//	L1 = min(prevClose, low)
//	P1 = max(prevClose, high) - L1
//	support    = L1 + P1*0.5/8
//	resistance = L1 + P1*7/8
//	midline    = (support+resistance)/2
func LevelsAt(prevClose float64, cur market.Bar) Levels {
	l1 := math.Min(prevClose, cur.Low)
	p1 := math.Max(prevClose, cur.High) - l1

	lv := Levels{
		Support:    l1 + p1*0.5/8,
		Resistance: l1 + p1*7/8,
	}
	lv.Midline = (lv.Support + lv.Resistance) / 2
	return lv
}
