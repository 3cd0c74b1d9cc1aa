package strategies

import (
	"fmt"
	"math"

	"github.com/rustyeddy/trendline/market"
)

// Evaluate runs rule s against bar b for position p and reports whether it
// triggered along with the exit reason. Rules that keep state (trailing
// stop, below MA20) update p as a side effect, so each rule must be
// evaluated exactly once per bar.
func Evaluate(s Spec, p *Position, b market.Bar) (bool, string) {
	switch s.Kind {
	case StopLoss:
		return stopLoss(s, p, b)
	case TakeProfit:
		return takeProfit(s, p, b)
	case BelowMA20:
		return belowMA20(s, p, b)
	case TrailingStop:
		return trailingStop(s, p, b)
	}
	return false, ""
}

func stopLoss(s Spec, p *Position, b market.Bar) (bool, string) {
	g := p.Gain(b.Close)
	if g <= -*s.Percent/100 {
		return true, fmt.Sprintf("stop-loss(%.2f%%)", math.Abs(g*100))
	}
	return false, ""
}

func takeProfit(s Spec, p *Position, b market.Bar) (bool, string) {
	if s.Percent == nil {
		return false, ""
	}
	g := p.Gain(b.Close)
	if g >= *s.Percent/100 {
		return true, fmt.Sprintf("take-profit(%.2f%%)", g*100)
	}
	return false, ""
}

// belowMA20 arms after the close has been above MA20 since entry (and the
// minimum profit was reached, when set). Once armed, Days consecutive closes
// below MA20 trigger on the following bar. The current bar still updates the
// streak, so a close back at or above MA20 clears it.
func belowMA20(s Spec, p *Position, b market.Bar) (bool, string) {
	due := p.MA20Armed && p.BelowMA20Streak >= s.Days
	reason := ""
	if due {
		reason = fmt.Sprintf("below-ma20(%dd)", s.Days)
		if s.MinProfit != nil {
			reason = fmt.Sprintf("below-ma20(%dd, profit %.2f%%)", s.Days, p.Gain(b.Close)*100)
		}
	}

	if b.MA20 == nil {
		return due, reason
	}
	ma := *b.MA20

	if b.Close > ma {
		p.aboveMA20 = true
	}
	if s.MinProfit != nil && p.Gain(b.Close) >= *s.MinProfit/100 {
		p.reachedProfit = true
	}
	if !p.MA20Armed {
		p.MA20Armed = p.aboveMA20 && (s.MinProfit == nil || p.reachedProfit)
		if !p.MA20Armed {
			return due, reason
		}
	}

	if b.Close < ma {
		p.BelowMA20Streak++
	} else {
		p.BelowMA20Streak = 0
	}
	return due, reason
}

func trailingStop(s Spec, p *Position, b market.Bar) (bool, string) {
	if b.Close > p.HighWaterMark {
		p.HighWaterMark = b.Close
	}
	dd := (b.Close - p.HighWaterMark) / p.HighWaterMark
	if dd <= -*s.Percent/100 {
		return true, fmt.Sprintf("trailing-stop(%.2f%%)", math.Abs(dd*100))
	}
	return false, ""
}
