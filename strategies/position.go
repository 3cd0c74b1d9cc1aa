package strategies

import "time"

// Position is the single open long position of a backtest along with the
// exit rule state that belongs to it.
type Position struct {
	EntryDate  time.Time
	EntryIndex int
	EntryPrice float64
	Shares     float64

	// HighWaterMark is the highest close since entry, seeded with the entry
	// price.
	HighWaterMark float64

	// MA20Armed is set once the close has been above its moving average
	// (and the minimum profit, if any, has been reached) since entry.
	MA20Armed       bool
	BelowMA20Streak int

	aboveMA20     bool
	reachedProfit bool
}

// NewPosition opens a fully allocated position.
func NewPosition(date time.Time, idx int, price, shares float64) *Position {
	p := &Position{
		EntryDate:  date,
		EntryIndex: idx,
		EntryPrice: price,
		Shares:     shares,
	}
	p.Reset()
	return p
}

// Gain returns the fractional gain of close over the entry price.
func (p *Position) Gain(close float64) float64 {
	return (close - p.EntryPrice) / p.EntryPrice
}

// Reset clears all exit rule state.
func (p *Position) Reset() {
	p.HighWaterMark = p.EntryPrice
	p.MA20Armed = false
	p.BelowMA20Streak = 0
	p.aboveMA20 = false
	p.reachedProfit = false
}
