package market

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/trendline/internal/errs"
)

// Period is the bar aggregation unit.
type Period string

const (
	Daily   Period = "D"
	Weekly  Period = "W"
	Monthly Period = "M"
)

var periodNames = map[Period]string{
	Daily:   "日线",
	Weekly:  "周线",
	Monthly: "月线",
}

// ParsePeriod accepts the single letter codes (D, W, M) as well as the
// spelled out forms, case-insensitively.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return Daily, nil
	case "w", "week", "weekly":
		return Weekly, nil
	case "m", "month", "monthly":
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: D, W, M)", errs.ErrInvalidPeriod, s)
	}
}

// Valid reports whether p is one of the supported periods.
func (p Period) Valid() bool {
	_, ok := periodNames[p]
	return ok
}

// Name returns the display name of the period.
func (p Period) Name() string {
	if n, ok := periodNames[p]; ok {
		return n
	}
	return string(p)
}

func (p Period) String() string { return string(p) }
