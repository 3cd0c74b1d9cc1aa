package market

import (
	"fmt"
	"time"

	"github.com/rustyeddy/trendline/internal/errs"
)

// Resample aggregates ascending daily bars into bars of period p.
//
// Weekly buckets are calendar weeks (Monday through Sunday) and monthly
// buckets are calendar months. Each bucket takes the first open, the
// highest high, the lowest low, the last close, the summed volume and the
// last non-missing MA20. The aggregated bar is dated with the last session
// inside the bucket. Partial buckets at either end are emitted as they are.
//
// For Daily the input is returned as a copy.
func Resample(bars []Bar, p Period) ([]Bar, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidPeriod, string(p))
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: nothing to resample", errs.ErrInsufficientData)
	}

	if p == Daily {
		out := make([]Bar, len(bars))
		copy(out, bars)
		return out, nil
	}

	out := make([]Bar, 0, len(bars)/4+1)
	var (
		agg     Bar
		bucket  time.Time
		started bool
	)

	for _, b := range bars {
		key := bucketStart(b.Date, p)
		if !started || !key.Equal(bucket) {
			if started {
				out = append(out, agg)
			}
			bucket = key
			started = true
			agg = b
			if b.MA20 != nil {
				agg.MA20 = Float(*b.MA20)
			}
			continue
		}

		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Close = b.Close
		agg.Volume += b.Volume
		agg.Date = b.Date
		if b.MA20 != nil {
			agg.MA20 = Float(*b.MA20)
		}
	}
	out = append(out, agg)

	return out, nil
}

// bucketStart returns the first calendar day of the bucket holding t.
func bucketStart(t time.Time, p Period) time.Time {
	y, m, d := t.Date()
	switch p {
	case Weekly:
		// Monday = 0 ... Sunday = 6
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	}
}
