// Package loader reads daily bars from CSV exports. Header rows are located
// by keyword, columns are mapped from Chinese or English names, and rows
// whose prices do not parse are dropped.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
)

// Options control decoding and post-processing.
type Options struct {
	Encoding string
	// DeriveMA20 fills missing MA20 values with a 20 bar simple moving
	// average of the close.
	DeriveMA20 bool
}

// LoadFile opens path and calls Load. Files ending in .xz or .lzma are
// decompressed first.
func LoadFile(path string, opt Options) ([]market.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := decompress(path, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	bars, err := Load(r, opt)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return bars, nil
}

// Load parses bars from r. The result is ascending by date with one bar
// per date; the first occurrence of a date wins.
func Load(r io.Reader, opt Options) ([]market.Bar, error) {
	dr, err := Decode(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dr)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: csv: %v", errs.ErrMissingColumns, err)
	}
	rows = dropBlank(rows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", errs.ErrInsufficientData)
	}

	var cols columns
	start := 0
	if h := findHeader(rows); h >= 0 {
		cols = mapColumns(rows[h])
		start = h + 1
	} else {
		cols = mapColumns(make([]string, len(rows[0])))
	}
	if miss := cols.missing(); len(miss) > 0 {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingColumns, strings.Join(miss, ", "))
	}

	bars := make([]market.Bar, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if b, ok := parseRow(row, cols); ok {
			bars = append(bars, b)
		}
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no parsable rows", errs.ErrInsufficientData)
	}

	bars = dedupe(bars)
	if opt.DeriveMA20 {
		bars = DeriveMA20(bars)
	}
	return bars, nil
}

func parseRow(row []string, c columns) (market.Bar, bool) {
	cell := func(f field) string {
		if !c.has(f) || c[f] >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[c[f]])
	}

	date, ok := parseDate(cell(fDate))
	if !ok {
		return market.Bar{}, false
	}

	var px [4]float64
	for i, f := range []field{fOpen, fHigh, fLow, fClose} {
		v, ok := parseNumber(cell(f))
		if !ok {
			return market.Bar{}, false
		}
		px[i] = v
	}

	b := market.Bar{Date: date, Open: px[0], High: px[1], Low: px[2], Close: px[3]}
	if v, ok := parseNumber(cell(fVolume)); ok {
		b.Volume = v
	}
	if v, ok := parseNumber(cell(fMA20)); ok {
		b.MA20 = market.Float(v)
	}
	return b, true
}

var dateLayouts = []string{
	market.DateLayout,
	"2006/01/02",
	"2006/1/2",
	"2006-1-2",
	"2006.01.02",
	"20060102",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006/1/2 15:04",
	time.RFC3339,
}

// parseDate accepts the common export layouts and keeps the calendar day.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == "--" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func dropBlank(rows [][]string) [][]string {
	out := rows[:0]
	for _, r := range rows {
		if strings.TrimSpace(strings.Join(r, "")) != "" {
			out = append(out, r)
		}
	}
	return out
}

func dedupe(bars []market.Bar) []market.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for i, b := range bars {
		if i > 0 && b.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}
