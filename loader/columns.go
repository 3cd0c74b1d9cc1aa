package loader

import (
	"strings"
)

type field int

const (
	fDate field = iota
	fOpen
	fHigh
	fLow
	fClose
	fVolume
	fMA20
	numFields
)

var fieldNames = [numFields]string{"date", "open", "high", "low", "close", "volume", "ma20"}

// keywords are matched case-insensitively as substrings of the header
// cell. Fields are assigned in order and a column is claimed at most once.
var keywords = [numFields][]string{
	fDate:   {"交易日期", "时间", "日期", "date", "time"},
	fOpen:   {"开盘", "open"},
	fHigh:   {"最高", "high"},
	fLow:    {"最低", "low"},
	fClose:  {"收盘", "close", "价格", "price"},
	fVolume: {"成交量", "成交额", "volume", "amount"},
	fMA20:   {"ma20", "ma 20", "ma_20", "均线"},
}

// headerMarkers identify the header row among the first rows of a file.
var headerMarkers = []string{"时间", "开盘", "日期", "date", "open"}

const headerScanRows = 10

// columns maps a field to its column index, -1 when absent.
type columns [numFields]int

func (c columns) has(f field) bool { return c[f] >= 0 }

func (c columns) missing() []string {
	var out []string
	for _, f := range []field{fDate, fOpen, fHigh, fLow, fClose} {
		if !c.has(f) {
			out = append(out, fieldNames[f])
		}
	}
	return out
}

// findHeader returns the index of the first of the leading rows that looks
// like a header, or -1.
func findHeader(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		line := strings.ToLower(strings.Join(rows[i], " "))
		for _, m := range headerMarkers {
			if strings.Contains(line, m) {
				return i
			}
		}
	}
	return -1
}

// mapColumns assigns fields to header cells by keyword. When no open column
// is found and the row is wide enough, the conventional positional layout
// date, open, high, low, close[, volume] is used instead.
func mapColumns(header []string) columns {
	var c columns
	for f := range c {
		c[f] = -1
	}

	claimed := make(map[int]bool, len(header))
	for f := field(0); f < numFields; f++ {
	cells:
		for i, cell := range header {
			if claimed[i] {
				continue
			}
			name := strings.ToLower(strings.TrimSpace(cell))
			for _, kw := range keywords[f] {
				if strings.Contains(name, kw) {
					c[f] = i
					claimed[i] = true
					break cells
				}
			}
		}
	}

	if !c.has(fOpen) && len(header) >= 5 {
		return positional(len(header), c[fMA20])
	}
	return c
}

func positional(width, ma int) columns {
	c := columns{fDate: 0, fOpen: 1, fHigh: 2, fLow: 3, fClose: 4, fVolume: -1, fMA20: -1}
	if width >= 6 {
		c[fVolume] = 5
	}
	if ma > 5 {
		c[fMA20] = ma
	}
	return c
}
