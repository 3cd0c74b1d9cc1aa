package indicators

// filterWindow is the FILTER length used by the bottoming/topping markers.
const filterWindow = 15

// Filter keeps the first true of every run of cond and suppresses the next
// n-1 trues of that run; after n consecutive trues it re-arms.
func Filter(cond []bool, n int) []bool {
	out := make([]bool, len(cond))
	count := 0
	for i, c := range cond {
		if !c {
			count = 0
			continue
		}
		if count == 0 {
			out[i] = true
		}
		count++
		if count >= n {
			count = 0
		}
	}
	return out
}

// step is one rung of a staircase cross: the previous value sits strictly
// inside (lo, hi) and the current value crosses level.
type step struct {
	lo, hi, level float64
}

var (
	// bottom crosses: 11, 6, 3, 1, 0 from the band just below each level.
	bottomSteps = []step{
		{lo: 6, hi: 11, level: 11},
		{lo: 3, hi: 6, level: 6},
		{lo: 1, hi: 3, level: 3},
		{lo: 0, hi: 1, level: 1},
	}
	// top crosses: 89, 94, 97, 99 from the band just above each level.
	topSteps = []step{
		{lo: 89, hi: 94, level: 89},
		{lo: 94, hi: 97, level: 94},
		{lo: 97, hi: 99, level: 97},
		{lo: 99, hi: 100, level: 99},
	}
)

func bottomCross(prev, cur float64) bool {
	for _, s := range bottomSteps {
		if prev > s.lo && prev < s.hi && cur > s.level {
			return true
		}
	}
	return prev < 0 && cur > 0
}

func topCross(prev, cur float64) bool {
	for _, s := range topSteps {
		if prev > s.lo && prev < s.hi && cur < s.level {
			return true
		}
	}
	return prev > 100 && cur < 100
}

// markZones fills the bottoming/topping markers of rows. It expects
// TrendLine and Midline to be populated.
func markZones(rows []Row) {
	low := make([]bool, len(rows))
	high := make([]bool, len(rows))
	for i, r := range rows {
		low[i] = r.TrendLine <= 11
		high[i] = r.TrendLine > 89
	}
	lowFirst := Filter(low, filterWindow)
	highFirst := Filter(high, filterWindow)

	for i := range rows {
		r := &rows[i]
		if r.Midline != nil {
			r.Bottoming = r.TrendLine < 11 && lowFirst[i] && r.Close < *r.Midline
			r.Topping = r.TrendLine > 89 && highFirst[i] && r.Close > *r.Midline
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1].TrendLine
		r.BottomCross = bottomCross(prev, r.TrendLine)
		r.TopCross = topCross(prev, r.TrendLine)
	}
}
