package backtest

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/trendline/market"
)

// Money rounds x half away from zero to two decimals.
func Money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

func fixed(x float64) string {
	return Money(x).StringFixed(2)
}

// PrintResult writes a human readable report of r.
func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.StartDate.Format(market.DateLayout))
	fmt.Fprintf(w, "End:           %s\n", r.EndDate.Format(market.DateLayout))
	fmt.Fprintf(w, "Days:          %d\n", r.TradingDays)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", len(r.Trades))
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %s%%\n", fixed(r.WinRate()))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Initial:       %s\n", fixed(r.InitialAmount))
	fmt.Fprintf(w, "Final:         %s\n", fixed(r.FinalAmount))
	fmt.Fprintf(w, "Net P/L:       %s\n", fixed(r.TotalProfit))
	fmt.Fprintf(w, "Return:        %s%%\n", fixed(r.TotalProfitRate))
	fmt.Fprintf(w, "Annualized:    %s%%\n", fixed(r.AnnualProfitRate))

	if len(r.Trades) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trades")
		fmt.Fprintln(w, "--------------------------------------------------")
		for i, t := range r.Trades {
			fmt.Fprintf(w, "%3d  %s @ %s -> %s @ %s  %s (%s%%)  %s\n",
				i+1,
				t.BuyDate.Format(market.DateLayout), fixed(t.BuyPrice),
				t.SellDate.Format(market.DateLayout), fixed(t.SellPrice),
				fixed(t.Profit), fixed(t.ProfitRate),
				t.Reason)
		}
	}

	fmt.Fprintln(w)
}
