package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/analysis"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Compute the trend line and report buy/sell crossings",
	Long: `Calculate resamples the daily bars to the requested period, computes
support, resistance and the trend line oscillator, and reports every buy
crossing of the buy threshold and every sell crossing below 90.

Example:
  trendline calculate -f data/000001.csv -p W --buy-threshold 15`,
	RunE: runCalculate,
}

var (
	calcPeriod       string
	calcN            int
	calcFlat         string
	calcBuyThreshold float64
	calcRecent       int
	calcJSON         bool
)

func init() {
	rootCmd.AddCommand(calculateCmd)
	addDataFlags(calculateCmd)

	calculateCmd.Flags().StringVarP(&calcPeriod, "period", "p", "D", "bar period (D, W, M)")
	calculateCmd.Flags().IntVar(&calcN, "n", 5, "HHV/LLV window")
	calculateCmd.Flags().StringVar(&calcFlat, "flat", "midpoint", "ratio on a flat window (midpoint, zero, carry)")
	calculateCmd.Flags().Float64VarP(&calcBuyThreshold, "buy-threshold", "b", signals.DefaultBuyThreshold, "buy crossing level (0-100)")
	calculateCmd.Flags().IntVar(&calcRecent, "recent", signals.DefaultRecent, "trailing rows to report")
	calculateCmd.Flags().BoolVar(&calcJSON, "json", false, "write the report as JSON")
}

func applyIndicatorFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("period") {
		cfg.Indicator.Period = calcPeriod
	}
	if f.Changed("n") {
		cfg.Indicator.N = calcN
	}
	if f.Changed("flat") {
		cfg.Indicator.FlatRatio = calcFlat
	}
	if f.Changed("buy-threshold") {
		cfg.Indicator.BuyThreshold = calcBuyThreshold
	}
	if f.Changed("recent") {
		cfg.Indicator.RecentRows = calcRecent
	}
}

func runCalculate(cmd *cobra.Command, args []string) error {
	applyDataFlags(cmd)
	applyIndicatorFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return reportError(cmd, calcJSON, err)
	}

	ctx := cmd.Context()
	bars, err := loadBars(ctx)
	if err != nil {
		return err
	}

	period, _ := market.ParsePeriod(cfg.Indicator.Period)
	svc := analysis.New(analysis.WithLogger(logger))
	rep, err := svc.Calculate(ctx, bars, analysis.CalculateParams{
		Period:       period,
		Indicator:    cfg.IndicatorParams(),
		BuyThreshold: cfg.Indicator.BuyThreshold,
		Recent:       cfg.Indicator.RecentRows,
	})
	if err != nil {
		return reportError(cmd, calcJSON, err)
	}

	if calcJSON {
		return analysis.WriteJSON(cmd.OutOrStdout(), rep)
	}
	printCalculate(cmd.OutOrStdout(), rep)
	return nil
}

func printCalculate(w io.Writer, rep *analysis.CalculateReport) {
	fmt.Fprintf(w, "✓ %s (%s): %d bars\n", rep.PeriodName, rep.Period, rep.TotalRecords)
	fmt.Fprintf(w, "  Buy signals:  %d\n", rep.Statistics.BuySignals)
	fmt.Fprintf(w, "  Sell signals: %d\n", rep.Statistics.SellSignals)
	fmt.Fprintf(w, "  Oversold:     %d\n", rep.Statistics.Oversold)
	fmt.Fprintf(w, "  Overbought:   %d\n", rep.Statistics.Overbought)

	printSignals(w, "Buy", rep.BuySignals)
	printSignals(w, "Sell", rep.SellSignals)

	if len(rep.Recent) > 0 {
		fmt.Fprintf(w, "\nRecent %d bars\n", len(rep.Recent))
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, r := range rep.Recent {
			fmt.Fprintf(w, "%s  close %10.2f  trend %6.2f\n", r.Day(), r.Close, r.TrendLine)
		}
	}
}

func printSignals(w io.Writer, title string, sigs []signals.Signal) {
	if len(sigs) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s signals\n", title)
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, s := range sigs {
		fmt.Fprintf(w, "%s  close %10.2f  trend %6.2f  %s\n",
			s.Date.Format(market.DateLayout), s.Close, s.TrendLine, s.Reason)
	}
}

// reportError writes the JSON error report when JSON output was requested
// and returns err for the exit status.
func reportError(cmd *cobra.Command, asJSON bool, err error) error {
	if asJSON {
		_ = analysis.WriteJSON(cmd.OutOrStdout(), analysis.NewErrorReport(err))
	}
	return err
}
