package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Feed bars one at a time through the trend line and print crossings",
	Long: `Replay walks the bars in date order and updates the trend line one bar
at a time, the way a live feed would. Each bar prints its trend line value and
any crossing it completes.

Example:
  trendline replay -f data/000001.csv -p W --delay 200ms --signals-only`,
	RunE: runReplay,
}

var (
	replayPeriod       string
	replayN            int
	replayFlat         string
	replayBuyThreshold float64
	replayDelay        time.Duration
	replaySignalsOnly  bool
)

func init() {
	rootCmd.AddCommand(replayCmd)
	addDataFlags(replayCmd)

	replayCmd.Flags().StringVarP(&replayPeriod, "period", "p", "D", "bar period (D, W, M)")
	replayCmd.Flags().IntVar(&replayN, "n", 5, "HHV/LLV window")
	replayCmd.Flags().StringVar(&replayFlat, "flat", "midpoint", "ratio on a flat window (midpoint, zero, carry)")
	replayCmd.Flags().Float64VarP(&replayBuyThreshold, "buy-threshold", "b", signals.DefaultBuyThreshold, "buy crossing level (0-100)")
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 0, "pause between bars")
	replayCmd.Flags().BoolVar(&replaySignalsOnly, "signals-only", false, "print only bars that complete a crossing")
}

func runReplay(cmd *cobra.Command, args []string) error {
	applyDataFlags(cmd)
	f := cmd.Flags()
	if f.Changed("period") {
		cfg.Indicator.Period = replayPeriod
	}
	if f.Changed("n") {
		cfg.Indicator.N = replayN
	}
	if f.Changed("flat") {
		cfg.Indicator.FlatRatio = replayFlat
	}
	if f.Changed("buy-threshold") {
		cfg.Indicator.BuyThreshold = replayBuyThreshold
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	bars, err := loadBars(ctx)
	if err != nil {
		return err
	}
	period, _ := market.ParsePeriod(cfg.Indicator.Period)
	if bars, err = market.Resample(bars, period); err != nil {
		return err
	}

	ip := cfg.IndicatorParams()
	stream, err := indicators.NewStream(ip.N, ip.Flat)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var buys, sells int
	prev := 0.0
	for i, b := range bars {
		if err := ctx.Err(); err != nil {
			return err
		}

		cur := stream.Update(b)
		var kind signals.Kind
		ok := false
		if i > 0 {
			kind, ok = signals.At(prev, cur, cfg.Indicator.BuyThreshold)
		}
		prev = cur

		if ok {
			if kind == signals.Buy {
				buys++
			} else {
				sells++
			}
		}
		if ok || !replaySignalsOnly {
			fmt.Fprintf(w, "%s  close %10.2f  trend %6.2f  %s\n", b.Day(), b.Close, cur, kind)
		}

		if replayDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(replayDelay):
			}
		}
	}

	logger.Info("replay finished",
		zap.String("period", period.String()),
		zap.Int("bars", stream.Count()),
		zap.Int("buys", buys),
		zap.Int("sells", sells))
	fmt.Fprintf(w, "✓ replayed %d bars (%s): %d buy, %d sell\n", stream.Count(), period, buys, sells)
	return nil
}
