package cmd

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/analysis"
	"github.com/rustyeddy/trendline/backtest"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the trend line strategy with exit rules",
	Long: `Backtest buys with all cash at the open after a buy crossing and
sells at the open after a sell crossing, or at the close of the bar on which
the selected exit rules fire. An open position is closed at the last close.

Exit rules:
  stop_loss           - loss from entry reaches --stop-loss percent
  take_profit         - gain from entry reaches --take-profit percent
  below_ma20          - --ma20-days closes below MA20 after being above it
  trailing_stop_loss  - drawdown from the highest close reaches --trailing-stop

Example:
  trendline backtest -f data/000001.csv --sell stop_loss,trailing_stop_loss --relation OR`,
	RunE: runBacktest,
}

var (
	btPeriod       string
	btBuyThreshold float64
	btAmount       float64
	btSell         []string
	btRelation     string
	btStopLoss     float64
	btTakeProfit   float64
	btMA20Days     int
	btMA20Profit   float64
	btTrailing     float64
	btJSON         bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	addDataFlags(backtestCmd)

	backtestCmd.Flags().StringVarP(&btPeriod, "period", "p", "D", "bar period (D, W, M)")
	backtestCmd.Flags().Float64VarP(&btBuyThreshold, "buy-threshold", "b", 10, "buy crossing level (0-100)")
	backtestCmd.Flags().Float64VarP(&btAmount, "amount", "a", backtest.DefaultInitialAmount, "initial cash")
	backtestCmd.Flags().StringSliceVar(&btSell, "sell", nil, "exit rules (stop_loss, take_profit, below_ma20, trailing_stop_loss)")
	backtestCmd.Flags().StringVar(&btRelation, "relation", "OR", "combine exit rules with AND or OR")
	backtestCmd.Flags().Float64Var(&btStopLoss, "stop-loss", strategies.DefaultStopLossPercent, "stop_loss percent")
	backtestCmd.Flags().Float64Var(&btTakeProfit, "take-profit", 0, "take_profit percent")
	backtestCmd.Flags().IntVar(&btMA20Days, "ma20-days", strategies.DefaultBelowMA20Days, "below_ma20 consecutive days")
	backtestCmd.Flags().Float64Var(&btMA20Profit, "ma20-min-profit", 0, "below_ma20 minimum profit percent before arming")
	backtestCmd.Flags().Float64Var(&btTrailing, "trailing-stop", strategies.DefaultTrailingStopPercent, "trailing_stop_loss percent")
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "write the report as JSON")
}

func applyBacktestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("period") {
		cfg.Indicator.Period = btPeriod
	}
	if f.Changed("buy-threshold") {
		cfg.Indicator.BuyThreshold = btBuyThreshold
	}
	if f.Changed("amount") {
		cfg.Backtest.InitialAmount = btAmount
	}
	if f.Changed("sell") {
		cfg.Backtest.SellStrategies = btSell
	}
	if f.Changed("relation") {
		cfg.Backtest.StrategyRelation = btRelation
	}
	p := &cfg.Backtest.Params
	if f.Changed("stop-loss") {
		p.StopLossPercent = &btStopLoss
	}
	if f.Changed("take-profit") {
		p.TakeProfitPercent = &btTakeProfit
	}
	if f.Changed("ma20-days") {
		p.BelowMA20Days = &btMA20Days
	}
	if f.Changed("ma20-min-profit") {
		p.BelowMA20MinProfit = &btMA20Profit
	}
	if f.Changed("trailing-stop") {
		p.TrailingStopPercent = &btTrailing
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	applyDataFlags(cmd)
	applyBacktestFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return reportError(cmd, btJSON, err)
	}

	params, err := cfg.BacktestParams()
	if err != nil {
		return reportError(cmd, btJSON, err)
	}

	ctx := cmd.Context()
	bars, err := loadBars(ctx)
	if err != nil {
		return err
	}

	period, _ := market.ParsePeriod(cfg.Indicator.Period)
	svc := analysis.New(analysis.WithLogger(logger))
	rep, err := svc.Backtest(ctx, bars, analysis.BacktestParams{Period: period, Backtest: params})
	if err != nil {
		return reportError(cmd, btJSON, err)
	}

	if btJSON {
		return analysis.WriteJSON(cmd.OutOrStdout(), rep)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s backtest, exits %s (%s)\n", rep.PeriodName, specNames(rep.Strategies), rep.Relation)
	backtest.PrintResult(w, rep.Result)
	return nil
}

func specNames(specs []strategies.Spec) string {
	return strings.Join(lo.Map(specs, func(s strategies.Spec, _ int) string { return string(s.Kind) }), ", ")
}
