package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/trendline/barstore"
	"github.com/rustyeddy/trendline/loader"
	"github.com/rustyeddy/trendline/market"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a CSV file into the bar cache",
	Long: `Load parses a daily bar CSV and stores it in the configured bar cache
under its symbol. Cached series are never overwritten.

Examples:
  trendline load -f data/000001.csv --store sqlite --store-path bars.db
  trendline load --list --store sqlite --store-path bars.db`,
	RunE: runLoad,
}

var loadList bool

func init() {
	rootCmd.AddCommand(loadCmd)
	addDataFlags(loadCmd)
	loadCmd.Flags().BoolVar(&loadList, "list", false, "list cached series instead of loading")
}

func runLoad(cmd *cobra.Command, args []string) error {
	applyDataFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx)
	if err != nil {
		return fmt.Errorf("open bar store: %w", err)
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if loadList {
		keys, err := store.Keys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
		return nil
	}

	if cfg.Data.File == "" {
		return fmt.Errorf("--file is required")
	}
	bars, err := loader.LoadFile(cfg.Data.File, loader.Options{
		Encoding:   cfg.Data.Encoding,
		DeriveMA20: cfg.Data.DeriveMA20,
	})
	if err != nil {
		return err
	}
	if err := market.Validate(bars); err != nil {
		return err
	}

	key := seriesKey()
	err = store.Put(ctx, key, bars)
	if errors.Is(err, barstore.ErrExists) {
		fmt.Fprintf(w, "✓ %s already cached\n", key)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "✓ Stored %d bars as %s (%s to %s)\n",
		len(bars), key, bars[0].Day(), bars[len(bars)-1].Day())
	if !market.HasMA20Column(bars) {
		fmt.Fprintln(w, "  no MA20 values; below_ma20 needs --derive-ma20")
	}
	return nil
}
