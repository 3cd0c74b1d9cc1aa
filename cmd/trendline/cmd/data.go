package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/trendline/barstore"
	"github.com/rustyeddy/trendline/loader"
	"github.com/rustyeddy/trendline/market"
)

// Data source flags shared by calculate, backtest and load.
var (
	dataFile       string
	dataSymbol     string
	dataEncoding   string
	dataDeriveMA20 bool
	storeType      string
	storePath      string
	redisAddr      string
)

func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&dataFile, "file", "f", "", "daily bar CSV file, optionally .xz or .lzma compressed")
	cmd.Flags().StringVarP(&dataSymbol, "symbol", "s", "", "symbol used as the cache key (default: file name)")
	cmd.Flags().StringVar(&dataEncoding, "encoding", "", "file encoding (auto, utf-8, gbk, utf-16)")
	cmd.Flags().BoolVar(&dataDeriveMA20, "derive-ma20", false, "fill missing MA20 values from a 20 bar SMA of the close")
	cmd.Flags().StringVar(&storeType, "store", "", "bar cache (memory, sqlite, redis)")
	cmd.Flags().StringVar(&storePath, "store-path", "", "sqlite bar cache file")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "", "redis bar cache address")
}

// applyDataFlags copies changed data flags over the config.
func applyDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("file") {
		cfg.Data.File = dataFile
	}
	if f.Changed("symbol") {
		cfg.Data.Symbol = dataSymbol
	}
	if f.Changed("encoding") {
		cfg.Data.Encoding = dataEncoding
	}
	if f.Changed("derive-ma20") {
		cfg.Data.DeriveMA20 = dataDeriveMA20
	}
	if f.Changed("store") {
		cfg.Data.Store.Type = storeType
	}
	if f.Changed("store-path") {
		cfg.Data.Store.Path = storePath
	}
	if f.Changed("redis-addr") {
		cfg.Data.Store.RedisAddr = redisAddr
	}
}

func seriesKey() barstore.Key {
	sym := cfg.Data.Symbol
	if sym == "" {
		sym = filepath.Base(cfg.Data.File)
		sym = strings.TrimSuffix(strings.TrimSuffix(sym, ".xz"), ".lzma")
		sym = strings.TrimSuffix(sym, filepath.Ext(sym))
	}
	return barstore.Key{Symbol: sym, Period: market.Daily}
}

func openStore(ctx context.Context) (barstore.Store, error) {
	s := cfg.Data.Store
	return barstore.Open(ctx, barstore.Config{
		Type:      s.Type,
		Path:      s.Path,
		RedisAddr: s.RedisAddr,
		RedisDB:   s.RedisDB,
	})
}

// loadBars returns the daily series of the configured file, through the
// bar cache.
func loadBars(ctx context.Context) ([]market.Bar, error) {
	if cfg.Data.File == "" && cfg.Data.Symbol == "" {
		return nil, fmt.Errorf("a data file (--file) or cached symbol (--symbol) is required")
	}

	store, err := openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}
	defer store.Close()

	key := seriesKey()
	bars, hit, err := barstore.GetOrLoad(ctx, store, key, func() ([]market.Bar, error) {
		if cfg.Data.File == "" {
			return nil, fmt.Errorf("%s is not cached and no --file was given", key)
		}
		return loader.LoadFile(cfg.Data.File, loader.Options{
			Encoding:   cfg.Data.Encoding,
			DeriveMA20: cfg.Data.DeriveMA20,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("bars loaded",
		zap.String("key", key.String()),
		zap.Bool("cache_hit", hit),
		zap.Int("bars", len(bars)),
	)
	return bars, nil
}
