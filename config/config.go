// Package config loads and validates the trendline configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/trendline/backtest"
	"github.com/rustyeddy/trendline/indicators"
	"github.com/rustyeddy/trendline/internal/errs"
	"github.com/rustyeddy/trendline/market"
	"github.com/rustyeddy/trendline/signals"
	"github.com/rustyeddy/trendline/strategies"
)

// Config represents the complete run configuration
type Config struct {
	Data      DataConfig      `json:"data" yaml:"data"`
	Indicator IndicatorConfig `json:"indicator" yaml:"indicator"`
	Backtest  BacktestConfig  `json:"backtest" yaml:"backtest"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// DataConfig describes where bars come from and where they are cached
type DataConfig struct {
	File       string      `json:"file,omitempty" yaml:"file,omitempty"`
	Symbol     string      `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Encoding   string      `json:"encoding" yaml:"encoding"` // auto, utf-8, gbk, utf-16
	DeriveMA20 bool        `json:"derive_ma20" yaml:"derive_ma20"`
	Store      StoreConfig `json:"store" yaml:"store"`
}

// StoreConfig selects the bar cache
type StoreConfig struct {
	Type      string `json:"type" yaml:"type"` // memory, sqlite or redis
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisDB   int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
}

// IndicatorConfig contains trend line and signal parameters
type IndicatorConfig struct {
	Period       string  `json:"period" yaml:"period"`
	N            int     `json:"n" yaml:"n"`
	FlatRatio    string  `json:"flat_ratio" yaml:"flat_ratio"`
	BuyThreshold float64 `json:"buy_threshold" yaml:"buy_threshold"`
	RecentRows   int     `json:"recent_rows" yaml:"recent_rows"`
}

// BacktestConfig contains the simulator and exit rule parameters
type BacktestConfig struct {
	InitialAmount    float64  `json:"initial_amount" yaml:"initial_amount"`
	SellStrategies   []string `json:"sell_strategies" yaml:"sell_strategies"`
	StrategyRelation string   `json:"strategy_relation" yaml:"strategy_relation"`

	strategies.Params `yaml:",inline"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Encodings accepted by the CSV loader.
var Encodings = []string{"auto", "utf-8", "gbk", "utf-16"}

// Store types.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// LoadFromFile loads configuration from a file (YAML, falling back to JSON).
// Keys missing from the file keep their Default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if !lo.Contains(Encodings, strings.ToLower(c.Data.Encoding)) {
		return fmt.Errorf("%w: data.encoding must be one of %s", errs.ErrInvalidParameter, strings.Join(Encodings, ", "))
	}
	switch c.Data.Store.Type {
	case "", StoreMemory:
	case StoreSQLite:
		if c.Data.Store.Path == "" {
			return fmt.Errorf("%w: data.store.path required for sqlite store", errs.ErrInvalidParameter)
		}
	case StoreRedis:
		if c.Data.Store.RedisAddr == "" {
			return fmt.Errorf("%w: data.store.redis_addr required for redis store", errs.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: data.store.type must be memory, sqlite or redis", errs.ErrInvalidParameter)
	}

	if _, err := market.ParsePeriod(c.Indicator.Period); err != nil {
		return err
	}
	if c.Indicator.N < 1 {
		return fmt.Errorf("%w: indicator.n must be positive", errs.ErrInvalidParameter)
	}
	if _, err := indicators.ParseFlatPolicy(c.Indicator.FlatRatio); err != nil {
		return err
	}
	if err := signals.ValidateBuyThreshold(c.Indicator.BuyThreshold); err != nil {
		return err
	}
	if c.Indicator.RecentRows < 0 {
		return fmt.Errorf("%w: indicator.recent_rows must not be negative", errs.ErrInvalidParameter)
	}

	if c.Backtest.InitialAmount <= 0 {
		return fmt.Errorf("%w: backtest.initial_amount must be positive", errs.ErrInvalidParameter)
	}
	if _, err := c.Backtest.Specs(); err != nil {
		return err
	}

	if c.Log.Format != "" && c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be console or json", errs.ErrInvalidParameter)
	}
	return nil
}

// Specs builds and validates the selected exit rules.
func (b BacktestConfig) Specs() ([]strategies.Spec, error) {
	if len(b.SellStrategies) == 0 {
		return nil, fmt.Errorf("%w: backtest.sell_strategies is empty", errs.ErrNoSellStrategy)
	}
	if _, err := strategies.ParseRelation(b.StrategyRelation); err != nil {
		return nil, err
	}
	specs, err := strategies.FromNames(b.SellStrategies, b.Params)
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// IndicatorParams returns the trend line settings.
func (c *Config) IndicatorParams() indicators.Config {
	return indicators.Config{N: c.Indicator.N, Flat: indicators.FlatPolicy(c.Indicator.FlatRatio)}
}

// BacktestParams returns the simulator settings.
func (c *Config) BacktestParams() (backtest.Config, error) {
	specs, err := c.Backtest.Specs()
	if err != nil {
		return backtest.Config{}, err
	}
	rel, err := strategies.ParseRelation(c.Backtest.StrategyRelation)
	if err != nil {
		return backtest.Config{}, err
	}
	return backtest.Config{
		InitialAmount: c.Backtest.InitialAmount,
		BuyThreshold:  c.Indicator.BuyThreshold,
		Indicator:     c.IndicatorParams(),
		Strategies:    specs,
		Relation:      rel,
	}, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Encoding: "auto",
			Store:    StoreConfig{Type: StoreMemory},
		},
		Indicator: IndicatorConfig{
			Period:       string(market.Daily),
			N:            indicators.DefaultN,
			FlatRatio:    string(indicators.FlatMidpoint),
			BuyThreshold: signals.DefaultBuyThreshold,
			RecentRows:   signals.DefaultRecent,
		},
		Backtest: BacktestConfig{
			InitialAmount:    backtest.DefaultInitialAmount,
			SellStrategies:   []string{string(strategies.StopLoss)},
			StrategyRelation: string(strategies.Or),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
