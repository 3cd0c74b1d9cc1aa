// Package barstore caches loaded bar series. A series is keyed by symbol
// and period and is immutable once written: a second Put for the same key
// fails with ErrExists.
package barstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rustyeddy/trendline/market"
)

var (
	ErrNotFound = errors.New("bar series not found")
	ErrExists   = errors.New("bar series already stored")
)

// Key identifies a series.
type Key struct {
	Symbol string
	Period market.Period
}

func (k Key) String() string {
	return k.Symbol + ":" + string(k.Period)
}

func (k Key) validate() error {
	if strings.TrimSpace(k.Symbol) == "" {
		return fmt.Errorf("bar store: empty symbol")
	}
	if !k.Period.Valid() {
		return fmt.Errorf("bar store: invalid period %q", k.Period)
	}
	return nil
}

// Store is a keyed, write-once bar cache. Implementations return copies;
// callers may not mutate what the store holds.
type Store interface {
	Get(ctx context.Context, key Key) ([]market.Bar, error)
	Put(ctx context.Context, key Key, bars []market.Bar) error
	Keys(ctx context.Context) ([]Key, error)
	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Type      string // memory, sqlite or redis
	Path      string
	RedisAddr string
	RedisDB   int
}

// Open builds the store named by cfg.Type. The empty type is memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "redis":
		return NewRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	default:
		return nil, fmt.Errorf("bar store: unknown type %q", cfg.Type)
	}
}

// LoadFunc produces a series on a cache miss.
type LoadFunc func() ([]market.Bar, error)

// GetOrLoad returns the cached series for key, loading and storing it on a
// miss. When another writer stores the key first, its series is returned.
func GetOrLoad(ctx context.Context, s Store, key Key, load LoadFunc) ([]market.Bar, bool, error) {
	bars, err := s.Get(ctx, key)
	if err == nil {
		return bars, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	bars, err = load()
	if err != nil {
		return nil, false, err
	}

	switch err := s.Put(ctx, key, bars); {
	case err == nil:
		return cloneBars(bars), false, nil
	case errors.Is(err, ErrExists):
		bars, err = s.Get(ctx, key)
		return bars, true, err
	default:
		return nil, false, err
	}
}

func cloneBars(bars []market.Bar) []market.Bar {
	out := make([]market.Bar, len(bars))
	for i, b := range bars {
		if b.MA20 != nil {
			b.MA20 = market.Float(*b.MA20)
		}
		out[i] = b
	}
	return out
}
