package barstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/trendline/market"
)

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	series map[Key][]market.Bar
}

func NewMemory() *Memory {
	return &Memory{series: make(map[Key][]market.Bar)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]market.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bars, ok := m.series[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cloneBars(bars), nil
}

func (m *Memory) Put(_ context.Context, key Key, bars []market.Bar) error {
	if err := key.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.series[key]; ok {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}
	m.series[key] = cloneBars(bars)
	return nil
}

func (m *Memory) Keys(_ context.Context) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]Key, 0, len(m.series))
	for k := range m.series {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, nil
}

func (m *Memory) Close() error { return nil }

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
}
