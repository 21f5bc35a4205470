// Package oracle defines the price-feed contract the engine consumes and a
// reference in-memory adapter for tests and local tooling. Real feed
// acquisition is an explicit non-goal: the engine only reads and checks
// staleness.
package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"texturelend/decimal"
)

// Feed is the contract the orchestrator uses to read prices. It never
// updates a feed; it only reads get_price(feed_id) -> (price, publish_ts).
type Feed interface {
	GetPrice(ctx context.Context, feedID string) (price decimal.Dec, publishedAt time.Time, err error)
}

// Memory is a reference Feed backed by an in-memory map, suitable for tests
// and for local operator tooling. Production deployments inject whatever
// feed adapter talks to their actual oracle program; that wiring is outside
// this package.
type Memory struct {
	mu     sync.RWMutex
	prices map[string]entry
}

type entry struct {
	price       decimal.Dec
	publishedAt time.Time
}

// NewMemory constructs an empty in-memory feed.
func NewMemory() *Memory {
	return &Memory{prices: make(map[string]entry)}
}

// Set publishes a price for feedID, as a test/tooling helper would after
// reading a real oracle account.
func (m *Memory) Set(feedID string, price decimal.Dec, publishedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[feedID] = entry{price: price, publishedAt: publishedAt}
}

// GetPrice implements Feed.
func (m *Memory) GetPrice(_ context.Context, feedID string) (decimal.Dec, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.prices[feedID]
	if !ok {
		return decimal.Zero(), time.Time{}, fmt.Errorf("oracle: no price published for feed %q", feedID)
	}
	return e.price, e.publishedAt, nil
}

// IsStale reports whether publishedAt is older than thresholdSec seconds
// before now.
func IsStale(publishedAt, now time.Time, thresholdSec uint32) bool {
	if thresholdSec == 0 {
		return false
	}
	return publishedAt.Before(now.Add(-time.Duration(thresholdSec) * time.Second))
}
