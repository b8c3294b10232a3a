// Package cache keeps computed price comparisons so repeated compare-prices
// requests for an unchanged list skip the offer queries.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dukerupert/basket/internal/model"
)

const DefaultTTL = 10 * time.Minute

// Comparisons stores one comparison per list. Any change to a list's items
// must Invalidate it; a price change anywhere must Flush.
type Comparisons interface {
	Get(ctx context.Context, listID int64) (*model.PriceComparison, bool, error)
	Set(ctx context.Context, listID int64, c model.PriceComparison) error
	Invalidate(ctx context.Context, listID int64) error
	Flush(ctx context.Context) error
}

type memoryEntry struct {
	comparison model.PriceComparison
	expires    time.Time
}

// Memory is an in-process Comparisons with a fixed TTL.
type Memory struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, listID int64) (*model.PriceComparison, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[listID]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		m.mu.Lock()
		if cur, ok := m.entries[listID]; ok && cur.expires.Equal(e.expires) {
			delete(m.entries, listID)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	c := e.comparison
	return &c, true, nil
}

func (m *Memory) Set(_ context.Context, listID int64, c model.PriceComparison) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[listID] = memoryEntry{comparison: c, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, listID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, listID)
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[int64]memoryEntry)
	return nil
}

// Len reports the number of entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
