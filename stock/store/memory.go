// Package store provides in-memory implementations of the stock storage
// interfaces, used in tests and as defaults when no database is wired.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// MEMORY STORE - implements SampleStore, RuleStore, NotificationArchive
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	samples       map[stock.ItemID][]stock.HistoricalSample
	rules         map[stock.RuleID]stock.Rule
	notifications []stock.Notification
}

func NewMemory() *Memory {
	return &Memory{
		samples: make(map[stock.ItemID][]stock.HistoricalSample),
		rules:   make(map[stock.RuleID]stock.Rule),
	}
}

// =============================================================================
// SAMPLE STORE
// =============================================================================

// RecordSample appends one observation, keeping the series ordered by time.
func (m *Memory) RecordSample(_ context.Context, sample stock.HistoricalSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	series := m.samples[sample.ItemID]
	i := sort.Search(len(series), func(i int) bool {
		return series[i].Timestamp.After(sample.Timestamp)
	})
	series = append(series, stock.HistoricalSample{})
	copy(series[i+1:], series[i:])
	series[i] = sample
	m.samples[sample.ItemID] = series
	return nil
}

func (m *Memory) Samples(_ context.Context, itemID stock.ItemID, from, to time.Time) ([]stock.HistoricalSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []stock.HistoricalSample
	for _, s := range m.samples[itemID] {
		if !s.Timestamp.Before(from) && !s.Timestamp.After(to) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) RecentSamples(_ context.Context, itemID stock.ItemID, limit int) ([]stock.HistoricalSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series := m.samples[itemID]
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	result := make([]stock.HistoricalSample, len(series))
	copy(result, series)
	return result, nil
}

// =============================================================================
// RULE STORE
// =============================================================================

func (m *Memory) SaveRule(_ context.Context, rule stock.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) DeleteRule(_ context.Context, id stock.RuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rules, id)
	return nil
}

// LoadRules returns saved rules ordered by creation time for a stable
// registry rebuild.
func (m *Memory) LoadRules(_ context.Context) ([]stock.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rules := make([]stock.Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].ID < rules[j].ID
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

// =============================================================================
// NOTIFICATION ARCHIVE
// =============================================================================

func (m *Memory) ArchiveNotification(_ context.Context, n stock.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

// ArchivedNotifications returns everything archived so far, oldest first.
func (m *Memory) ArchivedNotifications() []stock.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]stock.Notification, len(m.notifications))
	copy(out, m.notifications)
	return out
}
