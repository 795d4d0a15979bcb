package stock_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func triggeredRule(t *testing.T, registry *stock.Registry, id string) stock.Rule {
	t.Helper()
	_, err := registry.AddRule(lowStockRule(id, "p1", 20))
	require.NoError(t, err)
	changes := registry.EvaluateItem("p1", 5)
	require.Len(t, changes, 1)
	return changes[0].Rule
}

// =============================================================================
// POLICY TESTS
// =============================================================================

func TestThrottle_ShouldNotify_RequiresActiveTriggered(t *testing.T) {
	throttle := stock.NewThrottle(stock.NewRegistry())
	now := time.Now()

	rule := stock.Rule{ID: "r1", ItemID: "p1", Kind: stock.KindLowStock}

	assert.False(t, throttle.ShouldNotify(rule, now), "inactive and untriggered")

	rule.IsActive = true
	assert.False(t, throttle.ShouldNotify(rule, now), "active but untriggered")

	rule.IsTriggered = true
	assert.True(t, throttle.ShouldNotify(rule, now), "active and triggered")

	rule.IsActive = false
	assert.False(t, throttle.ShouldNotify(rule, now), "triggered but inactive")
}

func TestThrottle_ShouldNotify_24HourWindow(t *testing.T) {
	// GIVEN: A rule that was notified at t0
	// WHEN: ShouldNotify is asked across the 24h boundary
	// THEN: Suppressed strictly inside the window, allowed at exactly 24h

	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)
	rule := triggeredRule(t, registry, "r1")

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := throttle.RecordNotification(rule, t0)
	require.NoError(t, err)

	notified, err := registry.Rule(rule.ID)
	require.NoError(t, err)

	assert.False(t, throttle.ShouldNotify(notified, t0), "same instant")
	assert.False(t, throttle.ShouldNotify(notified, t0.Add(time.Hour)), "1h later")
	assert.False(t, throttle.ShouldNotify(notified, t0.Add(24*time.Hour-time.Second)), "just inside the window")
	assert.True(t, throttle.ShouldNotify(notified, t0.Add(24*time.Hour)), "exactly 24h later")
	assert.True(t, throttle.ShouldNotify(notified, t0.Add(48*time.Hour)), "well past the window")
}

func TestThrottle_WindowMeasuredFromLastNotification(t *testing.T) {
	// A rule that stays triggered and re-notifies resets the window from
	// the most recent notification, not the first.

	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)
	rule := triggeredRule(t, registry, "r1")

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := throttle.RecordNotification(rule, t0)
	require.NoError(t, err)

	t1 := t0.Add(25 * time.Hour)
	refreshed, err := registry.Rule(rule.ID)
	require.NoError(t, err)
	require.True(t, throttle.ShouldNotify(refreshed, t1))
	_, err = throttle.RecordNotification(refreshed, t1)
	require.NoError(t, err)

	refreshed, err = registry.Rule(rule.ID)
	require.NoError(t, err)
	assert.False(t, throttle.ShouldNotify(refreshed, t0.Add(26*time.Hour)), "2h after second notification")
	assert.True(t, throttle.ShouldNotify(refreshed, t1.Add(24*time.Hour)))
	assert.Equal(t, 2, refreshed.NotificationCount)
}

// =============================================================================
// NOTIFICATION LOG TESTS
// =============================================================================

func TestThrottle_RecordNotification_AppendsToLog(t *testing.T) {
	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)
	rule := triggeredRule(t, registry, "r1")

	now := time.Now()
	n, err := throttle.RecordNotification(rule, now)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, rule.ID, n.RuleID)
	assert.Equal(t, rule.ItemID, n.ItemID)
	assert.Equal(t, stock.SeverityHigh, n.Severity)
	assert.False(t, n.Read)

	log := throttle.Notifications()
	require.Len(t, log, 1)
	assert.Equal(t, n.ID, log[0].ID)

	// Registry counters updated alongside the log.
	refreshed, err := registry.Rule(rule.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.NotificationSent)
	assert.Equal(t, 1, refreshed.NotificationCount)
	require.NotNil(t, refreshed.LastNotifiedAt)
	assert.True(t, refreshed.LastNotifiedAt.Equal(now))
}

func TestThrottle_RecordNotification_UnknownRule(t *testing.T) {
	throttle := stock.NewThrottle(stock.NewRegistry())
	_, err := throttle.RecordNotification(stock.Rule{ID: "ghost"}, time.Now())
	assert.ErrorIs(t, err, stock.ErrUnknownRule)
}

func TestThrottle_Log_EvictsOldestAtCapacity(t *testing.T) {
	// GIVEN: A full log of 100 notifications
	// WHEN: One more is recorded
	// THEN: Length stays 100 and the oldest entry is gone

	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)

	for i := 0; i < stock.LogCapacity+1; i++ {
		id := fmt.Sprintf("r%03d", i)
		_, err := registry.AddRule(lowStockRule(id, "p1", 20))
		require.NoError(t, err)
	}
	registry.EvaluateItem("p1", 5)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < stock.LogCapacity+1; i++ {
		rule, err := registry.Rule(stock.RuleID(fmt.Sprintf("r%03d", i)))
		require.NoError(t, err)
		_, err = throttle.RecordNotification(rule, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	log := throttle.Notifications()
	require.Len(t, log, stock.LogCapacity)

	// Newest first: the 101st notification leads, the first was evicted.
	assert.Equal(t, stock.RuleID("r100"), log[0].RuleID)
	assert.Equal(t, stock.RuleID("r001"), log[len(log)-1].RuleID)
	for _, n := range log {
		assert.NotEqual(t, stock.RuleID("r000"), n.RuleID)
	}
}

func TestThrottle_MarkRead(t *testing.T) {
	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)
	rule := triggeredRule(t, registry, "r1")

	n, err := throttle.RecordNotification(rule, time.Now())
	require.NoError(t, err)
	require.Len(t, throttle.Unread(), 1)

	assert.False(t, throttle.MarkRead("ghost"))
	assert.True(t, throttle.MarkRead(n.ID))
	assert.Empty(t, throttle.Unread())

	// Reading never resets the throttle window.
	refreshed, err := registry.Rule(rule.ID)
	require.NoError(t, err)
	assert.False(t, throttle.ShouldNotify(refreshed, time.Now()))
}

func TestThrottle_MarkAllRead(t *testing.T) {
	registry := stock.NewRegistry()
	throttle := stock.NewThrottle(registry)

	for _, id := range []string{"r1", "r2", "r3"} {
		_, err := registry.AddRule(lowStockRule(id, "p-"+id, 20))
		require.NoError(t, err)
		changes := registry.EvaluateItem(stock.ItemID("p-"+id), 5)
		require.Len(t, changes, 1)
		_, err = throttle.RecordNotification(changes[0].Rule, time.Now())
		require.NoError(t, err)
	}

	require.Len(t, throttle.Unread(), 3)
	throttle.MarkAllRead()
	assert.Empty(t, throttle.Unread())
	assert.Len(t, throttle.Notifications(), 3)
}
