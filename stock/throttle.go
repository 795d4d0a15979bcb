/*
throttle.go - Notification emission policy and bounded log

PURPOSE:
  Decides whether a triggered rule may emit a notification and keeps the
  emitted notifications in a bounded FIFO log. Without throttling, an item
  hovering around its threshold would spam operators on every evaluation.

POLICY:
  ShouldNotify(rule, now) is false when:
    1. the rule is inactive or not triggered, or
    2. a notification was already sent less than 24h ago.
  Otherwise true. The window is measured from LastNotifiedAt, so a rule that
  stays triggered notifies at most once per 24h.

LOG:
  Capacity 100, newest entries first. Implemented as a ring buffer with an
  explicit capacity invariant: inserting the 101st entry evicts the oldest.
  RecordNotification is the only writer; Unread/MarkRead/MarkAllRead never
  touch throttling state.

SEE ALSO:
  - registry.go: Holds the canonical per-rule notification counters
  - engine.go: Calls ShouldNotify/RecordNotification after evaluation
*/
package stock

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ThrottleWindow is the minimum interval between repeat notifications
// for the same rule.
const ThrottleWindow = 24 * time.Hour

// LogCapacity bounds the notification log.
const LogCapacity = 100

// =============================================================================
// THROTTLE
// =============================================================================

// Throttle decides notification emission and owns the bounded log.
type Throttle struct {
	mu       sync.Mutex
	registry *Registry
	log      *ring
}

// NewThrottle creates a throttle writing through to the given registry's
// per-rule notification counters.
func NewThrottle(registry *Registry) *Throttle {
	return &Throttle{
		registry: registry,
		log:      newRing(LogCapacity),
	}
}

// ShouldNotify reports whether the rule may emit a notification at `now`.
// Pure policy check, no side effects.
func (t *Throttle) ShouldNotify(rule Rule, now time.Time) bool {
	if !rule.IsActive || !rule.IsTriggered {
		return false
	}
	if rule.NotificationSent && rule.LastNotifiedAt != nil &&
		now.Sub(*rule.LastNotifiedAt) < ThrottleWindow {
		return false
	}
	return true
}

// RecordNotification marks the rule as notified at `now` and appends a
// notification to the log. This is the only mutator of the log.
func (t *Throttle) RecordNotification(rule Rule, now time.Time) (Notification, error) {
	updated, err := t.registry.markNotified(rule.ID, now)
	if err != nil {
		return Notification{}, err
	}

	n := Notification{
		ID:        uuid.NewString(),
		RuleID:    updated.ID,
		ItemID:    updated.ItemID,
		Kind:      updated.Kind,
		Severity:  updated.Severity,
		Message: fmt.Sprintf("%s alert for item %s: threshold %g, severity %s",
			updated.Kind, updated.ItemID, updated.Threshold, updated.Severity),
		Timestamp: now,
	}

	t.mu.Lock()
	t.log.push(n)
	t.mu.Unlock()
	return n, nil
}

// =============================================================================
// LOG READS - never affect throttling state
// =============================================================================

// Notifications returns the log contents, newest first.
func (t *Throttle) Notifications() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log.all()
}

// Unread returns unread notifications, newest first.
func (t *Throttle) Unread() []Notification {
	t.mu.Lock()
	defer t.mu.Unlock()

	var unread []Notification
	for _, n := range t.log.all() {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread
}

// MarkRead marks a single notification as read.
func (t *Throttle) MarkRead(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	found := false
	t.log.update(func(n *Notification) {
		if n.ID == id {
			n.Read = true
			found = true
		}
	})
	return found
}

// MarkAllRead marks every logged notification as read.
func (t *Throttle) MarkAllRead() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.update(func(n *Notification) { n.Read = true })
}

// =============================================================================
// RING BUFFER - bounded FIFO with explicit capacity invariant
// =============================================================================

// ring holds up to cap notifications. push overwrites the oldest entry
// once the buffer is full; len(ring) never exceeds cap.
type ring struct {
	buf  []Notification
	head int // index of the next write slot
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Notification, capacity)}
}

func (r *ring) push(n Notification) {
	r.buf[r.head] = n
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// all returns entries newest first.
func (r *ring) all() []Notification {
	out := make([]Notification, 0, r.size)
	for i := 1; i <= r.size; i++ {
		idx := (r.head - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}

func (r *ring) update(fn func(*Notification)) {
	for i := 1; i <= r.size; i++ {
		idx := (r.head - i + len(r.buf)) % len(r.buf)
		fn(&r.buf[idx])
	}
}
