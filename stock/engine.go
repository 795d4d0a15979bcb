/*
engine.go - Composition root: ledger + registry + throttle

PURPOSE:
  The Engine ties the pieces together and enforces the one concurrency rule
  the components can't enforce alone: a mutation on an item and the alert
  re-evaluation it causes are observed as a single step. Two concurrent
  reservations on the same item serialize; operations on different items
  proceed in parallel.

DATA FLOW:
  SetQuantity/Reserve/Release -> ledger mutation -> EvaluateItem ->
  changed rules -> throttle decision -> notification log (+ notifier fan-out)

LOCKING:
  Lock striping per item id. The ledger and registry carry their own
  internal locks for safe direct reads; the per-item lock only exists to
  make mutate-then-evaluate atomic.

NOTIFIERS:
  Optional Notifier sinks receive every emitted notification (e.g. the
  sqlite archive). Failures are logged, never propagated - notification
  delivery must not fail stock operations.
*/
package stock

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier receives emitted notifications. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(n Notification) error
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the inventory and stock-alert engine.
type Engine struct {
	ledger   *Ledger
	registry *Registry
	throttle *Throttle

	locksMu sync.Mutex
	locks   map[ItemID]*sync.Mutex

	notifiers []Notifier
	logger    *logrus.Logger
	now       func() time.Time

	sweepMu  sync.Mutex
	sweepRev uint64
}

// NewEngine creates an engine with empty state.
func NewEngine(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	registry := NewRegistry()
	return &Engine{
		ledger:   NewLedger(),
		registry: registry,
		throttle: NewThrottle(registry),
		locks:    make(map[ItemID]*sync.Mutex),
		logger:   logger,
		now:      time.Now,
	}
}

// AddNotifier registers a notification sink. Not safe to call concurrently
// with stock operations; wire notifiers up before serving traffic.
func (e *Engine) AddNotifier(n Notifier) {
	e.notifiers = append(e.notifiers, n)
}

// Ledger exposes the underlying ledger for read-only consumers.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Throttle exposes the notification log readers.
func (e *Engine) Throttle() *Throttle { return e.throttle }

// itemLock returns the mutex serializing mutations for one item.
func (e *Engine) itemLock(itemID ItemID) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()

	lock, ok := e.locks[itemID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[itemID] = lock
	}
	return lock
}

// =============================================================================
// STOCK OPERATIONS - mutate, then re-evaluate, atomically per item
// =============================================================================

// SetQuantity sets the item's stock and re-evaluates its rules.
func (e *Engine) SetQuantity(itemID ItemID, q int64) (*ItemUpdate, error) {
	return e.mutate(itemID, func() error { return e.ledger.SetQuantity(itemID, q) })
}

// Reserve decrements stock for an order and re-evaluates. Fails fast with
// ErrInsufficientStock; there is no queuing for unavailable stock.
func (e *Engine) Reserve(itemID ItemID, amount int64) (*ItemUpdate, error) {
	return e.mutate(itemID, func() error { return e.ledger.Reserve(itemID, amount) })
}

// Release returns reserved stock (order cancellation) and re-evaluates.
func (e *Engine) Release(itemID ItemID, amount int64) (*ItemUpdate, error) {
	return e.mutate(itemID, func() error { return e.ledger.Release(itemID, amount) })
}

// CheckAvailability reports whether amount units are reservable. Pure read.
func (e *Engine) CheckAvailability(itemID ItemID, amount int64) bool {
	return e.ledger.CheckAvailability(itemID, amount)
}

// Quantity returns the current stock for an item.
func (e *Engine) Quantity(itemID ItemID) (int64, error) {
	return e.ledger.Quantity(itemID)
}

func (e *Engine) mutate(itemID ItemID, op func() error) (*ItemUpdate, error) {
	lock := e.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()

	if err := op(); err != nil {
		return nil, err
	}

	quantity, err := e.ledger.Quantity(itemID)
	if err != nil {
		return nil, err
	}

	changes := e.emit(e.registry.EvaluateItem(itemID, quantity))
	return &ItemUpdate{ItemID: itemID, Quantity: quantity, Changes: changes}, nil
}

// =============================================================================
// RULE OPERATIONS
// =============================================================================

// AddRule registers a rule and evaluates it against the item's current
// quantity, so the trigger invariant holds from creation. Items the ledger
// has never observed stay unevaluated until their first quantity arrives.
func (e *Engine) AddRule(rule Rule) (Rule, []RuleChange, error) {
	lock := e.itemLock(rule.ItemID)
	lock.Lock()
	defer lock.Unlock()

	stored, err := e.registry.AddRule(rule)
	if err != nil {
		return Rule{}, nil, err
	}

	var changes []RuleChange
	if quantity, qerr := e.ledger.Quantity(rule.ItemID); qerr == nil {
		changes = e.emit(e.registry.EvaluateItem(rule.ItemID, quantity))
	}

	current, err := e.registry.Rule(stored.ID)
	if err != nil {
		return Rule{}, nil, err
	}
	return current, changes, nil
}

// RemoveRule deletes a rule from the registry.
func (e *Engine) RemoveRule(id RuleID) error {
	return e.registry.RemoveRule(id)
}

// ToggleActive flips a rule's active flag. Reactivated rules are evaluated
// immediately against the current quantity.
func (e *Engine) ToggleActive(id RuleID) (Rule, error) {
	rule, err := e.registry.Rule(id)
	if err != nil {
		return Rule{}, err
	}

	lock := e.itemLock(rule.ItemID)
	lock.Lock()
	defer lock.Unlock()

	toggled, err := e.registry.ToggleActive(id)
	if err != nil {
		return Rule{}, err
	}

	if toggled.IsActive {
		if quantity, qerr := e.ledger.Quantity(toggled.ItemID); qerr == nil {
			e.emit(e.registry.EvaluateItem(toggled.ItemID, quantity))
		}
	}
	return e.registry.Rule(id)
}

// Rule returns a copy of one rule.
func (e *Engine) Rule(id RuleID) (Rule, error) { return e.registry.Rule(id) }

// Rules returns all rules, ordered by item id then creation.
func (e *Engine) Rules() []Rule { return e.registry.AllRules() }

// RulesForItem returns all rules for one item in creation order.
func (e *Engine) RulesForItem(itemID ItemID) []Rule { return e.registry.RulesForItem(itemID) }

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateItem evaluates an item's rules against an externally supplied
// quantity snapshot. An item with no rules is a no-op.
func (e *Engine) EvaluateItem(itemID ItemID, quantity int64) []RuleChange {
	lock := e.itemLock(itemID)
	lock.Lock()
	defer lock.Unlock()
	return e.emit(e.registry.EvaluateItem(itemID, quantity))
}

// EvaluateBatch evaluates every entry of the snapshot. Changed rules come
// back in ascending item id order, then rule creation order. Each item's
// evaluate+emit runs under its per-item lock, so a concurrent mutation on
// the same item cannot race the throttle decision.
func (e *Engine) EvaluateBatch(snapshot map[ItemID]int64) []RuleChange {
	itemIDs := make([]ItemID, 0, len(snapshot))
	for id := range snapshot {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	var changes []RuleChange
	for _, id := range itemIDs {
		lock := e.itemLock(id)
		lock.Lock()
		changes = append(changes, e.emit(e.registry.EvaluateItem(id, snapshot[id]))...)
		lock.Unlock()
	}
	return changes
}

// Sweep re-evaluates only the items mutated since the previous sweep,
// using the ledger's revision markers.
func (e *Engine) Sweep() []RuleChange {
	e.sweepMu.Lock()
	defer e.sweepMu.Unlock()

	snapshot, rev := e.ledger.ModifiedSince(e.sweepRev)
	e.sweepRev = rev
	if len(snapshot) == 0 {
		return nil
	}
	return e.EvaluateBatch(snapshot)
}

// =============================================================================
// NOTIFICATION EMISSION
// =============================================================================

// emit applies the throttle to each changed rule and records notifications
// for those allowed through.
func (e *Engine) emit(changes []RuleChange) []RuleChange {
	now := e.now()
	for i := range changes {
		rule := changes[i].Rule
		if !e.throttle.ShouldNotify(rule, now) {
			continue
		}

		n, err := e.throttle.RecordNotification(rule, now)
		if err != nil {
			e.logger.WithError(err).WithField("rule", rule.ID).Error("record notification")
			continue
		}

		changes[i].Notified = true
		if updated, err := e.registry.Rule(rule.ID); err == nil {
			changes[i].Rule = updated
		}

		e.logger.WithFields(logrus.Fields{
			"item":     n.ItemID,
			"rule":     n.RuleID,
			"kind":     n.Kind,
			"severity": n.Severity,
		}).Warn("stock alert")

		for _, notifier := range e.notifiers {
			if err := notifier.Notify(n); err != nil {
				e.logger.WithError(err).WithField("rule", n.RuleID).Error("notifier failed")
			}
		}
	}
	return changes
}

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

// RecommendThresholds derives rule drafts from historical samples.
// Passthrough to the advisor; see advisor.go.
func (e *Engine) RecommendThresholds(itemID ItemID, samples []HistoricalSample) []RuleDraft {
	return RecommendList(itemID, samples)
}
