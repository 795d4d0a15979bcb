/*
registry.go - Ownership and evaluation of alert rules

PURPOSE:
  The Registry owns every alert rule, indexed both by rule id and by item.
  It is the only component that mutates a rule's trigger state, and it only
  ever does so as the output of Evaluate() - callers can't set IsTriggered.

EVALUATION:
  EvaluateItem runs the evaluator against every rule for an item. A rule is
  reported as changed when its triggered flag flips, or when it stays
  triggered but its severity moved. Inactive rules are forced untriggered
  and skip evaluation.

ORDERING:
  Changed rules for one item are reported in creation order. Batch callers
  (the engine) iterate items in ascending id order, so batch output is
  deterministic end to end.

SEE ALSO:
  - evaluate.go: The pure predicate and severity bands
  - engine.go: Feeds ledger quantities into EvaluateItem under per-item locks
*/
package stock

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry owns all alert rules.
type Registry struct {
	mu     sync.RWMutex
	byID   map[RuleID]*Rule
	byItem map[ItemID][]*Rule // creation order per item
	seq    uint64
	now    func() time.Time
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[RuleID]*Rule),
		byItem: make(map[ItemID][]*Rule),
		now:    time.Now,
	}
}

// =============================================================================
// STRUCTURAL MUTATIONS
// =============================================================================

// AddRule registers a rule. The rule must carry a non-empty id (the factory
// assigns one), a valid kind, and a non-negative threshold.
// Trigger state on the way in is ignored: a fresh rule starts untriggered
// and the caller evaluates it against the current quantity.
func (r *Registry) AddRule(rule Rule) (Rule, error) {
	if rule.ID == "" || rule.ItemID == "" || !rule.Kind.Valid() || rule.Threshold < 0 {
		return Rule{}, ErrInvalidRule
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rule.ID]; exists {
		return Rule{}, ErrDuplicateRule
	}

	r.seq++
	rule.seq = r.seq
	rule.IsTriggered = false
	rule.Severity = ""
	rule.TriggeredAt = time.Time{}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = r.now()
	}
	rule.UpdatedAt = r.now()

	stored := rule
	r.byID[stored.ID] = &stored
	r.byItem[stored.ItemID] = append(r.byItem[stored.ItemID], &stored)
	return stored, nil
}

// RemoveRule deletes a rule. No cascading side effects beyond removal.
func (r *Registry) RemoveRule(id RuleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.byID[id]
	if !ok {
		return ErrUnknownRule
	}
	delete(r.byID, id)

	rules := r.byItem[rule.ItemID]
	for i, candidate := range rules {
		if candidate.ID == id {
			r.byItem[rule.ItemID] = append(rules[:i], rules[i+1:]...)
			break
		}
	}
	if len(r.byItem[rule.ItemID]) == 0 {
		delete(r.byItem, rule.ItemID)
	}
	return nil
}

// ToggleActive flips a rule's active flag. Deactivating forces the rule
// untriggered; reactivating leaves it untriggered until the next
// evaluation (the engine evaluates immediately after toggling).
func (r *Registry) ToggleActive(id RuleID) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.byID[id]
	if !ok {
		return Rule{}, ErrUnknownRule
	}

	rule.IsActive = !rule.IsActive
	if !rule.IsActive {
		rule.IsTriggered = false
		rule.Severity = ""
	}
	rule.UpdatedAt = r.now()
	return *rule, nil
}

// =============================================================================
// READS
// =============================================================================

// Rule returns a copy of the rule with the given id.
func (r *Registry) Rule(id RuleID) (Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[id]
	if !ok {
		return Rule{}, ErrUnknownRule
	}
	return *rule, nil
}

// RulesForItem returns copies of all rules for an item, in creation order.
func (r *Registry) RulesForItem(itemID ItemID) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rules := make([]Rule, 0, len(r.byItem[itemID]))
	for _, rule := range r.byItem[itemID] {
		rules = append(rules, *rule)
	}
	return rules
}

// AllRules returns copies of every rule, ordered by item id then creation.
func (r *Registry) AllRules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemIDs := make([]ItemID, 0, len(r.byItem))
	for id := range r.byItem {
		itemIDs = append(itemIDs, id)
	}
	sort.Slice(itemIDs, func(i, j int) bool { return itemIDs[i] < itemIDs[j] })

	var all []Rule
	for _, id := range itemIDs {
		for _, rule := range r.byItem[id] {
			all = append(all, *rule)
		}
	}
	return all
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvaluateItem evaluates every rule for the item against the new quantity
// and returns the rules whose trigger state or severity changed.
// An item with no registered rules is a no-op, not an error.
func (r *Registry) EvaluateItem(itemID ItemID, quantity int64) []RuleChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evaluateItemLocked(itemID, quantity)
}

func (r *Registry) evaluateItemLocked(itemID ItemID, quantity int64) []RuleChange {
	var changes []RuleChange
	for _, rule := range r.byItem[itemID] {
		if !rule.IsActive {
			// Inactive rules never trigger, regardless of quantity.
			if rule.IsTriggered {
				rule.IsTriggered = false
				rule.Severity = ""
				rule.UpdatedAt = r.now()
				changes = append(changes, RuleChange{Rule: *rule})
			}
			continue
		}

		ev := Evaluate(rule.Kind, rule.Threshold, quantity)
		flipped := ev.Triggered != rule.IsTriggered
		shifted := ev.Triggered && rule.IsTriggered && ev.Severity != rule.Severity
		if !flipped && !shifted {
			continue
		}

		if ev.Triggered && !rule.IsTriggered {
			rule.TriggeredAt = r.now()
		}
		rule.IsTriggered = ev.Triggered
		rule.Severity = ev.Severity
		rule.UpdatedAt = r.now()
		changes = append(changes, RuleChange{Rule: *rule})
	}
	return changes
}

// =============================================================================
// NOTIFICATION STATE
// =============================================================================

// markNotified records that a notification was emitted for the rule.
// Called by the throttle; the registry owns the canonical rule copy.
func (r *Registry) markNotified(id RuleID, at time.Time) (Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rule, ok := r.byID[id]
	if !ok {
		return Rule{}, ErrUnknownRule
	}

	rule.NotificationSent = true
	rule.NotificationCount++
	notifiedAt := at
	rule.LastNotifiedAt = &notifiedAt
	rule.UpdatedAt = r.now()
	return *rule, nil
}
