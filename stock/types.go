/*
Package stock provides the inventory and stock-alert engine.

PURPOSE:
  This package contains the authoritative in-memory stock state for the
  marketplace and the alerting machinery built on top of it: the ledger of
  sellable quantities, threshold rules, trigger/severity evaluation,
  notification throttling, and threshold recommendations derived from
  historical samples.

KEY CONCEPTS IN THIS FILE (types.go):
  - ItemID/RuleID: Type-safe identifiers
  - AlertKind: What condition a rule watches (low stock, out of stock, ...)
  - Severity: Urgency classification of a triggered rule
  - Rule: A configured threshold watch for one item
  - Notification: An emitted alert message, kept in a bounded log
  - HistoricalSample/RuleDraft: Advisor input and output

DESIGN PRINCIPLES:
  1. The ledger is authoritative but in-memory: an external source of truth
     feeds it, persistence lives with collaborators.
  2. Trigger state is always the output of evaluation against the latest
     known quantity - never set directly.
  3. Strong typing for IDs prevents mixing item and rule identifiers.

SEE ALSO:
  - ledger.go: Quantity tracking with reserve/release invariants
  - evaluate.go: Pure trigger and severity evaluation
  - registry.go: Rule ownership and batch evaluation
  - throttle.go: Notification emission policy and bounded log
  - advisor.go: Threshold recommendations from history
*/
package stock

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ItemID string
type RuleID string

// =============================================================================
// ALERT KIND - What condition a rule watches
// =============================================================================

type AlertKind string

const (
	KindLowStock      AlertKind = "low_stock"
	KindOutOfStock    AlertKind = "out_of_stock"
	KindCriticalStock AlertKind = "critical_stock"
	KindOverstock     AlertKind = "overstock"
	KindCustom        AlertKind = "custom"
)

// Valid reports whether k is one of the known alert kinds.
func (k AlertKind) Valid() bool {
	switch k {
	case KindLowStock, KindOutOfStock, KindCriticalStock, KindOverstock, KindCustom:
		return true
	}
	return false
}

// =============================================================================
// SEVERITY - Urgency of a triggered rule
// =============================================================================

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// =============================================================================
// RULE - A configured threshold watch for one item
// =============================================================================

// Rule is a stock-threshold watch for a single item.
//
// INVARIANTS:
//   - IsTriggered is always the evaluator's output for the latest known
//     quantity of ItemID. It is never set by callers.
//   - If IsActive is false, IsTriggered is false.
//   - Threshold >= 0.
type Rule struct {
	ID        RuleID
	ItemID    ItemID
	Kind      AlertKind
	Threshold float64
	IsActive  bool

	// Trigger state, owned by the registry.
	IsTriggered bool
	Severity    Severity
	TriggeredAt time.Time

	// Notification state, owned by the throttle.
	NotificationSent  bool
	NotificationCount int
	LastNotifiedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// seq is the registry insertion order, used as a deterministic
	// tie-break when reporting changed rules.
	seq uint64
}

// =============================================================================
// NOTIFICATION - An emitted alert, held in the bounded log
// =============================================================================

type Notification struct {
	ID        string
	RuleID    RuleID
	ItemID    ItemID
	Kind      AlertKind
	Severity  Severity
	Message   string
	Timestamp time.Time
	Read      bool
}

// =============================================================================
// ADVISOR TYPES - Historical samples in, rule drafts out
// =============================================================================

// HistoricalSample is a single observation of an item's quantity.
// Samples are supplied externally and never mutated by the engine.
type HistoricalSample struct {
	ItemID    ItemID
	Timestamp time.Time
	Quantity  int64
}

// RuleDraft is a recommended rule that has not been materialized.
// Callers decide whether to turn a draft into a real Rule.
type RuleDraft struct {
	ItemID    ItemID
	Kind      AlertKind
	Threshold float64
}

// =============================================================================
// EVALUATION RESULTS
// =============================================================================

// RuleChange reports one rule whose trigger state or severity changed
// during an evaluation pass.
type RuleChange struct {
	Rule     Rule // copy, safe to hold
	Notified bool // a notification was emitted for this change
}

// ItemUpdate is the result of a ledger mutation: the new quantity plus
// every rule change the mutation caused. The mutation and its re-evaluation
// are performed atomically per item.
type ItemUpdate struct {
	ItemID   ItemID
	Quantity int64
	Changes  []RuleChange
}
