/*
ledger.go - Authoritative in-memory stock quantities

PURPOSE:
  The Ledger is the engine's source of truth for sellable quantity per item.
  It is fed by an external system (the marketplace backend) via SetQuantity
  and mutated by order processing via Reserve/Release.

CRITICAL INVARIANTS:
  1. Quantity >= 0 at all times. No operation may leave it negative.
  2. Reserve is all-or-nothing: it either decrements by the full amount or
     fails with ErrInsufficientStock and changes nothing.
  3. Every successful mutation bumps the entry's revision marker, which batch
     sweeps use to skip unchanged items.

LIFECYCLE:
  Entries are created on first observation of an item and never deleted by
  the engine. Release on an unknown item treats prior stock as 0.

CONCURRENCY:
  The ledger is safe under concurrent callers. The Engine additionally
  serializes mutations per item so that a reservation and its alert
  re-evaluation are observed together.

SEE ALSO:
  - engine.go: Per-item serialization of mutate + evaluate
  - registry.go: Consumes quantities to evaluate rules
*/
package stock

import (
	"sync"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger tracks sellable quantity per item.
type Ledger struct {
	mu      sync.RWMutex
	entries map[ItemID]*ledgerEntry
	rev     uint64 // global revision counter, bumped on every mutation
	now     func() time.Time
}

type ledgerEntry struct {
	quantity  int64
	rev       uint64
	updatedAt time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[ItemID]*ledgerEntry),
		now:     time.Now,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetQuantity unconditionally sets the item's stock to q.
// Fails with ErrInvalidQuantity if q < 0.
func (l *Ledger) SetQuantity(itemID ItemID, q int64) error {
	if q < 0 {
		return &InvalidQuantityError{ItemID: itemID, Op: "SetQuantity", Value: q}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.touch(itemID).quantity = q
	return nil
}

// Reserve decrements stock by amount iff amount >= 0 and current stock
// covers it. Otherwise it fails and leaves the entry unchanged.
func (l *Ledger) Reserve(itemID ItemID, amount int64) error {
	if amount < 0 {
		return &InvalidQuantityError{ItemID: itemID, Op: "Reserve", Value: amount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	available := int64(0)
	if e, ok := l.entries[itemID]; ok {
		available = e.quantity
	}
	if available < amount {
		return &InsufficientStockError{ItemID: itemID, Available: available, Requested: amount}
	}

	e := l.touch(itemID)
	e.quantity = available - amount
	return nil
}

// Release increments stock by amount, modeling returned reservations
// (e.g. order cancellation). An unknown item is treated as stock 0 prior
// to the operation. Fails only on a negative amount.
func (l *Ledger) Release(itemID ItemID, amount int64) error {
	if amount < 0 {
		return &InvalidQuantityError{ItemID: itemID, Op: "Release", Value: amount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.touch(itemID).quantity += amount
	return nil
}

// touch returns the entry for itemID, creating it if needed, and bumps
// its revision. Callers must hold l.mu.
func (l *Ledger) touch(itemID ItemID) *ledgerEntry {
	e, ok := l.entries[itemID]
	if !ok {
		e = &ledgerEntry{}
		l.entries[itemID] = e
	}
	l.rev++
	e.rev = l.rev
	e.updatedAt = l.now()
	return e
}

// =============================================================================
// READS
// =============================================================================

// CheckAvailability reports whether amount units can be reserved right now.
// Pure read, no side effect. Negative amounts are never available.
func (l *Ledger) CheckAvailability(itemID ItemID, amount int64) bool {
	if amount < 0 {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	available := int64(0)
	if e, ok := l.entries[itemID]; ok {
		available = e.quantity
	}
	return available >= amount
}

// Quantity returns the current stock for an item.
// Returns ErrUnknownItem if the item has never been observed.
func (l *Ledger) Quantity(itemID ItemID) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[itemID]
	if !ok {
		return 0, ErrUnknownItem
	}
	return e.quantity, nil
}

// LastModified returns when the item was last mutated.
func (l *Ledger) LastModified(itemID ItemID) (time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[itemID]
	if !ok {
		return time.Time{}, ErrUnknownItem
	}
	return e.updatedAt, nil
}

// Snapshot returns a copy of all quantities.
func (l *Ledger) Snapshot() map[ItemID]int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(map[ItemID]int64, len(l.entries))
	for id, e := range l.entries {
		snap[id] = e.quantity
	}
	return snap
}

// ModifiedSince returns quantities for items mutated after the given
// revision, plus the current revision to pass to the next call. Sweeps use
// this to avoid re-evaluating unchanged items.
func (l *Ledger) ModifiedSince(rev uint64) (map[ItemID]int64, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := make(map[ItemID]int64)
	for id, e := range l.entries {
		if e.rev > rev {
			snap[id] = e.quantity
		}
	}
	return snap, l.rev
}
