/*
errors.go - Centralized error types for the stock engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is/errors.As; the API layer maps these to
  HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors - negative quantities or amounts
  2. Stock errors - reservation exceeding available quantity
  3. Lookup errors - unknown rule or item identifiers

All errors are local, synchronous, and recoverable: a failed operation
leaves the ledger and registry unchanged.
*/
package stock

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidQuantity is returned when a negative quantity or amount is
	// passed to SetQuantity, Reserve, or Release. The engine never clamps;
	// it rejects.
	ErrInvalidQuantity = errors.New("invalid quantity: must be non-negative")

	// ErrInsufficientStock is returned when a reservation exceeds the
	// available quantity. Recoverable: the caller retries with a smaller
	// amount or gives up. The ledger is left unchanged.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownRule is returned when an operation addresses a rule id
	// that is not registered.
	ErrUnknownRule = errors.New("rule not found")

	// ErrUnknownItem is returned when an operation addresses an item id
	// the ledger has never observed.
	ErrUnknownItem = errors.New("item not found")

	// ErrDuplicateRule is returned when registering a rule whose id is
	// already present.
	ErrDuplicateRule = errors.New("duplicate rule id")

	// ErrInvalidRule is returned when a rule fails validation (unknown
	// kind, negative threshold, missing item id).
	ErrInvalidRule = errors.New("invalid rule")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError provides details about a failed reservation.
type InsufficientStockError struct {
	ItemID    ItemID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d, shortfall %d",
		e.ItemID, e.Available, e.Requested, e.Requested-e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InvalidQuantityError reports which operation received a negative value.
type InvalidQuantityError struct {
	ItemID ItemID
	Op     string
	Value  int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s(%s): invalid quantity %d", e.Op, e.ItemID, e.Value)
}

func (e *InvalidQuantityError) Unwrap() error {
	return ErrInvalidQuantity
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input
// or a recoverable stock shortage.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateRule) ||
		errors.Is(err, ErrInvalidRule)
}

// IsNotFound returns true if the error indicates a missing rule or item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownRule) ||
		errors.Is(err, ErrUnknownItem)
}
