/*
Package factory provides JSON to Go alert-rule conversion.

PURPOSE:
  Converts JSON rule definitions into stock.Rule values. Operators configure
  alert rules through the admin UI or plain JSON files; the factory
  validates the input and fills in identifiers and defaults.

JSON SCHEMA:
  {
    "id": "optional - generated when empty",
    "item_id": "prod-123",
    "kind": "low_stock",
    "threshold": 20,
    "is_active": true
  }

KEY FEATURES:
  - Validates kind and threshold
  - Generates rule ids (uuid) when omitted
  - Defaults new rules to active
  - Materializes advisor drafts into rules

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(jsonString)
  rule := f.FromDraft(draft)

SEE ALSO:
  - stock/types.go: Rule type definition
  - stock/advisor.go: Draft recommendations
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of an alert rule configuration.
type RuleJSON struct {
	ID        string   `json:"id,omitempty"`
	ItemID    string   `json:"item_id"`
	Kind      string   `json:"kind"`
	Threshold *float64 `json:"threshold"`
	IsActive  *bool    `json:"is_active,omitempty"` // default true
}

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rule configs and advisor drafts to stock.Rule.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses and validates a JSON rule definition.
func (f *RuleFactory) ParseRule(data string) (stock.Rule, error) {
	var raw RuleJSON
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return stock.Rule{}, fmt.Errorf("%w: %v", stock.ErrInvalidRule, err)
	}
	return f.FromConfig(raw)
}

// FromConfig validates a decoded rule config and produces a Rule.
func (f *RuleFactory) FromConfig(raw RuleJSON) (stock.Rule, error) {
	if raw.ItemID == "" {
		return stock.Rule{}, fmt.Errorf("%w: item_id is required", stock.ErrInvalidRule)
	}

	kind := stock.AlertKind(raw.Kind)
	if !kind.Valid() {
		return stock.Rule{}, fmt.Errorf("%w: unknown kind %q", stock.ErrInvalidRule, raw.Kind)
	}

	if raw.Threshold == nil {
		return stock.Rule{}, fmt.Errorf("%w: threshold is required", stock.ErrInvalidRule)
	}
	if *raw.Threshold < 0 {
		return stock.Rule{}, fmt.Errorf("%w: threshold must be non-negative", stock.ErrInvalidRule)
	}

	id := raw.ID
	if id == "" {
		id = uuid.NewString()
	}

	active := true
	if raw.IsActive != nil {
		active = *raw.IsActive
	}

	return stock.Rule{
		ID:        stock.RuleID(id),
		ItemID:    stock.ItemID(raw.ItemID),
		Kind:      kind,
		Threshold: *raw.Threshold,
		IsActive:  active,
	}, nil
}

// FromDraft materializes an advisor draft into an active rule with a
// generated id.
func (f *RuleFactory) FromDraft(draft stock.RuleDraft) stock.Rule {
	return stock.Rule{
		ID:        stock.RuleID(uuid.NewString()),
		ItemID:    draft.ItemID,
		Kind:      draft.Kind,
		Threshold: draft.Threshold,
		IsActive:  true,
	}
}
