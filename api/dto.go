/*
dto.go - Request/response data structures for the REST API

PURPOSE:
  JSON shapes exchanged with the storefront's admin and order surfaces.
  Conversion helpers keep the handlers free of field-mapping noise.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SetStockRequest sets an item's quantity from the external source of truth.
type SetStockRequest struct {
	Quantity int64 `json:"quantity"`
}

// AmountRequest carries a reserve/release amount.
type AmountRequest struct {
	Amount int64 `json:"amount"`
}

// ApplyRecommendationsRequest selects which recommended kinds to
// materialize; empty means all.
type ApplyRecommendationsRequest struct {
	Kinds []string `json:"kinds,omitempty"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// StockDTO reports an item's current quantity.
type StockDTO struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`
}

// AvailabilityDTO reports a pure availability check.
type AvailabilityDTO struct {
	ItemID    string `json:"item_id"`
	Amount    int64  `json:"amount"`
	Available bool   `json:"available"`
}

// RuleDTO is the JSON representation of an alert rule.
type RuleDTO struct {
	ID                string  `json:"id"`
	ItemID            string  `json:"item_id"`
	Kind              string  `json:"kind"`
	Threshold         float64 `json:"threshold"`
	IsActive          bool    `json:"is_active"`
	IsTriggered       bool    `json:"is_triggered"`
	Severity          string  `json:"severity,omitempty"`
	TriggeredAt       string  `json:"triggered_at,omitempty"`
	NotificationSent  bool    `json:"notification_sent"`
	NotificationCount int     `json:"notification_count"`
	LastNotifiedAt    string  `json:"last_notified_at,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// RuleChangeDTO reports one rule changed by an evaluation pass.
type RuleChangeDTO struct {
	Rule     RuleDTO `json:"rule"`
	Notified bool    `json:"notified"`
}

// ItemUpdateDTO is the result of a stock mutation.
type ItemUpdateDTO struct {
	ItemID   string          `json:"item_id"`
	Quantity int64           `json:"quantity"`
	Changes  []RuleChangeDTO `json:"changes"`
}

// NotificationDTO is a logged notification.
type NotificationDTO struct {
	ID        string `json:"id"`
	RuleID    string `json:"rule_id"`
	ItemID    string `json:"item_id"`
	Kind      string `json:"kind"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// DraftDTO is a recommended rule awaiting operator approval.
type DraftDTO struct {
	ItemID    string  `json:"item_id"`
	Kind      string  `json:"kind"`
	Threshold float64 `json:"threshold"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRuleDTO(r stock.Rule) RuleDTO {
	dto := RuleDTO{
		ID:                string(r.ID),
		ItemID:            string(r.ItemID),
		Kind:              string(r.Kind),
		Threshold:         r.Threshold,
		IsActive:          r.IsActive,
		IsTriggered:       r.IsTriggered,
		Severity:          string(r.Severity),
		NotificationSent:  r.NotificationSent,
		NotificationCount: r.NotificationCount,
		CreatedAt:         r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if !r.TriggeredAt.IsZero() {
		dto.TriggeredAt = r.TriggeredAt.UTC().Format(time.RFC3339)
	}
	if r.LastNotifiedAt != nil {
		dto.LastNotifiedAt = r.LastNotifiedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toRuleDTOs(rules []stock.Rule) []RuleDTO {
	dtos := make([]RuleDTO, len(rules))
	for i, r := range rules {
		dtos[i] = toRuleDTO(r)
	}
	return dtos
}

func toRuleChangeDTOs(changes []stock.RuleChange) []RuleChangeDTO {
	dtos := make([]RuleChangeDTO, len(changes))
	for i, c := range changes {
		dtos[i] = RuleChangeDTO{Rule: toRuleDTO(c.Rule), Notified: c.Notified}
	}
	return dtos
}

func toItemUpdateDTO(u *stock.ItemUpdate) ItemUpdateDTO {
	return ItemUpdateDTO{
		ItemID:   string(u.ItemID),
		Quantity: u.Quantity,
		Changes:  toRuleChangeDTOs(u.Changes),
	}
}

func toNotificationDTOs(notifications []stock.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = NotificationDTO{
			ID:        n.ID,
			RuleID:    string(n.RuleID),
			ItemID:    string(n.ItemID),
			Kind:      string(n.Kind),
			Severity:  string(n.Severity),
			Message:   n.Message,
			Timestamp: n.Timestamp.UTC().Format(time.RFC3339),
			Read:      n.Read,
		}
	}
	return dtos
}

func toDraftDTOs(drafts []stock.RuleDraft) []DraftDTO {
	dtos := make([]DraftDTO, len(drafts))
	for i, d := range drafts {
		dtos[i] = DraftDTO{
			ItemID:    string(d.ItemID),
			Kind:      string(d.Kind),
			Threshold: d.Threshold,
		}
	}
	return dtos
}
