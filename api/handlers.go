/*
handlers.go - HTTP API handlers for the stock-alert engine

PURPOSE:
  Exposes the engine to the storefront's admin and order surfaces. Handles
  HTTP request/response, JSON serialization, and delegates to the engine.

ENDPOINTS:
  Stock:
    GET    /api/items/{id}/stock         Current quantity
    PUT    /api/items/{id}/stock         Set quantity (external sync)
    POST   /api/items/{id}/reserve       Reserve stock for an order
    POST   /api/items/{id}/release       Return reserved stock
    GET    /api/items/{id}/availability  Pure availability check

  Rules:
    GET    /api/rules                    List rules (optionally ?item_id=)
    POST   /api/rules                    Create rule
    GET    /api/rules/{id}               Get rule
    DELETE /api/rules/{id}               Delete rule
    POST   /api/rules/{id}/toggle        Toggle active flag

  Notifications:
    GET    /api/notifications            Bounded log, newest first
    GET    /api/notifications/unread     Unread only
    POST   /api/notifications/{id}/read  Mark one read
    POST   /api/notifications/read-all   Mark all read

  Recommendations:
    GET    /api/items/{id}/recommendations        Advisor drafts
    POST   /api/items/{id}/recommendations/apply  Materialize drafts

  Evaluation:
    POST   /api/evaluate/batch           Evaluate an external snapshot
    POST   /api/evaluate/sweep           Re-evaluate items modified since last sweep

ERROR HANDLING:
  - 400: invalid input (negative quantities, malformed rules)
  - 404: unknown item or rule
  - 409: insufficient stock, duplicate rule id
  - 500: internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/stock-engine/factory"
	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *stock.Engine
	Samples stock.SampleStore
	Rules   stock.RuleStore
	Factory *factory.RuleFactory
	Logger  *logrus.Logger

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a handler around the engine and its stores.
func NewHandler(engine *stock.Engine, samples stock.SampleStore, rules stock.RuleStore, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		Engine:  engine,
		Samples: samples,
		Rules:   rules,
		Factory: factory.NewRuleFactory(),
		Logger:  logger,
	}
}

// LoadRules rebuilds the registry from persisted rule configurations.
// Trigger state is recomputed as quantities arrive.
func (h *Handler) LoadRules(ctx context.Context) error {
	if h.Rules == nil {
		return nil
	}
	rules, err := h.Rules.LoadRules(ctx)
	if err != nil {
		return err
	}
	for _, r := range rules {
		if _, _, err := h.Engine.AddRule(r); err != nil {
			h.Logger.WithError(err).WithField("rule", r.ID).Warn("skipping persisted rule")
		}
	}
	return nil
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// GetStock returns the current quantity for an item.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	quantity, err := h.Engine.Quantity(itemID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StockDTO{ItemID: string(itemID), Quantity: quantity})
}

// SetStock sets an item's quantity from the external source of truth.
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update, err := h.Engine.SetQuantity(itemID, req.Quantity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemUpdateDTO(update))
}

// ReserveStock decrements stock for an order. Fails fast when stock is
// insufficient; the caller retries with a smaller amount or gives up.
func (h *Handler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update, err := h.Engine.Reserve(itemID, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemUpdateDTO(update))
}

// ReleaseStock returns reserved stock, e.g. on order cancellation.
func (h *Handler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update, err := h.Engine.Release(itemID, req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemUpdateDTO(update))
}

// GetAvailability performs a pure availability check.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	amount, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount parameter", err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityDTO{
		ItemID:    string(itemID),
		Amount:    amount,
		Available: h.Engine.CheckAvailability(itemID, amount),
	})
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all rules, or rules for one item with ?item_id=.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if itemID := r.URL.Query().Get("item_id"); itemID != "" {
		writeJSON(w, http.StatusOK, toRuleDTOs(h.Engine.RulesForItem(stock.ItemID(itemID))))
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTOs(h.Engine.Rules()))
}

// CreateRule registers a rule from a JSON config.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var raw factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := h.Factory.FromConfig(raw)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	stored, _, err := h.Engine.AddRule(rule)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	h.persistRule(r.Context(), stored)
	writeJSON(w, http.StatusCreated, toRuleDTO(stored))
}

// GetRule returns one rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Engine.Rule(stock.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// DeleteRule removes a rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id := stock.RuleID(chi.URLParam(r, "id"))

	if err := h.Engine.RemoveRule(id); err != nil {
		writeEngineError(w, err)
		return
	}
	if h.Rules != nil {
		if err := h.Rules.DeleteRule(r.Context(), id); err != nil {
			h.Logger.WithError(err).WithField("rule", id).Error("delete persisted rule")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRule flips a rule's active flag.
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Engine.ToggleActive(stock.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.persistRule(r.Context(), rule)
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

func (h *Handler) persistRule(ctx context.Context, rule stock.Rule) {
	if h.Rules == nil {
		return
	}
	if err := h.Rules.SaveRule(ctx, rule); err != nil {
		h.Logger.WithError(err).WithField("rule", rule.ID).Error("persist rule")
	}
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns the bounded log, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toNotificationDTOs(h.Engine.Throttle().Notifications()))
}

// UnreadNotifications returns unread notifications, newest first.
func (h *Handler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toNotificationDTOs(h.Engine.Throttle().Unread()))
}

// MarkNotificationRead marks a single notification as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if !h.Engine.Throttle().MarkRead(chi.URLParam(r, "id")) {
		writeError(w, http.StatusNotFound, "Notification not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllNotificationsRead marks every logged notification as read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	h.Engine.Throttle().MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RECOMMENDATION HANDLERS
// =============================================================================

const defaultSampleWindow = 100

// recentSamples loads the advisor's input window. A handler without a
// sample store behaves as if no history exists.
func (h *Handler) recentSamples(ctx context.Context, itemID stock.ItemID) ([]stock.HistoricalSample, error) {
	if h.Samples == nil {
		return nil, nil
	}
	return h.Samples.RecentSamples(ctx, itemID, defaultSampleWindow)
}

// GetRecommendations derives rule drafts from the item's sample history.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	samples, err := h.recentSamples(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples", err)
		return
	}

	writeJSON(w, http.StatusOK, toDraftDTOs(h.Engine.RecommendThresholds(itemID, samples)))
}

// ApplyRecommendations materializes advisor drafts into live rules.
// An optional kinds filter selects a subset; empty applies all drafts.
func (h *Handler) ApplyRecommendations(w http.ResponseWriter, r *http.Request) {
	itemID := stock.ItemID(chi.URLParam(r, "id"))

	var req ApplyRecommendationsRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	wanted := make(map[string]bool, len(req.Kinds))
	for _, k := range req.Kinds {
		wanted[k] = true
	}

	samples, err := h.recentSamples(r.Context(), itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load samples", err)
		return
	}

	var created []stock.Rule
	for _, draft := range h.Engine.RecommendThresholds(itemID, samples) {
		if len(wanted) > 0 && !wanted[string(draft.Kind)] {
			continue
		}
		stored, _, err := h.Engine.AddRule(h.Factory.FromDraft(draft))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		h.persistRule(r.Context(), stored)
		created = append(created, stored)
	}

	writeJSON(w, http.StatusCreated, toRuleDTOs(created))
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// EvaluateBatch evaluates an externally supplied item->quantity snapshot.
func (h *Handler) EvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var raw map[string]int64
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snapshot := make(map[stock.ItemID]int64, len(raw))
	for id, q := range raw {
		snapshot[stock.ItemID(id)] = q
	}
	writeJSON(w, http.StatusOK, toRuleChangeDTOs(h.Engine.EvaluateBatch(snapshot)))
}

// EvaluateSweep re-evaluates items modified since the previous sweep.
func (h *Handler) EvaluateSweep(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toRuleChangeDTOs(h.Engine.Sweep()))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case stock.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, stock.ErrInsufficientStock), errors.Is(err, stock.ErrDuplicateRule):
		writeError(w, http.StatusConflict, "Conflict", err)
	case stock.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
