/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the engine with marketplace demo data so the frontend can be
  exercised without a live storefront backend. Each scenario loads items,
  rules, and (for the planning scenario) sample history.

SEE ALSO:
  - handlers.go: Scenario endpoints
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/stock-engine/stock"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-market",
		Name:        "Fresh Market",
		Description: "Produce items with healthy stock and low-stock watches",
	},
	{
		ID:          "flash-sale",
		Name:        "Flash Sale",
		Description: "An item selling out fast: triggered rules across severities",
	},
	{
		ID:          "restock-planning",
		Name:        "Restock Planning",
		Description: "Items with sample history, ready for threshold recommendations",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the engine with the selected scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ID {
	case "fresh-market":
		err = h.loadFreshMarket()
	case "flash-sale":
		err = h.loadFlashSale()
	case "restock-planning":
		err = h.loadRestockPlanning(r.Context())
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ID})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadFreshMarket() error {
	items := map[stock.ItemID]int64{
		"tomatoes-1kg":  120,
		"mangoes-crate": 45,
		"onions-5kg":    80,
	}
	for itemID, quantity := range items {
		if _, err := h.Engine.SetQuantity(itemID, quantity); err != nil {
			return err
		}
		draft := stock.RuleDraft{ItemID: itemID, Kind: stock.KindLowStock, Threshold: 20}
		if _, _, err := h.Engine.AddRule(h.Factory.FromDraft(draft)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadFlashSale() error {
	const itemID = stock.ItemID("honey-jar-sale")

	if _, err := h.Engine.SetQuantity(itemID, 100); err != nil {
		return err
	}
	for _, draft := range []stock.RuleDraft{
		{ItemID: itemID, Kind: stock.KindLowStock, Threshold: 30},
		{ItemID: itemID, Kind: stock.KindCriticalStock, Threshold: 30},
		{ItemID: itemID, Kind: stock.KindOutOfStock, Threshold: 0},
	} {
		if _, _, err := h.Engine.AddRule(h.Factory.FromDraft(draft)); err != nil {
			return err
		}
	}

	// Simulate the sale: most of the stock reserved in one burst.
	_, err := h.Engine.Reserve(itemID, 95)
	return err
}

func (h *Handler) loadRestockPlanning(ctx context.Context) error {
	const itemID = stock.ItemID("millet-sack")

	if _, err := h.Engine.SetQuantity(itemID, 40); err != nil {
		return err
	}
	if h.Samples == nil {
		return nil
	}

	// A month of weekly observations, including one stockout.
	quantities := []int64{50, 0, 30, 10}
	start := time.Now().AddDate(0, -1, 0)
	for i, q := range quantities {
		sample := stock.HistoricalSample{
			ItemID:    itemID,
			Timestamp: start.AddDate(0, 0, i*7),
			Quantity:  q,
		}
		if err := h.Samples.RecordSample(ctx, sample); err != nil {
			return err
		}
	}
	return nil
}
