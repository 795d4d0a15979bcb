/*
evaluate.go - Pure trigger and severity evaluation

PURPOSE:
  Maps (kind, threshold, quantity) to (triggered, severity) with no state
  and no side effects. The registry calls this for every rule whenever a
  new quantity is observed.

TRIGGER PREDICATES:
  low_stock       0 < quantity <= threshold
  out_of_stock    quantity == 0
  critical_stock  0 < quantity <= threshold * 0.3
  overstock       quantity >= threshold * 1.5
  custom          quantity <= threshold

SEVERITY (only when triggered):
  quantity == 0 or threshold == 0  -> critical
  pct = quantity / threshold * 100
  pct <= 10 -> critical; pct <= 30 -> high; pct <= 50 -> medium; else low

  Boundaries are inclusive. Severity is recomputed on every evaluation, so
  it can change while a rule stays triggered (stock falling further).
*/
package stock

// Evaluation is the outcome of evaluating one rule against a quantity.
type Evaluation struct {
	Triggered bool
	Severity  Severity // zero value when not triggered
}

// Evaluate computes whether a rule of the given kind and threshold is
// triggered by the quantity, and how severe the condition is.
// Pure function: same inputs always yield the same outcome.
func Evaluate(kind AlertKind, threshold float64, quantity int64) Evaluation {
	q := float64(quantity)

	var triggered bool
	switch kind {
	case KindLowStock:
		triggered = quantity > 0 && q <= threshold
	case KindOutOfStock:
		triggered = quantity == 0
	case KindCriticalStock:
		triggered = quantity > 0 && q <= threshold*0.3
	case KindOverstock:
		triggered = q >= threshold*1.5
	default:
		triggered = q <= threshold
	}

	if !triggered {
		return Evaluation{}
	}
	return Evaluation{Triggered: true, Severity: severityFor(threshold, quantity)}
}

// severityFor classifies a triggered condition by how far below the
// threshold the quantity sits. A zero threshold forces critical to avoid
// dividing by zero.
func severityFor(threshold float64, quantity int64) Severity {
	if quantity == 0 || threshold == 0 {
		return SeverityCritical
	}

	pct := float64(quantity) / threshold * 100
	switch {
	case pct <= 10:
		return SeverityCritical
	case pct <= 30:
		return SeverityHigh
	case pct <= 50:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
