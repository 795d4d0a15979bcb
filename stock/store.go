/*
store.go - Persistence interfaces for collaborator-owned data

PURPOSE:
  Defines the interfaces between the engine's consumers and durable storage.
  The engine itself is an in-memory authoritative cache: the ledger and the
  registry are never persisted by the engine. What IS stored durably belongs
  to collaborators:

    SampleStore:         historical quantity samples (advisor input)
    RuleStore:           operator-configured rules, reloaded at startup
    NotificationArchive: append-only record of emitted notifications

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - stock/store:  in-memory, for tests and the sample scheduler's defaults

SEE ALSO:
  - advisor.go: Consumes SampleStore contents
  - api/scheduler.go: Writes samples on a fixed interval
*/
package stock

import (
	"context"
	"time"
)

// SampleStore persists historical quantity observations.
type SampleStore interface {
	// RecordSample appends one observation.
	RecordSample(ctx context.Context, sample HistoricalSample) error

	// Samples returns observations for an item in [from, to], oldest first.
	Samples(ctx context.Context, itemID ItemID, from, to time.Time) ([]HistoricalSample, error)

	// RecentSamples returns up to limit most recent observations for an
	// item, oldest first.
	RecentSamples(ctx context.Context, itemID ItemID, limit int) ([]HistoricalSample, error)
}

// RuleStore persists rule configurations so the registry can be rebuilt
// at startup. Trigger state is not persisted; it is recomputed from live
// quantities.
type RuleStore interface {
	SaveRule(ctx context.Context, rule Rule) error
	DeleteRule(ctx context.Context, id RuleID) error
	LoadRules(ctx context.Context) ([]Rule, error)
}

// NotificationArchive records emitted notifications durably. Append-only;
// the engine's bounded in-memory log stays authoritative for display.
type NotificationArchive interface {
	ArchiveNotification(ctx context.Context, n Notification) error
}
