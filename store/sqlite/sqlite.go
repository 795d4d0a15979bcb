/*
Package sqlite provides SQLite-backed implementations of the stock storage
interfaces.

PURPOSE:
  Durable storage for everything the in-memory engine does NOT own:
  historical quantity samples (advisor input), operator-configured rules
  (reloaded into the registry at startup), and an append-only archive of
  emitted notifications. The ledger itself is never persisted here - stock
  truth lives upstream.

INTERFACES IMPLEMENTED:
  stock.SampleStore
  stock.RuleStore
  stock.NotificationArchive (and stock.Notifier, for direct engine wiring)

WAL MODE:
  Opened with WAL so the sampling scheduler's writes don't block API reads.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - stock/store.go: Interface definitions
  - stock/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/stock-engine/stock"
)

// Store implements the stock storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Historical quantity observations (advisor input, append-only)
	CREATE TABLE IF NOT EXISTS samples (
		item_id TEXT NOT NULL,
		sampled_at TEXT NOT NULL,
		quantity INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_samples_item_time
		ON samples(item_id, sampled_at);

	-- Operator-configured alert rules (trigger state is NOT stored; it is
	-- recomputed from live quantities when the registry is rebuilt)
	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		threshold REAL NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_item
		ON rules(item_id);

	-- Emitted notifications (append-only archive)
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		rule_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_rule
		ON notifications(rule_id);
	CREATE INDEX IF NOT EXISTS idx_notifications_time
		ON notifications(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SAMPLE STORE
// =============================================================================

// RecordSample appends one quantity observation.
func (s *Store) RecordSample(ctx context.Context, sample stock.HistoricalSample) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (item_id, sampled_at, quantity) VALUES (?, ?, ?)`,
		string(sample.ItemID), sample.Timestamp.UTC().Format(time.RFC3339Nano), sample.Quantity)
	return err
}

// Samples returns observations for an item in [from, to], oldest first.
func (s *Store) Samples(ctx context.Context, itemID stock.ItemID, from, to time.Time) ([]stock.HistoricalSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, sampled_at, quantity FROM samples
		 WHERE item_id = ? AND sampled_at >= ? AND sampled_at <= ?
		 ORDER BY sampled_at ASC`,
		string(itemID), from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

// RecentSamples returns up to limit most recent observations, oldest first.
func (s *Store) RecentSamples(ctx context.Context, itemID stock.ItemID, limit int) ([]stock.HistoricalSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, sampled_at, quantity FROM (
			SELECT item_id, sampled_at, quantity FROM samples
			WHERE item_id = ? ORDER BY sampled_at DESC LIMIT ?
		 ) ORDER BY sampled_at ASC`,
		string(itemID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func scanSamples(rows *sql.Rows) ([]stock.HistoricalSample, error) {
	var samples []stock.HistoricalSample
	for rows.Next() {
		var itemID, sampledAt string
		var quantity int64
		if err := rows.Scan(&itemID, &sampledAt, &quantity); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, sampledAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt sample timestamp %q: %w", sampledAt, err)
		}
		samples = append(samples, stock.HistoricalSample{
			ItemID:    stock.ItemID(itemID),
			Timestamp: ts,
			Quantity:  quantity,
		})
	}
	return samples, rows.Err()
}

// =============================================================================
// RULE STORE
// =============================================================================

// SaveRule upserts a rule configuration.
func (s *Store) SaveRule(ctx context.Context, rule stock.Rule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, item_id, kind, threshold, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			item_id = excluded.item_id,
			kind = excluded.kind,
			threshold = excluded.threshold,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		string(rule.ID), string(rule.ItemID), string(rule.Kind), rule.Threshold, rule.IsActive,
		rule.CreatedAt.UTC().Format(time.RFC3339Nano), rule.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// DeleteRule removes a rule configuration.
func (s *Store) DeleteRule(ctx context.Context, id stock.RuleID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, string(id))
	return err
}

// LoadRules returns all rule configurations in creation order.
func (s *Store) LoadRules(ctx context.Context) ([]stock.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, kind, threshold, is_active, created_at, updated_at
		 FROM rules ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []stock.Rule
	for rows.Next() {
		var id, itemID, kind, createdAt, updatedAt string
		var threshold float64
		var isActive bool
		if err := rows.Scan(&id, &itemID, &kind, &threshold, &isActive, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rule := stock.Rule{
			ID:        stock.RuleID(id),
			ItemID:    stock.ItemID(itemID),
			Kind:      stock.AlertKind(kind),
			Threshold: threshold,
			IsActive:  isActive,
		}
		if rule.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt rule created_at %q: %w", createdAt, err)
		}
		if rule.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
			return nil, fmt.Errorf("corrupt rule updated_at %q: %w", updatedAt, err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// =============================================================================
// NOTIFICATION ARCHIVE
// =============================================================================

// ArchiveNotification appends an emitted notification.
func (s *Store) ArchiveNotification(ctx context.Context, n stock.Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, rule_id, item_id, kind, severity, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, string(n.RuleID), string(n.ItemID), string(n.Kind), string(n.Severity),
		n.Message, n.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

// Notify implements stock.Notifier so the store can be wired directly into
// the engine's notification fan-out.
func (s *Store) Notify(n stock.Notification) error {
	return s.ArchiveNotification(context.Background(), n)
}

// ArchivedNotifications returns archived notifications, newest first.
func (s *Store) ArchivedNotifications(ctx context.Context, limit int) ([]stock.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, rule_id, item_id, kind, severity, message, created_at
		 FROM notifications ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []stock.Notification
	for rows.Next() {
		var n stock.Notification
		var ruleID, itemID, kind, severity, createdAt string
		if err := rows.Scan(&n.ID, &ruleID, &itemID, &kind, &severity, &n.Message, &createdAt); err != nil {
			return nil, err
		}
		n.RuleID = stock.RuleID(ruleID)
		n.ItemID = stock.ItemID(itemID)
		n.Kind = stock.AlertKind(kind)
		n.Severity = stock.Severity(severity)
		if n.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("corrupt notification created_at %q: %w", createdAt, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
