// Package state holds the in-memory audit trail of lifecycle decisions.
package state

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/budgetguard/budgetguard/internal/store"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// AuditLog is a thread-safe ring buffer of action records with optional
// SQLite persistence through the async store writer. Reads always come
// from memory; the database is the long-term trail served by GetAll.
type AuditLog struct {
	mu      sync.RWMutex
	records []lifecycle.ActionRecord
	max     int
	db      *sql.DB
	writer  *store.Writer
}

// NewAuditLog creates an in-memory-only audit log with the given capacity.
func NewAuditLog(maxRecords int) *AuditLog {
	return &AuditLog{
		records: make([]lifecycle.ActionRecord, 0, maxRecords),
		max:     maxRecords,
	}
}

// NewAuditLogWithDB creates an audit log backed by SQLite. If db or
// writer is nil it behaves identically to NewAuditLog.
func NewAuditLogWithDB(maxRecords int, db *store.DB, writer *store.Writer) *AuditLog {
	a := NewAuditLog(maxRecords)
	if db != nil {
		a.db = db.RawDB()
	}
	a.writer = writer
	return a
}

// Record appends one action record, emits a structured log line for it,
// and queues the SQLite insert.
func (a *AuditLog) Record(rec lifecycle.ActionRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	a.mu.Lock()
	if len(a.records) >= a.max {
		copy(a.records, a.records[1:])
		a.records[len(a.records)-1] = rec
	} else {
		a.records = append(a.records, rec)
	}
	a.mu.Unlock()

	slog.Info("action recorded",
		"cycle", rec.CycleID,
		"resource", rec.ResourceID,
		"kind", rec.ResourceKind,
		"action", rec.Action,
		"trigger", rec.Trigger,
		"outcome", rec.Outcome.Kind,
		"reason", rec.Outcome.Reason,
		"dryRun", rec.DryRun,
	)

	if a.writer != nil {
		a.writer.WriteAction(rec)
	}
}

// GetRecent returns the most recent n records, newest first. Always
// served from memory since SQLite writes are async.
func (a *AuditLog) GetRecent(n int) []lifecycle.ActionRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := len(a.records)
	if n > count {
		n = count
	}

	result := make([]lifecycle.ActionRecord, n)
	for i := 0; i < n; i++ {
		result[i] = a.records[count-1-i]
	}
	return result
}

// GetAll returns the full persisted history, newest first, falling back
// to the in-memory buffer when no database is configured.
func (a *AuditLog) GetAll() []lifecycle.ActionRecord {
	if a.db != nil {
		if recs := a.queryAll(); recs != nil {
			return recs
		}
	}

	a.mu.RLock()
	count := len(a.records)
	a.mu.RUnlock()

	return a.GetRecent(count)
}

// Flush waits for all pending writes to reach SQLite. No-op without a
// writer.
func (a *AuditLog) Flush() {
	if a.writer != nil {
		a.writer.Drain()
	}
}

func (a *AuditLog) queryAll() []lifecycle.ActionRecord {
	rows, err := a.db.Query(
		`SELECT timestamp, cycle_id, resource_id, resource_kind, action, trigger_name, outcome, reason, dry_run
		 FROM action_records ORDER BY timestamp DESC LIMIT 10000`,
	)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var result []lifecycle.ActionRecord
	for rows.Next() {
		var rec lifecycle.ActionRecord
		var ts, kind, action, outcome string
		var dryRun int
		if err := rows.Scan(&ts, &rec.CycleID, &rec.ResourceID, &kind, &action, &rec.Trigger, &outcome, &rec.Outcome.Reason, &dryRun); err != nil {
			slog.Warn("audit: scan row", "error", err)
			continue
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			slog.Warn("audit: parse timestamp", "ts", ts, "error", err)
			continue
		}
		rec.Timestamp = parsed
		rec.ResourceKind = lifecycle.ResourceKind(kind)
		rec.Action = lifecycle.ActionKind(action)
		rec.Outcome.Kind = lifecycle.OutcomeKind(outcome)
		rec.DryRun = dryRun != 0
		result = append(result, rec)
	}
	return result
}
