package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Writer serializes SQLite writes through a single goroutine. Callers
// enqueue typed records; a bounded channel gives backpressure and writes
// are dropped, never blocked on, when the queue is full.
type Writer struct {
	db      *sql.DB
	ch      chan func(*sql.DB)
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewWriter creates an async writer over db with the given buffer size.
// Call Run to start processing and Drain before closing the database.
func NewWriter(db *DB, bufSize int) *Writer {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &Writer{
		db: db.RawDB(),
		ch: make(chan func(*sql.DB), bufSize),
	}
}

// Run processes queued writes until ctx is cancelled, then drains
// whatever is still buffered before returning.
func (w *Writer) Run(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case fn, ok := <-w.ch:
				if !ok {
					return
				}
				fn(w.db)
			case <-ctx.Done():
				for {
					select {
					case fn, ok := <-w.ch:
						if !ok {
							return
						}
						fn(w.db)
					default:
						return
					}
				}
			}
		}
	}()
}

// WriteAction persists one action record asynchronously.
func (w *Writer) WriteAction(rec lifecycle.ActionRecord) {
	w.enqueue(func(db *sql.DB) {
		_, err := db.Exec(
			`INSERT INTO action_records
			 (timestamp, cycle_id, resource_id, resource_kind, action, trigger_name, outcome, reason, dry_run)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.Timestamp.UTC().Format(time.RFC3339),
			rec.CycleID,
			rec.ResourceID,
			string(rec.ResourceKind),
			string(rec.Action),
			rec.Trigger,
			string(rec.Outcome.Kind),
			rec.Outcome.Reason,
			boolToInt(rec.DryRun),
		)
		if err != nil {
			slog.Error("store: action record insert failed", "resource", rec.ResourceID, "error", err)
		}
	})
}

// WriteCycle persists a completed cycle summary asynchronously.
func (w *Writer) WriteCycle(res lifecycle.CycleResult) {
	succeeded, skipped, failed := res.Counts()
	w.enqueue(func(db *sql.DB) {
		_, err := db.Exec(
			`INSERT INTO cycle_history
			 (timestamp, cycle_id, trigger_name, processed, succeeded, skipped, failed, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			res.StartedAt.UTC().Format(time.RFC3339),
			res.CycleID,
			res.Trigger,
			len(res.Records),
			succeeded,
			skipped,
			failed,
			res.Duration.Milliseconds(),
		)
		if err != nil {
			slog.Error("store: cycle summary insert failed", "cycle", res.CycleID, "error", err)
		}
	})
}

func (w *Writer) enqueue(fn func(*sql.DB)) {
	select {
	case w.ch <- fn:
	default:
		count := w.dropped.Add(1)
		// Log at powers of 2 to avoid spam under sustained overload.
		if count&(count-1) == 0 {
			slog.Warn("store: dropping writes due to backpressure",
				"totalDropped", count, "queueCap", cap(w.ch))
		}
	}
}

// DroppedCount returns the number of writes dropped due to backpressure.
func (w *Writer) DroppedCount() uint64 {
	return w.dropped.Load()
}

// Drain waits for all queued writes to finish. Call before closing the
// database.
func (w *Writer) Drain() {
	close(w.ch)
	w.wg.Wait()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
