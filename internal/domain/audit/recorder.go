// Package audit keeps an append-only trail of dispatched tool calls.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/handaas/patent-bigdata-mcp/internal/domain/tool"
	"github.com/handaas/patent-bigdata-mcp/internal/infra/eventbus"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrNilDB = errors.New("audit: nil database")

// Recorder persists tool.CallEvent values into the tool_call table.
// All operations are append-only.
type Recorder struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecorder(db *sql.DB, logger *slog.Logger) (*Recorder, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, logger: logger}, nil
}

// Record inserts one row for evt and returns it.
func (r *Recorder) Record(ctx context.Context, evt tool.CallEvent) (CallRecord, error) {
	at := evt.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := CallRecord{
		ID:        uuid.NewString(),
		Tool:      evt.Tool,
		ProductID: evt.ProductID,
		Outcome:   string(evt.Outcome),
		Cause:     evt.Cause,
		Duration:  evt.Duration,
		CreatedAt: at.UTC(),
	}

	var cause sql.NullString
	if rec.Cause != "" {
		cause = sql.NullString{String: rec.Cause, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tool_call (id, tool, product_id, outcome, cause, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Tool, rec.ProductID, rec.Outcome, cause, rec.DurationMS(), rec.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return CallRecord{}, fmt.Errorf("audit: insert tool_call: %w", err)
	}
	return rec, nil
}

// Run records every tool.CallEvent received on events until ctx is done or
// events is closed. Insert failures are logged and do not stop the loop.
func (r *Recorder) Run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			evt, isCall := e.Payload.(tool.CallEvent)
			if !isCall {
				r.logger.Warn("audit: unexpected payload", "topic", e.Topic, "type", fmt.Sprintf("%T", e.Payload))
				continue
			}
			if _, err := r.Record(ctx, evt); err != nil {
				r.logger.Error("audit: record tool call", "tool", evt.Tool, "error", err)
			}
		}
	}
}

// Start subscribes to tool.TopicToolCalled on bus and runs the consumption
// loop in a new goroutine. The subscription is dropped when ctx is done.
func (r *Recorder) Start(ctx context.Context, bus eventbus.EventBus) {
	events := bus.Subscribe(tool.TopicToolCalled)
	go func() {
		r.Run(ctx, events)
		bus.Unsubscribe(tool.TopicToolCalled, events)
	}()
}

// List returns up to limit records, newest first. A non-positive limit
// means DefaultListLimit; limits above MaxListLimit are clamped.
func (r *Recorder) List(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tool, product_id, outcome, cause, duration_ms, created_at
		 FROM tool_call
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list tool_call: %w", err)
	}
	defer rows.Close()

	out := make([]CallRecord, 0, limit)
	for rows.Next() {
		var (
			rec       CallRecord
			cause     sql.NullString
			durMS     int64
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Tool, &rec.ProductID, &rec.Outcome, &cause, &durMS, &createdAt); err != nil {
			return nil, fmt.Errorf("audit: scan tool_call: %w", err)
		}
		rec.Cause = cause.String
		rec.Duration = time.Duration(durMS) * time.Millisecond
		rec.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("audit: parse created_at %q: %w", createdAt, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: list tool_call: %w", err)
	}
	return out, nil
}
