package db

import (
	"context"
	"fmt"
	"log"
	"time"
)

type ActionEvent struct {
	SessionID   string
	RoundID     string
	PlayerID    string
	ActionIndex int
	Kind        string
	Target      string
	Success     bool
	TimingMs    int
	Combo       int
	OccurredAt  time.Time
}

func (d *DB) BatchRecordActions(ctx context.Context, events []ActionEvent) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO action_events (session_id, round_id, player_id, action_index, kind, target, success, timing_ms, combo, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.SessionID, ev.RoundID, ev.PlayerID, ev.ActionIndex, ev.Kind, ev.Target, ev.Success, ev.TimingMs, ev.Combo, ev.OccurredAt); err != nil {
			return fmt.Errorf("recording action in batch: %w", err)
		}
	}

	return tx.Commit()
}

const (
	batchSize     = 50
	flushInterval = 500 * time.Millisecond
)

// ActionSink receives batches from RunActionWriter.
type ActionSink interface {
	BatchRecordActions(ctx context.Context, events []ActionEvent) error
}

// RunActionWriter drains buffer into sink, flushing every 50 events or 500ms,
// until ctx is done. Whatever is buffered at that point is flushed once more.
func RunActionWriter(ctx context.Context, sink ActionSink, buffer <-chan ActionEvent) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]ActionEvent, 0, batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := sink.BatchRecordActions(ctx, batch); err != nil {
			log.Printf("[DB] BatchRecordActions error: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-buffer:
			batch = append(batch, ev)
			if len(batch) >= batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for {
				select {
				case ev := <-buffer:
					batch = append(batch, ev)
				default:
					break drain
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(shutdownCtx)
			cancel()
			return
		}
	}
}
