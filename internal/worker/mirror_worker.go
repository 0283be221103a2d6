// Package worker mirrors the primary ledger into a secondary store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/ledger"
)

// Consumer delivers ledger change notifications.
type Consumer interface {
	ConsumeLedgerChanged(ctx context.Context, handler func(context.Context, *amqp.LedgerChangedMessage) error) error
}

// MirrorWorker copies the whole primary ledger into the mirror on every
// change notification, at startup, and every interval. Each sync writes a
// full snapshot, so replays and duplicates are harmless.
type MirrorWorker struct {
	primary  ledger.Loader
	mirror   ledger.Saver
	interval time.Duration

	mu       sync.Mutex
	lastSync time.Time
	syncs    int
}

func NewMirrorWorker(primary ledger.Loader, mirror ledger.Saver, interval time.Duration) *MirrorWorker {
	return &MirrorWorker{primary: primary, mirror: mirror, interval: interval}
}

// Sync copies the primary ledger into the mirror once.
func (w *MirrorWorker) Sync(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	items, err := w.primary.Load(ctx)
	if err != nil {
		return fmt.Errorf("load primary ledger: %w", err)
	}
	if err := w.mirror.Save(ctx, items); err != nil {
		return fmt.Errorf("save mirror ledger: %w", err)
	}
	w.lastSync = time.Now()
	w.syncs++
	slog.InfoContext(ctx, "Ledger mirrored", "rows", len(items), "duration", time.Since(start))
	return nil
}

// HandleLedgerChanged syncs after a change notification.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"expense_id", msg.ExpenseID,
		"operation", msg.Operation,
		"timestamp", msg.Timestamp)
	return w.Sync(ctx)
}

// Stats returns the time of the last successful sync and the number of syncs.
func (w *MirrorWorker) Stats() (time.Time, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSync, w.syncs
}

// Run performs a startup sync, then consumes notifications (when consumer is
// non-nil) and syncs periodically until ctx is done.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	if err := w.Sync(ctx); err != nil {
		// a broken mirror at startup should not keep the consumer down
		slog.ErrorContext(ctx, "Startup sync failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged)
		})
	}
	if w.interval > 0 {
		g.Go(func() error {
			return w.periodic(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *MirrorWorker) periodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Started periodic mirror sync", "interval", w.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
