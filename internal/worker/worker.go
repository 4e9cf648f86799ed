// Package worker turns bill lifecycle events into user-visible notifications
// and ledger rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"billed/internal/core"
	"billed/internal/events"
	"billed/internal/store"
)

// BillAppender exports one bill to the external ledger. *ledger.Client
// satisfies it; nil disables the export.
type BillAppender interface {
	AppendBill(ctx context.Context, b core.Bill) error
}

// BillReader loads the persisted bill an event refers to.
type BillReader interface {
	GetBill(ctx context.Context, id string) (core.Bill, error)
}

type EventWorker struct {
	notifications store.NotificationStore
	bills         BillReader
	ledger        BillAppender
}

func NewEventWorker(notifications store.NotificationStore, bills BillReader, ledger BillAppender) *EventWorker {
	return &EventWorker{
		notifications: notifications,
		bills:         bills,
		ledger:        ledger,
	}
}

// HandleBillEvent processes one event from the bus. Unknown kinds are dropped
// with a warning rather than requeued forever.
func (w *EventWorker) HandleBillEvent(ctx context.Context, msg *events.BillEventMessage) error {
	switch msg.Kind {
	case events.KindBillUpdateFailed:
		return w.handleUpdateFailed(ctx, msg)
	case events.KindBillSubmitted:
		return w.handleSubmitted(ctx, msg)
	default:
		slog.WarnContext(ctx, "Dropping bill event of unknown kind",
			"kind", msg.Kind,
			"bill_id", msg.BillID)
		return nil
	}
}

func (w *EventWorker) handleUpdateFailed(ctx context.Context, msg *events.BillEventMessage) error {
	message := fmt.Sprintf("Votre note de frais %q n'a pas pu être enregistrée. Sélectionnez à nouveau le justificatif et soumettez-la.", msg.Name)
	_, err := w.notifications.AddNotification(ctx, core.Notification{
		Email:   msg.Email,
		BillID:  msg.BillID,
		Kind:    msg.Kind,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("record update failure notification: %w", err)
	}
	return nil
}

func (w *EventWorker) handleSubmitted(ctx context.Context, msg *events.BillEventMessage) error {
	message := fmt.Sprintf("Votre note de frais %q a été soumise.", msg.Name)
	if _, err := w.notifications.AddNotification(ctx, core.Notification{
		Email:   msg.Email,
		BillID:  msg.BillID,
		Kind:    msg.Kind,
		Message: message,
	}); err != nil {
		return fmt.Errorf("record submission notification: %w", err)
	}

	if w.ledger == nil {
		return nil
	}

	bill, err := w.bills.GetBill(ctx, msg.BillID)
	if err != nil {
		// The bill may have been removed between event and delivery; the
		// notification is already recorded, so do not requeue.
		slog.WarnContext(ctx, "Submitted bill not found for ledger export",
			"bill_id", msg.BillID,
			"error", err)
		return nil
	}

	if err := w.ledger.AppendBill(ctx, bill); err != nil {
		return fmt.Errorf("append bill to ledger: %w", err)
	}
	return nil
}

// NotificationPruner removes notifications past their retention.
type NotificationPruner interface {
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneNotifications runs retention sweeps on every tick until ctx ends.
func PruneNotifications(ctx context.Context, pruner NotificationPruner, retention, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := pruner.DeleteNotificationsBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				slog.ErrorContext(ctx, "Notification retention sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.InfoContext(ctx, "Pruned old notifications", "removed", removed)
			}
		}
	}
}
