package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"billed/internal/core"
	"billed/internal/events"
)

type fakeNotifications struct {
	added []core.Notification
	err   error
}

func (f *fakeNotifications) AddNotification(_ context.Context, n core.Notification) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.added = append(f.added, n)
	return int64(len(f.added)), nil
}

func (f *fakeNotifications) ListNotifications(context.Context, string) ([]core.Notification, error) {
	return f.added, nil
}

type fakeBills struct {
	bill core.Bill
	err  error
}

func (f *fakeBills) GetBill(context.Context, string) (core.Bill, error) {
	return f.bill, f.err
}

type fakeLedger struct {
	appended []core.Bill
	err      error
}

func (f *fakeLedger) AppendBill(_ context.Context, b core.Bill) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, b)
	return nil
}

func TestHandleUpdateFailed(t *testing.T) {
	notifs := &fakeNotifications{}
	w := NewEventWorker(notifs, &fakeBills{}, nil)

	msg := events.NewBillUpdateFailed("abc123", "a@a", "Vol Paris Londres", "store down")
	if err := w.HandleBillEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(notifs.added) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs.added))
	}
	n := notifs.added[0]
	if n.Email != "a@a" || n.BillID != "abc123" || n.Kind != events.KindBillUpdateFailed {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !strings.Contains(n.Message, "Vol Paris Londres") {
		t.Fatalf("message should name the bill: %q", n.Message)
	}
}

func TestHandleSubmittedWithLedger(t *testing.T) {
	notifs := &fakeNotifications{}
	bill := core.Bill{ID: "abc123", Email: "a@a", Name: "Taxi", Amount: 30, Status: core.StatusPending}
	led := &fakeLedger{}
	w := NewEventWorker(notifs, &fakeBills{bill: bill}, led)

	msg := events.NewBillSubmitted("abc123", "a@a", "Taxi", "Transports", 30, "2023-04-25")
	if err := w.HandleBillEvent(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(notifs.added) != 1 || notifs.added[0].Kind != events.KindBillSubmitted {
		t.Fatalf("unexpected notifications %+v", notifs.added)
	}
	if len(led.appended) != 1 || led.appended[0].Name != "Taxi" {
		t.Fatalf("unexpected ledger rows %+v", led.appended)
	}
}

func TestHandleSubmittedMissingBillDoesNotRequeue(t *testing.T) {
	notifs := &fakeNotifications{}
	w := NewEventWorker(notifs, &fakeBills{err: errors.New("no such bill")}, &fakeLedger{})

	msg := events.NewBillSubmitted("gone", "a@a", "Taxi", "Transports", 30, "2023-04-25")
	if err := w.HandleBillEvent(context.Background(), msg); err != nil {
		t.Fatalf("a missing bill must not requeue the event, got %v", err)
	}
	if len(notifs.added) != 1 {
		t.Fatalf("notification should still be recorded")
	}
}

func TestHandleSubmittedLedgerFailureRequeues(t *testing.T) {
	w := NewEventWorker(&fakeNotifications{}, &fakeBills{bill: core.Bill{ID: "b1"}}, &fakeLedger{err: errors.New("quota")})

	msg := events.NewBillSubmitted("b1", "a@a", "Taxi", "Transports", 30, "2023-04-25")
	if err := w.HandleBillEvent(context.Background(), msg); err == nil {
		t.Fatalf("ledger failure should be returned for requeue")
	}
}

func TestHandleUnknownKindDropped(t *testing.T) {
	notifs := &fakeNotifications{}
	w := NewEventWorker(notifs, &fakeBills{}, nil)

	if err := w.HandleBillEvent(context.Background(), &events.BillEventMessage{Kind: "bill.exploded"}); err != nil {
		t.Fatalf("unknown kinds are dropped, got %v", err)
	}
	if len(notifs.added) != 0 {
		t.Fatalf("no notification expected for unknown kind")
	}
}
