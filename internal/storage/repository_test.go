package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"billed/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "billed.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustJSON(t *testing.T, b core.Bill) []byte {
	t.Helper()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bill: %v", err)
	}
	return data
}

func TestCreateAndUpdateBill(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateReceiptBill(ctx, "abc123", "a@a", "facture.jpg", "https://localhost/receipts/abc123", "receipts/abc123"); err != nil {
		t.Fatalf("create shell: %v", err)
	}

	bill := core.Bill{
		Email:      "a@a",
		Type:       "Transports",
		Name:       "Vol Paris Londres",
		Amount:     348,
		Date:       "2023-04-25",
		VAT:        "70",
		Pct:        20,
		Commentary: "",
		FileURL:    "https://localhost/receipts/abc123",
		FileName:   "facture.jpg",
		Status:     core.StatusPending,
	}
	if err := repo.UpdateBill(ctx, mustJSON(t, bill), "abc123"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetBill(ctx, "abc123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != bill.Name || got.Amount != 348 || got.Status != core.StatusPending {
		t.Fatalf("unexpected bill %+v", got)
	}

	key, err := repo.GetBillFileKey(ctx, "abc123")
	if err != nil || key != "receipts/abc123" {
		t.Fatalf("file key = %q, %v", key, err)
	}
}

func TestUpdateBillUnknownSelector(t *testing.T) {
	repo := newTestRepo(t)
	bill := core.Bill{Email: "a@a", Status: core.StatusPending}

	if err := repo.UpdateBill(context.Background(), mustJSON(t, bill), "nope"); err == nil {
		t.Fatalf("expected error for unknown selector")
	}
	if err := repo.UpdateBill(context.Background(), mustJSON(t, bill), ""); err == nil {
		t.Fatalf("expected error for empty selector")
	}
}

func TestListBillsOrderedByDateDescending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []struct {
		id, date string
	}{
		{"b1", "2022-01-01"},
		{"b2", "2023-04-25"},
		{"b3", "invalid date"},
	}
	for _, s := range seed {
		if err := repo.CreateReceiptBill(ctx, s.id, "a@a", "f.jpg", "u", "k"); err != nil {
			t.Fatalf("create %s: %v", s.id, err)
		}
		bill := core.Bill{Email: "a@a", Type: "Transports", Amount: 1, Date: s.date, Pct: 20, Status: core.StatusPending}
		if err := repo.UpdateBill(ctx, mustJSON(t, bill), s.id); err != nil {
			t.Fatalf("update %s: %v", s.id, err)
		}
	}

	bills, err := repo.ListBills(ctx, "a@a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 3 {
		t.Fatalf("got %d bills, want 3 (corrupted dates must not be excluded)", len(bills))
	}
	// Raw lexical descending: "invalid date" > "2023-04-25" > "2022-01-01".
	if bills[0].Date != "invalid date" || bills[1].Date != "2023-04-25" || bills[2].Date != "2022-01-01" {
		t.Fatalf("unexpected order: %q, %q, %q", bills[0].Date, bills[1].Date, bills[2].Date)
	}

	other, err := repo.ListBills(ctx, "b@b")
	if err != nil {
		t.Fatalf("list other user: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("bills leaked across users: %+v", other)
	}
}

func TestUpdateBillStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateReceiptBill(ctx, "b1", "a@a", "f.jpg", "u", "k"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateBillStatus(ctx, "b1", core.StatusAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := repo.GetBill(ctx, "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != core.StatusAccepted {
		t.Fatalf("status = %q, want accepted", got.Status)
	}

	if err := repo.UpdateBillStatus(ctx, "b1", core.Status("bogus")); err == nil {
		t.Fatalf("expected error for invalid status code")
	}
	if err := repo.UpdateBillStatus(ctx, "nope", core.StatusRefused); err == nil {
		t.Fatalf("expected error for unknown bill")
	}
}

func TestNotifications(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddNotification(ctx, core.Notification{
		Email:   "a@a",
		BillID:  "b1",
		Kind:    "bill.update_failed",
		Message: "Votre note de frais n'a pas pu être enregistrée",
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected assigned id")
	}

	list, err := repo.ListNotifications(ctx, "a@a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].BillID != "b1" || list[0].Kind != "bill.update_failed" {
		t.Fatalf("unexpected notifications %+v", list)
	}

	removed, err := repo.DeleteNotificationsBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 0 {
		t.Fatalf("fresh notification should survive pruning, removed %d", removed)
	}
}
