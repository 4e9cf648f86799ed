// Package memory is the in-process bill store used by the default backend
// and by handler tests. It honors the same contract as the SQLite/MinIO
// pair, including date-descending lexical list ordering.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"billed/internal/core"
)

type Store struct {
	mu            sync.Mutex
	bills         map[string]core.Bill
	notifications []core.Notification
	nextNotifID   int64
}

func New() *Store {
	return &Store{bills: make(map[string]core.Bill)}
}

// CreateReceipt stores the receipt bytes nowhere (the memory backend keeps no
// files) but creates the pending bill shell and returns a complete attachment.
func (s *Store) CreateReceipt(_ context.Context, email, fileName string, r io.Reader, _ int64, _ string) (core.Attachment, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return core.Attachment{}, fmt.Errorf("read receipt payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	billID := uuid.NewString()
	fileURL := "memstore://receipts/" + billID + "/" + fileName
	s.bills[billID] = core.Bill{
		ID:       billID,
		Email:    email,
		FileURL:  fileURL,
		FileName: fileName,
		Status:   core.StatusPending,
	}

	return core.Attachment{BillID: billID, FileURL: fileURL, FileName: fileName}, nil
}

// UpdateBill implements store.BillUpdater.
func (s *Store) UpdateBill(_ context.Context, data []byte, selector string) error {
	var b core.Bill
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode bill payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if selector == "" {
		return fmt.Errorf("update bill: empty selector")
	}
	if _, ok := s.bills[selector]; !ok {
		return fmt.Errorf("update bill %s: no such bill", selector)
	}
	b.ID = selector
	s.bills[selector] = b
	return nil
}

// ListBills implements store.BillLister, date descending by raw lexical
// comparison.
func (s *Store) ListBills(_ context.Context, email string) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Bill
	for _, b := range s.bills {
		if b.Email == email {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// PreviewURL implements store.ReceiptPreviewer; the memory backend has no
// signed URLs, so the stored file URL is returned directly.
func (s *Store) PreviewURL(_ context.Context, billID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[billID]
	if !ok {
		return "", fmt.Errorf("preview bill %s: no such bill", billID)
	}
	if b.FileURL == "" {
		return "", fmt.Errorf("bill %s has no stored receipt", billID)
	}
	return b.FileURL, nil
}

// AddNotification implements store.NotificationStore.
func (s *Store) AddNotification(_ context.Context, n core.Notification) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextNotifID++
	n.ID = s.nextNotifID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications = append(s.notifications, n)
	return n.ID, nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(_ context.Context, email string) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Notification
	for _, n := range s.notifications {
		if n.Email == email {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
