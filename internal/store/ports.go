// Package store declares the capability contract of the remote bill store.
// The bill lifecycle core is written against these ports; concrete adapters
// live in internal/receipts, internal/storage and internal/store/memory.
package store

import (
	"context"
	"io"

	"billed/internal/core"
)

type (
	// ReceiptCreator uploads a receipt payload (file plus submitter email) and
	// returns the resulting attachment: the created bill identifier, the
	// stored file URL and the file name.
	ReceiptCreator interface {
		CreateReceipt(ctx context.Context, email, fileName string, r io.Reader, size int64, contentType string) (core.Attachment, error)
	}

	// BillUpdater persists a full bill record. data is the serialized bill,
	// selector the identifier returned by the preceding receipt creation.
	BillUpdater interface {
		UpdateBill(ctx context.Context, data []byte, selector string) error
	}

	// BillLister returns the raw bill records of one user, ordered by the
	// store's own contract (date descending, raw lexical comparison).
	BillLister interface {
		ListBills(ctx context.Context, email string) ([]core.Bill, error)
	}

	// ReceiptPreviewer resolves a bill identifier to a short-lived URL for its
	// receipt image. Read-only; nothing is persisted.
	ReceiptPreviewer interface {
		PreviewURL(ctx context.Context, billID string) (string, error)
	}

	// NotificationStore records and lists user-visible notifications produced
	// by the asynchronous side of the bill lifecycle.
	NotificationStore interface {
		AddNotification(ctx context.Context, n core.Notification) (int64, error)
		ListNotifications(ctx context.Context, email string) ([]core.Notification, error)
	}
)
