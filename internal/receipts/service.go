// Package receipts implements the store's receipt create capability: the
// image goes to object storage, the pending bill shell to SQLite, and the
// caller gets back the attachment triple {key, fileUrl, fileName}.
package receipts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"billed/internal/core"
	"billed/internal/objstore"
	"billed/internal/storage"
)

type Service struct {
	objects       *objstore.Storage
	bills         *storage.SQLiteRepository
	presignExpiry time.Duration
}

func NewService(objects *objstore.Storage, bills *storage.SQLiteRepository, presignExpiry time.Duration) *Service {
	return &Service{
		objects:       objects,
		bills:         bills,
		presignExpiry: presignExpiry,
	}
}

// CreateReceipt implements store.ReceiptCreator. The bill identifier doubles
// as the tail of the object key, so one upload creates exactly one shell and
// one object.
func (s *Service) CreateReceipt(ctx context.Context, email, fileName string, r io.Reader, size int64, contentType string) (core.Attachment, error) {
	billID := uuid.NewString()
	objectKey := "receipts/" + billID + "/" + fileName

	fileURL, err := s.objects.PutReceipt(ctx, objectKey, r, size, contentType)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("store receipt: %w", err)
	}

	if err := s.bills.CreateReceiptBill(ctx, billID, email, fileName, fileURL, objectKey); err != nil {
		// The object is orphaned if the shell insert fails; best effort cleanup.
		if rmErr := s.objects.RemoveReceipt(ctx, objectKey); rmErr != nil {
			slog.WarnContext(ctx, "Failed to clean up orphaned receipt object",
				"object_key", objectKey,
				"error", rmErr)
		}
		return core.Attachment{}, fmt.Errorf("record receipt: %w", err)
	}

	return core.Attachment{
		BillID:   billID,
		FileURL:  fileURL,
		FileName: fileName,
	}, nil
}

// PreviewURL implements store.ReceiptPreviewer: a short-lived signed URL for
// the bill's stored receipt image.
func (s *Service) PreviewURL(ctx context.Context, billID string) (string, error) {
	key, err := s.bills.GetBillFileKey(ctx, billID)
	if err != nil {
		return "", fmt.Errorf("resolve receipt key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("bill %s has no stored receipt", billID)
	}
	return s.objects.PresignReceiptURL(ctx, key, s.presignExpiry)
}
