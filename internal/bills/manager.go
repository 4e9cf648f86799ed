// Package bills implements the bill lifecycle: receipt validation and upload,
// bill assembly and submission, and list retrieval with defensive
// normalization of dates and status codes.
package bills

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"billed/internal/core"
	"billed/internal/events"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store"
)

// EventPublisher surfaces asynchronous submission outcomes beyond the log.
// *events.Client satisfies it; a nil publisher downgrades to log-only.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, msg *events.BillEventMessage) error
}

// BillForm holds the raw form field values of one submission. Amount and Pct
// stay strings here; parsing happens at assembly time.
type BillForm struct {
	Type       string
	Name       string
	Amount     string
	Date       string
	VAT        string
	Pct        string
	Commentary string
}

// Manager drives one submission: validate-and-upload first, then submit with
// the attachment the upload produced. The attachment is threaded through
// explicitly, so a submission can only reference a completed upload.
type Manager struct {
	receipts store.ReceiptCreator
	updater  store.BillUpdater
	session  session.Store
	navigate routes.Navigator
	bus      EventPublisher
}

func NewManager(receipts store.ReceiptCreator, updater store.BillUpdater, sess session.Store, navigate routes.Navigator, bus EventPublisher) *Manager {
	if navigate == nil {
		navigate = routes.Discard
	}
	return &Manager{
		receipts: receipts,
		updater:  updater,
		session:  sess,
		navigate: navigate,
		bus:      bus,
	}
}

// WithNavigator returns a copy of m bound to a different navigation target.
// The HTTP layer uses it to attach a per-request navigator.
func (m *Manager) WithNavigator(navigate routes.Navigator) *Manager {
	if navigate == nil {
		navigate = routes.Discard
	}
	clone := *m
	clone.navigate = navigate
	return &clone
}

// ValidateAndUpload checks the selected receipt file and, when accepted,
// uploads it together with the submitter's email. A disallowed extension is a
// pure validation failure: ErrInvalidExtension, zero store calls. An upload
// failure is logged and returned; the caller keeps its previous attachment
// and a retry requires selecting the file again.
func (m *Manager) ValidateAndUpload(ctx context.Context, filePath string, r io.Reader, size int64) (core.Attachment, error) {
	fileName := core.ReceiptFileName(filePath)
	if err := core.ValidateReceiptName(fileName); err != nil {
		return core.Attachment{}, err
	}

	user, err := session.CurrentUser(m.session)
	if err != nil {
		return core.Attachment{}, fmt.Errorf("read session user: %w", err)
	}

	att, err := m.receipts.CreateReceipt(ctx, user.Email, fileName, r, size, core.ReceiptContentType(fileName))
	if err != nil {
		slog.ErrorContext(ctx, "Receipt upload failed",
			"file_name", fileName,
			"email", user.Email,
			"error", err)
		return core.Attachment{}, fmt.Errorf("upload receipt: %w", err)
	}
	att.FileName = fileName

	slog.InfoContext(ctx, "Receipt uploaded",
		"bill_id", att.BillID,
		"file_name", att.FileName,
		"file_url", att.FileURL)

	return att, nil
}

// Submit assembles the bill from the form values and the attachment of the
// last completed upload, persists it, and navigates to the bill list exactly
// once regardless of the persistence outcome. A persistence failure is logged
// and published on the event bus; it never blocks the navigation.
func (m *Manager) Submit(ctx context.Context, form BillForm, att core.Attachment) (core.Bill, error) {
	user, err := session.CurrentUser(m.session)
	if err != nil {
		return core.Bill{}, fmt.Errorf("read session user: %w", err)
	}

	amount, err := core.ParseAmount(form.Amount)
	if err != nil {
		return core.Bill{}, fmt.Errorf("amount %q: %w", form.Amount, err)
	}

	bill := core.Bill{
		Email:      user.Email,
		Type:       form.Type,
		Name:       form.Name,
		Amount:     amount,
		Date:       form.Date,
		VAT:        form.VAT,
		Pct:        core.ParsePct(form.Pct),
		Commentary: form.Commentary,
		FileURL:    att.FileURL,
		FileName:   att.FileName,
		Status:     core.StatusPending,
	}

	// Navigation is not gated on persistence.
	defer m.navigate(routes.Bills)

	if err := m.UpdateBill(ctx, bill, att.BillID); err != nil {
		slog.ErrorContext(ctx, "Bill update failed",
			"selector", att.BillID,
			"name", bill.Name,
			"error", err)
		m.publish(ctx, events.NewBillUpdateFailed(att.BillID, bill.Email, bill.Name, err.Error()))
		return bill, nil
	}

	m.publish(ctx, events.NewBillSubmitted(att.BillID, bill.Email, bill.Name, bill.Type, bill.Amount, bill.Date))
	return bill, nil
}

// UpdateBill serializes the bill and invokes the store's update capability
// with the attachment identifier as selector. No retry on failure.
func (m *Manager) UpdateBill(ctx context.Context, bill core.Bill, selector string) error {
	if selector == "" {
		slog.WarnContext(ctx, "Bill update without receipt identifier", "name", bill.Name)
	}

	data, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("marshal bill: %w", err)
	}

	if err := m.updater.UpdateBill(ctx, data, selector); err != nil {
		return fmt.Errorf("update bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill updated", "selector", selector, "name", bill.Name)
	return nil
}

func (m *Manager) publish(ctx context.Context, msg *events.BillEventMessage) {
	if m.bus == nil {
		slog.DebugContext(ctx, "Event bus not available, skipping bill event", "kind", msg.Kind)
		return
	}
	if err := m.bus.PublishBillEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish bill event",
			"kind", msg.Kind,
			"bill_id", msg.BillID,
			"error", err)
	}
}
