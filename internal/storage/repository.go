// Package storage persists bills and notifications in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"billed/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateReceiptBill inserts the pending bill shell a receipt upload produces.
// The record only carries the submitter and the stored file; the remaining
// fields arrive with the later update call.
func (r *SQLiteRepository) CreateReceiptBill(ctx context.Context, id, email, fileName, fileURL, fileKey string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (id, email, file_name, file_url, file_key, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, email, fileName, fileURL, fileKey, string(core.StatusPending))
	if err != nil {
		return fmt.Errorf("insert bill shell: %w", err)
	}

	slog.InfoContext(ctx, "Bill shell created",
		"id", id,
		"email", email,
		"file_name", fileName)
	return nil
}

// UpdateBill implements store.BillUpdater: data is the JSON-serialized bill,
// selector the bill identifier from the preceding receipt creation.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, data []byte, selector string) error {
	if selector == "" {
		return fmt.Errorf("update bill: empty selector")
	}

	var b core.Bill
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode bill payload: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE bills
		 SET email = ?, type = ?, name = ?, amount = ?, date = ?, vat = ?, pct = ?,
		     commentary = ?, file_url = ?, file_name = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		b.Email, b.Type, b.Name, b.Amount, b.Date, b.VAT, b.Pct,
		b.Commentary, b.FileURL, b.FileName, string(b.Status), selector)
	if err != nil {
		return fmt.Errorf("update bill %s: %w", selector, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bill %s: rows affected: %w", selector, err)
	}
	if affected == 0 {
		return fmt.Errorf("update bill %s: no such bill", selector)
	}

	slog.InfoContext(ctx, "Bill updated", "id", selector, "name", b.Name)
	return nil
}

// ListBills implements store.BillLister. Ordering is date descending with
// SQLite's text comparison, so corrupted dates sort by raw lexical position
// instead of being excluded.
func (r *SQLiteRepository) ListBills(ctx context.Context, email string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status
		 FROM bills WHERE email = ? ORDER BY date DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		var b core.Bill
		var status string
		if err := rows.Scan(&b.ID, &b.Email, &b.Type, &b.Name, &b.Amount, &b.Date, &b.VAT,
			&b.Pct, &b.Commentary, &b.FileURL, &b.FileName, &status); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.Status = core.Status(status)
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}

	return bills, nil
}

// GetBill returns one bill by identifier.
func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	var b core.Bill
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status
		 FROM bills WHERE id = ?`, id).
		Scan(&b.ID, &b.Email, &b.Type, &b.Name, &b.Amount, &b.Date, &b.VAT,
			&b.Pct, &b.Commentary, &b.FileURL, &b.FileName, &status)
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	b.Status = core.Status(status)
	return b, nil
}

// GetBillFileKey returns the object-storage key of a bill's receipt.
func (r *SQLiteRepository) GetBillFileKey(ctx context.Context, id string) (string, error) {
	var key string
	err := r.db.QueryRowContext(ctx, `SELECT file_key FROM bills WHERE id = ?`, id).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("get bill file key %s: %w", id, err)
	}
	return key, nil
}

// UpdateBillStatus moves a bill between lifecycle codes (review side).
func (r *SQLiteRepository) UpdateBillStatus(ctx context.Context, id string, status core.Status) error {
	if !status.Valid() {
		return fmt.Errorf("update bill status %s: invalid status %q", id, status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("update bill status %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bill status %s: rows affected: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("update bill status %s: no such bill", id)
	}

	slog.InfoContext(ctx, "Bill status updated", "id", id, "status", status)
	return nil
}

// AddNotification implements store.NotificationStore.
func (r *SQLiteRepository) AddNotification(ctx context.Context, n core.Notification) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (email, bill_id, kind, message) VALUES (?, ?, ?, ?)`,
		n.Email, n.BillID, n.Kind, n.Message)
	if err != nil {
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert notification: last id: %w", err)
	}

	slog.InfoContext(ctx, "Notification recorded",
		"id", id,
		"email", n.Email,
		"kind", n.Kind)
	return id, nil
}

// ListNotifications returns a user's notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, email string) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, bill_id, kind, message, created_at
		 FROM notifications WHERE email = ? ORDER BY created_at DESC, id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		var n core.Notification
		if err := rows.Scan(&n.ID, &n.Email, &n.BillID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return out, nil
}

// DeleteNotificationsBefore prunes notifications older than cutoff and
// returns the number removed.
func (r *SQLiteRepository) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old notifications: rows affected: %w", err)
	}
	return n, nil
}
