// Package ledger appends submitted bills to a Google Sheets accounting
// ledger. The export is one-way and best effort; the SQLite store stays the
// source of truth.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"billed/internal/core"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS; falls back to ADC.
// Optional: GOOGLE_SHEET_NAME (default "Bills").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Bills"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var opts []goption.ClientOption
	switch {
	case serviceAccountJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(serviceAccountJSON)))
	case serviceAccountFile != "":
		opts = append(opts, goption.WithCredentialsFile(serviceAccountFile))
	default:
		slog.InfoContext(ctx, "No explicit Sheets credentials, using application default credentials")
	}
	opts = append(opts, goption.WithScopes(gsheet.SpreadsheetsScope))

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// AppendBill appends one bill as a ledger row.
func (c *Client) AppendBill(ctx context.Context, b core.Bill) error {
	vr := &gsheet.ValueRange{
		Values: [][]interface{}{{
			b.Date, b.Name, b.Type, b.Amount, b.VAT, b.Pct, b.Email, string(b.Status),
		}},
	}

	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, c.sheetName+"!A:H", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append bill row: %w", err)
	}

	slog.InfoContext(ctx, "Bill appended to ledger",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		"bill", b.Name)
	return nil
}
