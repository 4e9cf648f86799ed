package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

type (
	// Status is the internal lifecycle code of a bill. Display text is always
	// derived through Label; the stored code itself never changes shape.
	Status string

	// Bill is the central entity: one expense claim with its receipt reference.
	// Date is kept as the raw string the user typed; it may be unparsable and
	// that is tolerated everywhere downstream.
	Bill struct {
		ID         string `json:"id,omitempty"`
		Email      string `json:"email"`
		Type       string `json:"type"`
		Name       string `json:"name"`
		Amount     int    `json:"amount"`
		Date       string `json:"date"`
		VAT        string `json:"vat"`
		Pct        int    `json:"pct"`
		Commentary string `json:"commentary"`
		FileURL    string `json:"fileUrl,omitempty"`
		FileName   string `json:"fileName,omitempty"`
		Status     Status `json:"status"`
	}

	// BillView is the display copy produced for listing: same record with Date
	// and Status replaced by display-ready strings. The stored Bill is never
	// mutated to build one.
	BillView struct {
		ID         string `json:"id"`
		Email      string `json:"email,omitempty"`
		Type       string `json:"type,omitempty"`
		Name       string `json:"name,omitempty"`
		Amount     int    `json:"amount,omitempty"`
		Date       string `json:"date"`
		VAT        string `json:"vat,omitempty"`
		Pct        int    `json:"pct,omitempty"`
		Commentary string `json:"commentary,omitempty"`
		FileURL    string `json:"fileUrl,omitempty"`
		FileName   string `json:"fileName,omitempty"`
		Status     string `json:"status"`
	}

	// Attachment is the outcome of one successful receipt upload. It is an
	// immutable value threaded from the upload call into the submit call, so a
	// submission can only ever reference an upload that actually completed.
	Attachment struct {
		BillID   string `json:"key"`
		FileURL  string `json:"fileUrl"`
		FileName string `json:"fileName"`
	}

	// Notification is a user-visible record of an asynchronous outcome, such
	// as a bill update that failed after the user had already navigated away.
	Notification struct {
		ID        int64     `json:"id"`
		Email     string    `json:"email"`
		BillID    string    `json:"billId,omitempty"`
		Kind      string    `json:"kind"`
		Message   string    `json:"message"`
		CreatedAt time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrMissingEmail  = errors.New("missing submitter email")
	ErrEmptyType     = errors.New("empty bill type")
)

// Label translates the internal status code into its French display label.
// Unrecognized codes pass through unchanged so one corrupted record never
// breaks a whole listing.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refusé"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the three internal codes.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

func (a Attachment) IsZero() bool {
	return a == Attachment{}
}

// Validate checks the fields a submission must carry. The date is deliberately
// not checked: a corrupted date string is tolerated, never fatal.
func (b Bill) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return ErrMissingEmail
	}
	if strings.TrimSpace(b.Type) == "" {
		return ErrEmptyType
	}
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if b.Pct <= 0 {
		return errors.New("percentage must be positive")
	}
	if !b.Status.Valid() {
		return errors.New("invalid status code")
	}
	return nil
}

// View builds the display copy of b: formatted date when the raw value parses,
// the raw string otherwise, and the status label in place of the code.
func (b Bill) View() BillView {
	date := b.Date
	if formatted, err := FormatDisplayDate(b.Date); err == nil {
		date = formatted
	}
	return BillView{
		ID:         b.ID,
		Email:      b.Email,
		Type:       b.Type,
		Name:       b.Name,
		Amount:     b.Amount,
		Date:       date,
		VAT:        b.VAT,
		Pct:        b.Pct,
		Commentary: b.Commentary,
		FileURL:    b.FileURL,
		FileName:   b.FileName,
		Status:     b.Status.Label(),
	}
}
