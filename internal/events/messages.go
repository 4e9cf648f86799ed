package events

import (
	"encoding/json"
	"time"
)

// Kinds of bill lifecycle events carried on the bus.
const (
	KindBillSubmitted    = "bill.submitted"
	KindBillUpdateFailed = "bill.update_failed"
)

// BillEventMessage is published after a submission attempt. update_failed
// events carry the failure reason so the worker can surface it to the user;
// submitted events feed the notification trail and the ledger export.
type BillEventMessage struct {
	Kind      string    `json:"kind"`
	BillID    string    `json:"billId"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Type      string    `json:"type,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Date      string    `json:"date,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBillSubmitted(billID, email, name, billType string, amount int, date string) *BillEventMessage {
	return &BillEventMessage{
		Kind:      KindBillSubmitted,
		BillID:    billID,
		Email:     email,
		Name:      name,
		Type:      billType,
		Amount:    amount,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func NewBillUpdateFailed(billID, email, name string, reason string) *BillEventMessage {
	return &BillEventMessage{
		Kind:      KindBillUpdateFailed,
		BillID:    billID,
		Email:     email,
		Name:      name,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *BillEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillEventMessageFromJSON(data []byte) (*BillEventMessage, error) {
	var msg BillEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
