package amqp

import (
	"encoding/json"
	"time"
)

// SnapshotRequestMessage asks the snapshot worker to build and export the
// month's dashboard for one account. It carries only the coordinates, the
// worker re-reads everything from the database so it always exports fresh
// numbers.
type SnapshotRequestMessage struct {
	AccountID int64     `json:"account_id"`
	Month     string    `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSnapshotRequestMessage(accountID int64, month string) *SnapshotRequestMessage {
	return &SnapshotRequestMessage{
		AccountID: accountID,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotRequestMessageFromJSON(data []byte) (*SnapshotRequestMessage, error) {
	var msg SnapshotRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ShareNotificationMessage tells interested consumers that a share was
// created or changed status, so they can notify the counterparty.
type ShareNotificationMessage struct {
	ShareID     int64     `json:"share_id,omitempty"`
	OwnerEmail  string    `json:"owner_email"`
	Participant string    `json:"participant_email"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

func (m *ShareNotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ShareNotificationMessageFromJSON(data []byte) (*ShareNotificationMessage, error) {
	var msg ShareNotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
