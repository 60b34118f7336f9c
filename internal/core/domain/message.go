package domain

import "time"

// MessageStatus tracks a message row through its lifecycle.
type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusRunning MessageStatus = "running"
	StatusHeld    MessageStatus = "held" // intercepted by the carrier agent
	StatusDone    MessageStatus = "done"
	StatusFailed  MessageStatus = "failed"
)

// StatusForResult maps a terminal result code to the persisted status.
func StatusForResult(code ResultCode) MessageStatus {
	if code == ResultOK {
		return StatusDone
	}
	return StatusFailed
}

// Message is the persisted record of one MMS operation.
type Message struct {
	ID             int64
	TransactionID  string
	Kind           Kind
	SubscriptionID string
	Creator        string
	Status         MessageStatus
	ResultCode     ResultCode
	Response       []byte
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
