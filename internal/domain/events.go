package domain

import "encoding/json"

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
)

// ChangeMessage is a row-change notification as pushed by the realtime
// transport: {eventType, table, new}.
type ChangeMessage struct {
	EventType ChangeType      `json:"eventType"`
	Table     string          `json:"table"`
	New       json.RawMessage `json:"new"`
}

// OrderEvent is a decoded change for the orders table.
type OrderEvent struct {
	Type  ChangeType
	Order Order
}

// BuzzerMessage is broadcast to display devices while an alert is active.
type BuzzerMessage struct {
	Source    string `json:"source"`
	Alerting  bool   `json:"alerting"`
	Timestamp string `json:"timestamp"`
}
