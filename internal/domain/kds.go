package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type KDSStatus string

const (
	KDSPending KDSStatus = "pending"
	KDSDone    KDSStatus = "done"
)

// KDSItem is the per-station projection of an order item.
type KDSItem struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	OrderType   OrderType       `json:"order_type,omitempty"`
	ItemName    string          `json:"item_name"`
	ItemNameAr  string          `json:"item_name_ar,omitempty"`
	Quantity    int             `json:"quantity"`
	Modifiers   json.RawMessage `json:"modifiers,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Station     string          `json:"station,omitempty"`
	Status      KDSStatus       `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ParsedModifiers decodes the modifier payload. The backend sends either a JSON
// array or a JSON string holding an array; anything else is an error scoped to
// this item.
func (k KDSItem) ParsedModifiers() ([]Modifier, error) {
	raw := k.Modifiers
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("item %s modifiers: %w", k.ID, err)
		}
		if s == "" {
			return nil, nil
		}
		raw = json.RawMessage(s)
	}
	var mods []Modifier
	if err := json.Unmarshal(raw, &mods); err != nil {
		return nil, fmt.Errorf("item %s modifiers: %w", k.ID, err)
	}
	return mods, nil
}

// NormalizeKDSStatus maps backend order_item statuses onto pending/done.
func NormalizeKDSStatus(s string) KDSStatus {
	switch s {
	case "done", "completed":
		return KDSDone
	default:
		return KDSPending
	}
}
