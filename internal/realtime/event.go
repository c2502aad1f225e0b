package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"riwa-pos/internal/backend"
	"riwa-pos/internal/domain"
)

const OrdersTable = "orders"

var ErrIgnored = errors.New("change is not an order insert or update")

// Subscriber delivers order change events until ctx is done or Close is
// called. Delivery is best effort; events missed while disconnected are gone.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan domain.OrderEvent, error)
	Close() error
}

// Decode turns a change message body into an order event. Messages for other
// tables or other event types return ErrIgnored.
func Decode(body []byte) (domain.OrderEvent, error) {
	var msg domain.ChangeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("decode change: %w", err)
	}
	if msg.Table != "" && msg.Table != OrdersTable {
		return domain.OrderEvent{}, ErrIgnored
	}
	typ := domain.ChangeType(strings.ToUpper(string(msg.EventType)))
	if typ != domain.ChangeInsert && typ != domain.ChangeUpdate {
		return domain.OrderEvent{}, ErrIgnored
	}
	var row backend.OrderRow
	if err := json.Unmarshal(msg.New, &row); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("decode order row: %w", err)
	}
	o := row.Normalize()
	if o.ID == "" {
		return domain.OrderEvent{}, errors.New("decode order row: missing id")
	}
	return domain.OrderEvent{Type: typ, Order: o}, nil
}

// Encode builds the change message body for an order.
func Encode(typ domain.ChangeType, o domain.Order) ([]byte, error) {
	row, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.ChangeMessage{EventType: typ, Table: OrdersTable, New: row})
}
