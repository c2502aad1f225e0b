package domain

import (
	"strings"
	"time"
)

type OrderType string

const (
	OrderTypeQSR      OrderType = "qsr"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

// ParseOrderType accepts the terminal's historical casing (QSR, Takeaway, Delivery).
func ParseOrderType(s string) (OrderType, bool) {
	switch t := OrderType(strings.ToLower(strings.TrimSpace(s))); t {
	case OrderTypeQSR, OrderTypeTakeaway, OrderTypeDelivery:
		return t, true
	}
	return "", false
}

func (t OrderType) Label() string {
	switch t {
	case OrderTypeQSR:
		return "Quick Bill"
	case OrderTypeTakeaway:
		return "Takeaway"
	default:
		return "Delivery"
	}
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

type Modifier struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   Money  `json:"price"`
	GroupID string `json:"group_id,omitempty"`
}

type OrderItem struct {
	ItemID      string     `json:"item_id"`
	Name        string     `json:"name"`
	NameAr      string     `json:"name_ar,omitempty"`
	VariantID   string     `json:"variant_id,omitempty"`
	VariantName string     `json:"variant_name,omitempty"`
	Quantity    int        `json:"quantity"`
	UnitPrice   Money      `json:"unit_price"`
	Modifiers   []Modifier `json:"modifiers,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// TotalPrice is (unit price + modifier prices) x quantity.
func (it OrderItem) TotalPrice() Money {
	each := it.UnitPrice
	for _, m := range it.Modifiers {
		each = each.Add(m.Price)
	}
	return each.MulInt(it.Quantity)
}

type Order struct {
	ID              string        `json:"id,omitempty"`
	OrderNumber     string        `json:"order_number,omitempty"`
	OrderType       OrderType     `json:"order_type"`
	Status          Status        `json:"status,omitempty"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Subtotal        Money         `json:"subtotal"`
	Tax             Money         `json:"tax"`
	ServiceCharge   Money         `json:"service_charge"`
	DeliveryFee     Money         `json:"delivery_fee"`
	Total           Money         `json:"total"`
	CashReceived    *Money        `json:"cash_received,omitempty"`
	ChangeDue       *Money        `json:"change_due,omitempty"`
	CustomerName    string        `json:"customer_name,omitempty"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	CustomerAddress string        `json:"customer_address,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Items           []OrderItem   `json:"items,omitempty"`
	CreatedAt       time.Time     `json:"created_at,omitempty"`
	UpdatedAt       time.Time     `json:"updated_at,omitempty"`
}

// TotalQuantity sums item quantities.
func (o Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Confirmation is what the cashier sees once the backend has accepted an order.
type Confirmation struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      Status `json:"status"`
	Total       Money  `json:"total"`
}
