package backend

import (
	"strings"

	"riwa-pos/internal/domain"
)

// OrderRow is an orders row as the backend or the change stream sends it. Raw
// rows carry tax_amount, total_amount and delivery_address; the REST layer
// already maps the first two onto tax and total.
type OrderRow struct {
	domain.Order
	TaxAmount       *domain.Money `json:"tax_amount,omitempty"`
	TotalAmount     *domain.Money `json:"total_amount,omitempty"`
	DeliveryAddress string        `json:"delivery_address,omitempty"`
}

func (r OrderRow) Normalize() domain.Order {
	o := r.Order
	if o.Tax.IsZero() && r.TaxAmount != nil {
		o.Tax = *r.TaxAmount
	}
	if o.Total.IsZero() && r.TotalAmount != nil {
		o.Total = *r.TotalAmount
	}
	if o.CustomerAddress == "" {
		o.CustomerAddress = r.DeliveryAddress
	}
	if t, ok := domain.ParseOrderType(string(o.OrderType)); ok {
		o.OrderType = t
	}
	if s, ok := domain.ParseStatus(string(o.Status)); ok {
		o.Status = s
	}
	return o
}

// KDSRow is an order_items row enriched with its parent order.
type KDSRow struct {
	domain.KDSItem
	Status     string `json:"status"`
	ItemNameEn string `json:"item_name_en,omitempty"`
	Parent     *struct {
		OrderNumber string `json:"order_number"`
		OrderType   string `json:"order_type"`
	} `json:"order,omitempty"`
}

func (r KDSRow) Normalize() domain.KDSItem {
	it := r.KDSItem
	it.Status = domain.NormalizeKDSStatus(strings.ToLower(r.Status))
	if it.ItemName == "" {
		it.ItemName = r.ItemNameEn
	}
	if r.Parent != nil {
		if it.OrderNumber == "" {
			it.OrderNumber = r.Parent.OrderNumber
		}
		if it.OrderType == "" {
			if t, ok := domain.ParseOrderType(r.Parent.OrderType); ok {
				it.OrderType = t
			}
		}
	}
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	return it
}
