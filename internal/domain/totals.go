package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidOrder = errors.New("invalid order")

// Pricing holds the terminal's charge rules.
type Pricing struct {
	TaxRate     decimal.Decimal
	ServiceRate decimal.Decimal // applied to every type except QSR
	DeliveryFee Money
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:     decimal.RequireFromString("0.05"),
		ServiceRate: decimal.RequireFromString("0.10"),
		DeliveryFee: MustMoney("1.500"),
	}
}

type Totals struct {
	Subtotal      Money `json:"subtotal"`
	Tax           Money `json:"tax"`
	ServiceCharge Money `json:"service_charge"`
	DeliveryFee   Money `json:"delivery_fee"`
	Total         Money `json:"total"`
}

func (p Pricing) Compute(items []OrderItem, t OrderType) Totals {
	var tt Totals
	for _, it := range items {
		tt.Subtotal = tt.Subtotal.Add(it.TotalPrice())
	}
	tt.Tax = tt.Subtotal.MulRate(p.TaxRate)
	if t != OrderTypeQSR {
		tt.ServiceCharge = tt.Subtotal.MulRate(p.ServiceRate)
	}
	if t == OrderTypeDelivery {
		tt.DeliveryFee = p.DeliveryFee
	}
	tt.Total = SumMoney(tt.Subtotal, tt.Tax, tt.ServiceCharge, tt.DeliveryFee)
	return tt
}

func (o *Order) ApplyTotals(tt Totals) {
	o.Subtotal = tt.Subtotal
	o.Tax = tt.Tax
	o.ServiceCharge = tt.ServiceCharge
	o.DeliveryFee = tt.DeliveryFee
	o.Total = tt.Total
}

// CheckTotal reports whether total equals subtotal + tax + service + delivery.
func (o Order) CheckTotal() bool {
	return o.Total.Equal(SumMoney(o.Subtotal, o.Tax, o.ServiceCharge, o.DeliveryFee))
}

// Prepare validates a cashier order, recomputes its monetary fields from the
// items and fills change due for cash payments.
func (p Pricing) Prepare(o Order) (Order, error) {
	t, ok := ParseOrderType(string(o.OrderType))
	if !ok {
		return o, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, o.OrderType)
	}
	o.OrderType = t
	if len(o.Items) == 0 {
		return o, fmt.Errorf("%w: cart is empty", ErrInvalidOrder)
	}
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return o, fmt.Errorf("%w: invalid quantity for item %s", ErrInvalidOrder, it.Name)
		}
		if it.UnitPrice.IsNegative() {
			return o, fmt.Errorf("%w: invalid price for item %s", ErrInvalidOrder, it.Name)
		}
	}
	if t == OrderTypeDelivery {
		var missing []string
		if strings.TrimSpace(o.CustomerName) == "" {
			missing = append(missing, "customer_name")
		}
		if strings.TrimSpace(o.CustomerPhone) == "" {
			missing = append(missing, "customer_phone")
		}
		if strings.TrimSpace(o.CustomerAddress) == "" {
			missing = append(missing, "customer_address")
		}
		if len(missing) > 0 {
			return o, fmt.Errorf("%w: delivery requires %s", ErrInvalidOrder, strings.Join(missing, ", "))
		}
	} else {
		o.CustomerAddress = ""
	}

	o.ApplyTotals(p.Compute(o.Items, t))

	switch o.PaymentMethod {
	case PaymentCash:
		if o.CashReceived == nil || o.CashReceived.Cmp(o.Total) < 0 {
			return o, fmt.Errorf("%w: insufficient cash amount", ErrInvalidOrder)
		}
		change := o.CashReceived.Sub(o.Total)
		o.ChangeDue = nil
		if change.IsPositive() {
			o.ChangeDue = &change
		}
	case PaymentCard:
		o.CashReceived, o.ChangeDue = nil, nil
	default:
		return o, fmt.Errorf("%w: unknown payment method %q", ErrInvalidOrder, o.PaymentMethod)
	}
	return o, nil
}
