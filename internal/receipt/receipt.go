// Package receipt renders customer receipts and kitchen tickets as plain text
// for 80mm thermal printers.
package receipt

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"riwa-pos/internal/common/config"
	"riwa-pos/internal/domain"
)

// Width is the character width of an 80mm roll in font A.
const Width = 42

type Options struct {
	NameEn   string
	NameAr   string
	Subtitle string
	Footer   string
	Cashier  string
	Now      time.Time
}

func OptionsFrom(cfg config.Receipt) Options {
	return Options{NameEn: cfg.NameEn, NameAr: cfg.NameAr, Subtitle: cfg.Subtitle, Footer: cfg.Footer}
}

// BillNumber strips the ORD- prefix and dashes: ORD-20240101-0001 -> 202401010001.
func BillNumber(orderNumber string) string {
	return strings.ReplaceAll(strings.TrimPrefix(orderNumber, "ORD-"), "-", "")
}

func PayMode(m domain.PaymentMethod) string {
	if m == domain.PaymentCash {
		return "Cash"
	}
	return "Card"
}

func Render(o domain.Order, opts Options) string {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cashier := opts.Cashier
	if cashier == "" {
		cashier = "Cashier"
	}
	bill := BillNumber(o.OrderNumber)
	label := o.OrderType.Label()

	var b strings.Builder
	center(&b, opts.NameEn)
	center(&b, opts.Subtitle)
	center(&b, opts.NameAr)
	center(&b, now.Format("02 January 2006")+" at "+strings.ToLower(now.Format("03:04 PM")))
	rule(&b, '=')
	center(&b, label)
	center(&b, "Bill No:"+bill)
	rule(&b, '-')
	pair(&b, label, "User: "+cashier)
	pair(&b, "Pay Mode: "+PayMode(o.PaymentMethod), "")
	rule(&b, '-')

	row(&b, "Item", "Qty", "Rate", "Total")
	rule(&b, '-')
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = "Item"
		}
		row(&b, name, fmt.Sprint(it.Quantity), it.UnitPrice.String(), it.TotalPrice().String())
		for _, m := range it.Modifiers {
			line(&b, "  + "+m.Name)
		}
		if it.NameAr != "" {
			line(&b, "  "+it.NameAr)
		}
		if it.Notes != "" {
			line(&b, "  Note: "+it.Notes)
		}
	}
	rule(&b, '-')

	pair(&b, "Subtotal", o.Subtotal.String())
	pair(&b, "Tax", o.Tax.String())
	if !o.ServiceCharge.IsZero() {
		pair(&b, "Service", o.ServiceCharge.String())
	}
	if !o.DeliveryFee.IsZero() {
		pair(&b, "Delivery", o.DeliveryFee.String())
	}
	pair(&b, fmt.Sprintf("Total Qty: %d", o.TotalQuantity()), "")
	rule(&b, '=')
	center(&b, "Grand Total")
	center(&b, "KWD "+o.Total.String())
	rule(&b, '=')
	if o.CashReceived != nil {
		pair(&b, "Cash", o.CashReceived.String())
	}
	if o.ChangeDue != nil {
		pair(&b, "Change", o.ChangeDue.String())
	}
	if o.OrderType == domain.OrderTypeDelivery {
		if o.CustomerName != "" {
			line(&b, "Customer: "+o.CustomerName)
		}
		if o.CustomerPhone != "" {
			line(&b, "Phone: "+o.CustomerPhone)
		}
		if o.CustomerAddress != "" {
			line(&b, "Address: "+o.CustomerAddress)
		}
	}
	rule(&b, '-')
	center(&b, "Thank you for choosing")
	center(&b, opts.NameEn+"!")
	center(&b, opts.Footer)
	return b.String()
}

// KitchenTicket renders one KDS item for the kitchen printer.
func KitchenTicket(it domain.KDSItem, now time.Time) string {
	var b strings.Builder
	center(&b, "KDS TICKET")
	num := it.OrderNumber
	if num == "" {
		num = "N/A"
	}
	center(&b, "Order: "+num)
	at := it.CreatedAt
	if at.IsZero() {
		at = now
	}
	center(&b, at.Format("02/01/2006 15:04"))
	rule(&b, '-')
	line(&b, fmt.Sprintf("x%d", it.Quantity))
	line(&b, it.ItemName)
	if it.ItemNameAr != "" {
		line(&b, it.ItemNameAr)
	}
	if mods, err := it.ParsedModifiers(); err == nil && len(mods) > 0 {
		names := make([]string, 0, len(mods))
		for _, m := range mods {
			names = append(names, m.Name)
		}
		line(&b, strings.Join(names, ", "))
	}
	if it.Notes != "" {
		line(&b, "Note: "+it.Notes)
	}
	rule(&b, '-')
	return b.String()
}

func width(s string) int { return utf8.RuneCountInString(s) }

func line(b *strings.Builder, s string) {
	b.WriteString(clip(s, Width))
	b.WriteByte('\n')
}

func center(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	s = clip(s, Width)
	pad := (Width - width(s)) / 2
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(s)
	b.WriteByte('\n')
}

func rule(b *strings.Builder, c byte) {
	b.WriteString(strings.Repeat(string(c), Width))
	b.WriteByte('\n')
}

// pair left-aligns l and right-aligns r on one line.
func pair(b *strings.Builder, l, r string) {
	l = clip(l, Width-width(r)-1)
	gap := Width - width(l) - width(r)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(l)
	b.WriteString(strings.Repeat(" ", gap))
	b.WriteString(r)
	b.WriteString("\n")
}

// row lays out the item table: name 18, qty 4, rate 9, total 11.
func row(b *strings.Builder, name, qty, rate, total string) {
	fmt.Fprintf(b, "%-18s%4s%9s%11s\n", clip(name, 18), qty, rate, total)
}

func clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if width(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
