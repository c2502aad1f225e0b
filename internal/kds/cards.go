package kds

import (
	"fmt"
	"time"

	"riwa-pos/internal/domain"
)

type CardItem struct {
	ID             string            `json:"id"`
	Name           string            `json:"item_name"`
	NameAr         string            `json:"item_name_ar,omitempty"`
	Quantity       int               `json:"quantity"`
	Modifiers      []domain.Modifier `json:"modifiers"`
	ModifiersError string            `json:"modifiers_error,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	Status         domain.KDSStatus  `json:"status"`
}

// Card is one order on the kitchen screen.
type Card struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	OrderType   domain.OrderType `json:"order_type,omitempty"`
	Items       []CardItem       `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	Urgent      bool             `json:"urgent"`
	Age         string           `json:"age"`
}

// Cards groups the held items by order in first-seen order.
func (c *Controller) Cards(now time.Time) []Card {
	return BuildCards(c.Items(), now, c.opts.UrgentAfter)
}

func BuildCards(items []domain.KDSItem, now time.Time, urgentAfter time.Duration) []Card {
	var cards []Card
	pos := map[string]int{}
	for _, it := range items {
		i, ok := pos[it.OrderID]
		if !ok {
			cards = append(cards, Card{
				OrderID:     it.OrderID,
				OrderNumber: it.OrderNumber,
				OrderType:   it.OrderType,
				CreatedAt:   it.CreatedAt,
			})
			i = len(cards) - 1
			pos[it.OrderID] = i
		}
		card := &cards[i]
		if card.OrderNumber == "" {
			card.OrderNumber = it.OrderNumber
		}
		if !it.CreatedAt.IsZero() && (card.CreatedAt.IsZero() || it.CreatedAt.Before(card.CreatedAt)) {
			card.CreatedAt = it.CreatedAt
		}
		card.Items = append(card.Items, cardItem(it))
	}

	out := make([]Card, 0, len(cards))
	for _, card := range cards {
		if len(card.Items) == 0 {
			continue
		}
		elapsed := now.Sub(card.CreatedAt).Truncate(time.Second)
		card.Urgent = elapsed > urgentAfter
		card.Age = AgeLabel(elapsed)
		out = append(out, card)
	}
	return out
}

func cardItem(it domain.KDSItem) CardItem {
	ci := CardItem{
		ID:        it.ID,
		Name:      it.ItemName,
		NameAr:    it.ItemNameAr,
		Quantity:  it.Quantity,
		Notes:     it.Notes,
		Status:    it.Status,
		Modifiers: []domain.Modifier{},
	}
	mods, err := it.ParsedModifiers()
	if err != nil {
		ci.ModifiersError = err.Error()
	} else if mods != nil {
		ci.Modifiers = mods
	}
	return ci
}

// AgeLabel renders elapsed time as 45s, 12m or 2h.
func AgeLabel(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	switch {
	case sec < 60:
		return fmt.Sprintf("%ds", sec)
	case sec < 3600:
		return fmt.Sprintf("%dm", sec/60)
	default:
		return fmt.Sprintf("%dh", sec/3600)
	}
}
