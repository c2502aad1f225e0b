package orderflow

import (
	"context"
	"errors"
	"fmt"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
)

var ErrNotFound = errors.New("order not found")

type Updater interface {
	UpdateStatus(ctx context.Context, orderID string, status domain.Status) error
}

// Orders is the live order list the board shows.
type Orders interface {
	Get(id string) (domain.Order, bool)
	ApplyLocal(id string, status domain.Status) error
}

type Silencer interface {
	Stop()
}

// Transitioner validates a status change, sends it to the backend and, once
// confirmed, reflects it locally and silences the alert.
type Transitioner struct {
	backend  Updater
	orders   Orders
	silencer Silencer
	log      *logger.Logger
}

func New(b Updater, orders Orders, silencer Silencer, log *logger.Logger) *Transitioner {
	return &Transitioner{backend: b, orders: orders, silencer: silencer, log: log}
}

func (t *Transitioner) TransitionStatus(ctx context.Context, order domain.Order, status domain.Status) (domain.Order, error) {
	next, err := domain.ApplyTransition(order, status)
	if err != nil {
		return order, err
	}
	if err := t.backend.UpdateStatus(ctx, order.ID, status); err != nil {
		t.log.Warn("status_update_failed", map[string]any{"order_id": order.ID, "status": string(status), "error": err.Error()})
		return order, err
	}

	if t.silencer != nil {
		t.silencer.Stop()
	}
	if t.orders != nil {
		if err := t.orders.ApplyLocal(order.ID, status); err != nil {
			t.log.Debug("status_local_apply_skipped", map[string]any{"order_id": order.ID, "error": err.Error()})
		}
	}
	t.log.Info("status_updated", map[string]any{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"from":         string(order.Status),
		"to":           string(status),
	})
	return next, nil
}

// SetStatus looks the order up in the live list and transitions it.
func (t *Transitioner) SetStatus(ctx context.Context, id string, status domain.Status) (domain.Order, error) {
	o, ok := t.lookup(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t.TransitionStatus(ctx, o, status)
}

// Advance moves the order one step along the chain.
func (t *Transitioner) Advance(ctx context.Context, id string) (domain.Order, error) {
	o, ok := t.lookup(id)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next, ok := domain.NextStatus(o.Status)
	if !ok {
		return o, &domain.TransitionError{From: o.Status, To: ""}
	}
	return t.TransitionStatus(ctx, o, next)
}

func (t *Transitioner) Cancel(ctx context.Context, id string) (domain.Order, error) {
	return t.SetStatus(ctx, id, domain.StatusCancelled)
}

func (t *Transitioner) lookup(id string) (domain.Order, bool) {
	if t.orders == nil {
		return domain.Order{}, false
	}
	return t.orders.Get(id)
}
