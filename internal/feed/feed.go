// Package feed keeps the live order list for the board and the kitchen. It
// merges the periodic snapshot poll with pushed change events.
package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
	"riwa-pos/internal/realtime"
)

var ErrNotFound = errors.New("order not in feed")

type Lister interface {
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
}

// NewOrderHandler is called with orders that appeared since the previous
// snapshot in pending status.
type NewOrderHandler func(orders []domain.Order)

// ChangeHandler is called after every change to the list.
type ChangeHandler func()

type Options struct {
	PollInterval time.Duration
	Limit        int
}

type Feed struct {
	backend Lister
	sub     realtime.Subscriber
	log     *logger.Logger
	opts    Options

	mu       sync.Mutex
	orders   []domain.Order
	index    map[string]int
	lastPoll time.Time
	onNew    []NewOrderHandler
	onChange []ChangeHandler
}

func New(b Lister, sub realtime.Subscriber, log *logger.Logger, opts Options) *Feed {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 7 * time.Second
	}
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	return &Feed{backend: b, sub: sub, log: log, opts: opts, index: map[string]int{}}
}

func (f *Feed) OnNewOrders(h NewOrderHandler) {
	f.mu.Lock()
	f.onNew = append(f.onNew, h)
	f.mu.Unlock()
}

func (f *Feed) OnChange(h ChangeHandler) {
	f.mu.Lock()
	f.onChange = append(f.onChange, h)
	f.mu.Unlock()
}

// OnPushEvent applies one change: an insert is prepended when absent, an
// update replaces in place. An update for an unknown id is appended. Either
// way an id the list did not hold that arrives pending is reported as new.
func (f *Feed) OnPushEvent(ev domain.OrderEvent) {
	if ev.Order.ID == "" {
		return
	}
	f.mu.Lock()
	var fresh []domain.Order
	i, known := f.index[ev.Order.ID]
	switch {
	case known:
		f.orders[i] = ev.Order
	case ev.Type == domain.ChangeInsert:
		f.orders = append([]domain.Order{ev.Order}, f.orders...)
		f.reindex()
		if ev.Order.Status == domain.StatusPending {
			fresh = []domain.Order{ev.Order}
		}
	default:
		f.orders = append(f.orders, ev.Order)
		f.index[ev.Order.ID] = len(f.orders) - 1
		if ev.Order.Status == domain.StatusPending {
			fresh = []domain.Order{ev.Order}
		}
	}
	onNew, onChange := f.handlers()
	f.mu.Unlock()

	f.notify(fresh, onNew, onChange)
}

// OnPollTick fetches the snapshot and replaces the list.
func (f *Feed) OnPollTick(ctx context.Context) error {
	orders, err := f.backend.ListOrders(ctx, f.opts.Limit)
	if err != nil {
		f.log.Warn("feed_poll_failed", map[string]any{"error": err.Error()})
		return err
	}
	f.Reconcile(orders)
	return nil
}

// Reconcile replaces the list with next. Ids absent from the previous list
// whose status is pending are reported as new, so pending orders in the first
// snapshot alert too.
func (f *Feed) Reconcile(next []domain.Order) {
	f.mu.Lock()
	var fresh []domain.Order
	for _, o := range next {
		if _, ok := f.index[o.ID]; !ok && o.Status == domain.StatusPending {
			fresh = append(fresh, o)
		}
	}
	f.orders = append([]domain.Order(nil), next...)
	f.reindex()
	f.lastPoll = time.Now()
	onNew, onChange := f.handlers()
	f.mu.Unlock()

	f.notify(fresh, onNew, onChange)
}

// ApplyLocal sets the status of a known order after the backend confirmed it.
func (f *Feed) ApplyLocal(id string, status domain.Status) error {
	f.mu.Lock()
	i, ok := f.index[id]
	if !ok {
		f.mu.Unlock()
		return ErrNotFound
	}
	f.orders[i].Status = status
	f.orders[i].UpdatedAt = time.Now().UTC()
	_, onChange := f.handlers()
	f.mu.Unlock()

	f.notify(nil, nil, onChange)
	return nil
}

func (f *Feed) Get(id string) (domain.Order, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.index[id]
	if !ok {
		return domain.Order{}, false
	}
	return f.orders[i], true
}

// Snapshot copies the list, newest first. With statuses given, only orders in
// one of them are returned.
func (f *Feed) Snapshot(statuses ...domain.Status) []domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Order, 0, len(f.orders))
	for _, o := range f.orders {
		if len(statuses) == 0 || hasStatus(statuses, o.Status) {
			out = append(out, o)
		}
	}
	return out
}

func (f *Feed) LastPoll() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPoll
}

// Run polls immediately and every PollInterval while consuming pushed events.
// It returns when ctx is done.
func (f *Feed) Run(ctx context.Context) error {
	var events <-chan domain.OrderEvent
	if f.sub != nil {
		ch, err := f.sub.Subscribe(ctx)
		if err != nil {
			// polling alone keeps the list correct, only later
			f.log.Warn("feed_push_unavailable", map[string]any{"error": err.Error()})
		} else {
			events = ch
			defer f.sub.Close()
		}
	}

	_ = f.OnPollTick(ctx)
	t := time.NewTicker(f.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = f.OnPollTick(ctx)
		case ev, ok := <-events:
			if !ok {
				f.log.Warn("feed_push_closed", nil)
				events = nil
				continue
			}
			f.OnPushEvent(ev)
		}
	}
}

func (f *Feed) reindex() {
	f.index = make(map[string]int, len(f.orders))
	for i, o := range f.orders {
		f.index[o.ID] = i
	}
}

func (f *Feed) handlers() ([]NewOrderHandler, []ChangeHandler) {
	return append([]NewOrderHandler(nil), f.onNew...), append([]ChangeHandler(nil), f.onChange...)
}

func (f *Feed) notify(fresh []domain.Order, onNew []NewOrderHandler, onChange []ChangeHandler) {
	if len(fresh) > 0 {
		ids := make([]string, 0, len(fresh))
		for _, o := range fresh {
			ids = append(ids, o.OrderNumber)
		}
		f.log.Info("new_orders_detected", map[string]any{"order_numbers": ids})
		for _, h := range onNew {
			h(fresh)
		}
	}
	for _, h := range onChange {
		h()
	}
}

func hasStatus(ss []domain.Status, s domain.Status) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
