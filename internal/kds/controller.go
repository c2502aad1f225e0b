// Package kds holds a station's pending kitchen items and bumps them.
package kds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
)

var ErrNotFound = errors.New("kds item not found")

type Backend interface {
	KDSItems(ctx context.Context, station string) ([]domain.KDSItem, error)
	Bump(ctx context.Context, kdsItemID string) error
}

// Silencer is told when a bump succeeds so an active alert stops.
type Silencer interface {
	Stop()
}

type Options struct {
	Station      string
	UrgentAfter  time.Duration
	PollInterval time.Duration
}

type Controller struct {
	backend  Backend
	silencer Silencer
	log      *logger.Logger
	opts     Options

	mu         sync.Mutex
	items      []domain.KDSItem
	lastReload time.Time
	gen        uint64            // bumped at every reload start
	applied    uint64            // gen of the snapshot in items
	bumped     map[string]uint64 // item id -> gen when its bump succeeded

	reload chan struct{}
}

func New(b Backend, silencer Silencer, log *logger.Logger, opts Options) *Controller {
	if opts.Station == "" {
		opts.Station = "all"
	}
	if opts.UrgentAfter <= 0 {
		opts.UrgentAfter = 10 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 7 * time.Second
	}
	return &Controller{backend: b, silencer: silencer, log: log, opts: opts, reload: make(chan struct{}, 1), bumped: map[string]uint64{}}
}

func (c *Controller) Station() string { return c.opts.Station }

// Reload replaces the held items with the station's pending items. Items
// bumped while the fetch was in flight stay removed, and a snapshot older
// than the one already applied is dropped.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	items, err := c.backend.KDSItems(ctx, c.opts.Station)
	if err != nil {
		c.log.Warn("kds_reload_failed", map[string]any{"station": c.opts.Station, "error": err.Error()})
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.applied {
		return nil
	}
	pending := make([]domain.KDSItem, 0, len(items))
	for _, it := range items {
		if it.Status == domain.KDSDone {
			continue
		}
		if g, ok := c.bumped[it.ID]; ok && g >= gen {
			continue
		}
		pending = append(pending, it)
	}
	// a fetch started after the bump already reflects it
	for id, g := range c.bumped {
		if g < gen {
			delete(c.bumped, id)
		}
	}
	c.items = pending
	c.applied = gen
	c.lastReload = time.Now()
	return nil
}

// Notify asks Run to reload soon. Repeated calls coalesce.
func (c *Controller) Notify() {
	select {
	case c.reload <- struct{}{}:
	default:
	}
}

// Run reloads at start, on Notify and every PollInterval until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	_ = c.Reload(ctx)
	t := time.NewTicker(c.opts.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = c.Reload(ctx)
		case <-c.reload:
			_ = c.Reload(ctx)
		}
	}
}

// Bump marks one item done. On success the item leaves the local list and
// any active alert stops; on failure it stays visible.
func (c *Controller) Bump(ctx context.Context, itemID string) error {
	if _, ok := c.Item(itemID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	if err := c.backend.Bump(ctx, itemID); err != nil {
		c.log.Warn("kds_bump_failed", map[string]any{"kds_item_id": itemID, "error": err.Error()})
		return err
	}
	c.remove(itemID)
	c.log.Info("kds_item_bumped", map[string]any{"kds_item_id": itemID})
	if c.silencer != nil {
		c.silencer.Stop()
	}
	return nil
}

type BumpFailure struct {
	ItemID string `json:"kds_item_id"`
	Error  string `json:"error"`
	Err    error  `json:"-"`
}

type BumpAllResult struct {
	OrderID   string        `json:"order_id"`
	Succeeded []string      `json:"succeeded"`
	Failed    []BumpFailure `json:"failed"`
}

// BumpAll bumps every pending item of an order, one at a time. Each item
// succeeds or fails on its own.
func (c *Controller) BumpAll(ctx context.Context, orderID string) BumpAllResult {
	res := BumpAllResult{OrderID: orderID, Succeeded: []string{}, Failed: []BumpFailure{}}
	for _, it := range c.itemsOf(orderID) {
		if err := c.Bump(ctx, it.ID); err != nil {
			res.Failed = append(res.Failed, BumpFailure{ItemID: it.ID, Error: err.Error(), Err: err})
			continue
		}
		res.Succeeded = append(res.Succeeded, it.ID)
	}
	return res
}

func (c *Controller) Item(id string) (domain.KDSItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return domain.KDSItem{}, false
}

func (c *Controller) Items() []domain.KDSItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.KDSItem(nil), c.items...)
}

func (c *Controller) itemsOf(orderID string) []domain.KDSItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.KDSItem
	for _, it := range c.items {
		if it.OrderID == orderID && it.Status == domain.KDSPending {
			out = append(out, it)
		}
	}
	return out
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bumped[id] = c.gen
	for i, it := range c.items {
		if it.ID == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return
		}
	}
}
