package offlinequeue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"riwa-pos/internal/backend"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
)

var (
	// ErrQueued means the backend was unreachable and the submission was stored
	// for replay. It wraps the network cause.
	ErrQueued = errors.New("order queued for retry")

	ErrNotFound = errors.New("queued submission not found")
)

// Store keeps submissions the backend has not acknowledged. Put is an upsert
// keyed by idempotency key; List returns oldest first.
type Store interface {
	Put(ctx context.Context, s domain.QueuedSubmission) error
	Get(ctx context.Context, key string) (domain.QueuedSubmission, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]domain.QueuedSubmission, error)
}

type Submitter interface {
	CreateOrder(ctx context.Context, key string, o domain.Order) (domain.Confirmation, error)
}

type DrainReport struct {
	Attempted int                   `json:"attempted"`
	Confirmed []domain.Confirmation `json:"confirmed"`
	Failed    map[string]string     `json:"failed,omitempty"`
	Error     string                `json:"error,omitempty"`
	// Skipped is set when another drain was already running.
	Skipped bool `json:"skipped,omitempty"`
}

type Queue struct {
	backend Submitter
	store   Store
	log     *logger.Logger
	now     func() time.Time

	draining atomic.Bool
}

func New(b Submitter, s Store, log *logger.Logger) *Queue {
	return &Queue{backend: b, store: s, log: log, now: time.Now}
}

// NewKey returns a fresh idempotency key.
func NewKey() string { return uuid.NewString() }

// Submit sends an order under a new idempotency key.
func (q *Queue) Submit(ctx context.Context, o domain.Order) (domain.Confirmation, string, error) {
	key := NewKey()
	conf, err := q.SubmitWithKey(ctx, key, o)
	return conf, key, err
}

// SubmitWithKey sends an order under key. A network failure stores the
// submission and returns ErrQueued; a rejection is returned as is.
func (q *Queue) SubmitWithKey(ctx context.Context, key string, o domain.Order) (domain.Confirmation, error) {
	conf, err := q.backend.CreateOrder(ctx, key, o)
	if err == nil {
		q.log.Info("order_submitted", map[string]any{"idempotency_key": key, "order_number": conf.OrderNumber})
		return conf, nil
	}
	if !backend.IsNetwork(err) {
		q.log.Warn("order_rejected", map[string]any{"idempotency_key": key, "error": err.Error()})
		return domain.Confirmation{}, err
	}

	sub := domain.QueuedSubmission{IdempotencyKey: key, Payload: o, CreatedAt: q.now().UTC(), Attempts: 1, LastError: err.Error()}
	if prev, gerr := q.store.Get(ctx, key); gerr == nil {
		sub.CreatedAt = prev.CreatedAt
		sub.Attempts = prev.Attempts + 1
	} else if !errors.Is(gerr, ErrNotFound) {
		return domain.Confirmation{}, fmt.Errorf("load queued %s: %w", key, gerr)
	}
	if perr := q.store.Put(ctx, sub); perr != nil {
		q.log.Error("queue_persist_failed", perr, map[string]any{"idempotency_key": key})
		return domain.Confirmation{}, fmt.Errorf("persist queued %s: %w", key, perr)
	}
	q.log.Warn("order_queued", map[string]any{"idempotency_key": key, "attempts": sub.Attempts})
	return domain.Confirmation{}, fmt.Errorf("%w: %w", ErrQueued, err)
}

// Drain replays stored submissions one at a time, oldest first. A concurrent
// call returns at once with Skipped set.
func (q *Queue) Drain(ctx context.Context) DrainReport {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainReport{Skipped: true}
	}
	defer q.draining.Store(false)

	rep := DrainReport{}
	subs, err := q.store.List(ctx)
	if err != nil {
		q.log.Error("queue_list_failed", err, nil)
		rep.Error = err.Error()
		return rep
	}

	for _, s := range subs {
		if ctx.Err() != nil {
			break
		}
		rep.Attempted++
		conf, err := q.backend.CreateOrder(ctx, s.IdempotencyKey, s.Payload)
		if err == nil {
			if derr := q.store.Delete(ctx, s.IdempotencyKey); derr != nil && !errors.Is(derr, ErrNotFound) {
				q.log.Error("queue_delete_failed", derr, map[string]any{"idempotency_key": s.IdempotencyKey})
			}
			rep.Confirmed = append(rep.Confirmed, conf)
			q.log.Info("queued_order_confirmed", map[string]any{"idempotency_key": s.IdempotencyKey, "order_number": conf.OrderNumber})
			continue
		}

		// rejections stay queued until an operator clears them
		s.Attempts++
		s.LastError = err.Error()
		if rep.Failed == nil {
			rep.Failed = map[string]string{}
		}
		rep.Failed[s.IdempotencyKey] = s.LastError
		if perr := q.store.Put(ctx, s); perr != nil {
			q.log.Error("queue_persist_failed", perr, map[string]any{"idempotency_key": s.IdempotencyKey})
		}
		q.log.Warn("queued_order_retry_failed", map[string]any{
			"idempotency_key": s.IdempotencyKey,
			"attempts":        s.Attempts,
			"network":         backend.IsNetwork(err),
		})
	}
	return rep
}

// Run drains once at start, then on every reconnect signal and every interval
// (zero disables the ticker). It returns when ctx is done.
func (q *Queue) Run(ctx context.Context, reconnect <-chan struct{}, interval time.Duration, onDrain func(DrainReport)) {
	report := func() {
		rep := q.Drain(ctx)
		if onDrain != nil && rep.Attempted > 0 {
			onDrain(rep)
		}
	}
	report()

	var tick <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-reconnect:
			if !ok {
				reconnect = nil
				continue
			}
			report()
		case <-tick:
			report()
		}
	}
}

func (q *Queue) Pending(ctx context.Context) ([]domain.QueuedSubmission, error) {
	return q.store.List(ctx)
}

// Clear removes a submission without replaying it.
func (q *Queue) Clear(ctx context.Context, key string) error {
	if err := q.store.Delete(ctx, key); err != nil {
		return err
	}
	q.log.Info("queued_order_cleared", map[string]any{"idempotency_key": key})
	return nil
}
