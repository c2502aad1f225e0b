package offlinequeue_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riwa-pos/internal/backend"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
	"riwa-pos/internal/offlinequeue"
	"riwa-pos/internal/offlinequeue/memstore"
)

// fakeBackend fails with a network error while offline and otherwise confirms,
// returning the same order number for a repeated key.
type fakeBackend struct {
	mu      sync.Mutex
	offline bool
	reject  map[string]bool
	byKey   map[string]domain.Confirmation
	calls   int
	block   chan struct{}
	entered chan struct{}
	once    sync.Once
}

func newFake() *fakeBackend {
	return &fakeBackend{reject: map[string]bool{}, byKey: map[string]domain.Confirmation{}}
}

func (f *fakeBackend) setOffline(v bool) { f.mu.Lock(); f.offline = v; f.mu.Unlock() }

func (f *fakeBackend) CreateOrder(ctx context.Context, key string, o domain.Order) (domain.Confirmation, error) {
	if f.block != nil {
		f.once.Do(func() { close(f.entered) })
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.offline {
		return domain.Confirmation{}, fmt.Errorf("%w: dial tcp: connection refused", backend.ErrNetwork)
	}
	if f.reject[key] {
		return domain.Confirmation{}, &backend.RejectedError{StatusCode: 500, Body: "Failed to create order"}
	}
	if c, ok := f.byKey[key]; ok {
		return c, nil
	}
	c := domain.Confirmation{
		OrderID:     fmt.Sprintf("id-%d", len(f.byKey)+1),
		OrderNumber: fmt.Sprintf("ORD-20240101-%04d", len(f.byKey)+1),
		Status:      domain.StatusPending,
		Total:       o.Total,
	}
	f.byKey[key] = c
	return c, nil
}

func quietLogger() *logger.Logger { return logger.NewWithWriter("terminal", io.Discard) }

func teaOrder(t *testing.T) domain.Order {
	t.Helper()
	o, err := domain.DefaultPricing().Prepare(domain.Order{
		OrderType:     domain.OrderTypeQSR,
		PaymentMethod: domain.PaymentCard,
		Items:         []domain.OrderItem{{Name: "Karak", Quantity: 2, UnitPrice: domain.MustMoney("1.250")}},
	})
	require.NoError(t, err)
	return o
}

func TestSubmit_OfflineThenDrain(t *testing.T) {
	ctx := context.Background()
	be := newFake()
	be.setOffline(true)
	store := memstore.New()
	q := offlinequeue.New(be, store, quietLogger())

	o := teaOrder(t)
	assert.Equal(t, "0.125", o.Tax.String())
	assert.Equal(t, "2.625", o.Total.String())

	_, key, err := q.Submit(ctx, o)
	require.ErrorIs(t, err, offlinequeue.ErrQueued)
	assert.True(t, backend.IsNetwork(err))
	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, key, pending[0].IdempotencyKey)

	be.setOffline(false)
	rep := q.Drain(ctx)
	assert.Equal(t, 1, rep.Attempted)
	require.Len(t, rep.Confirmed, 1)
	assert.Equal(t, "ORD-20240101-0001", rep.Confirmed[0].OrderNumber)
	assert.Equal(t, "2.625", rep.Confirmed[0].Total.String())

	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	again := q.Drain(ctx)
	assert.Zero(t, again.Attempted)
	assert.Empty(t, again.Confirmed)
}

func TestSubmitWithKey_DedupsRetries(t *testing.T) {
	ctx := context.Background()
	be := newFake()
	be.setOffline(true)
	q := offlinequeue.New(be, memstore.New(), quietLogger())
	o := teaOrder(t)

	_, err := q.SubmitWithKey(ctx, "same-key", o)
	require.ErrorIs(t, err, offlinequeue.ErrQueued)
	_, err = q.SubmitWithKey(ctx, "same-key", o)
	require.ErrorIs(t, err, offlinequeue.ErrQueued)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)

	be.setOffline(false)
	rep := q.Drain(ctx)
	require.Len(t, rep.Confirmed, 1)
	pending, _ = q.Pending(ctx)
	assert.Empty(t, pending)
}

func TestSubmit_RejectionIsNotQueued(t *testing.T) {
	ctx := context.Background()
	be := newFake()
	be.reject["bad"] = true
	q := offlinequeue.New(be, memstore.New(), quietLogger())

	_, err := q.SubmitWithKey(ctx, "bad", teaOrder(t))
	var re *backend.RejectedError
	require.ErrorAs(t, err, &re)
	assert.False(t, errors.Is(err, offlinequeue.ErrQueued))

	pending, _ := q.Pending(ctx)
	assert.Empty(t, pending)
}

func TestDrain_KeepsFailuresAndContinues(t *testing.T) {
	ctx := context.Background()
	be := newFake()
	store := memstore.New()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, domain.QueuedSubmission{
			IdempotencyKey: key,
			Payload:        teaOrder(t),
			CreatedAt:      now.Add(time.Duration(i) * time.Second),
		}))
	}
	be.reject["b"] = true
	q := offlinequeue.New(be, store, quietLogger())

	rep := q.Drain(ctx)
	assert.Equal(t, 3, rep.Attempted)
	assert.Len(t, rep.Confirmed, 2)
	require.Contains(t, rep.Failed, "b")

	left, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "b", left[0].IdempotencyKey)
	assert.Equal(t, 1, left[0].Attempts)
	assert.NotEmpty(t, left[0].LastError)

	require.NoError(t, q.Clear(ctx, "b"))
	assert.ErrorIs(t, q.Clear(ctx, "b"), offlinequeue.ErrNotFound)
}

func TestDrain_NotReentrant(t *testing.T) {
	ctx := context.Background()
	be := newFake()
	be.block = make(chan struct{})
	be.entered = make(chan struct{})
	store := memstore.New()
	require.NoError(t, store.Put(ctx, domain.QueuedSubmission{IdempotencyKey: "k", Payload: teaOrder(t), CreatedAt: time.Now()}))
	q := offlinequeue.New(be, store, quietLogger())

	done := make(chan offlinequeue.DrainReport)
	go func() { done <- q.Drain(ctx) }()

	<-be.entered
	assert.True(t, q.Drain(ctx).Skipped)
	close(be.block)
	first := <-done
	assert.Len(t, first.Confirmed, 1)
}

func TestRun_DrainsOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	be := newFake()
	be.setOffline(true)
	q := offlinequeue.New(be, memstore.New(), quietLogger())
	_, _, err := q.Submit(ctx, teaOrder(t))
	require.ErrorIs(t, err, offlinequeue.ErrQueued)

	reconnect := make(chan struct{})
	reports := make(chan offlinequeue.DrainReport, 4)
	go q.Run(ctx, reconnect, 0, func(r offlinequeue.DrainReport) { reports <- r })

	// the start-up drain fails while still offline
	first := <-reports
	assert.Empty(t, first.Confirmed)

	be.setOffline(false)
	reconnect <- struct{}{}
	second := <-reports
	assert.Len(t, second.Confirmed, 1)
}

func TestWatchConnectivity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	results := []error{errors.New("down"), nil, nil, errors.New("down"), nil}
	probe := func(context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		if len(results) == 0 {
			return nil
		}
		r := results[0]
		results = results[1:]
		return r
	}
	ch := offlinequeue.WatchConnectivity(ctx, probe, 20*time.Millisecond)

	got := 0
	timeout := time.After(2 * time.Second)
	for got < 2 {
		select {
		case <-ch:
			got++
		case <-timeout:
			t.Fatalf("saw %d reconnects, want 2", got)
		}
	}
	cancel()
	for range ch {
	}
}
