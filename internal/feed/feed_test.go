package feed

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
	"riwa-pos/internal/realtime"
)

type stubLister struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
	calls  int
}

func (s *stubLister) set(orders ...domain.Order) {
	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()
}

func (s *stubLister) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Order(nil), s.orders...), nil
}

func order(id string, st domain.Status) domain.Order {
	return domain.Order{ID: id, OrderNumber: "ORD-" + id, Status: st, Total: domain.MustMoney("2.625")}
}

func newFeed(l Lister, sub realtime.Subscriber) *Feed {
	return New(l, sub, logger.NewWithWriter("board", io.Discard), Options{PollInterval: 10 * time.Millisecond, Limit: 100})
}

func ids(orders []domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestPollThenPush_SingleEntryWithPushValues(t *testing.T) {
	l := &stubLister{}
	l.set(order("a", domain.StatusPending), order("b", domain.StatusAccepted))
	f := newFeed(l, nil)
	require.NoError(t, f.OnPollTick(context.Background()))

	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeUpdate, Order: order("a", domain.StatusAccepted)})
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeInsert, Order: order("a", domain.StatusAccepted)})

	snap := f.Snapshot()
	assert.Equal(t, []string{"a", "b"}, ids(snap))
	assert.Equal(t, domain.StatusAccepted, snap[0].Status)
}

func TestPushInsertAndUnknownUpdate(t *testing.T) {
	f := newFeed(&stubLister{}, nil)
	f.Reconcile([]domain.Order{order("a", domain.StatusReady)})

	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeInsert, Order: order("n", domain.StatusPending)})
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeUpdate, Order: order("z", domain.StatusPreparing)})

	assert.Equal(t, []string{"n", "a", "z"}, ids(f.Snapshot()))
	assert.Equal(t, []string{"n"}, ids(f.Snapshot(domain.StatusPending)))
}

func TestNewOrderDetection(t *testing.T) {
	f := newFeed(&stubLister{}, nil)
	var got [][]string
	f.OnNewOrders(func(o []domain.Order) { got = append(got, ids(o)) })
	changes := 0
	f.OnChange(func() { changes++ })

	f.Reconcile([]domain.Order{order("a", domain.StatusPending), order("b", domain.StatusReady)})
	f.Reconcile([]domain.Order{order("c", domain.StatusPending), order("a", domain.StatusPending), order("d", domain.StatusAccepted)})
	f.Reconcile([]domain.Order{order("c", domain.StatusPending)})
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeInsert, Order: order("e", domain.StatusPending)})
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeInsert, Order: order("e", domain.StatusPending)})

	assert.Equal(t, [][]string{{"a"}, {"c"}, {"e"}}, got)
	assert.Equal(t, 5, changes)
}

func TestNewOrderDetection_UpdateForUnseenPendingOrder(t *testing.T) {
	f := newFeed(&stubLister{}, nil)
	var got [][]string
	f.OnNewOrders(func(o []domain.Order) { got = append(got, ids(o)) })

	f.Reconcile([]domain.Order{order("a", domain.StatusReady)})
	// the insert for n was missed; its first sighting is an update
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeUpdate, Order: order("n", domain.StatusPending)})
	f.Reconcile([]domain.Order{order("n", domain.StatusPending), order("a", domain.StatusReady)})
	f.OnPushEvent(domain.OrderEvent{Type: domain.ChangeUpdate, Order: order("z", domain.StatusPreparing)})

	assert.Equal(t, [][]string{{"n"}}, got)
}

func TestApplyLocal(t *testing.T) {
	f := newFeed(&stubLister{}, nil)
	f.Reconcile([]domain.Order{order("a", domain.StatusPending)})
	require.NoError(t, f.ApplyLocal("a", domain.StatusAccepted))
	got, ok := f.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.StatusAccepted, got.Status)
	assert.ErrorIs(t, f.ApplyLocal("missing", domain.StatusAccepted), ErrNotFound)
}

func TestPollFailureKeepsList(t *testing.T) {
	l := &stubLister{}
	l.set(order("a", domain.StatusPending))
	f := newFeed(l, nil)
	require.NoError(t, f.OnPollTick(context.Background()))
	l.err = errors.New("backend unreachable")
	assert.Error(t, f.OnPollTick(context.Background()))
	assert.Len(t, f.Snapshot(), 1)
}

func TestRun_PollsAndConsumesPush(t *testing.T) {
	l := &stubLister{}
	l.set(order("a", domain.StatusPending))
	bus := realtime.NewBus()
	f := newFeed(l, bus)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = f.Run(ctx); close(done) }()

	require.Eventually(t, func() bool { return len(f.Snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	// the next poll includes the pushed order, so both sources agree
	l.set(order("b", domain.StatusPending), order("a", domain.StatusPending))
	bus.Publish(domain.OrderEvent{Type: domain.ChangeInsert, Order: order("b", domain.StatusPending)})
	require.Eventually(t, func() bool { return len(f.Snapshot()) == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return l.calls >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
