package realtime

import (
	"context"
	"sync"

	"riwa-pos/internal/domain"
)

// Bus is an in-process Subscriber. Publish never blocks: a subscriber whose
// buffer is full misses the event, the same loss the network transport has.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan domain.OrderEvent]struct{}
	dropped uint64
	closed  bool
}

var _ Subscriber = (*Bus)(nil)

func NewBus() *Bus { return &Bus{subs: make(map[chan domain.OrderEvent]struct{})} }

func (b *Bus) Subscribe(ctx context.Context) (<-chan domain.OrderEvent, error) {
	ch := make(chan domain.OrderEvent, 16)
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, nil
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(ch)
	}()
	return ch, nil
}

func (b *Bus) Publish(ev domain.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped++
		}
	}
}

// Dropped counts events lost to full subscriber buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}

func (b *Bus) remove(ch chan domain.OrderEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
