package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"riwa-pos/internal/common/config"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/common/mq"
	"riwa-pos/internal/domain"
)

// AMQPSubscriber consumes the orders_changes fanout through a private queue
// and redials after the broker drops the connection.
type AMQPSubscriber struct {
	cfg   config.MQ
	log   *logger.Logger
	retry time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

var _ Subscriber = (*AMQPSubscriber)(nil)

func NewAMQPSubscriber(cfg config.MQ, log *logger.Logger) *AMQPSubscriber {
	return &AMQPSubscriber{cfg: cfg, log: log, retry: 2 * time.Second}
}

func (s *AMQPSubscriber) Subscribe(ctx context.Context) (<-chan domain.OrderEvent, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	out := make(chan domain.OrderEvent, 64)
	go s.loop(ctx, client, out)
	return out, nil
}

func (s *AMQPSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

func (s *AMQPSubscriber) connect() (*mq.Client, error) {
	c, err := mq.Dial(s.cfg)
	if err != nil {
		return nil, err
	}
	if err := c.DeclareAll(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (s *AMQPSubscriber) loop(ctx context.Context, client *mq.Client, out chan<- domain.OrderEvent) {
	defer close(out)
	consumer := "feed-" + uuid.NewString()[:8]
	for {
		if client != nil {
			if err := s.consume(ctx, client, consumer, out); err != nil {
				s.log.Warn("realtime_disconnected", map[string]any{"error": err.Error()})
			}
			client.Close()
			client = nil
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retry):
		}
		c, err := s.connect()
		if err != nil {
			s.log.Debug("realtime_redial_failed", map[string]any{"error": err.Error()})
			continue
		}
		s.log.Info("realtime_reconnected", nil)
		client = c
	}
}

func (s *AMQPSubscriber) consume(ctx context.Context, client *mq.Client, consumer string, out chan<- domain.OrderEvent) error {
	deliveries, err := client.Subscribe(mq.OrdersExchange, consumer)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			ev, err := Decode(d.Body)
			if errors.Is(err, ErrIgnored) {
				continue
			}
			if err != nil {
				s.log.Warn("realtime_bad_message", map[string]any{"error": err.Error()})
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Publisher emits order change events on the orders_changes exchange.
type Publisher struct {
	c *mq.Client
}

func NewPublisher(c *mq.Client) *Publisher { return &Publisher{c: c} }

func (p *Publisher) PublishOrder(ctx context.Context, typ domain.ChangeType, o domain.Order) error {
	body, err := Encode(typ, o)
	if err != nil {
		return err
	}
	return p.c.Publish(ctx, mq.OrdersExchange, "", body)
}
