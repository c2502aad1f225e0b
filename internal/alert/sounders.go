package alert

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/common/mq"
	"riwa-pos/internal/domain"
)

// LogSounder writes one log line per signal.
type LogSounder struct {
	Log *logger.Logger
}

func (s LogSounder) Sound(context.Context) error {
	s.Log.Info("buzzer", nil)
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, exchange, key string, body []byte) error
}

// BroadcastSounder publishes buzzer state on the notifications exchange so
// display devices can play the tone.
type BroadcastSounder struct {
	Pub    Publisher
	Source string
}

func (s BroadcastSounder) Sound(ctx context.Context) error { return s.publish(ctx, true) }

func (s BroadcastSounder) Silence(ctx context.Context) error { return s.publish(ctx, false) }

func (s BroadcastSounder) publish(ctx context.Context, alerting bool) error {
	body, err := json.Marshal(domain.BuzzerMessage{
		Source:    s.Source,
		Alerting:  alerting,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return s.Pub.Publish(ctx, mq.NotificationsExchange, "", body)
}

// MultiSounder fans a signal out to every sounder.
type MultiSounder []Sounder

func (m MultiSounder) Sound(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if err := s.Sound(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSounder) Silence(ctx context.Context) error {
	var errs []error
	for _, s := range m {
		if sl, ok := s.(Silencer); ok {
			if err := sl.Silence(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
