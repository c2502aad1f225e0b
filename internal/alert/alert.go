// Package alert drives the new-order buzzer: a bounded repeating signal that
// can be silenced by hand or by any status change.
package alert

import (
	"context"
	"sync"
	"time"

	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
)

type Sounder interface {
	Sound(ctx context.Context) error
}

// Silencer is implemented by sounders that must be told when an alert ends.
type Silencer interface {
	Silence(ctx context.Context) error
}

type Options struct {
	Repeat  time.Duration
	Timeout time.Duration
	Enabled bool
}

type State struct {
	Alerting bool       `json:"alerting"`
	Enabled  bool       `json:"enabled"`
	Since    *time.Time `json:"since,omitempty"`
}

type Signaler struct {
	sounder Sounder
	log     *logger.Logger
	opts    Options

	mu       sync.Mutex
	enabled  bool
	alerting bool
	closed   bool
	since    time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(sounder Sounder, log *logger.Logger, opts Options) *Signaler {
	if opts.Repeat <= 0 {
		opts.Repeat = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Signaler{sounder: sounder, log: log, opts: opts, enabled: opts.Enabled}
}

// Trigger starts an alert when enabled and idle. It reports whether a new
// alert started.
func (s *Signaler) Trigger() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.enabled || s.alerting {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.alerting = true
	s.since = time.Now().UTC()
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info("alert_started", nil)
	return true
}

// OnNewOrders lets the signaler subscribe to feed new-order detection.
func (s *Signaler) OnNewOrders(orders []domain.Order) {
	if len(orders) > 0 {
		s.Trigger()
	}
}

// Stop ends an active alert. No signal fires after Stop returns.
func (s *Signaler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	wasAlerting := s.alerting
	s.alerting = false
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	if wasAlerting {
		s.log.Info("alert_stopped", nil)
	}
}

func (s *Signaler) Enable() {
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
}

// Disable gates new alerts; an alert in progress runs to Stop or timeout.
func (s *Signaler) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// Close stops any alert and refuses new ones.
func (s *Signaler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Stop()
}

func (s *Signaler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Alerting: s.alerting, Enabled: s.enabled}
	if s.alerting {
		since := s.since
		st.Since = &since
	}
	return st
}

func (s *Signaler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.silence()

	tick := time.NewTicker(s.opts.Repeat)
	defer tick.Stop()
	timeout := time.NewTimer(s.opts.Timeout)
	defer timeout.Stop()

	s.sound(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-timeout.C:
			s.expire(done)
			return
		case <-tick.C:
			// Stop may have raced the tick; ctx is the authority
			if ctx.Err() != nil {
				return
			}
			s.sound(ctx)
		}
	}
}

func (s *Signaler) expire(done chan struct{}) {
	s.mu.Lock()
	if s.done == done {
		s.cancel()
		s.alerting = false
		s.cancel, s.done = nil, nil
	}
	s.mu.Unlock()
	s.log.Info("alert_timed_out", nil)
}

func (s *Signaler) sound(ctx context.Context) {
	if err := s.sounder.Sound(ctx); err != nil {
		s.log.Debug("alert_sound_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Signaler) silence() {
	sl, ok := s.sounder.(Silencer)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sl.Silence(ctx); err != nil {
		s.log.Debug("alert_silence_failed", map[string]any{"error": err.Error()})
	}
}
