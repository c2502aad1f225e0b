// Package app assembles the components each mode runs and owns their
// lifetimes.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"riwa-pos/internal/alert"
	"riwa-pos/internal/backend"
	"riwa-pos/internal/common/config"
	"riwa-pos/internal/common/httpx"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/common/mq"
	"riwa-pos/internal/domain"
	"riwa-pos/internal/httpapi"
	"riwa-pos/internal/printer"
	"riwa-pos/internal/realtime"
	"riwa-pos/internal/receipt"
)

const (
	ModeTerminal = "terminal"
	ModeKDS      = "kds"
	ModeBoard    = "board"
)

var ErrUnknownMode = errors.New("unknown mode")

// Runtime holds what every mode shares: the backend client, the printers and
// the optional broker connection.
type Runtime struct {
	Mode     string
	Cfg      config.App
	Log      *logger.Logger
	Backend  *backend.Client
	Printers *printer.Dispatcher
	Pricing  domain.Pricing
	MQ       *mq.Client

	closers []func()
}

func newRuntime(mode string, cfg config.App, log *logger.Logger) (*Runtime, error) {
	pricing, err := PricingFrom(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Mode:     mode,
		Cfg:      cfg,
		Log:      log,
		Backend:  backend.New(cfg.Backend),
		Printers: printer.NewDispatcher(cfg.Printers, log),
		Pricing:  pricing,
	}
	if cfg.Rabbit.Configured() {
		c, err := mq.Dial(cfg.Rabbit)
		if err != nil {
			// push and broadcast are optional; polling still works
			log.Warn("rabbitmq_unavailable", map[string]any{"error": err.Error()})
		} else if err := c.DeclareAll(); err != nil {
			c.Close()
			log.Warn("rabbitmq_declare_failed", map[string]any{"error": err.Error()})
		} else {
			rt.MQ = c
			rt.onClose(c.Close)
		}
	}
	return rt, nil
}

func (rt *Runtime) onClose(f func()) { rt.closers = append(rt.closers, f) }

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// Subscriber returns the push subscription, or nil when no broker is
// configured and the feed polls only.
func (rt *Runtime) Subscriber() realtime.Subscriber {
	if !rt.Cfg.Rabbit.Configured() {
		return nil
	}
	return realtime.NewAMQPSubscriber(rt.Cfg.Rabbit, rt.Log)
}

func (rt *Runtime) Events() httpapi.OrderPublisher {
	if rt.MQ == nil {
		return nil
	}
	return realtime.NewPublisher(rt.MQ)
}

func (rt *Runtime) Alerts() *alert.Signaler {
	sounder := alert.MultiSounder{alert.LogSounder{Log: rt.Log}}
	if rt.MQ != nil {
		sounder = append(sounder, alert.BroadcastSounder{Pub: rt.MQ, Source: rt.Mode})
	}
	s := alert.New(sounder, rt.Log, alert.Options{
		Repeat:  rt.Cfg.Alert.Repeat,
		Timeout: rt.Cfg.Alert.Timeout,
		Enabled: rt.Cfg.Alert.Enabled,
	})
	rt.onClose(s.Close)
	return s
}

func (rt *Runtime) Deps() httpapi.Deps {
	return httpapi.Deps{
		Mode:     rt.Mode,
		Log:      rt.Log,
		Pricing:  rt.Pricing,
		Printers: rt.Printers,
		Receipt:  receipt.OptionsFrom(rt.Cfg.Receipt),
		Events:   rt.Events(),
	}
}

// PricingFrom parses the configured rates.
func PricingFrom(cfg config.Pricing) (domain.Pricing, error) {
	tax, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.tax_rate %q: %w", cfg.TaxRate, err)
	}
	svc, err := decimal.NewFromString(cfg.ServiceRate)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.service_rate %q: %w", cfg.ServiceRate, err)
	}
	fee, err := domain.ParseMoney(cfg.DeliveryFee)
	if err != nil {
		return domain.Pricing{}, fmt.Errorf("pricing.delivery_fee %q: %w", cfg.DeliveryFee, err)
	}
	if tax.IsNegative() || svc.IsNegative() || fee.IsNegative() {
		return domain.Pricing{}, fmt.Errorf("pricing: negative rate or fee")
	}
	return domain.Pricing{TaxRate: tax, ServiceRate: svc, DeliveryFee: fee}, nil
}

// Run builds the runtime for mode and blocks until ctx is cancelled or a
// component fails.
func Run(ctx context.Context, mode string, cfg config.App) error {
	log := logger.New(mode)
	defer log.Sync()

	var build func(context.Context, *Runtime) ([]task, httpapi.Deps, error)
	switch mode {
	case ModeTerminal:
		build = buildTerminal
	case ModeKDS:
		build = buildKDS
	case ModeBoard:
		build = buildBoard
	default:
		return fmt.Errorf("%w %q", ErrUnknownMode, mode)
	}

	rt, err := newRuntime(mode, cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	tasks, deps, err := build(ctx, rt)
	if err != nil {
		return err
	}
	api := httpapi.NewServer(deps)
	srv := httpx.New(cfg.HTTP.Port, api.Engine())
	tasks = append(tasks, task{name: "http", run: srv.Run})

	log.Info("service_started", map[string]any{"mode": mode, "port": cfg.HTTP.Port, "backend": cfg.Backend.URL})
	err = runAll(ctx, log, tasks)
	log.Info("service_stopped", map[string]any{"mode": mode})
	return err
}

type task struct {
	name string
	run  func(context.Context) error
}

// runAll runs every task until ctx ends; the first failure cancels the rest.
func runAll(ctx context.Context, log *logger.Logger, tasks []task) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg    sync.WaitGroup
		once  sync.Once
		first error
	)
	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			err := t.run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("task_failed", err, map[string]any{"task": t.name})
				once.Do(func() { first = fmt.Errorf("%s: %w", t.name, err) })
			}
			cancel()
		}(t)
	}
	wg.Wait()
	return first
}

func every(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
