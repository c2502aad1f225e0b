package app

import (
	"context"
	"time"

	"riwa-pos/internal/common/db"
	"riwa-pos/internal/httpapi"
	"riwa-pos/internal/offlinequeue"
	"riwa-pos/internal/offlinequeue/memstore"
	"riwa-pos/internal/offlinequeue/pgstore"
)

const healthProbeEvery = 5 * time.Second

// buildTerminal wires the cashier side: submissions go through the offline
// queue, which persists to Postgres when a database is configured.
func buildTerminal(ctx context.Context, rt *Runtime) ([]task, httpapi.Deps, error) {
	store, err := queueStore(ctx, rt)
	if err != nil {
		return nil, httpapi.Deps{}, err
	}
	q := offlinequeue.New(rt.Backend, store, rt.Log)

	deps := rt.Deps()
	deps.Queue = q

	drain := task{name: "queue", run: func(ctx context.Context) error {
		reconnect := offlinequeue.WatchConnectivity(ctx, rt.Backend.Health, healthProbeEvery)
		q.Run(ctx, reconnect, every(rt.Cfg.Queue.DrainInterval, 30*time.Second), func(rep offlinequeue.DrainReport) {
			rt.Log.Info("queue_drained", map[string]any{
				"attempted": rep.Attempted,
				"confirmed": len(rep.Confirmed),
				"failed":    len(rep.Failed),
			})
		})
		return nil
	}}
	return []task{drain}, deps, nil
}

func queueStore(ctx context.Context, rt *Runtime) (offlinequeue.Store, error) {
	if !rt.Cfg.Database.Configured() {
		rt.Log.Warn("queue_in_memory", map[string]any{"reason": "database not configured"})
		return memstore.New(), nil
	}
	conn, err := db.Connect(ctx, rt.Cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	rt.onClose(conn.Close)

	s := pgstore.New(conn.Pool)
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rt.Log.Info("queue_store_ready", map[string]any{"store": "postgres"})
	return s, nil
}
