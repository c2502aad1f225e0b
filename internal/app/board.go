package app

import (
	"context"

	"riwa-pos/internal/feed"
	"riwa-pos/internal/httpapi"
	"riwa-pos/internal/orderflow"
)

func buildBoard(_ context.Context, rt *Runtime) ([]task, httpapi.Deps, error) {
	alerts := rt.Alerts()
	f := feed.New(rt.Backend, rt.Subscriber(), rt.Log, feed.Options{
		PollInterval: rt.Cfg.Feed.PollInterval,
		Limit:        rt.Cfg.Feed.OrderLimit,
	})
	f.OnNewOrders(alerts.OnNewOrders)

	deps := rt.Deps()
	deps.Feed = f
	deps.Flow = orderflow.New(rt.Backend, f, alerts, rt.Log)
	deps.Alerts = alerts

	return []task{{name: "feed", run: f.Run}}, deps, nil
}
