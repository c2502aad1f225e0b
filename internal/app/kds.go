package app

import (
	"context"

	"riwa-pos/internal/feed"
	"riwa-pos/internal/httpapi"
	"riwa-pos/internal/kds"
)

// buildKDS wires the kitchen display. The feed does not back a view here; it
// only tells the controller when to reload and raises the new-order alert.
func buildKDS(_ context.Context, rt *Runtime) ([]task, httpapi.Deps, error) {
	alerts := rt.Alerts()
	f := feed.New(rt.Backend, rt.Subscriber(), rt.Log, feed.Options{
		PollInterval: rt.Cfg.Feed.PollInterval,
		Limit:        rt.Cfg.Feed.OrderLimit,
	})
	ctrl := kds.New(rt.Backend, alerts, rt.Log, kds.Options{
		Station:      rt.Cfg.KDS.Station,
		UrgentAfter:  rt.Cfg.KDS.UrgentAfter,
		PollInterval: rt.Cfg.KDS.PollInterval,
	})
	f.OnNewOrders(alerts.OnNewOrders)
	f.OnChange(ctrl.Notify)

	deps := rt.Deps()
	deps.Feed = f
	deps.KDS = ctrl
	deps.Alerts = alerts

	return []task{
		{name: "feed", run: f.Run},
		{name: "kds", run: ctrl.Run},
	}, deps, nil
}
