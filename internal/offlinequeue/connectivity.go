package offlinequeue

import (
	"context"
	"time"
)

// WatchConnectivity probes every interval and signals on each down-to-up
// transition. The first successful probe counts as coming online. The
// channel closes when ctx is done.
func WatchConnectivity(ctx context.Context, probe func(context.Context) error, every time.Duration) <-chan struct{} {
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		t := time.NewTicker(every)
		defer t.Stop()
		online := false
		for {
			up := probe(ctx) == nil
			if up && !online {
				select {
				case out <- struct{}{}:
				default:
				}
			}
			online = up
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return out
}
