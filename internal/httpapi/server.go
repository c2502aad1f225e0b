package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"riwa-pos/internal/alert"
	"riwa-pos/internal/backend"
	"riwa-pos/internal/common/logger"
	"riwa-pos/internal/domain"
	"riwa-pos/internal/feed"
	"riwa-pos/internal/kds"
	"riwa-pos/internal/offlinequeue"
	"riwa-pos/internal/orderflow"
	"riwa-pos/internal/printer"
	"riwa-pos/internal/receipt"
)

var (
	errInvalidInput = errors.New("invalid input")
	errNotFound     = errors.New("not found")
)

// OrderPublisher relays local order changes to other devices on the push
// transport.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, typ domain.ChangeType, o domain.Order) error
}

// Deps carries the components a mode runs; routes for nil components are not
// mounted.
type Deps struct {
	Mode     string
	Log      *logger.Logger
	Pricing  domain.Pricing
	Queue    *offlinequeue.Queue
	Printers *printer.Dispatcher
	Receipt  receipt.Options
	Feed     *feed.Feed
	Flow     *orderflow.Transitioner
	KDS      *kds.Controller
	Alerts   *alert.Signaler
	Events   OrderPublisher
}

type Server struct {
	engine *gin.Engine
	deps   Deps
	now    func() time.Time

	mu     sync.Mutex
	recent map[string]domain.Order
	order  []string
}

const recentLimit = 200

func NewServer(d Deps) *Server {
	r := gin.New()
	r.Use(requestLogger(d.Log), gin.Recovery())
	s := &Server{engine: r, deps: d, now: time.Now, recent: map[string]domain.Order{}}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	{
		if s.deps.Queue != nil {
			v1.POST("/orders", s.submitOrder)
			v1.POST("/orders/quote", s.quoteOrder)
			v1.POST("/orders/:id/print", s.printOrder)

			q := v1.Group("/queue")
			q.GET("", s.listQueue)
			q.POST("/drain", s.drainQueue)
			q.DELETE("/:key", s.clearQueued)
		}

		if s.deps.Feed != nil {
			v1.GET("/orders", s.listOrders)
			v1.POST("/orders/refresh", s.refreshOrders)
		}
		if s.deps.Flow != nil {
			v1.PATCH("/orders/:id/status", s.updateStatus)
			v1.POST("/orders/:id/advance", s.advanceOrder)
			v1.POST("/orders/:id/cancel", s.cancelOrder)
		}

		if s.deps.KDS != nil {
			k := v1.Group("/kds")
			k.GET("/cards", s.kdsCards)
			k.POST("/refresh", s.kdsRefresh)
			k.POST("/items/:id/bump", s.kdsBump)
			k.POST("/items/:id/print", s.kdsPrint)
			k.POST("/orders/:id/bump-all", s.kdsBumpAll)
		}

		if s.deps.Alerts != nil {
			a := v1.Group("/alerts")
			a.GET("", s.alertState)
			a.POST("/enable", s.alertEnable)
			a.POST("/disable", s.alertDisable)
			a.POST("/stop", s.alertStop)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok", "mode": s.deps.Mode}
	if s.deps.Feed != nil {
		if lp := s.deps.Feed.LastPoll(); !lp.IsZero() {
			body["last_poll"] = lp.UTC()
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) remember(o domain.Order) {
	if o.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recent[o.ID]; !ok {
		s.order = append(s.order, o.ID)
	}
	s.recent[o.ID] = o
	for len(s.order) > recentLimit {
		delete(s.recent, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(id string) (domain.Order, bool) {
	s.mu.Lock()
	o, ok := s.recent[id]
	s.mu.Unlock()
	if !ok && s.deps.Feed != nil {
		return s.deps.Feed.Get(id)
	}
	return o, ok
}

// publish is best effort; the poll loop on the other side covers a miss.
func (s *Server) publish(ctx context.Context, typ domain.ChangeType, o domain.Order) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.PublishOrder(ctx, typ, o); err != nil {
		s.deps.Log.Warn("order_publish_failed", map[string]any{"order_id": o.ID, "error": err.Error()})
	}
}

func abort(c *gin.Context, err error) {
	c.JSON(mapErrorToStatus(err), gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, errInvalidInput), errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, errNotFound),
		errors.Is(err, offlinequeue.ErrNotFound),
		errors.Is(err, orderflow.ErrNotFound),
		errors.Is(err, feed.ErrNotFound),
		errors.Is(err, kds.ErrNotFound),
		errors.Is(err, printer.ErrNoPrinter):
		return http.StatusNotFound
	case backend.IsRejected(err):
		return http.StatusBadGateway
	case backend.IsNetwork(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}
		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http_request", fields)
			return
		}
		log.Debug("http_request", fields)
	}
}
