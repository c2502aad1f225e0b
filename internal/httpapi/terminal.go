package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"riwa-pos/internal/domain"
	"riwa-pos/internal/offlinequeue"
	"riwa-pos/internal/printer"
	"riwa-pos/internal/receipt"
)

type submitOrderReq struct {
	domain.Order
	IdempotencyKey string `json:"idempotency_key"`
	Print          bool   `json:"print"`
}

type submitOrderResp struct {
	Queued         bool                 `json:"queued"`
	IdempotencyKey string               `json:"idempotency_key"`
	Confirmation   *domain.Confirmation `json:"confirmation,omitempty"`
	Order          domain.Order         `json:"order"`
	Printed        bool                 `json:"printed,omitempty"`
	PrintError     string               `json:"print_error,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// submitOrder prices the cart and sends it. 201 when the backend confirmed,
// 202 when it was queued for replay.
func (s *Server) submitOrder(c *gin.Context) {
	var req submitOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.deps.Pricing.Prepare(req.Order)
	if err != nil {
		abort(c, err)
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = offlinequeue.NewKey()
	}
	conf, err := s.deps.Queue.SubmitWithKey(c, key, o)
	if errors.Is(err, offlinequeue.ErrQueued) {
		c.JSON(http.StatusAccepted, submitOrderResp{Queued: true, IdempotencyKey: key, Order: o, Error: err.Error()})
		return
	}
	if err != nil {
		abort(c, err)
		return
	}

	o.ID, o.OrderNumber, o.Status = conf.OrderID, conf.OrderNumber, conf.Status
	s.remember(o)
	s.publish(c, domain.ChangeInsert, o)
	resp := submitOrderResp{IdempotencyKey: key, Confirmation: &conf, Order: o}
	if req.Print {
		if err := s.printReceipt(c, o); err != nil {
			resp.PrintError = err.Error()
		} else {
			resp.Printed = true
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) quoteOrder(c *gin.Context) {
	var o domain.Order
	if err := c.ShouldBindJSON(&o); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	priced, err := s.deps.Pricing.Prepare(o)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subtotal":       priced.Subtotal,
		"tax":            priced.Tax,
		"service_charge": priced.ServiceCharge,
		"delivery_fee":   priced.DeliveryFee,
		"total":          priced.Total,
		"change_due":     priced.ChangeDue,
	})
}

func (s *Server) printOrder(c *gin.Context) {
	o, ok := s.lookup(c.Param("id"))
	if !ok {
		abort(c, fmt.Errorf("%w: order %s", errNotFound, c.Param("id")))
		return
	}
	if err := s.printReceipt(c, o); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"printed": true})
}

func (s *Server) printReceipt(c *gin.Context, o domain.Order) error {
	if s.deps.Printers == nil {
		return printer.ErrNoPrinter
	}
	opts := s.deps.Receipt
	opts.Now = s.now()
	_, err := s.deps.Printers.PrintText(c, printer.ChannelPOS, receipt.Render(o, opts), o.PaymentMethod == domain.PaymentCash)
	return err
}

func (s *Server) listQueue(c *gin.Context) {
	subs, err := s.deps.Queue.Pending(c)
	if err != nil {
		abort(c, err)
		return
	}
	if subs == nil {
		subs = []domain.QueuedSubmission{}
	}
	c.JSON(http.StatusOK, gin.H{"pending": subs})
}

func (s *Server) drainQueue(c *gin.Context) {
	rep := s.deps.Queue.Drain(c)
	c.JSON(http.StatusOK, rep)
}

func (s *Server) clearQueued(c *gin.Context) {
	if err := s.deps.Queue.Clear(c, c.Param("key")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
