package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"riwa-pos/internal/domain"
)

func (s *Server) listOrders(c *gin.Context) {
	var statuses []domain.Status
	if q := c.Query("status"); q != "" {
		for _, part := range strings.Split(q, ",") {
			st, ok := domain.ParseStatus(part)
			if !ok {
				abort(c, fmt.Errorf("%w: status %q", errInvalidInput, part))
				return
			}
			statuses = append(statuses, st)
		}
	}
	c.JSON(http.StatusOK, gin.H{"orders": s.deps.Feed.Snapshot(statuses...)})
}

func (s *Server) refreshOrders(c *gin.Context) {
	if err := s.deps.Feed.OnPollTick(c); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": s.deps.Feed.Snapshot()})
}

type updateStatusReq struct {
	Status string `json:"status"`
}

func (s *Server) updateStatus(c *gin.Context) {
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	st, ok := domain.ParseStatus(req.Status)
	if !ok {
		abort(c, fmt.Errorf("%w: status %q", errInvalidInput, req.Status))
		return
	}
	o, err := s.deps.Flow.SetStatus(c, c.Param("id"), st)
	if err != nil {
		abort(c, err)
		return
	}
	s.publish(c, domain.ChangeUpdate, o)
	c.JSON(http.StatusOK, o)
}

func (s *Server) advanceOrder(c *gin.Context) {
	o, err := s.deps.Flow.Advance(c, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	s.publish(c, domain.ChangeUpdate, o)
	c.JSON(http.StatusOK, o)
}

func (s *Server) cancelOrder(c *gin.Context) {
	o, err := s.deps.Flow.Cancel(c, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	s.publish(c, domain.ChangeUpdate, o)
	c.JSON(http.StatusOK, o)
}
