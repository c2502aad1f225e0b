package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"riwa-pos/internal/kds"
	"riwa-pos/internal/printer"
	"riwa-pos/internal/receipt"
)

func (s *Server) kdsCards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"station": s.deps.KDS.Station(),
		"cards":   s.deps.KDS.Cards(s.now()),
	})
}

func (s *Server) kdsRefresh(c *gin.Context) {
	if err := s.deps.KDS.Reload(c); err != nil {
		abort(c, err)
		return
	}
	s.kdsCards(c)
}

func (s *Server) kdsBump(c *gin.Context) {
	if err := s.deps.KDS.Bump(c, c.Param("id")); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// kdsBumpAll answers 200 when every item went through and 207 when some
// failed; the body lists both sides.
func (s *Server) kdsBumpAll(c *gin.Context) {
	res := s.deps.KDS.BumpAll(c, c.Param("id"))
	status := http.StatusOK
	if len(res.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

func (s *Server) kdsPrint(c *gin.Context) {
	it, ok := s.deps.KDS.Item(c.Param("id"))
	if !ok {
		abort(c, fmt.Errorf("%w: %s", kds.ErrNotFound, c.Param("id")))
		return
	}
	if s.deps.Printers == nil {
		abort(c, printer.ErrNoPrinter)
		return
	}
	if _, err := s.deps.Printers.PrintText(c, printer.ChannelKDS, receipt.KitchenTicket(it, s.now()), false); err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"printed": true})
}

func (s *Server) alertState(c *gin.Context) { c.JSON(http.StatusOK, s.deps.Alerts.State()) }

func (s *Server) alertEnable(c *gin.Context) {
	s.deps.Alerts.Enable()
	c.JSON(http.StatusOK, s.deps.Alerts.State())
}

func (s *Server) alertDisable(c *gin.Context) {
	s.deps.Alerts.Disable()
	c.JSON(http.StatusOK, s.deps.Alerts.State())
}

func (s *Server) alertStop(c *gin.Context) {
	s.deps.Alerts.Stop()
	c.JSON(http.StatusOK, s.deps.Alerts.State())
}
