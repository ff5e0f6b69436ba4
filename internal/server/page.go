package server

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/chart.html
var chartPage []byte

// page serves the renderer. It draws whatever the chart session tells it to
// and reports user input back over the websocket.
func (s *Server) page(c *gin.Context) {
	if _, ok := s.crypto(c); !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", chartPage)
}
