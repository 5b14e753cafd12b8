package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// дашборд отдаётся с того же хоста, но может стоять за https-прокси с другим origin
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.logStreamEnd(s.relay.Serve(c.Request.Context(), conn))
}
