package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const streamPath = "/api/ws"

// rateLimit скользящее окно на пару (ip, путь). Только /api/*, поток не считаем.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !strings.HasPrefix(path, "/api/") || path == streamPath {
			c.Next()
			return
		}

		// пустой адрес лимитер сам считает клиентом "unknown"
		d := s.limiter.Admit(c.RemoteIP(), path)
		if d.Allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(d.RetryAfter))
		s.respond(c, http.StatusTooManyRequests, gin.H{
			"error":             "rate limit exceeded",
			"retryAfterSeconds": d.RetryAfter,
		})
		c.Abort()
	}
}
