package service

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const jsonContentType = "application/json; charset=utf-8"

func (s *Server) respond(c *gin.Context, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.log.Error("encode response", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.Data(http.StatusInternalServerError, jsonContentType, []byte(`{"error":"internal error"}`))
		return
	}
	c.Data(code, jsonContentType, body)
}

// truthy пустые map/slice/строки и nil в кэш не попадают и из кэша не отдаются.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

type loader func(ctx context.Context) (any, bool)

// fallback значение на случай, когда нет ни свежих данных, ни stale.
type fallback struct {
	value any
	store bool // положить ли значение в кэш
}

// cached цепочка fresh -> upstream -> stale -> fallback.
func (s *Server) cached(c *gin.Context, key string, ttl time.Duration, load loader, fb fallback) {
	if v, ok := s.cache.Get(key, ttl); ok && truthy(v) {
		s.respond(c, http.StatusOK, v)
		return
	}

	if v, ok := load(c.Request.Context()); ok {
		s.respond(c, http.StatusOK, s.cache.Set(key, v))
		return
	}

	if v, ok := s.cache.GetStale(key, 0); ok && truthy(v) {
		s.log.Warn("serving stale data", zap.String("key", key))
		s.respond(c, http.StatusOK, v)
		return
	}

	v := fb.value
	if fb.store {
		v = s.cache.Set(key, v)
	}
	s.respond(c, http.StatusOK, v)
}
