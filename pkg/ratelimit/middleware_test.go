package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(l *Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestMiddlewareLimitsBurst(t *testing.T) {
	r := newRouter(New(Config{RPS: 0.001, Burst: 2, MaxAge: time.Minute}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMiddlewareTracksClientsSeparately(t *testing.T) {
	r := newRouter(New(Config{RPS: 0.001, Burst: 1, MaxAge: time.Minute}))

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, addr)
	}
}

func TestCleanupEvictsIdleClients(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1, MaxAge: time.Second})
	l.Allow("10.0.0.1")

	l.cleanup(time.Now().Add(2 * time.Second))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.clients)
}
