package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestShouldTrace(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "/api/emails", want: true},
		{path: "/api/emails/3/raw", want: true},
		{path: "/api/info", want: true},
		{path: "/health", want: false},
		{path: "/metrics", want: false},
		{path: "/api/ws", want: false},
		{path: "/api/events", want: false},
		{path: "/api/eventsource", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, shouldTrace(r))
		})
	}
}

func TestSpanName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	var got string
	router.GET("/api/emails/:id", func(c *gin.Context) { got = spanName(c) })
	router.NoRoute(func(c *gin.Context) { got = spanName(c) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/emails/7", nil))
	assert.Equal(t, "GET /api/emails/:id", got)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, "GET unmatched", got)
}
