package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// untracedPaths are probes and live feeds. A live feed connection would
// otherwise become one span lasting the whole session.
var untracedPaths = []string{"/health", "/metrics", "/api/ws", "/api/events"}

// GinMiddleware traces API requests, naming spans "METHOD route".
func GinMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(shouldTrace),
		otelgin.WithSpanNameFormatter(spanName),
	)
}

func shouldTrace(r *http.Request) bool {
	for _, p := range untracedPaths {
		if r.URL.Path == p || strings.HasPrefix(r.URL.Path, p+"/") {
			return false
		}
	}
	return true
}

func spanName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return c.Request.Method + " " + route
}
