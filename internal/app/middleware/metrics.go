package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ringi/internal/app/metrics"
)

// RequestMetrics пишет длительность запроса в Prometheus и в лог
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// шаблон маршрута, а не путь: id заявок не раздувают кардинальность
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		duration := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, endpoint, c.Writer.Status(), duration)

		logrus.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": duration.String(),
		}).Debug("request")
	}
}
