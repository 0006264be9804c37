package middleware

import (
	"time"

	"uploadgate/pkg/logger"

	"github.com/gin-gonic/gin"
)

func LoggingMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log := l
		if log == nil {
			log = logger.GetGlobalLogger()
		}
		if log == nil {
			return
		}

		latency := time.Since(start)
		status := c.Writer.Status()

		// request id is set by RequestIDMiddleware earlier in the chain
		requestID, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		log.Infof("%s %s %d %s request_id=%s", method, path, status, latency.String(), requestID)
	}
}
