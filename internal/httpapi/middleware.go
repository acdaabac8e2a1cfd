package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	headerRequestID  = "X-Request-ID"
	correlationIDKey = "correlation_id"
)

// correlationID 沿用调用方的 X-Request-ID，没有则生成。
func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = "req_" + uuid.NewString()
		}
		c.Set(correlationIDKey, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("correlation_id", c.GetString(correlationIDKey)),
		}
		if c.Writer.Status() >= 500 {
			logger.Warn("请求处理失败", fields...)
			return
		}
		logger.Debug("请求完成", fields...)
	}
}
