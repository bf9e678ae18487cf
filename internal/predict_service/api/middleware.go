package api

import (
	"io"
	"net/http"
	"os"

	"WhereIsThisPlace/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDMiddleware 为每个请求生成一个 trace ID，便于串联整条流水线的日志。
func TraceIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set("traceID", traceID)
		c.Header("X-Trace-ID", traceID)
		c.Next()
	}
}

// RateLimitMiddleware 创建一个按客户端 IP 限流的 Gin 中间件。
// 超过配额的请求返回 429。
func RateLimitMiddleware(limiter ratelimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// EphemeralUploadMiddleware 将请求体暂存到临时文件，
// 请求结束后立即删除，避免大图片长时间占用内存。
func EphemeralUploadMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil {
			c.Next()
			return
		}

		tmp, err := os.CreateTemp("", "upload-*")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "无法创建临时文件"})
			c.Abort()
			return
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		if _, err := io.Copy(tmp, c.Request.Body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无法读取请求体"})
			c.Abort()
			return
		}
		if _, err := tmp.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "无法读取临时文件"})
			c.Abort()
			return
		}

		c.Request.Body = tmp
		c.Next()
	}
}
