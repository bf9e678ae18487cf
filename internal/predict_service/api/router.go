package api

import (
	"WhereIsThisPlace/pkg/ratelimiter"

	"github.com/gin-gonic/gin"
)

// RouterOptions 控制可选中间件的装配。
type RouterOptions struct {
	RateLimiter     ratelimiter.RateLimiter // 为 nil 时不限流
	EphemeralUpload bool
}

// SetupRouter 配置和返回一个 Gin 引擎实例。
func SetupRouter(h *Handler, opts RouterOptions) *gin.Engine {
	// 使用默认中间件 (logger, recovery) 创建一个 Gin 引擎。
	r := gin.Default()

	r.Use(TraceIDMiddleware())

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	// 使用 v1 版本对 API 进行分组
	apiV1 := r.Group("/api/v1")
	if opts.RateLimiter != nil {
		apiV1.Use(RateLimitMiddleware(opts.RateLimiter))
	}
	if opts.EphemeralUpload {
		apiV1.Use(EphemeralUploadMiddleware())
	}
	{
		apiV1.POST("/predict", h.Predict)
	}

	return r
}
