// Package router 提供 HTTP 路由配置
package router

import (
	"plc-agent-api/internal/config"
	"plc-agent-api/internal/interfaces/http/handler"
	"plc-agent-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router HTTP 路由器
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// RouterHandlers 路由所需的全部处理器
type RouterHandlers struct {
	Health  *handler.HealthHandler
	Auth    *handler.AuthHandler
	Chat    *handler.ChatHandler
	Profile *handler.ProfileHandler
	Project *handler.ProjectHandler
	Bridge  *handler.BridgeHandler
}

// RouterDeps 中间件依赖
type RouterDeps struct {
	AuthConfig middleware.AuthConfig
	Limiter    middleware.RateLimiter
	Audit      middleware.AuditPublisher
}

// NewWithDeps 创建路由器并注册全部路由
func NewWithDeps(cfg *config.Config, deps RouterDeps, h RouterHandlers) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine: gin.New(),
		cfg:    cfg,
	}

	r.setupMiddleware(deps)
	r.setupRoutes(h)

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware(deps RouterDeps) {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, "/health", "/ready", "/live", r.metricsPath()))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Auth(deps.AuthConfig))

	// 审计在认证之后，才能拿到用户 ID
	r.engine.Use(middleware.AuditWithConfig(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/ready", "/live", r.metricsPath()},
	}, deps.Audit))

	r.engine.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
		KeyPrefix:         "ratelimit",
	}, deps.Limiter))
}

func (r *Router) metricsPath() string {
	if p := r.cfg.Observability.Metrics.Path; p != "" {
		return p
	}
	return "/metrics"
}

// setupRoutes 配置路由
func (r *Router) setupRoutes(h RouterHandlers) {
	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/ready", h.Health.Ready)
	r.engine.GET("/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	RegisterV1Routes(r.engine.Group("/v1"), h)
}
