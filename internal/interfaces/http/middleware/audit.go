// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"plc-agent-api/internal/infrastructure/messaging"
	"plc-agent-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuditPublisher 审计日志发布
type AuditPublisher interface {
	PublishAuditLog(ctx context.Context, log *messaging.AuditLogMessage) (string, error)
}

// AuditConfig 审计配置
type AuditConfig struct {
	// Enabled 是否启用审计
	Enabled bool
	// SkipPaths 跳过审计的路径
	SkipPaths []string
}

// AuditWithConfig 审计中间件
// 所有请求写访问日志，写操作额外发布到审计流
func AuditWithConfig(cfg AuditConfig, publisher AuditPublisher) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skipMap := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		ctx := c.Request.Context()
		logger.Info(ctx, "api audit",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", duration.Milliseconds(),
			"ip", c.ClientIP(),
		)

		if publisher == nil || !isMutation(c.Request.Method) {
			return
		}
		_, err := publisher.PublishAuditLog(context.WithoutCancel(ctx), &messaging.AuditLogMessage{
			UserID:       UserID(c),
			Action:       c.Request.Method,
			ResourceType: c.FullPath(),
			RequestID:    c.GetString("request_id"),
			TraceID:      c.GetString("trace_id"),
			IPAddress:    c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			Status:       c.Writer.Status(),
			Metadata: map[string]any{
				"path":        c.Request.URL.Path,
				"duration_ms": duration.Milliseconds(),
			},
		})
		if err != nil {
			logger.Warn(ctx, "publish audit log failed", "error", err)
		}
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// DefaultAuditSkipPaths 默认跳过审计的路径
var DefaultAuditSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
}
