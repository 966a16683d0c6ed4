// Package middleware 提供 HTTP 中间件
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	apperrors "plc-agent-api/pkg/errors"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// 客户端传入的请求 ID 只接受短的可打印标识，否则重新生成
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// RequestID 为每个请求分配 ID，写入 gin 上下文、日志上下文与响应头
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if !requestIDPattern.MatchString(requestID) {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID))
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// Trace OpenTelemetry 追踪，探活与指标端点不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

// TraceContext 把当前 span 的 trace_id 暴露给日志与响应头
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		if sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set("trace_id", traceID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
			c.Request = c.Request.WithContext(ctx)
			c.Header("X-Trace-ID", traceID)
		}
		c.Next()
	}
}

// Recovery 捕获 handler panic，记录堆栈并返回统一的 500 响应
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			route := routeOf(c)
			metrics.HTTPPanics.WithLabelValues(route).Inc()
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", rec),
				"stack", string(debug.Stack()),
				"route", route,
				"method", c.Request.Method,
			)

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": apperrors.ErrInternalError.Message,
				"error": gin.H{
					"error_code": apperrors.CodeInternalError,
				},
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}

// Metrics Prometheus 请求计数与耗时，按路由模板聚合
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeOf(c)
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// routeOf 路由模板，未匹配的路径统一归为 unmatched，避免标签基数失控
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
