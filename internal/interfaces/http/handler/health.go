// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"plc-agent-api/internal/infrastructure/persistence/postgres"
	"plc-agent-api/internal/infrastructure/persistence/redis"
)

const readyTimeout = 2 * time.Second

// HealthHandler 存活与就绪探针
type HealthHandler struct {
	pg      *postgres.Client
	redis   *redis.Client
	version string
}

func NewHealthHandler(pg *postgres.Client, redisClient *redis.Client, version string) *HealthHandler {
	return &HealthHandler{pg: pg, redis: redisClient, version: version}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type probeResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                  `json:"status"`
	Checks map[string]*probeResult `json:"checks"`
}

var errNotConfigured = errors.New("client not configured")

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Live GET /live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready GET /ready
// postgres 与 redis 都是必需依赖，并发探测
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	probes := map[string]func(context.Context) error{
		"postgres": func(ctx context.Context) error {
			if h.pg == nil {
				return errNotConfigured
			}
			return h.pg.HealthCheck(ctx)
		},
		"redis": func(ctx context.Context) error {
			if h.redis == nil {
				return errNotConfigured
			}
			return h.redis.HealthCheck(ctx)
		},
	}

	var (
		mu     sync.Mutex
		checks = make(map[string]*probeResult, len(probes))
		ready  = true
	)
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			start := time.Now()
			err := probe(ctx)
			res := &probeResult{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "error"
				if errors.Is(err, errNotConfigured) {
					res.Status = "missing"
				}
				res.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			checks[name] = res
			ready = ready && err == nil
			return nil
		})
	}
	_ = g.Wait()

	if !ready {
		c.JSON(http.StatusServiceUnavailable, readinessResponse{Status: "not_ready", Checks: checks})
		return
	}
	c.JSON(http.StatusOK, readinessResponse{Status: "ok", Checks: checks})
}
