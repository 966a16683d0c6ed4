// Package bridge 提供 TIA Portal 自动化网关的 HTTP 客户端
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"plc-agent-api/internal/config"
	"plc-agent-api/internal/infrastructure/persistence/redis"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
	"plc-agent-api/pkg/tracer"
)

var bridgeTracer = otel.Tracer("bridge")

const statusCacheKey = "bridge:status"

// 网关端点
const (
	EndpointStatus      = "/api/status"
	EndpointImportSCL   = "/api/import-scl"
	EndpointCompile     = "/api/compile"
	EndpointExportBlock = "/api/export-block"
)

// ErrUnreachable 网关无法连接或超时
var ErrUnreachable = errors.New("automation bridge unreachable")

// ActionResult 网关动作的返回
type ActionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	BlockName string `json:"block_name,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
	XML       string `json:"xml,omitempty"`
}

// Status 网关连通状态
type Status struct {
	Connected bool `json:"connected"`
	Details   any  `json:"details"`
}

// Client 自动化网关客户端
type Client struct {
	baseURL string
	cfg     config.BridgeConfig
	http    *http.Client
	cache   *redis.Cache
}

// NewClient 创建网关客户端，cache 为 nil 时不缓存状态
func NewClient(cfg *config.Config, cache *redis.Cache) *Client {
	return NewClientWithHTTP(cfg.Bridge, &http.Client{}, cache)
}

// NewClientWithHTTP 使用指定 http.Client 创建
func NewClientWithHTTP(cfg config.BridgeConfig, hc *http.Client, cache *redis.Cache) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		http:    hc,
		cache:   cache,
	}
}

// BaseURL 网关地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Status 查询网关状态，不可达时 Connected 为 false
func (c *Client) Status(ctx context.Context) Status {
	if c.cache == nil || c.cfg.StatusCacheTTL <= 0 {
		return c.fetchStatus(ctx)
	}

	raw, err := c.cache.Remember(ctx, statusCacheKey, c.cfg.StatusCacheTTL, func(ctx context.Context) (any, error) {
		return c.fetchStatus(ctx), nil
	})
	if err != nil {
		logger.Warn(ctx, "bridge status cache failed", "error", err)
		return c.fetchStatus(ctx)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return c.fetchStatus(ctx)
	}
	return st
}

func (c *Client) fetchStatus(ctx context.Context) Status {
	var details map[string]any
	if err := c.do(ctx, http.MethodGet, EndpointStatus, nil, c.cfg.StatusTimeout, &details); err != nil {
		return Status{Connected: false, Details: "Bridge not reachable"}
	}
	return Status{Connected: true, Details: details}
}

// ImportSCL 导入 SCL 源码为程序块
func (c *Client) ImportSCL(ctx context.Context, blockName, sclCode string) (*ActionResult, error) {
	body := map[string]string{"block_name": blockName, "scl_code": sclCode}
	return c.action(ctx, EndpointImportSCL, body, c.cfg.ActionTimeout)
}

// Compile 编译当前工程
func (c *Client) Compile(ctx context.Context, blockName string) (*ActionResult, error) {
	body := map[string]string{"block_name": blockName}
	return c.action(ctx, EndpointCompile, body, c.cfg.CompileTimeout)
}

// ExportBlock 导出程序块为 XML
func (c *Client) ExportBlock(ctx context.Context, blockName string) (*ActionResult, error) {
	body := map[string]string{"block_name": blockName}
	return c.action(ctx, EndpointExportBlock, body, c.cfg.ActionTimeout)
}

func (c *Client) action(ctx context.Context, endpoint string, body any, timeout time.Duration) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, http.MethodPost, endpoint, body, timeout, &result); err != nil {
		return nil, err
	}
	// 操作会改变网关侧工程状态
	if c.cache != nil {
		if err := c.cache.Invalidate(ctx, statusCacheKey); err != nil {
			logger.Warn(ctx, "bridge status cache invalidate failed", "error", err)
		}
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, timeout time.Duration, out any) (err error) {
	ctx, span := bridgeTracer.Start(ctx, "bridge"+endpoint)
	span.SetAttributes(attribute.String("http.method", method))
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			if errors.Is(err, ErrUnreachable) {
				status = "unreachable"
			}
		}
		metrics.BridgeRequests.WithLabelValues(endpoint, status).Inc()
		tracer.End(span, err)
	}()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal bridge request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build bridge request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid bridge response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
