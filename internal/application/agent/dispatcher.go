package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
)

// ErrorKind 调度失败类型
type ErrorKind string

const (
	KindToolNotPermitted ErrorKind = "tool_not_permitted"
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindExecutionFailed  ErrorKind = "execution_failed"
)

// DispatchError 工具调度失败，作为工具结果回传给模型
type DispatchError struct {
	Kind    ErrorKind
	Tool    string
	Field   string
	Message string
}

func (e *DispatchError) Error() string {
	switch e.Kind {
	case KindToolNotPermitted:
		return fmt.Sprintf("Tool %q is not available on your current plan. %s", e.Tool, e.Message)
	case KindUnknownTool:
		return fmt.Sprintf("Unknown tool: %s", e.Tool)
	case KindInvalidArguments:
		if e.Field != "" {
			return fmt.Sprintf("Invalid arguments for %s: field %q %s", e.Tool, e.Field, e.Message)
		}
		return fmt.Sprintf("Invalid arguments for %s: %s", e.Tool, e.Message)
	default:
		return fmt.Sprintf("Tool error in %s: %s", e.Tool, e.Message)
	}
}

// Result 工具调用结果，Err 非空时 Content 为空
type Result struct {
	Content string
	Err     *DispatchError
}

// Text 写入工具结果轮次的文本
func (r Result) Text() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Content
}

// ToolGate 等级与工具的授权关系
type ToolGate interface {
	IsToolAllowed(tier entity.Tier, tool string) bool
}

// Dispatcher 工具调度器
type Dispatcher struct {
	catalog *Catalog
	gate    ToolGate
	timeout time.Duration
}

// NewDispatcher 创建调度器，timeout 为单次工具执行上限
func NewDispatcher(catalog *Catalog, gate ToolGate, timeout time.Duration) *Dispatcher {
	return &Dispatcher{catalog: catalog, gate: gate, timeout: timeout}
}

// Catalog 工具目录
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}

// Invoke 授权、查找、校验参数后执行工具，失败不会以 error 返回
func (d *Dispatcher) Invoke(ctx context.Context, name, rawArgs string, tier entity.Tier) Result {
	if !d.gate.IsToolAllowed(tier, name) {
		return d.reject(ctx, name, &DispatchError{
			Kind:    KindToolNotPermitted,
			Tool:    name,
			Message: "Upgrade your plan to use it.",
		})
	}

	spec, ok := d.catalog.Lookup(name)
	if !ok {
		return d.reject(ctx, name, &DispatchError{Kind: KindUnknownTool, Tool: name})
	}
	if !tier.AtLeast(spec.MinTier) {
		return d.reject(ctx, name, &DispatchError{
			Kind:    KindToolNotPermitted,
			Tool:    name,
			Message: fmt.Sprintf("It requires the %s plan.", spec.MinTier),
		})
	}

	args, derr := parseArgs(spec, rawArgs)
	if derr != nil {
		return d.reject(ctx, name, derr)
	}

	return d.execute(ctx, spec, rawArgs, args)
}

func (d *Dispatcher) reject(ctx context.Context, name string, derr *DispatchError) Result {
	metrics.ToolCallTotal.WithLabelValues(name, string(derr.Kind)).Inc()
	logger.Warn(ctx, "tool call rejected", "tool", name, "kind", derr.Kind, "field", derr.Field)
	return Result{Err: derr}
}

func (d *Dispatcher) execute(ctx context.Context, spec *ToolSpec, rawArgs string, args Args) (res Result) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      spec.Name,
		Type:      "PLCTool",
		Component: components.ComponentOfTool,
	})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: rawArgs})

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			callbacks.OnError(ctx, err)
			logger.Error(ctx, "tool panicked", err, "tool", spec.Name)
			res = Result{Err: &DispatchError{Kind: KindExecutionFailed, Tool: spec.Name, Message: err.Error()}}
		}
	}()

	out, err := spec.Handler(ctx, args)
	if err != nil {
		callbacks.OnError(ctx, err)
		logger.Warn(ctx, "tool failed", "tool", spec.Name, "error", err)
		return Result{Err: &DispatchError{Kind: KindExecutionFailed, Tool: spec.Name, Message: err.Error()}}
	}
	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return Result{Content: out}
}

// parseArgs 按参数定义校验 JSON 参数
func parseArgs(spec *ToolSpec, raw string) (Args, *DispatchError) {
	invalid := func(field, msg string) *DispatchError {
		return &DispatchError{Kind: KindInvalidArguments, Tool: spec.Name, Field: field, Message: msg}
	}

	args := Args{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, invalid("", "arguments must be a JSON object")
		}
	}

	for _, field := range sortedKeys(spec.Params) {
		p := spec.Params[field]
		v, present := args[field]
		if !present || v == nil {
			if p.Required {
				return nil, invalid(field, "is required")
			}
			continue
		}
		switch p.Type {
		case schema.String:
			s, ok := v.(string)
			if !ok {
				return nil, invalid(field, "must be a string")
			}
			if p.Required && strings.TrimSpace(s) == "" {
				return nil, invalid(field, "must not be empty")
			}
			if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
				return nil, invalid(field, "must be one of "+strings.Join(p.Enum, ", "))
			}
		case schema.Integer, schema.Number:
			if _, ok := v.(float64); !ok {
				return nil, invalid(field, "must be a number")
			}
		case schema.Boolean:
			if _, ok := v.(bool); !ok {
				return nil, invalid(field, "must be a boolean")
			}
		}
	}
	return args, nil
}

func sortedKeys(m map[string]*schema.ParameterInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
