// Package eino 把模型与工具调用接入 Prometheus 指标和 OTel 追踪
package eino

import (
	"context"
	"sync"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"plc-agent-api/internal/domain/service"
	"plc-agent-api/pkg/metrics"
)

type startTimeKey struct{}

var registerOnce sync.Once

// Init 注册进程级全局回调，重复调用无效果
// 只有经 callbacks.InitCallbacks 建立运行信息的调用会触发
func Init() {
	registerOnce.Do(func() {
		einocb.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Tool(newToolCallbackHandler()).
			Handler())
	})
}

// newChatModelCallbackHandler 模型调用回调：调用次数、耗时、Token 与追踪
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", service.WorkflowFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}
			if input != nil {
				attrs = append(attrs,
					attribute.Int("llm.messages", len(input.Messages)),
					attribute.Int("llm.tools", len(input.Tools)),
				)
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			workflow := service.WorkflowFromContext(ctx)
			modelName := modelNameFromOutput(output)

			metrics.LLMCallTotal.WithLabelValues(workflow, modelName, "success").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(workflow, modelName).Observe(d)
			}

			span := trace.SpanFromContext(ctx)
			if output != nil && output.TokenUsage != nil {
				metrics.LLMTokensUsed.WithLabelValues(workflow, modelName, "prompt").Add(float64(output.TokenUsage.PromptTokens))
				metrics.LLMTokensUsed.WithLabelValues(workflow, modelName, "completion").Add(float64(output.TokenUsage.CompletionTokens))
				span.SetAttributes(
					attribute.Int("llm.prompt_tokens", output.TokenUsage.PromptTokens),
					attribute.Int("llm.completion_tokens", output.TokenUsage.CompletionTokens),
				)
			}
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			workflow := service.WorkflowFromContext(ctx)
			modelName := ""
			if info != nil {
				modelName = info.Type
			}

			metrics.LLMCallTotal.WithLabelValues(workflow, modelName, "error").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(workflow, modelName).Observe(d)
			}

			endWithError(ctx, err)
			return ctx
		},
	}
}

// newToolCallbackHandler 工具执行回调
// 权限与参数校验失败不会走到这里，由调度器直接计数
func newToolCallbackHandler() *cbtemplate.ToolCallbackHandler {
	return &cbtemplate.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", service.WorkflowFromContext(ctx)),
				attribute.String("tool.name", toolName(info)),
			}
			if input != nil {
				attrs = append(attrs, attribute.Int("tool.arguments_bytes", len(input.ArgumentsInJSON)))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "tool.invoke", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, _ *tool.CallbackOutput) context.Context {
			name := toolName(info)
			metrics.ToolCallTotal.WithLabelValues(name, "success").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.ToolCallDuration.WithLabelValues(name).Observe(d)
			}

			trace.SpanFromContext(ctx).End()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			name := toolName(info)
			metrics.ToolCallTotal.WithLabelValues(name, "error").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.ToolCallDuration.WithLabelValues(name).Observe(d)
			}

			endWithError(ctx, err)
			return ctx
		},
	}
}

func endWithError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func toolName(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Name
}

// elapsedSeconds 计算从 OnStart 到当前的耗时（秒），取不到开始时间返回 0
func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
