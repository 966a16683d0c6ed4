// Package service 模型调用的上下文标签，贯穿应用层与观测层
package service

import (
	"context"
	"strings"
)

type ctxKey int

const (
	workflowKey ctxKey = iota
	providerKey
)

const unknown = "unknown"

// 调用来源，用作指标与追踪标签
const (
	WorkflowChat     = "chat"
	WorkflowDocument = "document"
	WorkflowTool     = "tool"
)

// WithWorkflow 空白值不覆盖已有标签
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withLabel(ctx, workflowKey, workflow)
}

func WithProvider(ctx context.Context, provider string) context.Context {
	return withLabel(ctx, providerKey, provider)
}

func WorkflowFromContext(ctx context.Context) string { return label(ctx, workflowKey) }
func ProviderFromContext(ctx context.Context) string { return label(ctx, providerKey) }

func withLabel(ctx context.Context, key ctxKey, v string) context.Context {
	if v = strings.TrimSpace(v); v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

// label 缺失时返回 unknown，避免指标出现空标签
func label(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return unknown
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return unknown
}
