package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/domain/service"
)

// Completer 单轮补全，工具内部使用
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelCompleter 基于 ChatModel 的单轮补全
type ModelCompleter struct {
	model     model.BaseChatModel
	maxTokens int
	timeout   time.Duration
}

// NewModelCompleter 创建补全器
func NewModelCompleter(m model.BaseChatModel, maxTokens int, timeout time.Duration) *ModelCompleter {
	return &ModelCompleter{model: m, maxTokens: maxTokens, timeout: timeout}
}

// Complete 发送一条用户消息并返回回复文本
func (c *ModelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx = service.WithWorkflow(ctx, service.WorkflowTool)
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      "tool_completion",
		Type:      "ChatModel",
		Component: components.ComponentOfChatModel,
	})

	var opts []model.Option
	if c.maxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(c.maxTokens))
	}
	resp, err := c.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)}, opts...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("completion returned empty response")
	}
	return resp.Content, nil
}
