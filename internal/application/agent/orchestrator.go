package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/pkg/logger"
	"plc-agent-api/pkg/metrics"
)

// 默认值
const (
	DefaultMaxRounds = 8
	fallbackReply    = "I received your message but couldn't generate a response. Please try again."
)

// ModelUnavailableError 首轮模型调用（含无工具重试）失败
type ModelUnavailableError struct {
	Err error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("Error calling AI: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// Options 编排参数
type Options struct {
	SystemPrompt string
	MaxRounds    int
	MaxTokens    int
	ModelTimeout time.Duration
}

// Orchestrator 模型与工具的轮次循环，自身无会话状态
type Orchestrator struct {
	base       model.ToolCallingChatModel
	withTools  model.ToolCallingChatModel
	dispatcher *Dispatcher
	opts       Options
}

// NewOrchestrator 绑定工具目录到模型
func NewOrchestrator(m model.ToolCallingChatModel, dispatcher *Dispatcher, opts Options) (*Orchestrator, error) {
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}
	bound, err := m.WithTools(dispatcher.Catalog().Infos())
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	return &Orchestrator{
		base:       m,
		withTools:  bound,
		dispatcher: dispatcher,
		opts:       opts,
	}, nil
}

// SubmitInput 一次用户提交
type SubmitInput struct {
	Text          string
	Tier          entity.Tier
	ModelOverride string
}

// SubmitResult 提交结果
type SubmitResult struct {
	Text string
	// Appended 本次追加到历史的消息，首条为用户消息
	Appended []*schema.Message
	Rounds   int
	// Truncated 因轮次上限、模型失败或调用方取消而提前结束
	Truncated bool
	Usage     schema.TokenUsage
}

// Session 单个会话的内存状态，Submit 在会话锁内串行执行
type Session struct {
	UserID         string
	ConversationID string

	orch    *Orchestrator
	store   HistoryStore
	mu      sync.Mutex
	history []*schema.Message
}

// NewSession 创建会话，store 为 nil 时不持久化
func NewSession(orch *Orchestrator, store HistoryStore, userID, conversationID string, history []*schema.Message) *Session {
	return &Session{
		UserID:         userID,
		ConversationID: conversationID,
		orch:           orch,
		store:          store,
		history:        history,
	}
}

// Len 历史消息数
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History 历史消息副本
func (s *Session) History() []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Message(nil), s.history...)
}

// Submit 执行一次完整提交并持久化本次追加的消息
// 持久化失败时回滚内存历史并返回错误
func (s *Session) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = logger.WithConversation(ctx, s.UserID, s.ConversationID)
	offset := len(s.history)

	res, history, err := s.orch.run(ctx, s.history, in)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Append(context.WithoutCancel(ctx), s.UserID, s.ConversationID, offset, res.Appended); err != nil {
			logger.Error(ctx, "persist turns failed", err, "count", len(res.Appended))
			return nil, fmt.Errorf("failed to persist conversation: %w", err)
		}
	}
	s.history = history
	return res, nil
}

// run 在 history 的副本上执行轮次循环
// 首轮失败返回 *ModelUnavailableError，历史保持不变
func (o *Orchestrator) run(ctx context.Context, history []*schema.Message, in SubmitInput) (*SubmitResult, []*schema.Message, error) {
	offset := len(history)
	working := make([]*schema.Message, offset, offset+8)
	copy(working, history)
	working = append(working, schema.UserMessage(in.Text))

	res := &SubmitResult{}
	var collected []string
	var final *schema.Message

	for {
		if res.Rounds >= o.opts.MaxRounds {
			logger.Warn(ctx, "tool round cap reached", "rounds", res.Rounds)
			res.Truncated = true
			break
		}
		if res.Rounds > 0 && ctx.Err() != nil {
			logger.Info(ctx, "submission cancelled between rounds", "rounds", res.Rounds)
			res.Truncated = true
			break
		}
		res.Rounds++

		resp, err := o.generate(ctx, working, in.ModelOverride)
		if err != nil {
			if res.Rounds == 1 {
				logger.Error(ctx, "model unavailable", err)
				return nil, nil, &ModelUnavailableError{Err: err}
			}
			logger.Error(ctx, "model failed mid submission", err, "round", res.Rounds)
			res.Truncated = true
			break
		}
		addUsage(&res.Usage, resp)

		if resp.Content != "" {
			collected = append(collected, resp.Content)
		}
		if len(resp.ToolCalls) == 0 {
			final = schema.AssistantMessage(resp.Content, nil)
			break
		}

		working = append(working, schema.AssistantMessage(resp.Content, resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result := o.dispatcher.Invoke(context.WithoutCancel(ctx), call.Function.Name, call.Function.Arguments, in.Tier)
			working = append(working, schema.ToolMessage(result.Text(), call.ID, schema.WithToolName(call.Function.Name)))
		}
	}

	res.Text = strings.Join(collected, "\n")
	if res.Text == "" {
		res.Text = fallbackReply
	}
	if final == nil {
		final = schema.AssistantMessage(res.Text, nil)
	}
	working = append(working, final)

	metrics.ToolRounds.Observe(float64(res.Rounds))
	res.Appended = working[offset:]
	return res, working, nil
}

// generate 调用带工具的模型，失败后以无工具方式重试一次
// 调用与调用方取消解耦，只受 ModelTimeout 约束
func (o *Orchestrator) generate(ctx context.Context, history []*schema.Message, modelOverride string) (*schema.Message, error) {
	msgs := make([]*schema.Message, 0, len(history)+1)
	if o.opts.SystemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(o.opts.SystemPrompt))
	}
	msgs = append(msgs, history...)

	opts := make([]model.Option, 0, 2)
	if o.opts.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(o.opts.MaxTokens))
	}
	if modelOverride != "" {
		opts = append(opts, model.WithModel(modelOverride))
	}

	resp, err := o.call(ctx, o.withTools, msgs, append(opts, model.WithToolChoice(schema.ToolChoiceAllowed))...)
	if err == nil {
		return resp, nil
	}
	logger.Warn(ctx, "tool-enabled model call failed, retrying without tools", "error", err)
	return o.call(ctx, o.base, msgs, opts...)
}

func (o *Orchestrator) call(ctx context.Context, m model.BaseChatModel, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	callCtx := context.WithoutCancel(ctx)
	if o.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, o.opts.ModelTimeout)
		defer cancel()
	}
	callCtx = callbacks.InitCallbacks(callCtx, &callbacks.RunInfo{
		Name:      "conversation",
		Type:      "ChatModel",
		Component: components.ComponentOfChatModel,
	})

	resp, err := m.Generate(callCtx, msgs, opts...)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("model returned empty response")
	}
	return resp, nil
}

func addUsage(total *schema.TokenUsage, resp *schema.Message) {
	if resp.ResponseMeta == nil || resp.ResponseMeta.Usage == nil {
		return
	}
	total.PromptTokens += resp.ResponseMeta.Usage.PromptTokens
	total.CompletionTokens += resp.ResponseMeta.Usage.CompletionTokens
	total.TotalTokens += resp.ResponseMeta.Usage.TotalTokens
}

// RunOnce 在不持久化的临时会话中执行一次提交
func (o *Orchestrator) RunOnce(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error) {
	return NewSession(o, nil, userID, "", nil).Submit(ctx, in)
}
