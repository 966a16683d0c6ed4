package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"plc-agent-api/internal/application/access"
	"plc-agent-api/internal/domain/entity"
	"plc-agent-api/internal/infrastructure/bridge"
)

// scriptedModel 按顺序返回预设回复，WithTools 返回的副本共享同一脚本
type scriptedModel struct {
	mu        sync.Mutex
	tools     []*schema.ToolInfo
	steps     []step
	calls     int
	seen      [][]*schema.Message
	toolCalls int
	parent    *scriptedModel
}

type step struct {
	msg *schema.Message
	err error
}

func (m *scriptedModel) root() *scriptedModel {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seen = append(r.seen, append([]*schema.Message(nil), input...))
	if m.parent != nil {
		r.toolCalls++
	}
	if r.calls >= len(r.steps) {
		return nil, errors.New("script exhausted")
	}
	s := r.steps[r.calls]
	r.calls++
	return s.msg, s.err
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return &scriptedModel{tools: tools, parent: m.root()}, nil
}

func reply(text string) step {
	return step{msg: schema.AssistantMessage(text, nil)}
}

func failure(msg string) step {
	return step{err: errors.New(msg)}
}

func toolCalls(text string, calls ...schema.ToolCall) step {
	return step{msg: schema.AssistantMessage(text, calls)}
}

func call(id, name, args string) schema.ToolCall {
	return schema.ToolCall{ID: id, Type: "function", Function: schema.FunctionCall{Name: name, Arguments: args}}
}

type fakeCompleter struct {
	mu      sync.Mutex
	prompts []string
	out     string
	err     error
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
	return c.out, c.err
}

type fakeFiles struct {
	mu    sync.Mutex
	saved map[string]string
	err   error
}

func (f *fakeFiles) Save(_ context.Context, name, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[name] = content
	return "output/" + name, nil
}

type fakeBridge struct {
	result *bridge.ActionResult
	err    error
	calls  []string
}

func (b *fakeBridge) BaseURL() string { return "http://bridge.local:8765" }

func (b *fakeBridge) ImportSCL(_ context.Context, blockName, _ string) (*bridge.ActionResult, error) {
	b.calls = append(b.calls, "import:"+blockName)
	return b.result, b.err
}

func (b *fakeBridge) Compile(_ context.Context, blockName string) (*bridge.ActionResult, error) {
	b.calls = append(b.calls, "compile:"+blockName)
	return b.result, b.err
}

func (b *fakeBridge) ExportBlock(_ context.Context, blockName string) (*bridge.ActionResult, error) {
	b.calls = append(b.calls, "export:"+blockName)
	return b.result, b.err
}

type memHistory struct {
	mu      sync.Mutex
	rows    map[string][]*schema.Message
	loads   int
	failAdd error
}

func newMemHistory() *memHistory {
	return &memHistory{rows: map[string][]*schema.Message{}}
}

func (h *memHistory) Load(_ context.Context, userID, conversationID string) ([]*schema.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads++
	return append([]*schema.Message(nil), h.rows[userID+"/"+conversationID]...), nil
}

func (h *memHistory) Append(_ context.Context, userID, conversationID string, offset int, msgs []*schema.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAdd != nil {
		return h.failAdd
	}
	key := userID + "/" + conversationID
	if offset != len(h.rows[key]) {
		return errors.New("offset mismatch")
	}
	h.rows[key] = append(h.rows[key], msgs...)
	return nil
}

// echoSpec 简单工具，返回参数 text
func echoSpec(name string) *ToolSpec {
	return &ToolSpec{
		Name: name,
		Params: map[string]*schema.ParameterInfo{
			"text": {Type: schema.String, Required: true},
		},
		Handler: func(_ context.Context, args Args) (string, error) {
			return "echo:" + args.String("text"), nil
		},
	}
}

func openGate(tools ...string) *access.Gate {
	set := map[string]struct{}{}
	for _, t := range tools {
		set[t] = struct{}{}
	}
	p := access.Policy{DailyMessages: access.Unbounded, MaxProjects: access.Unbounded, Tools: set}
	return access.NewGateWithPolicies(map[entity.Tier]access.Policy{
		entity.TierFree:       p,
		entity.TierPro:        p,
		entity.TierEnterprise: p,
	})
}
